package provision

import (
	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

// ClientConfig is one of LiteralSettings, EndpointString or FactoryFunction.
type ClientConfig interface {
	clientConfig()
}

// FactoryResult is what a FactoryFunction hands back: settings to build
// from, or a ClientFactory that builds the client itself.
type FactoryResult interface {
	factoryResult()
}

type LiteralSettings struct {
	Settings graphql.Settings
}

type EndpointString string

// FactoryFunction derives the client configuration from runtime state.
// rc is nil outside the server preparation phase.
type FactoryFunction func(initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (FactoryResult, error)

// ClientFactory builds a client directly. Clients it returns bypass the
// registry.
type ClientFactory func(initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (*graphql.Client, error)

func (LiteralSettings) clientConfig() {}
func (EndpointString) clientConfig()  {}
func (FactoryFunction) clientConfig() {}

func (LiteralSettings) factoryResult() {}
func (ClientFactory) factoryResult()   {}
