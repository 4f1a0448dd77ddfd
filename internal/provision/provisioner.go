package provision

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
	"github.com/3-lines-studio/bifrost-graphql/internal/telemetry"
)

// Provisioner resolves client configs into clients for one environment.
// On the server every resolution builds a new client; in the browser
// clients are shared through the registry.
type Provisioner struct {
	env       core.Environment
	registry  *Registry
	policy    core.KeyPolicy
	logger    zerolog.Logger
	telemetry telemetry.Collector
}

type Option func(*Provisioner)

func WithRegistry(r *Registry) Option {
	return func(p *Provisioner) {
		p.registry = r
	}
}

func WithKeyPolicy(policy core.KeyPolicy) Option {
	return func(p *Provisioner) {
		p.policy = policy
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

func WithTelemetry(c telemetry.Collector) Option {
	return func(p *Provisioner) {
		if c != nil {
			p.telemetry = c
		}
	}
}

func New(env core.Environment, opts ...Option) *Provisioner {
	p := &Provisioner{
		env:       env,
		policy:    core.KeyByEndpoint,
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}
	return p
}

func (p *Provisioner) Environment() core.Environment {
	return p.env
}

func (p *Provisioner) Registry() *Registry {
	return p.registry
}

func (p *Provisioner) KeyFor(settings graphql.Settings) string {
	return core.CacheKey(p.policy, settings.Name, settings.URI)
}

// Resolve turns config into a client.
func (p *Provisioner) Resolve(config ClientConfig, initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (*graphql.Client, error) {
	settings, client, err := p.settingsFor(config, initial, isServerRender, rc)
	if err != nil {
		return nil, err
	}
	if client != nil {
		return client, nil
	}

	if err := settings.Validate(); err != nil {
		return nil, &core.ConfigurationError{Reason: "invalid settings", Err: err}
	}

	key := p.KeyFor(settings)
	build := func() (*graphql.Client, error) {
		c, err := graphql.New(settings, graphql.WithLogger(p.logger))
		if err != nil {
			return nil, &core.ConfigurationError{Reason: "build client", Err: err}
		}
		p.telemetry.IncClientCreated(p.env.String())
		p.logger.Debug().
			Str("client_id", c.ID()).
			Str("cache_key", key).
			Str("environment", p.env.String()).
			Msg("graphql client created")
		return c, nil
	}

	if p.env.IsServer() {
		return build()
	}

	c, created, err := p.registry.GetOrCreate(key, build)
	if err != nil {
		return nil, err
	}
	if !created {
		p.telemetry.IncClientReused(key)
	}
	return c, nil
}

func (p *Provisioner) settingsFor(config ClientConfig, initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (graphql.Settings, *graphql.Client, error) {
	switch c := config.(type) {
	case FactoryFunction:
		if c == nil {
			return graphql.Settings{}, nil, &core.ConfigurationError{Reason: "nil factory"}
		}
		result, err := callFactory(c, initial, isServerRender, rc)
		if err != nil {
			return graphql.Settings{}, nil, err
		}
		switch r := result.(type) {
		case ClientFactory:
			client, err := callClientFactory(r, initial, isServerRender, rc)
			return graphql.Settings{}, client, err
		case LiteralSettings:
			return r.Settings, nil, nil
		case nil:
			return graphql.Settings{}, nil, &core.ConfigurationError{Reason: "factory returned no settings"}
		default:
			return graphql.Settings{}, nil, &core.ConfigurationError{Reason: fmt.Sprintf("factory returned unsupported %T", result)}
		}

	case EndpointString:
		settings := graphql.EndpointSettings(string(c))
		settings.SSRMode = isServerRender
		return settings, nil, nil

	case LiteralSettings:
		settings := c.Settings
		settings.InitialState = initial
		settings.SSRMode = isServerRender
		return settings, nil, nil

	case nil:
		return graphql.Settings{}, nil, &core.ConfigurationError{Reason: "no client config"}

	default:
		return graphql.Settings{}, nil, &core.ConfigurationError{Reason: fmt.Sprintf("unsupported config %T", config)}
	}
}

func callFactory(fn FactoryFunction, initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (result FactoryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.ConfigurationError{Reason: "factory panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	result, err = fn(initial, isServerRender, rc)
	if err != nil {
		return nil, &core.ConfigurationError{Reason: "factory failed", Err: err}
	}
	return result, nil
}

func callClientFactory(fn ClientFactory, initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (client *graphql.Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.ConfigurationError{Reason: "client factory panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	if fn == nil {
		return nil, &core.ConfigurationError{Reason: "nil client factory"}
	}
	client, err = fn(initial, isServerRender, rc)
	if err != nil {
		return nil, &core.ConfigurationError{Reason: "client factory failed", Err: err}
	}
	if client == nil {
		return nil, &core.ConfigurationError{Reason: "client factory returned no client"}
	}
	return client, nil
}
