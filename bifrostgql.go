package bifrostgql

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	pagehttp "github.com/3-lines-studio/bifrost-graphql/internal/adapters/http"
	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
	"github.com/3-lines-studio/bifrost-graphql/internal/provision"
	"github.com/3-lines-studio/bifrost-graphql/internal/telemetry"
	"github.com/3-lines-studio/bifrost-graphql/internal/usecase"
)

type (
	Component      = usecase.Component
	ComponentFunc  = usecase.ComponentFunc
	Preparable     = usecase.Preparable
	Store          = usecase.Store
	StoreFactory   = usecase.StoreFactory
	Instance       = usecase.Instance
	Phase          = usecase.Phase
	Props          = core.Props
	RequestContext = core.RequestContext
	InitialState   = core.InitialState
	RedirectError  = core.RedirectError
	KeyPolicy      = core.KeyPolicy

	ClientConfig    = provision.ClientConfig
	FactoryResult   = provision.FactoryResult
	FactoryFunction = provision.FactoryFunction
	ClientFactory   = provision.ClientFactory
	LiteralSettings = provision.LiteralSettings

	Client         = graphql.Client
	ClientSettings = graphql.Settings
	Credentials    = graphql.Credentials
	Operation      = graphql.Operation
	Result         = graphql.Result
)

const (
	DefaultMaxPasses = usecase.DefaultMaxPasses

	KeyByEndpoint = core.KeyByEndpoint
	KeyByName     = core.KeyByName

	CredentialsSameOrigin = graphql.CredentialsSameOrigin
	CredentialsInclude    = graphql.CredentialsInclude
	CredentialsOmit       = graphql.CredentialsOmit
)

var (
	ErrPrefetchNotSettled = usecase.ErrPrefetchNotSettled

	ParseKeyPolicy = core.ParseKeyPolicy

	ParseOperation      = graphql.Parse
	MustParseOperation  = graphql.MustParse
	DefaultIDFromObject = graphql.DefaultIDFromObject
)

// Endpoint configures a client from a bare endpoint URI.
func Endpoint(uri string) ClientConfig {
	return provision.EndpointString(uri)
}

// Settings configures a client from a literal settings record.
func Settings(s ClientSettings) ClientConfig {
	return provision.LiteralSettings{Settings: s}
}

// Factory configures a client from a function of runtime state.
func Factory(fn FactoryFunction) ClientConfig {
	return fn
}

// ClientFrom returns the client provided to the component tree.
func ClientFrom(ctx context.Context) *Client {
	return usecase.ClientFrom(ctx)
}

func StoreFrom(ctx context.Context) Store {
	return usecase.StoreFrom(ctx)
}

// PropsLoader loads route-level props from the incoming request.
type PropsLoader func(*http.Request) (map[string]any, error)

type PageConfig struct {
	Client    ClientConfig
	Loader    PropsLoader
	Store     StoreFactory
	MaxPasses int
	Title     string
}

type PageOption func(*PageConfig)

func WithGraphQL(config ClientConfig) PageOption {
	return func(c *PageConfig) {
		c.Client = config
	}
}

func WithLoader(loader PropsLoader) PageOption {
	return func(c *PageConfig) {
		c.Loader = loader
	}
}

func WithStore(f StoreFactory) PageOption {
	return func(c *PageConfig) {
		c.Store = f
	}
}

func WithMaxPasses(n int) PageOption {
	return func(c *PageConfig) {
		c.MaxPasses = n
	}
}

func WithTitle(title string) PageOption {
	return func(c *PageConfig) {
		c.Title = title
	}
}

type Route struct {
	Pattern string
	Page    Component
	Options []PageOption
}

func Page(pattern string, page Component, opts ...PageOption) Route {
	return Route{
		Pattern: pattern,
		Page:    page,
		Options: opts,
	}
}

func (r Route) config() PageConfig {
	var cfg PageConfig
	for _, opt := range r.Options {
		opt(&cfg)
	}
	return cfg
}

type App struct {
	routes      []Route
	isDev       bool
	policy      core.KeyPolicy
	logger      zerolog.Logger
	registerer  prometheus.Registerer
	telemetry   telemetry.Collector
	provisioner *provision.Provisioner
}

type Option func(*App)

func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

func WithDev(isDev bool) Option {
	return func(a *App) {
		a.isDev = isDev
	}
}

func WithKeyPolicy(policy KeyPolicy) Option {
	return func(a *App) {
		a.policy = policy
	}
}

// WithRegisterer exports provisioning and prefetch metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) {
		a.registerer = reg
	}
}

func New(routes []Route, opts ...Option) (*App, error) {
	app := &App{
		routes:    routes,
		policy:    core.KeyByEndpoint,
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.registerer != nil {
		collector, err := telemetry.NewPrometheusCollector(app.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		app.telemetry = collector
	}

	app.provisioner = provision.New(core.EnvServer,
		provision.WithKeyPolicy(app.policy),
		provision.WithLogger(app.logger),
		provision.WithTelemetry(app.telemetry),
	)
	return app, nil
}

type router interface {
	http.Handler
	Handle(pattern string, handler http.Handler)
}

// Wrap registers every page route on api and returns it.
func (a *App) Wrap(api router) http.Handler {
	if api == nil {
		panic("bifrostgql: nil router passed to Wrap; use app.Handler()")
	}

	for _, route := range a.routes {
		cfg := route.config()
		wrapper := newWrapper(route, cfg, a.provisioner, a.logger, a.telemetry)
		api.Handle(route.Pattern, pagehttp.NewPageHandler(wrapper, pagehttp.PageHandlerOptions{
			Title:  cfg.Title,
			IsDev:  a.isDev,
			Logger: a.logger,
		}))
	}
	return api
}

func (a *App) Handler() http.Handler {
	return a.Wrap(http.NewServeMux())
}

func newWrapper(route Route, cfg PageConfig, p *provision.Provisioner, logger zerolog.Logger, collector telemetry.Collector) *usecase.Wrapper {
	page := route.Page
	if cfg.Loader != nil {
		page = &loaderPage{Component: page, loader: cfg.Loader}
	}
	return usecase.NewWrapper(page, cfg.Client, p,
		usecase.WithStore(cfg.Store),
		usecase.WithMaxPasses(cfg.MaxPasses),
		usecase.WithLogger(logger.With().Str("route", route.Pattern).Logger()),
		usecase.WithTelemetry(collector),
	)
}

// loaderPage turns a route loader into page initial props. The loader
// runs first; a page that is itself Preparable overrides its keys.
type loaderPage struct {
	Component
	loader PropsLoader
}

func (p *loaderPage) InitialProps(ctx context.Context, rc *core.RequestContext) (map[string]any, error) {
	props := map[string]any{}
	if rc != nil && rc.Request != nil {
		loaded, err := p.loader(rc.Request)
		if err != nil {
			return nil, err
		}
		for k, v := range loaded {
			props[k] = v
		}
	}
	if inner, ok := p.Component.(Preparable); ok {
		own, err := inner.InitialProps(ctx, rc)
		if err != nil {
			return nil, err
		}
		for k, v := range own {
			props[k] = v
		}
	}
	return props, nil
}
