package usecase

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
	"github.com/3-lines-studio/bifrost-graphql/internal/provision"
	"github.com/3-lines-studio/bifrost-graphql/internal/telemetry"
)

var tracer = otel.Tracer("github.com/3-lines-studio/bifrost-graphql/internal/usecase")

// Component renders a page or part of one. Data-dependent components look
// their client up with ClientFrom.
type Component interface {
	Render(ctx context.Context, w io.Writer, props core.Props) error
}

type ComponentFunc func(ctx context.Context, w io.Writer, props core.Props) error

func (f ComponentFunc) Render(ctx context.Context, w io.Writer, props core.Props) error {
	return f(ctx, w, props)
}

// Preparable pages contribute their own props during preparation.
type Preparable interface {
	InitialProps(ctx context.Context, rc *core.RequestContext) (map[string]any, error)
}

// Store is auxiliary page state bound to a client and snapshotted next to
// the cache.
type Store interface {
	State() map[string]any
}

type StoreFactory func(client *graphql.Client, initial *core.InitialState) (Store, error)

type Wrapper struct {
	page        Component
	config      provision.ClientConfig
	provisioner *provision.Provisioner
	store       StoreFactory
	maxPasses   int
	logger      zerolog.Logger
	telemetry   telemetry.Collector
}

type Option func(*Wrapper)

func WithStore(f StoreFactory) Option {
	return func(w *Wrapper) {
		w.store = f
	}
}

func WithMaxPasses(n int) Option {
	return func(w *Wrapper) {
		if n > 0 {
			w.maxPasses = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Wrapper) {
		w.logger = logger
	}
}

func WithTelemetry(c telemetry.Collector) Option {
	return func(w *Wrapper) {
		if c != nil {
			w.telemetry = c
		}
	}
}

// NewWrapper wraps page. A nil config wraps a page that needs no client.
func NewWrapper(page Component, config provision.ClientConfig, provisioner *provision.Provisioner, opts ...Option) *Wrapper {
	w := &Wrapper{
		page:        page,
		config:      config,
		provisioner: provisioner,
		maxPasses:   DefaultMaxPasses,
		logger:      zerolog.Nop(),
		telemetry:   telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wrapper) Page() Component {
	return w.page
}

func (w *Wrapper) isServer() bool {
	return w.provisioner.Environment().IsServer()
}

// Prepare is the preparation phase. On the server it settles every data
// dependency of the page before returning props carrying the snapshot.
func (w *Wrapper) Prepare(ctx context.Context, rc *core.RequestContext) (core.Props, error) {
	ctx, span := tracer.Start(ctx, "wrapper.prepare")
	defer span.End()

	props, err := w.prepare(ctx, rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return props, err
}

func (w *Wrapper) prepare(ctx context.Context, rc *core.RequestContext) (core.Props, error) {
	if rc == nil {
		rc = core.NewRequestContext(nil)
	}
	logger := w.logger.With().Str("path", rc.Pathname).Logger()
	isServer := w.isServer()

	var (
		client *graphql.Client
		store  Store
		err    error
	)
	if w.config != nil {
		client, err = w.provisioner.Resolve(w.config, nil, isServer, rc)
		if err != nil {
			return nil, err
		}
		store, err = w.newStore(client, nil)
		if err != nil {
			return nil, err
		}
	}

	props := core.Props{core.PropURL: rc.URLProps()}
	if p, ok := w.page.(Preparable); ok {
		own, err := p.InitialProps(ctx, rc)
		if err != nil {
			return nil, err
		}
		maps.Copy(props, own)
	}

	if client == nil {
		return props, nil
	}

	if isServer {
		logger.Debug().Str("phase", PhaseServerPreparing.String()).Str("client_id", client.ID()).Msg("prefetch started")

		render := func(ctx context.Context) error {
			return w.page.Render(Provide(ctx, client, store), io.Discard, props)
		}
		passes, fetches, err := settle(ctx, w.maxPasses, render)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("prefetch.passes", passes),
			attribute.Int("prefetch.fetches", fetches),
		)
		if err != nil {
			logger.Error().Err(err).Int("passes", passes).Msg("prefetch failed")
			return nil, err
		}
		w.telemetry.ObservePrefetch(passes, fetches)

		logger.Debug().
			Str("phase", PhaseServerSnapshotted.String()).
			Int("passes", passes).
			Int("fetches", fetches).
			Msg("prefetch settled")
	}

	props[core.PropInitialState] = snapshot(client, store)
	return props, nil
}

// Construct is the construction phase. It never sees the request context:
// the client is rebuilt from the snapshot in props alone.
func (w *Wrapper) Construct(props core.Props) (*Instance, error) {
	inst := &Instance{
		wrapper: w,
		props:   props,
		phase:   PhaseServerSnapshotted,
	}
	if !w.isServer() {
		inst.phase = PhaseBrowserConstructed
	}
	if w.config == nil {
		return inst, nil
	}

	state, err := core.InitialStateFromProps(props)
	if err != nil {
		return nil, err
	}

	client, err := w.provisioner.Resolve(w.config, state, w.isServer(), nil)
	if err != nil {
		return nil, err
	}
	if state != nil {
		client.Restore(state.Apollo.Data)
	}

	store, err := w.newStore(client, state)
	if err != nil {
		return nil, err
	}

	inst.client = client
	inst.store = store
	w.logger.Debug().Str("phase", inst.phase.String()).Str("client_id", client.ID()).Msg("page constructed")
	return inst, nil
}

func (w *Wrapper) newStore(client *graphql.Client, initial *core.InitialState) (Store, error) {
	if w.store == nil {
		return nil, nil
	}
	s, err := w.store(client, initial)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	return s, nil
}

func snapshot(client *graphql.Client, store Store) *core.InitialState {
	state := &core.InitialState{
		Apollo: core.ApolloState{Data: client.Extract()},
	}
	if store != nil {
		state.Store = store.State()
	}
	return state
}

// Instance is a constructed page: resolved client, store and props.
type Instance struct {
	wrapper *Wrapper
	client  *graphql.Client
	store   Store
	props   core.Props
	phase   Phase
}

func (i *Instance) Client() *graphql.Client {
	return i.client
}

func (i *Instance) Store() Store {
	return i.store
}

func (i *Instance) Props() core.Props {
	return i.props
}

func (i *Instance) Phase() Phase {
	return i.phase
}

// Render is the presentation phase: the page renders below a provider
// boundary carrying the client and store.
func (i *Instance) Render(ctx context.Context, w io.Writer) error {
	ctx = Provide(ctx, i.client, i.store)
	if err := i.wrapper.page.Render(ctx, w, i.props); err != nil {
		return err
	}
	if i.phase == PhaseBrowserConstructed {
		i.phase = PhaseBrowserMounted
	}
	return nil
}
