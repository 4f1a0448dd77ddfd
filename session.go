package bifrostgql

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/provision"
	"github.com/3-lines-studio/bifrost-graphql/internal/telemetry"
	"github.com/3-lines-studio/bifrost-graphql/internal/usecase"
)

// Session is the browser side of the page lifecycle: one per page session,
// holding at most one client per cache key for its lifetime.
type Session struct {
	provisioner *provision.Provisioner
	logger      zerolog.Logger

	mu       sync.Mutex
	wrappers map[string]*usecase.Wrapper
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger zerolog.Logger
	policy core.KeyPolicy
}

func SessionLogger(logger zerolog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

func SessionKeyPolicy(policy KeyPolicy) SessionOption {
	return func(o *sessionOptions) {
		o.policy = policy
	}
}

func NewSession(opts ...SessionOption) *Session {
	o := sessionOptions{logger: zerolog.Nop(), policy: core.KeyByEndpoint}
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		provisioner: provision.New(core.EnvBrowser,
			provision.WithKeyPolicy(o.policy),
			provision.WithLogger(o.logger),
			provision.WithTelemetry(telemetry.Noop()),
		),
		logger:   o.logger,
		wrappers: make(map[string]*usecase.Wrapper),
	}
}

func (s *Session) wrapperFor(route Route) *usecase.Wrapper {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wrappers[route.Pattern]; ok {
		return w
	}
	w := newWrapper(route, route.config(), s.provisioner, s.logger, telemetry.Noop())
	s.wrappers[route.Pattern] = w
	return w
}

// Mount constructs a server-rendered page from the props embedded in it.
func (s *Session) Mount(route Route, props Props) (*Instance, error) {
	return s.wrapperFor(route).Construct(props)
}

// Navigate runs a client-side navigation: preparation without a prefetch
// pass, then construction from the resulting props.
func (s *Session) Navigate(ctx context.Context, route Route, rc *RequestContext) (*Instance, error) {
	w := s.wrapperFor(route)
	props, err := w.Prepare(ctx, rc)
	if err != nil {
		return nil, err
	}
	return w.Construct(props)
}

// ClientKeys lists the cache keys of the session's clients.
func (s *Session) ClientKeys() []string {
	return s.provisioner.Registry().Keys()
}

func (s *Session) CacheKey(settings ClientSettings) string {
	return s.provisioner.KeyFor(settings)
}
