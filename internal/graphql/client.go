package graphql

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
)

// Result is what a component sees when it reads an operation.
type Result struct {
	Data    map[string]any
	Loading bool
	Err     error
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is a network interface plus a normalized cache.
type Client struct {
	id       string
	settings Settings
	network  *NetworkInterface
	cache    *store
	logger   zerolog.Logger

	mu      sync.Mutex
	settled map[string]Result
}

func New(settings Settings, opts ...Option) (*Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings = settings.withDefaults()

	c := &Client{
		id:       uuid.NewString(),
		settings: settings,
		network:  NewNetworkInterface(settings.URI, settings.Credentials, settings.Origin, settings.Header, settings.HTTPClient),
		cache:    newStore(settings.IDFromObject),
		logger:   zerolog.Nop(),
		settled:  make(map[string]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("client_id", c.id).Logger()

	if settings.InitialState != nil {
		c.cache.restore(settings.InitialState.Apollo.Data)
	}
	return c, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Settings() Settings {
	return c.settings
}

func (c *Client) NetworkInterface() *NetworkInterface {
	return c.network
}

// Read returns cached data when the cache can satisfy the operation.
// Inside a prefetch pass a miss is handed to the pass and reads as loading.
// Outside a pass an SSR client reads a miss as loading; any other client
// fetches synchronously.
func (c *Client) Read(ctx context.Context, op *Operation, vars map[string]any) Result {
	vars, err := op.withDefaults(vars)
	if err != nil {
		return Result{Err: err}
	}

	if data, ok := c.cache.read(op, vars); ok {
		return Result{Data: data}
	}

	key := requestKey(op, vars)
	if col := collectorFrom(ctx); col != nil {
		if res, ok := c.settledResult(key); ok {
			return res
		}
		col.Defer(key, func(ctx context.Context) error {
			_, _ = c.Query(ctx, op, vars)
			return ctx.Err()
		})
		return Result{Loading: true}
	}

	if c.settings.SSRMode {
		return Result{Loading: true}
	}

	data, err := c.Query(ctx, op, vars)
	if err != nil {
		return Result{Data: data, Err: err}
	}
	if cached, ok := c.cache.read(op, vars); ok {
		data = cached
	}
	return Result{Data: data}
}

// Query always goes to the network and writes the response to the cache.
// A response carrying GraphQL errors settles with its partial data but is
// not cached, so later reads keep seeing the error.
func (c *Client) Query(ctx context.Context, op *Operation, vars map[string]any) (map[string]any, error) {
	vars, err := op.withDefaults(vars)
	if err != nil {
		return nil, err
	}
	key := requestKey(op, vars)

	if c.settings.ConnectToDevTools {
		c.logger.Debug().Str("operation", op.Name).Interface("variables", vars).Msg("graphql fetch")
	}

	data, fetchErr := c.network.Fetch(ctx, op, vars)
	if data != nil && fetchErr == nil {
		if err := c.cache.write(op, vars, data); err != nil {
			fetchErr = fmt.Errorf("normalize %s: %w", op.Name, err)
		}
	}

	c.mu.Lock()
	c.settled[key] = Result{Data: data, Err: fetchErr}
	c.mu.Unlock()

	if fetchErr != nil {
		c.logger.Warn().Err(fetchErr).Str("operation", op.Name).Msg("graphql fetch failed")
		return data, fetchErr
	}
	if c.settings.ConnectToDevTools {
		c.logger.Debug().Str("operation", op.Name).Int("entities", len(c.cache.entities())).Msg("graphql cache updated")
	}
	return data, nil
}

func (c *Client) settledResult(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.settled[key]
	return res, ok
}

// Extract snapshots the normalized cache.
func (c *Client) Extract() core.CacheMap {
	return c.cache.extract()
}

// Restore merges a snapshot into the cache.
func (c *Client) Restore(data core.CacheMap) {
	if data == nil {
		return
	}
	c.cache.restore(data)
}

func (c *Client) Entities() []string {
	return c.cache.entities()
}
