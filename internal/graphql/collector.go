package graphql

import "context"

// Collector receives the fetches a render could not satisfy from the
// cache. A prefetch pass installs one on the render context.
type Collector interface {
	Defer(key string, fetch func(context.Context) error)
}

type collectorKey struct{}

func WithCollector(ctx context.Context, c Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

func collectorFrom(ctx context.Context) Collector {
	c, _ := ctx.Value(collectorKey{}).(Collector)
	return c
}
