package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

const DefaultMaxPasses = 8

var ErrPrefetchNotSettled = errors.New("prefetch did not settle")

type pass struct {
	mu      sync.Mutex
	pending map[string]func(context.Context) error
	order   []string
}

func newPass() *pass {
	return &pass{pending: make(map[string]func(context.Context) error)}
}

func (p *pass) Defer(key string, fetch func(context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[key]; ok {
		return
	}
	p.pending[key] = fetch
	p.order = append(p.order, key)
}

// settle renders until a render defers nothing. Each round renders once
// and then runs every deferred fetch concurrently; data that mounts new
// data-dependent components is picked up by the next round. maxPasses
// bounds the number of renders.
func settle(ctx context.Context, maxPasses int, render func(context.Context) error) (passes, fetches int, err error) {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	for passes < maxPasses {
		if err := ctx.Err(); err != nil {
			return passes, fetches, err
		}
		passes++

		p := newPass()
		if err := render(graphql.WithCollector(ctx, p)); err != nil {
			return passes, fetches, fmt.Errorf("prefetch render %d: %w", passes, err)
		}
		if len(p.order) == 0 {
			return passes, fetches, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, key := range p.order {
			fetch := p.pending[key]
			g.Go(func() error {
				return fetch(gctx)
			})
		}
		if err := g.Wait(); err != nil {
			return passes, fetches, fmt.Errorf("prefetch pass %d: %w", passes, err)
		}
		fetches += len(p.order)
	}

	return passes, fetches, fmt.Errorf("%w after %d passes", ErrPrefetchNotSettled, maxPasses)
}
