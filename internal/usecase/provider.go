package usecase

import (
	"context"

	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

type clientKey struct{}

type storeKey struct{}

// Provide attaches the client and store to ctx for every component below.
func Provide(ctx context.Context, client *graphql.Client, store Store) context.Context {
	if client != nil {
		ctx = context.WithValue(ctx, clientKey{}, client)
	}
	if store != nil {
		ctx = context.WithValue(ctx, storeKey{}, store)
	}
	return ctx
}

func ClientFrom(ctx context.Context) *graphql.Client {
	c, _ := ctx.Value(clientKey{}).(*graphql.Client)
	return c
}

func StoreFrom(ctx context.Context) Store {
	s, _ := ctx.Value(storeKey{}).(Store)
	return s
}
