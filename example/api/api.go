// Package api serves the demo posts API the example pages query.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

const schemaSDL = `
	schema {
		query: Query
	}

	type Query {
		allPosts(first: Int): [Post!]!
	}

	type Post {
		id: ID!
		title: String!
		url: String!
	}
`

type Post struct {
	ID    string
	Title string
	URL   string
}

// SeedPosts returns n posts with stable ids.
func SeedPosts(n int) []Post {
	posts := make([]Post, n)
	for i := range posts {
		posts[i] = Post{
			ID:    fmt.Sprintf("post-%d", i+1),
			Title: fmt.Sprintf("Post %d", i+1),
			URL:   fmt.Sprintf("https://example.com/posts/%d", i+1),
		}
	}
	return posts
}

// API is the demo GraphQL endpoint. It counts the requests it executes.
type API struct {
	posts   []Post
	schema  *graphql.Schema
	handler http.Handler
	hits    atomic.Int64
}

func New(posts []Post) *API {
	a := &API{posts: posts}
	a.schema = graphql.MustParseSchema(schemaSDL, &resolver{api: a})
	a.handler = &relay.Handler{Schema: a.schema}
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	a.handler.ServeHTTP(w, r)
}

// Hits is the number of requests served so far.
func (a *API) Hits() int64 {
	return a.hits.Load()
}

func (a *API) Exec(ctx context.Context, query string, vars map[string]any) *graphql.Response {
	return a.schema.Exec(ctx, query, "", vars)
}

type resolver struct {
	api *API
}

func (r *resolver) AllPosts(args struct{ First *int32 }) []*postResolver {
	posts := r.api.posts
	if args.First != nil && int(*args.First) >= 0 && int(*args.First) < len(posts) {
		posts = posts[:*args.First]
	}

	out := make([]*postResolver, len(posts))
	for i := range posts {
		out[i] = &postResolver{post: posts[i]}
	}
	return out
}

type postResolver struct {
	post Post
}

func (p *postResolver) ID() graphql.ID {
	return graphql.ID(p.post.ID)
}

func (p *postResolver) Title() string {
	return p.post.Title
}

func (p *postResolver) URL() string {
	return p.post.URL
}
