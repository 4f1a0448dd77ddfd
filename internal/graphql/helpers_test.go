package graphql

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const postsBody = `{"data":{"allPosts":[` +
	`{"id":"1","title":"First","url":"https://example.com/1"},` +
	`{"id":"2","title":"Second","url":"https://example.com/2"}]}}`

var postsOp = MustParse(`query PostsQuery { allPosts(first: 10) { id title url } }`)

func wantPosts() map[string]any {
	return map[string]any{"allPosts": []any{
		map[string]any{"id": "1", "title": "First", "url": "https://example.com/1"},
		map[string]any{"id": "2", "title": "Second", "url": "https://example.com/2"},
	}}
}

// serveJSON starts an endpoint answering every request with body and
// counts the requests it sees.
func serveJSON(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

type recordingCollector struct {
	keys    []string
	fetches []func(context.Context) error
}

func (c *recordingCollector) Defer(key string, fetch func(context.Context) error) {
	c.keys = append(c.keys, key)
	c.fetches = append(c.fetches, fetch)
}

func (c *recordingCollector) runAll(t *testing.T) {
	t.Helper()
	for _, fetch := range c.fetches {
		if err := fetch(context.Background()); err != nil {
			t.Fatalf("deferred fetch: %v", err)
		}
	}
}
