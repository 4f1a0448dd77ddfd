package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
	"github.com/3-lines-studio/bifrost-graphql/internal/provision"
)

var (
	viewerOp = graphql.MustParse(`query Viewer { viewer { id name } }`)
	feedOp   = graphql.MustParse(`query Feed { feed { id title } }`)
)

// newFakeAPI answers Viewer and Feed. The feed depends on the viewer, so a
// page reading both needs two fetch rounds.
func newFakeAPI(t *testing.T, failFeed bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			OperationName string `json:"operationName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		switch req.OperationName {
		case "Viewer":
			_, _ = io.WriteString(w, `{"data":{"viewer":{"id":"u1","name":"Ada"}}}`)
		case "Feed":
			if failFeed {
				http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `{"data":{"feed":[{"id":"p1","title":"Hi"},{"id":"p2","title":"There"}]}}`)
		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

// feedPage greets the viewer, then lists the feed once the viewer is known.
type feedPage struct {
	sawErr atomic.Bool
}

func (p *feedPage) Render(ctx context.Context, w io.Writer, props core.Props) error {
	client := ClientFrom(ctx)
	if client == nil {
		_, err := io.WriteString(w, "no client")
		return err
	}

	viewer := client.Read(ctx, viewerOp, nil)
	if viewer.Loading || viewer.Err != nil {
		_, err := io.WriteString(w, "loading")
		return err
	}
	name := viewer.Data["viewer"].(map[string]any)["name"]
	fmt.Fprintf(w, "hello %s;", name)

	feed := client.Read(ctx, feedOp, nil)
	switch {
	case feed.Err != nil:
		p.sawErr.Store(true)
		_, err := io.WriteString(w, "feed failed")
		return err
	case feed.Loading:
		_, err := io.WriteString(w, "loading feed")
		return err
	}
	for _, item := range feed.Data["feed"].([]any) {
		fmt.Fprintf(w, "[%s]", item.(map[string]any)["title"])
	}
	return nil
}

type preparedPage struct {
	feedPage
	props map[string]any
	err   error
}

func (p *preparedPage) InitialProps(ctx context.Context, rc *core.RequestContext) (map[string]any, error) {
	return p.props, p.err
}

type mapStore map[string]any

func (s mapStore) State() map[string]any {
	return s
}

// roundTrip serializes props the way a rendered page carries them.
func roundTrip(t *testing.T, props core.Props) core.Props {
	t.Helper()
	b, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("encode props: %v", err)
	}
	var out core.Props
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode props: %v", err)
	}
	return out
}

func serverWrapper(page Component, uri string, opts ...Option) *Wrapper {
	return NewWrapper(page, provision.EndpointString(uri), provision.New(core.EnvServer), opts...)
}

func browserWrapper(page Component, uri string, opts ...Option) *Wrapper {
	return NewWrapper(page, provision.EndpointString(uri), provision.New(core.EnvBrowser), opts...)
}
