package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
	"github.com/3-lines-studio/bifrost-graphql/internal/provision"
)

type prefetchObservation struct {
	passes, fetches int
}

type recordingTelemetry struct {
	observed []prefetchObservation
}

func (r *recordingTelemetry) IncClientCreated(string) {}
func (r *recordingTelemetry) IncClientReused(string)  {}
func (r *recordingTelemetry) ObservePrefetch(passes, fetches int) {
	r.observed = append(r.observed, prefetchObservation{passes, fetches})
}

func serverRequest(path string) *core.RequestContext {
	return core.NewRequestContext(httptest.NewRequest("GET", "http://example.com"+path, nil))
}

func TestPrepareSettlesNestedQueries(t *testing.T) {
	srv, hits := newFakeAPI(t, false)
	tel := &recordingTelemetry{}
	w := serverWrapper(&feedPage{}, srv.URL, WithTelemetry(tel))

	props, err := w.Prepare(context.Background(), serverRequest("/feed?tab=new"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []prefetchObservation{{passes: 3, fetches: 2}}, tel.observed)
	assert.Equal(t, map[string]any{
		"pathname": "/feed",
		"query":    map[string][]string{"tab": {"new"}},
	}, props[core.PropURL])

	state, ok := props[core.PropInitialState].(*core.InitialState)
	require.True(t, ok)
	assert.Contains(t, state.Apollo.Data, "u1")
	assert.Contains(t, state.Apollo.Data, "p1")
	assert.Contains(t, state.Apollo.Data, "p2")
}

func TestPrepareFailsWhenPassesRunOut(t *testing.T) {
	srv, _ := newFakeAPI(t, false)
	w := serverWrapper(&feedPage{}, srv.URL, WithMaxPasses(2))

	props, err := w.Prepare(context.Background(), serverRequest("/"))
	assert.ErrorIs(t, err, ErrPrefetchNotSettled)
	assert.Nil(t, props)
}

func TestPrepareKeepsFetchErrorsInResults(t *testing.T) {
	srv, _ := newFakeAPI(t, true)
	page := &feedPage{}
	w := serverWrapper(page, srv.URL)

	props, err := w.Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)
	assert.True(t, page.sawErr.Load())

	state := props[core.PropInitialState].(*core.InitialState)
	assert.Contains(t, state.Apollo.Data, "u1")
	assert.NotContains(t, state.Apollo.Data, "p1")
}

func TestPrepareSurfacesGraphQLErrorsWithData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"viewer":{"id":"u1","name":null}},`+
			`"errors":[{"message":"name resolver failed"}]}`)
	}))
	t.Cleanup(srv.Close)

	var last graphql.Result
	page := ComponentFunc(func(ctx context.Context, w io.Writer, props core.Props) error {
		last = ClientFrom(ctx).Read(ctx, viewerOp, nil)
		return nil
	})

	props, err := serverWrapper(page, srv.URL).Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)

	var gqlErrs graphql.Errors
	require.True(t, errors.As(last.Err, &gqlErrs), "final render saw Err=%v", last.Err)
	assert.Equal(t, "name resolver failed", gqlErrs[0].Message)
	assert.NotNil(t, last.Data["viewer"])

	state := props[core.PropInitialState].(*core.InitialState)
	assert.NotContains(t, state.Apollo.Data, "u1")
}

func TestPrepareRenderError(t *testing.T) {
	srv, _ := newFakeAPI(t, false)
	boom := errors.New("template exploded")
	page := ComponentFunc(func(context.Context, io.Writer, core.Props) error { return boom })

	_, err := serverWrapper(page, srv.URL).Prepare(context.Background(), serverRequest("/"))
	assert.ErrorIs(t, err, boom)
}

func TestPrepareHonoursCancellation(t *testing.T) {
	srv, hits := newFakeAPI(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := serverWrapper(&feedPage{}, srv.URL).Prepare(ctx, serverRequest("/"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestPrepareMergesInitialProps(t *testing.T) {
	srv, _ := newFakeAPI(t, false)

	page := &preparedPage{props: map[string]any{"greeting": "hi"}}
	props, err := serverWrapper(page, srv.URL).Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)
	assert.Equal(t, "hi", props["greeting"])
	assert.Contains(t, props, core.PropURL)
	assert.Contains(t, props, core.PropInitialState)

	failing := &preparedPage{err: errors.New("no props")}
	_, err = serverWrapper(failing, srv.URL).Prepare(context.Background(), serverRequest("/"))
	assert.EqualError(t, err, "no props")
}

func TestPrepareWithoutClient(t *testing.T) {
	page := ComponentFunc(func(ctx context.Context, w io.Writer, props core.Props) error {
		assert.Nil(t, ClientFrom(ctx))
		return nil
	})
	w := NewWrapper(page, nil, provision.New(core.EnvServer))

	props, err := w.Prepare(context.Background(), nil)
	require.NoError(t, err)
	assert.NotContains(t, props, core.PropInitialState)

	inst, err := w.Construct(props)
	require.NoError(t, err)
	assert.Nil(t, inst.Client())
	require.NoError(t, inst.Render(context.Background(), io.Discard))
}

func TestHydrationDoesNotRefetch(t *testing.T) {
	srv, hits := newFakeAPI(t, false)

	props, err := serverWrapper(&feedPage{}, srv.URL).Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())

	server, err := serverWrapper(&feedPage{}, srv.URL).Construct(props)
	require.NoError(t, err)
	assert.Equal(t, PhaseServerSnapshotted, server.Phase())

	var html bytes.Buffer
	require.NoError(t, server.Render(context.Background(), &html))
	assert.Equal(t, "hello Ada;[Hi][There]", html.String())

	browser, err := browserWrapper(&feedPage{}, srv.URL).Construct(roundTrip(t, props))
	require.NoError(t, err)
	assert.Equal(t, PhaseBrowserConstructed, browser.Phase())

	var hydrated bytes.Buffer
	require.NoError(t, browser.Render(context.Background(), &hydrated))
	assert.Equal(t, html.String(), hydrated.String())
	assert.Equal(t, PhaseBrowserMounted, browser.Phase())
	assert.Equal(t, int32(2), hits.Load())
}

func TestBrowserPrepareSkipsPrefetch(t *testing.T) {
	srv, hits := newFakeAPI(t, false)
	w := browserWrapper(&feedPage{}, srv.URL)

	props, err := w.Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)
	assert.Zero(t, hits.Load())
	assert.Contains(t, props, core.PropInitialState)

	inst, err := w.Construct(props)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, inst.Render(context.Background(), &out))
	assert.Equal(t, "hello Ada;[Hi][There]", out.String())
	assert.Equal(t, int32(2), hits.Load())
}

func TestConstructNeverSeesRequestContext(t *testing.T) {
	srv, _ := newFakeAPI(t, false)

	var seen []*core.RequestContext
	factory := provision.FactoryFunction(func(initial *core.InitialState, isServerRender bool, rc *core.RequestContext) (provision.FactoryResult, error) {
		seen = append(seen, rc)
		return provision.LiteralSettings{Settings: graphql.Settings{
			URI:          srv.URL,
			InitialState: initial,
			SSRMode:      isServerRender,
		}}, nil
	})
	w := NewWrapper(&feedPage{}, factory, provision.New(core.EnvServer))

	rc := serverRequest("/")
	props, err := w.Prepare(context.Background(), rc)
	require.NoError(t, err)
	_, err = w.Construct(props)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Same(t, rc, seen[0])
	assert.Nil(t, seen[1])
}

func TestStoreIsSnapshotted(t *testing.T) {
	srv, _ := newFakeAPI(t, false)

	var restored []*core.InitialState
	factory := func(client *graphql.Client, initial *core.InitialState) (Store, error) {
		restored = append(restored, initial)
		if initial != nil {
			return mapStore(initial.Store), nil
		}
		return mapStore{"theme": "dark"}, nil
	}

	props, err := serverWrapper(&feedPage{}, srv.URL, WithStore(factory)).Prepare(context.Background(), serverRequest("/"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": "dark"}, props[core.PropInitialState].(*core.InitialState).Store)

	inst, err := browserWrapper(&feedPage{}, srv.URL, WithStore(factory)).Construct(roundTrip(t, props))
	require.NoError(t, err)
	assert.Equal(t, mapStore{"theme": "dark"}, inst.Store())

	require.Len(t, restored, 2)
	assert.Nil(t, restored[0])
	assert.NotNil(t, restored[1])

	broken := func(*graphql.Client, *core.InitialState) (Store, error) { return nil, errors.New("no store") }
	_, err = serverWrapper(&feedPage{}, srv.URL, WithStore(broken)).Prepare(context.Background(), serverRequest("/"))
	assert.ErrorContains(t, err, "build store: no store")
}

func TestConstructRejectsMalformedState(t *testing.T) {
	w := browserWrapper(&feedPage{}, "https://api.example.com/graphql")

	_, err := w.Construct(core.Props{core.PropInitialState: "not a state"})
	var serr *core.SerializationError
	assert.True(t, errors.As(err, &serr))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "unresolved", PhaseUnresolved.String())
	assert.Equal(t, "server-preparing", PhaseServerPreparing.String())
	assert.Equal(t, "browser-mounted", PhaseBrowserMounted.String())
}
