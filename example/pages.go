package example

import (
	"context"
	"io"
	"net/http"
	"sort"

	bifrostgql "github.com/3-lines-studio/bifrost-graphql"
)

type Options struct {
	GraphQLURL string
	Dev        bool
	// HTTPClient is shared by every client the pages build.
	HTTPClient *http.Client
	MaxPasses  int
	// Clients are named clients, each served as a posts page at
	// /clients/<name>.
	Clients map[string]bifrostgql.ClientSettings
}

func page(title string, withPosts bool) bifrostgql.Component {
	children := []bifrostgql.Component{heading(title), Menu}
	if withPosts {
		children = append(children, Posts)
	}
	return bifrostgql.ComponentFunc(func(ctx context.Context, w io.Writer, props bifrostgql.Props) error {
		return Root(ctx, w, props, children...)
	})
}

var (
	IndexPage    = page("Examples", false)
	BasicPage    = page("Basic", true)
	SimplePage   = page("With Simple Settings", true)
	FunctionPage = page("With Function", true)
)

// BasicConfig configures the client from the bare endpoint.
func BasicConfig(opts Options) bifrostgql.ClientConfig {
	return bifrostgql.Endpoint(opts.GraphQLURL)
}

// SimpleConfig configures the client from a fixed settings record.
func SimpleConfig(opts Options) bifrostgql.ClientConfig {
	return bifrostgql.Settings(bifrostgql.ClientSettings{
		URI:               opts.GraphQLURL,
		Credentials:       bifrostgql.CredentialsSameOrigin,
		ConnectToDevTools: opts.Dev,
		IDFromObject:      bifrostgql.DefaultIDFromObject,
		HTTPClient:        opts.HTTPClient,
	})
}

// FunctionConfig derives the settings from the render state. On the
// server it also forwards the visitor's cookies to the API.
func FunctionConfig(opts Options) bifrostgql.ClientConfig {
	return bifrostgql.Factory(func(initial *bifrostgql.InitialState, isServerRender bool, rc *bifrostgql.RequestContext) (bifrostgql.FactoryResult, error) {
		settings := bifrostgql.ClientSettings{
			Name:              "function",
			URI:               opts.GraphQLURL,
			Credentials:       bifrostgql.CredentialsSameOrigin,
			ConnectToDevTools: !isServerRender && opts.Dev,
			IDFromObject:      bifrostgql.DefaultIDFromObject,
			HTTPClient:        opts.HTTPClient,
			InitialState:      initial,
			SSRMode:           isServerRender,
		}
		if rc != nil && rc.Request != nil {
			settings.Origin = rc.Origin()
			if cookie := rc.Request.Header.Get("Cookie"); cookie != "" {
				settings.Header = http.Header{"Cookie": []string{cookie}}
			}
		}
		return bifrostgql.LiteralSettings{Settings: settings}, nil
	})
}

// NamedConfig configures the client from a named entry. The entry keeps
// its name so the browser registry can key it by name.
func NamedConfig(opts Options, name string, settings bifrostgql.ClientSettings) bifrostgql.ClientConfig {
	settings.Name = name
	settings.ConnectToDevTools = opts.Dev
	settings.IDFromObject = bifrostgql.DefaultIDFromObject
	settings.HTTPClient = opts.HTTPClient
	return bifrostgql.Settings(settings)
}

func Routes(opts Options) []bifrostgql.Route {
	routes := []bifrostgql.Route{
		bifrostgql.Page("/", IndexPage, bifrostgql.WithTitle("Examples")),
		bifrostgql.Page("/basic", BasicPage,
			bifrostgql.WithTitle("Basic"),
			bifrostgql.WithGraphQL(BasicConfig(opts)),
			bifrostgql.WithMaxPasses(opts.MaxPasses),
		),
		bifrostgql.Page("/simple", SimplePage,
			bifrostgql.WithTitle("Simple Settings"),
			bifrostgql.WithGraphQL(SimpleConfig(opts)),
			bifrostgql.WithMaxPasses(opts.MaxPasses),
		),
		bifrostgql.Page("/function", FunctionPage,
			bifrostgql.WithTitle("Function Settings"),
			bifrostgql.WithGraphQL(FunctionConfig(opts)),
			bifrostgql.WithMaxPasses(opts.MaxPasses),
		),
	}

	names := make([]string, 0, len(opts.Clients))
	for name := range opts.Clients {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		routes = append(routes, bifrostgql.Page("/clients/"+name, page("Client "+name, true),
			bifrostgql.WithTitle("Client "+name),
			bifrostgql.WithGraphQL(NamedConfig(opts, name, opts.Clients[name])),
			bifrostgql.WithMaxPasses(opts.MaxPasses),
		))
	}
	return routes
}

// RouteFor finds the route registered for path.
func RouteFor(routes []bifrostgql.Route, path string) (bifrostgql.Route, bool) {
	for _, r := range routes {
		if r.Pattern == path {
			return r, true
		}
	}
	return bifrostgql.Route{}, false
}
