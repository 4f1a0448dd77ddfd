package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	bifrostgql "github.com/3-lines-studio/bifrost-graphql"
	"github.com/3-lines-studio/bifrost-graphql/example"
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/cli"
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/logging"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	base       string
	graphqlURL string
	keyPolicy  string
	timeout    time.Duration
	verbose    bool
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "hydrate [paths...]",
		Short: "Load server-rendered pages and mount them in one browser session",
		Long: "Fetches each page from a running server, rebuilds its client from the " +
			"embedded state and renders it again, reporting which clients the session " +
			"shares between pages.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"/basic", "/simple", "/function"}
			}
			if opts.graphqlURL == "" {
				e, err := bifrostgql.LoadEnv()
				if err != nil {
					return err
				}
				opts.graphqlURL = e.GraphQLURL
			}
			return run(cmd.Context(), opts, args, cli.NewOutput())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.base, "base", "http://localhost:8080", "Base URL of the page server")
	flags.StringVar(&opts.graphqlURL, "graphql-url", "", "GraphQL endpoint (defaults to GRAPHQL_URL)")
	flags.StringVar(&opts.keyPolicy, "key-policy", "endpoint", "Client cache key: endpoint or name")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log client activity")
	return cmd
}

func run(ctx context.Context, opts options, paths []string, out *cli.Output) error {
	policy, ok := bifrostgql.ParseKeyPolicy(opts.keyPolicy)
	if !ok {
		return fmt.Errorf("unknown key-policy %q", opts.keyPolicy)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.Setup(os.Stderr, level, "text")
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: opts.timeout}
	routes := example.Routes(example.Options{
		GraphQLURL: opts.graphqlURL,
		Dev:        opts.verbose,
		HTTPClient: httpClient,
	})
	session := bifrostgql.NewSession(
		bifrostgql.SessionLogger(logger),
		bifrostgql.SessionKeyPolicy(policy),
	)

	out.PrintHeader("Hydrating " + opts.base)
	failed := 0
	for _, path := range paths {
		report, err := hydrate(ctx, session, httpClient, opts.base, routes, path)
		if err != nil {
			out.PrintError("%s: %v", path, err)
			failed++
			continue
		}
		out.PrintSuccess("%s (%s)", path, report.phase)
		if report.clientID != "" {
			out.PrintItem("client", report.clientID)
			out.PrintItem("entities", strings.Join(report.entities, ", "))
		}
		if report.loading {
			out.PrintWarning("%s rendered without its data", path)
		}
	}
	out.PrintStep("session clients: %s", strings.Join(session.ClientKeys(), ", "))

	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, len(paths))
	}
	return nil
}

type report struct {
	phase    bifrostgql.Phase
	clientID string
	entities []string
	loading  bool
}

func hydrate(ctx context.Context, session *bifrostgql.Session, httpClient *http.Client, base string, routes []bifrostgql.Route, path string) (report, error) {
	route, ok := example.RouteFor(routes, path)
	if !ok {
		return report{}, fmt.Errorf("no route for %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+path, nil)
	if err != nil {
		return report{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return report{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return report{}, fmt.Errorf("server returned %s", resp.Status)
	}

	props, err := bifrostgql.ExtractProps(resp.Body)
	if err != nil {
		return report{}, err
	}
	inst, err := session.Mount(route, props)
	if err != nil {
		return report{}, err
	}

	var buf bytes.Buffer
	if err := inst.Render(ctx, &buf); err != nil {
		return report{}, fmt.Errorf("render: %w", err)
	}

	r := report{
		phase:   inst.Phase(),
		loading: strings.Contains(buf.String(), "<div>Loading</div>"),
	}
	if c := inst.Client(); c != nil {
		r.clientID = c.ID()
		r.entities = c.Entities()
	}
	return r, nil
}
