package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	bifrostgql "github.com/3-lines-studio/bifrost-graphql"
	"github.com/3-lines-studio/bifrost-graphql/example"
	"github.com/3-lines-studio/bifrost-graphql/example/api"
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/config"
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/env"
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/logging"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var file string
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the GraphQL example pages",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := env.Load()
			if err != nil {
				return err
			}
			v.SetDefault("graphql-url", e.GraphQLURL)
			v.SetDefault("dev", e.Dev)

			cfg, err := config.Load(v, file)
			if err != nil {
				return err
			}
			logger, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&file, "config", "", "Config file (yaml, json or toml)")
	flags.String("addr", ":8080", "Listen address")
	flags.String("graphql-url", "", "GraphQL endpoint the pages query")
	flags.Bool("demo-api", true, "Serve the demo posts API at /graphql")
	flags.Bool("dev", false, "Development mode")
	flags.Int("max-passes", bifrostgql.DefaultMaxPasses, "Render passes allowed before prefetch gives up")
	flags.Duration("upstream-timeout", 10*time.Second, "Timeout for GraphQL requests")
	flags.String("key-policy", "endpoint", "Browser client cache key: endpoint or name")
	flags.Bool("metrics", true, "Serve Prometheus metrics at /metrics")
	flags.String("log-level", "info", "Log level")
	flags.String("log-format", "text", "Log format: text or json")

	cobra.CheckErr(v.BindPFlags(flags))
	return cmd
}

func run(ctx context.Context, cfg config.Server, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	routes := example.Routes(example.Options{
		GraphQLURL: cfg.GraphQLURL,
		Dev:        cfg.Dev,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		MaxPasses:  cfg.MaxPasses,
		Clients:    cfg.NamedClients(),
	})
	app, err := bifrostgql.New(routes,
		bifrostgql.WithLogger(logger),
		bifrostgql.WithDev(cfg.Dev),
		bifrostgql.WithKeyPolicy(cfg.Policy()),
		bifrostgql.WithRegisterer(reg),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	if cfg.DemoAPI {
		r.Handle("/graphql", api.New(api.SeedPosts(20)))
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	app.Wrap(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("graphql_url", cfg.GraphQLURL).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
