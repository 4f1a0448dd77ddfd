package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

const envPrefix = "BIFROST"

// Server configures the serve command. Values come from flags, BIFROST_*
// environment variables and an optional config file, in that order.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	GraphQLURL      string        `mapstructure:"graphql-url"`
	DemoAPI         bool          `mapstructure:"demo-api"`
	Dev             bool          `mapstructure:"dev"`
	MaxPasses       int           `mapstructure:"max-passes"`
	UpstreamTimeout time.Duration `mapstructure:"upstream-timeout"`
	KeyPolicy       string        `mapstructure:"key-policy"`
	Metrics         bool          `mapstructure:"metrics"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFormat       string        `mapstructure:"log-format"`
	Clients         []Client      `mapstructure:"clients"`
}

// Client is a named client listed in the config file.
type Client struct {
	Name        string `mapstructure:"name"`
	URI         string `mapstructure:"uri"`
	Credentials string `mapstructure:"credentials"`
}

func (c Client) Settings() graphql.Settings {
	return graphql.Settings{
		Name:        c.Name,
		URI:         c.URI,
		Credentials: graphql.Credentials(c.Credentials),
	}
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("graphql-url", "http://localhost:8080/graphql")
	v.SetDefault("demo-api", true)
	v.SetDefault("max-passes", 8)
	v.SetDefault("upstream-timeout", 10*time.Second)
	v.SetDefault("key-policy", "endpoint")
	v.SetDefault("metrics", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
}

func Load(v *viper.Viper, file string) (Server, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Server{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return Server{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if s.GraphQLURL == "" {
		return fmt.Errorf("graphql-url is required")
	}
	if s.MaxPasses < 1 {
		return fmt.Errorf("max-passes must be at least 1, got %d", s.MaxPasses)
	}
	if _, ok := core.ParseKeyPolicy(s.KeyPolicy); !ok {
		return fmt.Errorf("unknown key-policy %q", s.KeyPolicy)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log-format %q", s.LogFormat)
	}

	seen := make(map[string]bool, len(s.Clients))
	for i, c := range s.Clients {
		if c.Name == "" {
			return fmt.Errorf("clients[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("clients[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if err := c.Settings().Validate(); err != nil {
			return fmt.Errorf("clients[%d] %s: %w", i, c.Name, err)
		}
	}
	return nil
}

// NamedClients returns the configured clients keyed by name.
func (s Server) NamedClients() map[string]graphql.Settings {
	if len(s.Clients) == 0 {
		return nil
	}
	out := make(map[string]graphql.Settings, len(s.Clients))
	for _, c := range s.Clients {
		out[c.Name] = c.Settings()
	}
	return out
}

func (s Server) Policy() core.KeyPolicy {
	p, _ := core.ParseKeyPolicy(s.KeyPolicy)
	return p
}
