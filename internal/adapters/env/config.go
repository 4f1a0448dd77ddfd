package env

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-derived configuration, read once when client
// configs are constructed.
type Config struct {
	GraphQLURL string `env:"GRAPHQL_URL" envDefault:"http://localhost:8080/graphql"`
	Dev        bool   `env:"BIFROST_DEV"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
