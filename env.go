package bifrostgql

import (
	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/env"
)

type EnvConfig = env.Config

// LoadEnv reads GRAPHQL_URL and BIFROST_DEV.
func LoadEnv() (EnvConfig, error) {
	return env.Load()
}
