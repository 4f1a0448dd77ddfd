package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(), "")
	require.NoError(t, err)

	assert.Equal(t, Server{
		Addr:            ":8080",
		GraphQLURL:      "http://localhost:8080/graphql",
		DemoAPI:         true,
		MaxPasses:       8,
		UpstreamTimeout: 10 * time.Second,
		KeyPolicy:       "endpoint",
		Metrics:         true,
		LogLevel:        "info",
		LogFormat:       "text",
	}, cfg)
	assert.Equal(t, core.KeyByEndpoint, cfg.Policy())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bifrost.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
graphql-url: https://api.example.com/graphql
key-policy: name
upstream-timeout: 3s
max-passes: 4
`), 0o644))
	t.Setenv("BIFROST_MAX_PASSES", "12")

	cfg, err := Load(newViper(), file)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/graphql", cfg.GraphQLURL)
	assert.Equal(t, core.KeyByName, cfg.Policy())
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 12, cfg.MaxPasses)
}

func TestLoadNamedClients(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bifrost.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
clients:
  - name: primary
    uri: https://api.example.com/graphql
  - name: partner
    uri: https://partner.example.com/graphql
    credentials: include
`), 0o644))

	cfg, err := Load(newViper(), file)
	require.NoError(t, err)

	require.Len(t, cfg.Clients, 2)
	clients := cfg.NamedClients()
	assert.Equal(t, graphql.Settings{
		Name: "primary",
		URI:  "https://api.example.com/graphql",
	}, clients["primary"])
	assert.Equal(t, graphql.CredentialsInclude, clients["partner"].Credentials)
	assert.Equal(t, "https://partner.example.com/graphql", clients["partner"].URI)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	valid := Server{Addr: ":1", GraphQLURL: "http://x", MaxPasses: 1, KeyPolicy: "endpoint", LogFormat: "json"}
	require.NoError(t, valid.Validate())

	tests := map[string]func(*Server){
		"no addr":        func(s *Server) { s.Addr = "" },
		"no graphql url": func(s *Server) { s.GraphQLURL = "" },
		"zero passes":    func(s *Server) { s.MaxPasses = 0 },
		"bad key policy": func(s *Server) { s.KeyPolicy = "uri" },
		"bad log format": func(s *Server) { s.LogFormat = "xml" },
		"unnamed client": func(s *Server) { s.Clients = []Client{{URI: "http://x"}} },
		"client without uri": func(s *Server) {
			s.Clients = []Client{{Name: "a"}}
		},
		"duplicate client": func(s *Server) {
			s.Clients = []Client{{Name: "a", URI: "http://x"}, {Name: "a", URI: "http://y"}}
		},
		"bad client credentials": func(s *Server) {
			s.Clients = []Client{{Name: "a", URI: "http://x", Credentials: "always"}}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := valid
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
