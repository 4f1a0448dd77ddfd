package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("cache_key", "CLIENT_default").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"cache_key":"CLIENT_default"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "", "text")
	require.NoError(t, err)

	logger.Info().Msg("serving")
	assert.Contains(t, buf.String(), "serving")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestSetupRejectsLevel(t *testing.T) {
	_, err := Setup(&bytes.Buffer{}, "loud", "json")
	assert.ErrorContains(t, err, "parse log level")
}
