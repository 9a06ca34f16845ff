package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptwatch/promptwatch/pkg/document"
)

func TestNewSelectsOllamaByDefault(t *testing.T) {
	cfg := document.DefaultConfig()
	cfg.Backend = ""

	gen, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OllamaEngine{}, gen)
}

func TestNewSelectsConfiguredBackend(t *testing.T) {
	cfg := document.DefaultConfig()
	cfg.Backend = document.BackendOpenAI
	cfg.ServerURL = "http://localhost:8000/v1"

	gen, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEngine{}, gen)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := document.DefaultConfig()
	cfg.Backend = "carrier-pigeon"

	_, err := New(cfg)

	var configErr *document.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "backend", configErr.Key)
	assert.Equal(t, "carrier-pigeon", configErr.Value)
}
