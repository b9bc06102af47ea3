package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m4xw311/ask/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "oai", cfg.Provider)
	assert.Contains(t, cfg.Providers, "oai")
	assert.Contains(t, cfg.Providers, "gemini")
	assert.Contains(t, cfg.Providers, "anthropic")
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, "ask_transcript-", cfg.TranscriptName)
	assert.Zero(t, cfg.MaxIterations, "agent loop is unbounded unless configured")
	assert.NotEmpty(t, cfg.SystemPrompt)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: local
max_tokens: 512
max_iterations: 5
providers:
  local:
    client: openai
    model: llama3
    host: localhost:8080
    endpoint: /v1
    api_key_variable: LOCAL_KEY
`), 0o600))

	cfg := Default()
	require.NoError(t, loadFromFile(path, cfg))

	assert.Equal(t, "local", cfg.Provider)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.MaxIterations)
	// untouched fields keep their defaults
	assert.Equal(t, 0.6, cfg.Temperature)
	assert.Equal(t, "ask_transcript-", cfg.TranscriptName)

	p, err := cfg.ActiveProvider("")
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name)
	assert.Equal(t, "llama3", p.Model)
	assert.Equal(t, "https://localhost:8080/v1", p.BaseURL())
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0o600))
	assert.Error(t, loadFromFile(path, Default()))
}

func TestActiveProvider(t *testing.T) {
	cfg := Default()

	p, err := cfg.ActiveProvider("")
	require.NoError(t, err)
	assert.Equal(t, "oai", p.Name)

	p, err = cfg.ActiveProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, ClientAnthropic, p.Client)

	_, err = cfg.ActiveProvider("nope")
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("ASK_TEST_KEY", "sk-123")
	p := &Provider{Name: "x", Client: ClientOpenAI, APIKeyVariable: "ASK_TEST_KEY"}
	key, err := p.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)
}

func TestResolveAPIKeyMissing(t *testing.T) {
	t.Setenv("ASK_TEST_MISSING", "")
	p := &Provider{Name: "x", Client: ClientOpenAI, APIKeyVariable: "ASK_TEST_MISSING"}
	_, err := p.ResolveAPIKey()
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))

	p = &Provider{Name: "x", Client: ClientOpenAI}
	_, err = p.ResolveAPIKey()
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestResolveAPIKeyBedrockUsesCredentialChain(t *testing.T) {
	p := &Provider{Name: "bed", Client: ClientBedrock}
	key, err := p.ResolveAPIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}
