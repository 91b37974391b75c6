package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
	assert.Equal(t, DefaultProviderURL, cfg.Provider.BaseURL)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, envMap(map[string]string{
		"PORT":                      "9090",
		"AI_GATEWAY_URL":            "http://gateway.local/v1",
		"AI_GATEWAY_API_KEY":        "secret",
		"DEEPTRUST_MODEL":           "vision-large",
		"AI_MODEL":                  "ignored",
		"DEEPTRUST_MAX_UPLOAD_SIZE": "2048",
		"DEEPTRUST_LOG_DEVELOPMENT": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://gateway.local/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "secret", cfg.Provider.APIKey)
	assert.Equal(t, "vision-large", cfg.Provider.Model)
	assert.Equal(t, int64(2048), cfg.Server.MaxUploadSize)
	assert.True(t, cfg.Log.Development)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, envMap(map[string]string{"DEEPTRUST_MAX_UPLOAD_SIZE": "lots"}))
	assert.Error(t, err)
}

func TestLoadReadsYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deeptrust.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
provider:
  base_url: "http://from-yaml/v1"
  model: "yaml-model"
log:
  level: debug
`), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DEEPTRUST_MODEL", "env-model")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "http://from-yaml/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "env-model", cfg.Provider.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, int64(DefaultMaxUploadSize), cfg.Server.MaxUploadSize)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Provider.Model = " "
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.MaxUploadSize = 0
	assert.Error(t, cfg.Validate())
}
