package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.SubmitTimeout)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORTAL_API_BASE_URL", "https://portal.example")
	t.Setenv("PORTAL_API_SUBMIT_TIMEOUT", "5s")
	t.Setenv("PORTAL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.SubmitTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	chdirTemp(t)
	yml := []byte("api:\n  base_url: http://backend:9000\nserver:\n  port: 9000\n")
	require.NoError(t, os.WriteFile("config.yml", yml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.API.BaseURL)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ".portal-token", cfg.API.TokenFile, "unset keys keep defaults")
}

// chdirTemp isolates the test from any config.yml in the repo and from
// viper's global state.
func chdirTemp(t *testing.T) {
	t.Helper()
	viper.Reset()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		viper.Reset()
	})
}
