package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points both config locations at empty temp directories
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	return dir
}

func TestGlobalPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/stride/stride.yml", GlobalPath())
}

func TestProjectPath(t *testing.T) {
	assert.Equal(t, "stride.yml", ProjectPath())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RollbackOnFailure)
	assert.True(t, cfg.CascadeRemote)
	assert.Equal(t, 5, cfg.GenerateMaxSubtasks)
	assert.Equal(t, 25, cfg.TimerMinutes)
	assert.Equal(t, "127.0.0.1:8787", cfg.Dev.Addr)
	assert.False(t, Exists())
}

func TestLoadProjectOverridesGlobal(t *testing.T) {
	isolate(t)

	require.NoError(t, WriteGlobal(&Config{
		BaseURL:        "https://global.example",
		RequestTimeout: 5 * time.Second,
		LogLevel:       "warn",
	}))
	require.NoError(t, os.WriteFile(ProjectPath(), []byte("base_url: http://localhost:9000\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, Exists())
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadEnvWins(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(ProjectPath(), []byte("base_url: http://file\ncascade_remote: true\n"), 0644))

	t.Setenv("STRIDE_BASE_URL", "http://env")
	t.Setenv("STRIDE_CASCADE_REMOTE", "false")
	t.Setenv("STRIDE_DEV_ADDR", ":9999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.BaseURL)
	assert.False(t, cfg.CascadeRemote)
	assert.Equal(t, ":9999", cfg.Dev.Addr)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingBaseURL)

	cfg.BaseURL = "http://localhost"
	assert.NoError(t, cfg.Validate())

	cfg.RequestTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}
