package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: test
jwt:
  secret: short
  expire_hours: 12
storage:
  type: local
  local_path: `+uploads+`
progress:
  completion_scope: module
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, CompletionScopeModule, cfg.Progress.CompletionScope)
	assert.Equal(t, QueueMemory, cfg.Progress.Queue)
	assert.Equal(t, 256, cfg.Progress.QueueBuffer)
	assert.Equal(t, 4, cfg.Admin.PinMinLength)
	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, "coursehub-backend", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, "logs/app.log", cfg.Log.File)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)

	_, err = os.Stat(uploads)
	assert.NoError(t, err)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: test
storage:
  local_path: `+t.TempDir()+`
progress:
  completion_scope: lesson
`)
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "completion_scope")

	_, err = LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "release"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Progress: ProgressConfig{CompletionScope: CompletionScopeCourse, Queue: QueueRedis},
			Admin:    AdminConfig{PinMinLength: 6},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"short secret in release": func(c *Config) { c.JWT.Secret = "short" },
		"unknown scope":           func(c *Config) { c.Progress.CompletionScope = "" },
		"unknown queue":           func(c *Config) { c.Progress.Queue = "kafka" },
		"pin too short":           func(c *Config) { c.Admin.PinMinLength = 3 },
		"sample ratio above one":  func(c *Config) { c.Tracing.SampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
