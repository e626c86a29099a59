package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "mock", cfg.AnswerBackend)
	assert.Equal(t, 5, cfg.CountdownSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOURCECHAT_ANSWER_BACKEND", "http")
	t.Setenv("SOURCECHAT_BACKEND_URL", "https://console.example.com")
	t.Setenv("SOURCECHAT_HTTP_TIMEOUT", "30s")
	t.Setenv("SOURCECHAT_COUNTDOWN_SECONDS", "3")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.AnswerBackend)
	assert.Equal(t, "https://console.example.com", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.CountdownSeconds)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sourcechat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nmodel_provider: openai\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "openai", cfg.ModelProvider)
}

func TestLoadRejectsFirestoreWithoutProject(t *testing.T) {
	t.Setenv("SOURCECHAT_STORAGE_BACKEND", "firestore")

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SOURCECHAT_ANSWER_BACKEND", "carrier-pigeon")

	_, err := config.Load("")
	require.Error(t, err)
}
