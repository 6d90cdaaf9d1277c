package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ID", "12345")
	t.Setenv("APP_HASH", "hash")
	t.Setenv("BOT_TOKEN", "token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.AppID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Download.MaxFileSize)
	assert.Equal(t, int64(DefaultGroupMaxFileSize), cfg.Download.GroupMaxFileSize)
	assert.Equal(t, 10*time.Minute, cfg.Download.Timeout)
	assert.Equal(t, 50, cfg.Download.MaxQueue)
	assert.Equal(t, "extractor", cfg.Download.VideoStrategy)
	assert.Equal(t, "strict", cfg.Download.ProgressPolicy)
	assert.Equal(t, time.Hour, cfg.Download.StaleFileAge)
	assert.Equal(t, "yt-dlp", cfg.Sources.YtDlpPath)
	assert.False(t, cfg.Sources.BrowserEnabled)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_QUEUE", "5")
	t.Setenv("VIDEO_STRATEGY", "mirror")
	t.Setenv("DOWNLOAD_TIMEOUT", "90s")
	t.Setenv("MIRROR_ENDPOINTS", "convert=https://a.example/convert,direct=https://b.example/dl")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Download.MaxQueue)
	assert.Equal(t, "mirror", cfg.Download.VideoStrategy)
	assert.Equal(t, 90*time.Second, cfg.Download.Timeout)
	assert.Equal(t, []string{"convert=https://a.example/convert", "direct=https://b.example/dl"}, cfg.Sources.MirrorEndpoints)
}

func TestLoadDotEnv(t *testing.T) {
	setRequired(t)
	os.Unsetenv("OWNER_ID")
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("OWNER_ID=777\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("OWNER_ID") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(777), cfg.OwnerID)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"VIDEO_STRATEGY":  "fastest",
		"PROGRESS_POLICY": "never",
		"MAX_QUEUE":       "0",
		"LOG_LEVEL":       "trace",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}
