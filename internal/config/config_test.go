package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.TypingDebounce)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.TypingExpiry)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.ScrollPause)
	assert.Equal(t, 5*time.Minute, cfg.Sync.TombstoneRetention)
	assert.Equal(t, int64(300*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Contains(t, cfg.Upload.ImageExtensions, "webp")
	assert.Contains(t, cfg.Upload.VideoExtensions, "mkv")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TYPING_DEBOUNCE", "2s")
	t.Setenv("UPLOAD_MAX_MB", "50")
	t.Setenv("UPLOAD_IMAGE_EXTENSIONS", "JPG, png")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Sync.TypingDebounce)
	assert.Equal(t, int64(50*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, []string{"jpg", "png"}, cfg.Upload.ImageExtensions)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("TYPING_DEBOUNCE", "soon")
	t.Setenv("UPLOAD_MAX_MB", "lots")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.TypingDebounce)
	assert.Equal(t, int64(300*1024*1024), cfg.Upload.MaxSizeBytes)
}
