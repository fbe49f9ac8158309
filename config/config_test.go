package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "192k", cfg.AudioBitrate)
	assert.Equal(t, 10*time.Minute, cfg.TranscodeTimeout)
	assert.Equal(t, int64(500)<<20, cfg.MaxUploadSize)
	assert.Equal(t, "audiopub", cfg.DBName)
	assert.Empty(t, cfg.MinioEndpoint)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("MAX_UPLOAD_MB", "100")
	t.Setenv("TRANSCODE_TIMEOUT", "30s")
	t.Setenv("UPLOAD_DIR", "/var/lib/audiopub")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, int64(100)<<20, cfg.MaxUploadSize)
	assert.Equal(t, 30*time.Second, cfg.TranscodeTimeout)
	assert.Equal(t, "/var/lib/audiopub", cfg.UploadDir)
	assert.Equal(t, filepath.Join("/var/lib/audiopub", "audio"), cfg.AudioUploadDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("TRANSCODE_TIMEOUT", "soon")
	t.Setenv("MINIO_USE_SSL", "yep")

	cfg := Load()

	assert.Equal(t, int64(500)<<20, cfg.MaxUploadSize)
	assert.Equal(t, 10*time.Minute, cfg.TranscodeTimeout)
	assert.False(t, cfg.MinioUseSSL)
}
