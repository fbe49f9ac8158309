package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"audiopub/logger"
)

// Transcoder converts an uploaded audio file, in place, into the canonical
// playback format. Implementations are external processes and must be
// treated as slow, missing, or crashing.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string) error
}

// FFmpegTranscoder implements Transcoder using ffmpeg.
type FFmpegTranscoder struct {
	ffmpegPath   string
	audioBitrate string
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
func NewFFmpegTranscoder(ffmpegPath, audioBitrate string) *FFmpegTranscoder {
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath, audioBitrate: audioBitrate}
}

// Transcode re-encodes inputPath to MP3 and replaces the original bytes.
// The record's path stays stable; only the content becomes canonical.
// Cancellation of ctx kills the ffmpeg process.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath string) error {
	tmpPath := inputPath + ".transcode.mp3"

	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", t.audioBitrate,
		"-f", "mp3",
		tmpPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing ffmpeg",
		logger.String("path", t.ffmpegPath),
		logger.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("failed to remove partial transcode output",
				logger.String("path", tmpPath),
				logger.ErrorField(rmErr))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg interrupted for %s: %w", inputPath, ctxErr)
		}
		return fmt.Errorf("ffmpeg execution failed for %s: %w\nFFmpeg Error: %s", inputPath, err, stderr.String())
	}

	if err := os.Rename(tmpPath, inputPath); err != nil {
		return fmt.Errorf("failed to replace %s with transcoded output: %w", inputPath, err)
	}
	return nil
}
