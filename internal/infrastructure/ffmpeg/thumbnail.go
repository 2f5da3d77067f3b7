package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
)

// Thumbnailer grabs still frames with ffmpeg
type Thumbnailer struct {
	binary string
	logger zerolog.Logger
}

// NewThumbnailer creates a thumbnailer using cfg.FFmpegPath
func NewThumbnailer(cfg *config.RelayConfig, logger zerolog.Logger) *Thumbnailer {
	return &Thumbnailer{
		binary: cfg.FFmpegPath,
		logger: logger.With().Str("component", "thumbnailer").Logger(),
	}
}

// Extract writes the frame at atSecond next to the video.
// The returned path is set whenever a file may have been created, even on error, so callers can clean it up.
func (t *Thumbnailer) Extract(ctx context.Context, path string, atSecond int, timeout time.Duration) (string, error) {
	if atSecond < 0 {
		atSecond = 0
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output := thumbnailPath(path)

	_, err := run(ctx, t.binary, thumbnailArgs(path, output, atSecond)...)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("thumbnail timed out after %s: %w", timeout, ctx.Err())
		}
		return output, err
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return output, fmt.Errorf("%w: ffmpeg produced no thumbnail", domain.ErrIO)
	}

	t.logger.Debug().Str("path", path).Int("at", atSecond).Msg("thumbnail extracted")
	return output, nil
}

func thumbnailPath(video string) string {
	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(filepath.Dir(video), base+"_thumb_"+uuid.NewString()[:8]+".jpg")
}

func thumbnailArgs(input, output string, atSecond int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.Itoa(atSecond),
		"-i", input,
		"-vframes", "1", "-q:v", "2",
		"-y", output,
	}
}

// Ensure Thumbnailer implements domain.ThumbnailExtractor interface
var _ domain.ThumbnailExtractor = (*Thumbnailer)(nil)
