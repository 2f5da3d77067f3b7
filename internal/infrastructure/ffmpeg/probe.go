// Package ffmpeg wraps the ffprobe and ffmpeg binaries for media metadata and thumbnails
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
)

// Prober runs ffprobe
type Prober struct {
	binary string
	logger zerolog.Logger
}

// NewProber creates a prober using cfg.FFprobePath
func NewProber(cfg *config.RelayConfig, logger zerolog.Logger) *Prober {
	return &Prober{
		binary: cfg.FFprobePath,
		logger: logger.With().Str("component", "ffprobe").Logger(),
	}
}

// Probe reports duration, video dimensions and audio tags of path
func (p *Prober) Probe(ctx context.Context, path string) (*domain.ProbeResult, error) {
	out, err := run(ctx, p.binary,
		"-hide_banner", "-loglevel", "error",
		"-print_format", "json", "-show_format", "-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}

	res, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}

	p.logger.Debug().
		Str("path", path).
		Int("duration", res.Duration).
		Int("width", res.Width).
		Int("height", res.Height).
		Msg("probed media")

	return res, nil
}

type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbe reads ffprobe JSON; dimensions come from the first video stream
func parseProbe(data []byte) (*domain.ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	res := &domain.ProbeResult{
		Artist: tag(out.Format.Tags, "artist"),
		Title:  tag(out.Format.Tags, "title"),
	}

	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
			res.Duration = int(math.Round(d))
		}
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			res.Width, res.Height = s.Width, s.Height
			break
		}
	}

	return res, nil
}

// tag looks a key up case-insensitively; containers disagree on tag case
func tag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// run executes a binary and returns its stdout; stderr is folded into the error
func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", binary, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", binary, err, msg)
	}

	return stdout.Bytes(), nil
}

// Ensure Prober implements domain.MediaProbe interface
var _ domain.MediaProbe = (*Prober)(nil)
