package business

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
)

const (
	standardSizeLimit int64 = 2 * 1024 * 1024 * 1024
	premiumSizeLimit  int64 = 4 * 1024 * 1024 * 1024

	defaultWidth  = 640
	defaultHeight = 480
)

// SizeLimit returns the upload limit of an account tier
func SizeLimit(premium bool) int64 {
	if premium {
		return premiumSizeLimit
	}
	return standardSizeLimit
}

// checkSize rejects large binaries above the account tier limit before anything is downloaded
func (uc *UseCase) checkSize(ctx context.Context, conn domain.Connection, media *domain.Media) error {
	if media == nil || !media.Kind.IsLargeBinary() || media.Size <= 0 {
		return nil
	}

	premium := false
	if acc, err := conn.Self(ctx); err == nil {
		premium = acc.Premium
	} else {
		uc.logger.Debug().Err(err).Msg("Account tier unknown, using standard limit")
	}

	if limit := SizeLimit(premium); media.Size > limit {
		return fmt.Errorf("%w: %s is larger than %s", relayerrors.ErrSizeLimitExceeded, FormatBytes(media.Size), FormatBytes(limit))
	}
	return nil
}

// download fetches the item to a unique temp path and verifies the result
func (uc *UseCase) download(ctx context.Context, req entities.Request, item *domain.Item, files *artifacts) (string, error) {
	if err := os.MkdirAll(uc.cfg.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	path := filepath.Join(uc.cfg.DownloadDir, uuid.NewString()+extension(item.Media))
	files.add(path)

	var onProgress domain.ProgressFunc
	if req.Progress != nil {
		onProgress = func(done, total int64) {
			req.Progress(entities.StageDownload, done, total)
		}
	}

	got, err := req.Source.Download(ctx, item, path, onProgress)
	if got != "" && got != path {
		files.add(got)
	}
	if err != nil {
		return "", fmt.Errorf("download %d: %w", item.Locator.MessageID, err)
	}
	if got == "" {
		got = path
	}

	if err := verifyArtifact(got); err != nil {
		return "", err
	}

	return got, nil
}

// buildUpload fills kind-specific metadata; probe and thumbnail failures fall back to defaults
func (uc *UseCase) buildUpload(ctx context.Context, item *domain.Item, path string, files *artifacts) domain.Upload {
	m := item.Media
	u := domain.Upload{
		Kind:     m.Kind,
		Path:     path,
		Caption:  item.Text,
		FileName: m.FileName,
		MimeType: m.MimeType,
	}

	switch m.Kind {
	case domain.MediaVideo:
		if m.Video != nil {
			u.Duration, u.Width, u.Height = m.Video.Duration, m.Video.Width, m.Video.Height
		}
		if p := uc.runProbe(ctx, path); p != nil {
			u.Duration = pick(p.Duration, u.Duration)
			u.Width = pick(p.Width, u.Width)
			u.Height = pick(p.Height, u.Height)
		}
		if u.Width == 0 || u.Height == 0 {
			u.Width, u.Height = defaultWidth, defaultHeight
		}
		u.ThumbPath = uc.thumbnail(ctx, path, u.Duration, files)

	case domain.MediaAudio:
		if m.Audio != nil {
			u.Duration, u.Performer, u.Title = m.Audio.Duration, m.Audio.Performer, m.Audio.Title
		}
		if p := uc.runProbe(ctx, path); p != nil {
			u.Duration = pick(p.Duration, u.Duration)
			if p.Artist != "" {
				u.Performer = p.Artist
			}
			if p.Title != "" {
				u.Title = p.Title
			}
		}
	}

	return u
}

func (uc *UseCase) runProbe(ctx context.Context, path string) *domain.ProbeResult {
	if uc.probe == nil {
		return nil
	}
	p, err := uc.probe.Probe(ctx, path)
	if err != nil {
		uc.logger.Debug().Err(err).Str("path", path).Msg("Media probe failed")
		return nil
	}
	return p
}

// thumbnail grabs a frame from the middle of the video, empty on failure or timeout
func (uc *UseCase) thumbnail(ctx context.Context, path string, duration int, files *artifacts) string {
	if uc.thumbs == nil {
		return ""
	}
	if duration <= 0 {
		duration = 3
	}

	thumb, err := uc.thumbs.Extract(ctx, path, duration/2, uc.cfg.ThumbnailTimeout)
	if thumb != "" {
		files.add(thumb)
	}
	if err != nil {
		uc.logger.Debug().Err(err).Str("path", path).Msg("Thumbnail extraction failed")
		return ""
	}
	return thumb
}

// archive stores uploaded artifacts when an archiver is configured
func (uc *UseCase) archive(ctx context.Context, req entities.Request, uploads []domain.Upload) {
	if uc.archiver == nil {
		return
	}
	for _, u := range uploads {
		key := fmt.Sprintf("%d/%s/%d/%s", req.UserID, req.Locator.Chat, req.Locator.MessageID, filepath.Base(u.Path))
		if err := uc.archiver.Archive(ctx, key, u.Path); err != nil {
			uc.logger.Warn().Err(err).Str("key", key).Msg("Failed to archive artifact")
		}
	}
}

func verifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", relayerrors.ErrEmptyArtifact, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return relayerrors.ErrEmptyArtifact
	}
	return nil
}

func extension(m *domain.Media) string {
	if m == nil {
		return ""
	}
	if ext := filepath.Ext(m.FileName); ext != "" && len(ext) <= 8 {
		return strings.ToLower(ext)
	}
	switch m.Kind {
	case domain.MediaPhoto:
		return ".jpg"
	case domain.MediaVideo:
		return ".mp4"
	case domain.MediaAudio:
		return ".mp3"
	default:
		return ""
	}
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// artifacts tracks temp files of one pipeline run; cleanup removes each exactly once
type artifacts struct {
	mu     sync.Mutex
	paths  []string
	seen   map[string]struct{}
	logger zerolog.Logger
}

func newArtifacts(logger zerolog.Logger) *artifacts {
	return &artifacts{seen: make(map[string]struct{}), logger: logger}
}

func (a *artifacts) add(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.seen[path]; ok {
		return
	}
	a.seen[path] = struct{}{}
	a.paths = append(a.paths, path)
}

func (a *artifacts) cleanup() {
	a.mu.Lock()
	paths := a.paths
	a.paths = nil
	a.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.logger.Warn().Err(err).Str("path", p).Msg("Failed to remove temp file")
		}
	}
}
