package ffmpeg

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/domain"
)

// Module provides the media probe and thumbnail extractor for fx DI
var Module = fx.Module("ffmpeg",
	fx.Provide(
		func(p *Prober) domain.MediaProbe {
			return p
		},
		func(t *Thumbnailer) domain.ThumbnailExtractor {
			return t
		},
		NewProber,
		NewThumbnailer,
	),
)
