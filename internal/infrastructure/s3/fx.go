package s3

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/relay/deps"
)

// Module provides the artifact archiver for FX
var Module = fx.Module("s3",
	fx.Provide(NewArchiver),
)

// NewArchiver returns a MinIO-backed archiver when S3_ENDPOINT is set and a no-op otherwise
func NewArchiver(lc fx.Lifecycle, cfg *config.S3Config, logger zerolog.Logger) (deps.ArtifactArchiver, error) {
	if !cfg.Enabled() {
		return NoopArchiver{}, nil
	}

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("initializing S3/MinIO client...")
			if err := client.EnsureBucket(ctx); err != nil {
				return err
			}
			logger.Info().Str("bucket", cfg.Bucket).Msg("S3/MinIO client initialized successfully")
			return nil
		},
	})

	return client, nil
}
