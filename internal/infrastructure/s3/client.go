package s3

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/relay/deps"
)

// Client archives relayed artifacts to S3/MinIO
type Client struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewClient creates a new S3/MinIO client
func NewClient(cfg *config.S3Config, logger zerolog.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "s3").Logger(),
	}, nil
}

// EnsureBucket creates the archive bucket if it doesn't exist
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	c.logger.Info().Str("bucket", c.bucket).Msg("created S3 bucket")
	return nil
}

// Archive uploads the file at localPath under key
func (c *Client) Archive(ctx context.Context, key, localPath string) error {
	objectKey := objectKey(key)

	info, err := c.client.FPutObject(ctx, c.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", objectKey, err)
	}

	c.logger.Debug().
		Str("object_key", objectKey).
		Int64("size", info.Size).
		Msg("archived artifact")
	return nil
}

// objectKey keeps keys relative and free of parent references
func objectKey(key string) string {
	return path.Clean("/" + filepath.ToSlash(key))[1:]
}

func contentType(file string) string {
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// NoopArchiver discards artifacts when no S3 endpoint is configured
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, string, string) error {
	return nil
}

var (
	_ deps.ArtifactArchiver = (*Client)(nil)
	_ deps.ArtifactArchiver = NoopArchiver{}
)
