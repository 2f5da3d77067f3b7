package s3

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/config"
)

func TestObjectKey(t *testing.T) {
	tests := map[string]string{
		"42/@news/7/a.mp4":      "42/@news/7/a.mp4",
		"/42/x.jpg":             "42/x.jpg",
		"42/../../etc/passwd":   "etc/passwd",
		"42/-100123/5/file.bin": "42/-100123/5/file.bin",
	}
	for in, want := range tests {
		if got := objectKey(in); got != want {
			t.Errorf("objectKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	require.Equal(t, "image/jpeg", contentType("/tmp/a.jpg"))
	require.Equal(t, "application/octet-stream", contentType("/tmp/a.unknownext"))
}

func TestNewArchiver_Disabled(t *testing.T) {
	a, err := NewArchiver(nil, &config.S3Config{}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, NoopArchiver{}, a)
	require.NoError(t, a.Archive(context.Background(), "k", "/nonexistent"))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(&config.S3Config{Endpoint: "localhost:9000", Bucket: "relay-artifacts"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "relay-artifacts", c.bucket)
}
