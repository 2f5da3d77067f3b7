package domain

import (
	"context"
	"time"
)

// Connection is a network handle to the messaging provider.
// Ephemeral connections support the login verbs; durable ones support relaying.
type Connection interface {
	// Scope reports whether the connection is ephemeral or durable
	Scope() Scope

	// Self returns the account behind a durable connection
	Self(ctx context.Context) (*Account, error)

	// SendCode requests a verification code and returns the code correlation handle
	SendCode(ctx context.Context, phone string) (string, error)

	// SignIn completes phone login; returns ErrPasswordRequired when a second factor is set
	SignIn(ctx context.Context, phone, code, codeHash string) (*Account, error)

	// CheckPassword completes the second factor
	CheckPassword(ctx context.Context, password string) (*Account, error)

	// ExportToken serializes the authorization so it can be restored with Connector.FromToken
	ExportToken(ctx context.Context) (string, error)

	// Resolve fetches a single post
	Resolve(ctx context.Context, loc Locator) (*Item, error)

	// ResolveGroup fetches every post of the album containing loc
	ResolveGroup(ctx context.Context, loc Locator, groupID int64) ([]*Item, error)

	// Download writes the media of item to path and returns the final path
	Download(ctx context.Context, item *Item, path string, onProgress ProgressFunc) (string, error)

	// SendText posts a text message
	SendText(ctx context.Context, dest ChatRef, text string) (Sent, error)

	// SendMedia uploads one artifact
	SendMedia(ctx context.Context, dest ChatRef, upload Upload) (Sent, error)

	// SendMediaGroup uploads several artifacts as one album
	SendMediaGroup(ctx context.Context, dest ChatRef, uploads []Upload) ([]Sent, error)

	// CopyMessages re-posts existing messages without re-uploading their media
	CopyMessages(ctx context.Context, dest, from ChatRef, ids []int) ([]Sent, error)

	// FindRecentGroup looks for an outgoing album of count items posted to dest since the given time
	FindRecentGroup(ctx context.Context, dest ChatRef, count int, since time.Time) ([]Sent, error)

	// Close releases the connection; safe to call more than once
	Close(ctx context.Context) error
}

// Connector opens connections
type Connector interface {
	// Ephemeral opens an unauthenticated connection for a login attempt
	Ephemeral(ctx context.Context) (Connection, error)

	// FromToken opens a durable connection from an exported token
	FromToken(ctx context.Context, token string) (Connection, error)
}

// MediaProbe extracts stream metadata from a local file
type MediaProbe interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// ThumbnailExtractor grabs a still frame from a video
type ThumbnailExtractor interface {
	Extract(ctx context.Context, path string, atSecond int, timeout time.Duration) (string, error)
}

// CredentialStore persists user sessions and named settings
type CredentialStore interface {
	// IsConnected reports whether writes reach durable storage
	IsConnected() bool

	GetSession(ctx context.Context, userID int64) (*UserSession, error)
	SaveSession(ctx context.Context, userID int64, token, phone string) error
	DeleteSession(ctx context.Context, userID int64) error
	DeactivateSession(ctx context.Context, userID int64) error
	ListActiveSessions(ctx context.Context) ([]UserSession, error)

	// GetSetting returns defaultValue when the key is absent or the store fails
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SaveSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// TokenSealer protects session tokens at rest
type TokenSealer interface {
	Seal(token string) (string, error)
	Open(sealed string) (string, error)
}
