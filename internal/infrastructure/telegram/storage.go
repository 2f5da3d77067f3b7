package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gotd/td/session"

	"github.com/Conte777/media-relay/internal/domain"
)

// tokenPrefix versions exported tokens so the format can change later
const tokenPrefix = "mr1."

// MemorySessionStorage keeps MTProto session data in memory.
// Tokens are exported from it and restored into it; durable storage is the credential store.
type MemorySessionStorage struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemorySessionStorage creates storage seeded with data, which may be nil
func NewMemorySessionStorage(data []byte) *MemorySessionStorage {
	return &MemorySessionStorage{data: append([]byte(nil), data...)}
}

// LoadSession returns session.ErrNotFound until the client stores something
func (s *MemorySessionStorage) LoadSession(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// StoreSession replaces the stored data
func (s *MemorySessionStorage) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append([]byte(nil), data...)
	return nil
}

// Token serializes the stored session
func (s *MemorySessionStorage) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return "", fmt.Errorf("export token: %w", domain.ErrNotConnected)
	}
	return EncodeToken(s.data), nil
}

// EncodeToken wraps raw session data into a printable token
func EncodeToken(data []byte) string {
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToken reverses EncodeToken; malformed tokens are reported as revoked sessions
func DecodeToken(token string) ([]byte, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(token), tokenPrefix)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: unknown token format", domain.ErrSessionRevoked)
	}

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionRevoked, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: token payload is not session data", domain.ErrSessionRevoked)
	}

	return data, nil
}

// Ensure MemorySessionStorage implements session.Storage interface
var _ session.Storage = (*MemorySessionStorage)(nil)
