package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Conte777/media-relay/internal/domain"
)

// Repository is an in-memory credential store used when no database is configured.
// It never reports itself as connected since nothing survives a restart.
type Repository struct {
	mu       sync.RWMutex
	sessions map[int64]domain.UserSession
	order    map[int64]int
	seq      int
	settings map[string]string
}

// NewRepository creates an empty in-memory store
func NewRepository() *Repository {
	return &Repository{
		sessions: make(map[int64]domain.UserSession),
		order:    make(map[int64]int),
		settings: make(map[string]string),
	}
}

func (r *Repository) IsConnected() bool {
	return false
}

func (r *Repository) GetSession(_ context.Context, userID int64) (*domain.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &s, nil
}

func (r *Repository) SaveSession(_ context.Context, userID int64, token, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.order[userID] = r.seq
	r.sessions[userID] = domain.UserSession{
		UserID:       userID,
		SessionToken: token,
		PhoneNumber:  phone,
		Active:       true,
	}
	return nil
}

func (r *Repository) DeleteSession(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.sessions, userID)
	delete(r.order, userID)
	return nil
}

func (r *Repository) DeactivateSession(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	s.Active = false
	r.sessions[userID] = s
	return nil
}

// ListActiveSessions returns active sessions in save order
func (r *Repository) ListActiveSessions(_ context.Context) ([]domain.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.UserSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].UserID] < r.order[out[j].UserID]
	})
	return out, nil
}

func (r *Repository) GetSetting(_ context.Context, key, defaultValue string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.settings[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (r *Repository) SaveSetting(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[key] = value
	return nil
}

func (r *Repository) DeleteSetting(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.settings, key)
	return nil
}

var _ domain.CredentialStore = (*Repository)(nil)
