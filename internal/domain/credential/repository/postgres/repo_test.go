package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/infrastructure/crypto"
	"github.com/rs/zerolog"
)

func TestRepository_UnavailableWithoutDB(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(nil, crypto.PlainSealer{}, zerolog.Nop())

	if r.IsConnected() {
		t.Fatal("store without db must report disconnected")
	}

	checks := map[string]error{
		"save":       r.SaveSession(ctx, 1, "t", "+1"),
		"delete":     r.DeleteSession(ctx, 1),
		"deactivate": r.DeactivateSession(ctx, 1),
		"setting":    r.SaveSetting(ctx, "k", "v"),
		"delsetting": r.DeleteSetting(ctx, "k"),
	}
	for name, err := range checks {
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Errorf("%s: got %v, want ErrStorageUnavailable", name, err)
		}
	}

	if _, err := r.GetSession(ctx, 1); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("GetSession: %v", err)
	}
	if _, err := r.ListActiveSessions(ctx); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("ListActiveSessions: %v", err)
	}

	v, err := r.GetSetting(ctx, "relay_channel_id", "42")
	if v != "42" || !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("GetSetting = %q, %v", v, err)
	}
}
