package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/internal/domain"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

// TestConnection_Closed tests that every verb refuses to run after Close
func TestConnection_Closed(t *testing.T) {
	conn := &Connection{scope: domain.ScopeDurable, closed: true}
	ctx := context.Background()

	_, err := conn.Resolve(ctx, domain.Locator{Chat: domain.ChatRef{Username: "durov"}, MessageID: 1})
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got: %v", err)
	}

	_, err = conn.SendText(ctx, domain.ChatRef{ID: 1}, "hi")
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got: %v", err)
	}

	if err := conn.Close(ctx); err != nil {
		t.Errorf("Close on a closed connection returned %v", err)
	}
}

// TestConnection_WrongScope tests that login verbs and relay verbs are kept apart
func TestConnection_WrongScope(t *testing.T) {
	ctx := context.Background()

	durable := &Connection{scope: domain.ScopeDurable}
	if _, err := durable.SendCode(ctx, "+15551234567"); !errors.Is(err, domain.ErrWrongScope) {
		t.Errorf("Expected ErrWrongScope, got: %v", err)
	}
	if _, err := durable.ExportToken(ctx); !errors.Is(err, domain.ErrWrongScope) {
		t.Errorf("Expected ErrWrongScope, got: %v", err)
	}

	ephemeral := &Connection{scope: domain.ScopeEphemeral}
	if _, err := ephemeral.Download(ctx, &domain.Item{}, "x", nil); !errors.Is(err, domain.ErrWrongScope) {
		t.Errorf("Expected ErrWrongScope, got: %v", err)
	}
	if _, err := ephemeral.Self(ctx); !errors.Is(err, domain.ErrWrongScope) {
		t.Errorf("Expected ErrWrongScope, got: %v", err)
	}
}

func TestConnection_SelfCached(t *testing.T) {
	conn := &Connection{scope: domain.ScopeEphemeral, self: &tg.User{ID: 42, Username: "alice", Premium: true}}

	acc, err := conn.Self(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), acc.ID)
	require.True(t, acc.Premium)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"phone invalid", tgerr.New(400, "PHONE_NUMBER_INVALID"), domain.ErrPhoneInvalid},
		{"code invalid", tgerr.New(400, "PHONE_CODE_INVALID"), domain.ErrPhoneCodeInvalid},
		{"code expired", tgerr.New(400, "PHONE_CODE_EXPIRED"), domain.ErrPhoneCodeExpired},
		{"password invalid", tgerr.New(400, "PASSWORD_HASH_INVALID"), domain.ErrPasswordInvalid},
		{"password needed", tgerr.New(401, "SESSION_PASSWORD_NEEDED"), domain.ErrPasswordRequired},
		{"password needed sentinel", fmt.Errorf("sign in: %w", auth.ErrPasswordAuthNeeded), domain.ErrPasswordRequired},
		{"api id", tgerr.New(400, "API_ID_INVALID"), domain.ErrAPICredentialsInvalid},
		{"revoked", tgerr.New(401, "SESSION_REVOKED"), domain.ErrSessionRevoked},
		{"unregistered", tgerr.New(401, "AUTH_KEY_UNREGISTERED"), domain.ErrSessionRevoked},
		{"channel private", tgerr.New(400, "CHANNEL_PRIVATE"), domain.ErrResourceNotFound},
		{"username", tgerr.New(400, "USERNAME_NOT_OCCUPIED"), domain.ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestMapError_FloodWait(t *testing.T) {
	err := mapError(tgerr.New(420, "FLOOD_WAIT_30"))

	var rateErr *pkgerrors.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, 30*time.Second, rateErr.RetryAfter)

	// the provider error stays reachable
	require.True(t, tgerr.Is(err, "FLOOD_WAIT"))
}

func TestMapError_Passthrough(t *testing.T) {
	require.NoError(t, mapError(nil))

	other := errors.New("boom")
	require.Equal(t, other, mapError(other))
}

func TestMapSendError(t *testing.T) {
	ctx := context.Background()

	err := mapSendError(ctx, errors.New("connection reset"))
	require.ErrorIs(t, err, domain.ErrAmbiguousSend)

	err = mapSendError(ctx, tgerr.New(400, "CHAT_WRITE_FORBIDDEN"))
	require.NotErrorIs(t, err, domain.ErrAmbiguousSend)

	err = mapSendError(ctx, tgerr.New(500, "RANDOM_ID_DUPLICATE"))
	require.ErrorIs(t, err, domain.ErrAmbiguousSend)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = mapSendError(cancelled, context.Canceled)
	require.NotErrorIs(t, err, domain.ErrAmbiguousSend)
}
