package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"github.com/Conte777/media-relay/internal/domain"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

// rpcErrors maps provider error types onto domain sentinels
var rpcErrors = []struct {
	types []string
	err   error
}{
	{[]string{"PHONE_NUMBER_INVALID", "PHONE_NUMBER_BANNED", "PHONE_NUMBER_UNOCCUPIED"}, domain.ErrPhoneInvalid},
	{[]string{"PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"}, domain.ErrPhoneCodeInvalid},
	{[]string{"PHONE_CODE_EXPIRED"}, domain.ErrPhoneCodeExpired},
	{[]string{"PASSWORD_HASH_INVALID"}, domain.ErrPasswordInvalid},
	{[]string{"SESSION_PASSWORD_NEEDED"}, domain.ErrPasswordRequired},
	{[]string{"API_ID_INVALID", "API_ID_PUBLISHED_FLOOD"}, domain.ErrAPICredentialsInvalid},
	{[]string{"SESSION_REVOKED", "SESSION_EXPIRED", "AUTH_KEY_UNREGISTERED", "AUTH_KEY_DUPLICATED", "USER_DEACTIVATED", "USER_DEACTIVATED_BAN"}, domain.ErrSessionRevoked},
	{[]string{"CHANNEL_INVALID", "CHANNEL_PRIVATE", "CHAT_ID_INVALID", "PEER_ID_INVALID", "MSG_ID_INVALID", "USERNAME_INVALID", "USERNAME_NOT_OCCUPIED", "MESSAGE_IDS_EMPTY"}, domain.ErrResourceNotFound},
	{[]string{"RANDOM_ID_DUPLICATE"}, domain.ErrAmbiguousSend},
}

// mapError translates provider errors into the domain taxonomy, keeping the original in the chain
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if d, ok := tgerr.AsFloodWait(err); ok {
		return fmt.Errorf("%w: %w", pkgerrors.NewRateLimitError(d), err)
	}

	switch {
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		return fmt.Errorf("%w: %w", domain.ErrPasswordRequired, err)
	case errors.Is(err, auth.ErrPasswordInvalid):
		return fmt.Errorf("%w: %w", domain.ErrPasswordInvalid, err)
	}

	for _, m := range rpcErrors {
		if tgerr.Is(err, m.types...) {
			return fmt.Errorf("%w: %w", m.err, err)
		}
	}

	return err
}

// mapSendError is mapError for sends: a failure outside an RPC answer may still have delivered
func mapSendError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if _, ok := tgerr.As(err); !ok {
		return fmt.Errorf("%w: %w", domain.ErrAmbiguousSend, err)
	}
	return mapError(err)
}
