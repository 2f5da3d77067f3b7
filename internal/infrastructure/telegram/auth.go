package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/Conte777/media-relay/internal/domain"
)

// SendCode requests a login code and returns the phone code hash
func (c *Connection) SendCode(ctx context.Context, phone string) (string, error) {
	if err := c.ready(ctx, domain.ScopeEphemeral); err != nil {
		return "", err
	}

	res, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		c.logger.Debug().Err(err).Msg("send code failed")
		return "", mapError(err)
	}

	var sent any = res
	switch v := sent.(type) {
	case *tg.AuthSentCode:
		return v.PhoneCodeHash, nil
	default:
		return "", fmt.Errorf("unexpected sent code response %T", sent)
	}
}

// SignIn completes phone login; returns domain.ErrPasswordRequired when a second factor is set
func (c *Connection) SignIn(ctx context.Context, phone, code, codeHash string) (*domain.Account, error) {
	if err := c.ready(ctx, domain.ScopeEphemeral); err != nil {
		return nil, err
	}

	authz, err := c.client.Auth().SignIn(ctx, phone, code, codeHash)
	if err != nil {
		return nil, mapError(err)
	}

	return c.authorized(authz), nil
}

// CheckPassword completes two-step verification
func (c *Connection) CheckPassword(ctx context.Context, password string) (*domain.Account, error) {
	if err := c.ready(ctx, domain.ScopeEphemeral); err != nil {
		return nil, err
	}

	authz, err := c.client.Auth().Password(ctx, password)
	if err != nil {
		return nil, mapError(err)
	}

	return c.authorized(authz), nil
}

// ExportToken serializes the session created by a successful sign in
func (c *Connection) ExportToken(ctx context.Context) (string, error) {
	if err := c.ready(ctx, domain.ScopeEphemeral); err != nil {
		return "", err
	}
	return c.storage.Token()
}

func (c *Connection) authorized(authz *tg.AuthAuthorization) *domain.Account {
	if authz == nil {
		return &domain.Account{}
	}

	user, ok := authz.User.(*tg.User)
	if !ok {
		return &domain.Account{}
	}

	c.mu.Lock()
	c.self = user
	c.mu.Unlock()

	c.logger.Info().Int64("account_id", user.ID).Msg("Signed in")
	return toAccount(user)
}
