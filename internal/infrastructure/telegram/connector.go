package telegram

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
)

// Connector opens MTProto connections with the application credentials
type Connector struct {
	apiID     int
	apiHash   string
	rateLimit int
	logger    zerolog.Logger
}

// NewConnector creates a connector from the Telegram configuration
func NewConnector(cfg *config.TelegramConfig, logger zerolog.Logger) *Connector {
	return &Connector{
		apiID:     cfg.APIID,
		apiHash:   cfg.APIHash,
		rateLimit: cfg.RateLimit,
		logger:    logger.With().Str("component", "mtproto_connector").Logger(),
	}
}

// Ephemeral opens an unauthenticated connection for one login attempt
func (c *Connector) Ephemeral(ctx context.Context) (domain.Connection, error) {
	conn := newConnection(c.apiID, c.apiHash, domain.ScopeEphemeral, NewMemorySessionStorage(nil), c.rateLimit, c.logger)

	if err := conn.start(ctx, nil); err != nil {
		c.logger.Error().Err(err).Msg("Failed to open login connection")
		return nil, fmt.Errorf("connect: %w", err)
	}

	return conn, nil
}

// FromToken restores a signed-in connection from an exported token
func (c *Connector) FromToken(ctx context.Context, token string) (domain.Connection, error) {
	data, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}

	conn := newConnection(c.apiID, c.apiHash, domain.ScopeDurable, NewMemorySessionStorage(data), c.rateLimit, c.logger)

	if err := conn.start(ctx, conn.authorizeSession); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to restore session")
		return nil, fmt.Errorf("restore session: %w", err)
	}

	if self, err := conn.Self(ctx); err == nil {
		c.logger.Info().Int64("account_id", self.ID).Bool("premium", self.Premium).Msg("Session restored")
	}

	return conn, nil
}

// Ensure Connector implements domain.Connector interface
var _ domain.Connector = (*Connector)(nil)
