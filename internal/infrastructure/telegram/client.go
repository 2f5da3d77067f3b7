package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/media-relay/internal/domain"
)

// Connection is an MTProto client bound to one session.
// Ephemeral connections serve a login attempt; durable ones are restored from a token.
type Connection struct {
	client      *telegram.Client
	api         *tg.Client
	scope       domain.Scope
	storage     *MemorySessionStorage
	rateLimiter *rate.Limiter
	peers       *peerCache
	logger      zerolog.Logger

	mu         sync.RWMutex
	cancelFunc context.CancelFunc
	runDone    chan struct{}
	closed     bool
	self       *tg.User
}

func newConnection(apiID int, apiHash string, scope domain.Scope, storage *MemorySessionStorage, limit int, logger zerolog.Logger) *Connection {
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	if limit <= 0 {
		limit = 10
	}

	return &Connection{
		client:      client,
		api:         client.API(),
		scope:       scope,
		storage:     storage,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(limit)), limit),
		peers:       newPeerCache(),
		logger:      logger.With().Str("component", "mtproto_connection").Str("scope", scope.String()).Logger(),
	}
}

// start runs the client in the background and returns once authorize succeeded.
// The client keeps running until Close.
func (c *Connection) start(ctx context.Context, authorize func(ctx context.Context) error) error {
	clientCtx, cancel := context.WithCancel(context.Background())
	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)

		err := c.client.Run(clientCtx, func(runCtx context.Context) error {
			if authorize != nil {
				if err := authorize(runCtx); err != nil {
					return err
				}
			}
			close(readyChan)

			<-runCtx.Done()
			return runCtx.Err()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	select {
	case <-readyChan:
		c.mu.Lock()
		c.cancelFunc = cancel
		c.runDone = runDone
		c.mu.Unlock()
		c.logger.Debug().Msg("Connected to Telegram")
		return nil
	case err := <-errChan:
		cancel()
		return mapError(err)
	case <-runDone:
		cancel()
		select {
		case err := <-errChan:
			return mapError(err)
		default:
			return domain.ErrNotConnected
		}
	case <-ctx.Done():
		cancel()
		<-runDone
		return ctx.Err()
	}
}

// authorizeSession checks that the restored session is still signed in
func (c *Connection) authorizeSession(ctx context.Context) error {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("auth status: %w", err)
	}
	if !status.Authorized {
		return domain.ErrSessionRevoked
	}

	c.mu.Lock()
	c.self = status.User
	c.mu.Unlock()
	return nil
}

// Scope reports whether the connection is ephemeral or durable
func (c *Connection) Scope() domain.Scope {
	return c.scope
}

// Self returns the account behind the connection
func (c *Connection) Self(ctx context.Context) (*domain.Account, error) {
	c.mu.RLock()
	self := c.self
	c.mu.RUnlock()

	if self == nil {
		if err := c.ready(ctx, domain.ScopeDurable); err != nil {
			return nil, err
		}
		user, err := c.client.Self(ctx)
		if err != nil {
			return nil, mapError(err)
		}

		c.mu.Lock()
		c.self = user
		c.mu.Unlock()
		self = user
	}

	return toAccount(self), nil
}

// Close stops the client; safe to call more than once
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	if cancelFunc == nil {
		return nil
	}

	cancelFunc()
	select {
	case <-runDone:
		c.logger.Debug().Msg("Client stopped")
	case <-ctx.Done():
		c.logger.Warn().Msg("Timed out waiting for client shutdown")
	}

	return nil
}

// ready gates every call: the connection must be open, of the right scope and within the rate limit
func (c *Connection) ready(ctx context.Context, want domain.Scope) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()

	if closed {
		return domain.ErrNotConnected
	}
	if c.scope != want {
		return domain.ErrWrongScope
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return nil
}

func toAccount(u *tg.User) *domain.Account {
	if u == nil {
		return &domain.Account{}
	}
	return &domain.Account{
		ID:       u.ID,
		Username: u.Username,
		Phone:    u.Phone,
		Premium:  u.Premium,
	}
}

// Ensure Connection implements domain.Connection interface
var _ domain.Connection = (*Connection)(nil)
