// Package botapi contains Telegram Bot API infrastructure
package botapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Bot wraps the Telegram bot for infrastructure layer
type Bot struct {
	bot    *tgbot.Bot
	logger zerolog.Logger

	mu       sync.RWMutex
	fallback tgbot.HandlerFunc
	username string
}

// NewBot creates a new Telegram bot wrapper
func NewBot(token string, logger zerolog.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	b := &Bot{
		logger: logger.With().Str("component", "bot").Logger(),
	}

	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(b.handleDefault),
	}

	bot, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.bot = bot

	b.logger.Info().Msg("Telegram bot created successfully")

	return b, nil
}

// Raw returns the underlying telegram bot for handler registration
func (b *Bot) Raw() *tgbot.Bot {
	return b.bot
}

// SetDefaultHandler sets the handler for updates no route matched
func (b *Bot) SetDefaultHandler(h tgbot.HandlerFunc) {
	b.mu.Lock()
	b.fallback = h
	b.mu.Unlock()
}

// Username returns the bot's @username, empty until Start has fetched it
func (b *Bot) Username() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.username
}

// RegisterCommands publishes the command menu
func (b *Bot) RegisterCommands(ctx context.Context, commands []models.BotCommand) error {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := b.bot.SetMyCommands(reqCtx, &tgbot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

// Start starts the bot (blocking call)
func (b *Bot) Start(ctx context.Context) error {
	meCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	me, err := b.bot.GetMe(meCtx)
	cancel()
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to fetch bot identity")
	} else {
		b.mu.Lock()
		b.username = me.Username
		b.mu.Unlock()
	}

	b.logger.Info().Str("username", b.Username()).Msg("Starting Telegram bot...")
	b.bot.Start(ctx)
	b.logger.Info().Msg("Telegram bot stopped")
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	b.logger.Info().Msg("Stopping Telegram bot...")
	return nil
}

func (b *Bot) handleDefault(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	b.mu.RLock()
	h := b.fallback
	b.mu.RUnlock()

	if h != nil {
		h(ctx, bot, update)
	}
}
