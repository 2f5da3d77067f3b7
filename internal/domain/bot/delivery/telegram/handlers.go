// Package telegram contains Telegram delivery handlers
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/internal/domain/bot/deps"
	"github.com/Conte777/media-relay/internal/domain/bot/dto"
	boterrors "github.com/Conte777/media-relay/internal/domain/bot/errors"
	"github.com/Conte777/media-relay/internal/domain/bot/usecase/business"
)

// Constants for Telegram API
const (
	MaxMessageLength = 4096
	RequestTimeout   = 30 * time.Second
)

// Handlers contains Telegram command handlers
// Implements deps.Messenger interface
type Handlers struct {
	uc       *business.UseCase
	bot      *tgbot.Bot
	username func() string
	logger   zerolog.Logger
}

// NewHandlers creates new Telegram handlers
func NewHandlers(uc *business.UseCase, bot *tgbot.Bot, username func() string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		uc:       uc,
		bot:      bot,
		username: username,
		logger:   logger.With().Str("component", "bot-handlers").Logger(),
	}
}

// SendMessage implements deps.Messenger interface
func (h *Handlers) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if text == "" {
		h.logger.Warn().Int64("chat_id", chatID).Msg("Attempt to send empty message")
		return 0, boterrors.ErrEmptyMessage
	}

	var lastID int
	for _, part := range splitMessage(text) {
		id, err := h.sendSingleMessage(ctx, chatID, part)
		if err != nil {
			return lastID, err
		}
		lastID = id
	}
	return lastID, nil
}

// EditMessage implements deps.Messenger interface
func (h *Handlers) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if text == "" {
		return boterrors.ErrEmptyMessage
	}

	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	if len(text) > MaxMessageLength {
		text = text[:MaxMessageLength-3] + "..."
	}

	_, err := h.bot.EditMessageText(msgCtx, &tgbot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("%w: edit message: %w", boterrors.ErrTelegramAPI, err)
	}
	return nil
}

// DeleteMessage implements deps.Messenger interface
func (h *Handlers) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	if _, err := h.bot.DeleteMessage(msgCtx, &tgbot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("%w: delete message: %w", boterrors.ErrTelegramAPI, err)
	}
	return nil
}

// BotUsername implements deps.Messenger interface
func (h *Handlers) BotUsername() string {
	if h.username == nil {
		return ""
	}
	return h.username()
}

// HandleStart handles /start command
func (h *Handlers) HandleStart(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/start", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleStart(ctx, req)
	})
}

// HandleHelp handles /help command
func (h *Handlers) HandleHelp(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/help", func(*dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleHelp(ctx)
	})
}

// HandlePing handles /ping command
func (h *Handlers) HandlePing(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/ping", func(*dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandlePing(ctx)
	})
}

// HandleLogin handles /login command
func (h *Handlers) HandleLogin(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/login", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleLogin(ctx, req)
	})
}

// HandleCancel handles /cancel command
func (h *Handlers) HandleCancel(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/cancel", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleCancel(ctx, req)
	})
}

// HandleLogout handles /logout command
func (h *Handlers) HandleLogout(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/logout", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleLogout(ctx, req)
	})
}

// HandleStatus handles /status command
func (h *Handlers) HandleStatus(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/status", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleStatus(ctx, req)
	})
}

// HandleDownload handles /dl command; without an argument the replied-to message is used
func (h *Handlers) HandleDownload(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/dl", func(req *dto.CommandRequest) *dto.CommandResponse {
		link := req.Arg(0)
		if link == "" && update.Message.ReplyToMessage != nil {
			link = firstWord(update.Message.ReplyToMessage.Text)
		}
		return h.uc.HandleDownload(ctx, req, link)
	})
}

// HandleBatch handles /bdl command
func (h *Handlers) HandleBatch(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/bdl", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleBatch(ctx, req)
	})
}

// HandleKillAll handles /killall command
func (h *Handlers) HandleKillAll(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/killall", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleKillAll(ctx, req)
	})
}

// HandleChannel handles /channel command
func (h *Handlers) HandleChannel(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/channel", func(*dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleChannel(ctx)
	})
}

// HandleSetChannel handles /setchannel command
func (h *Handlers) HandleSetChannel(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/setchannel", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleSetChannel(ctx, req)
	})
}

// HandleSetBackup handles /setbackup command
func (h *Handlers) HandleSetBackup(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.respond(ctx, update, "/setbackup", func(req *dto.CommandRequest) *dto.CommandResponse {
		return h.uc.HandleSetBackup(ctx, req)
	})
}

// HandleText handles messages no command matched: login input first, then post links
func (h *Handlers) HandleText(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	req, ok := newRequest(update)
	if !ok || req.Text == "" {
		return
	}

	// unknown commands are never login input
	if strings.HasPrefix(req.Text, "/") {
		h.sendResponse(ctx, req.ChatID, h.uc.HandleFallback(ctx).Message)
		return
	}

	if resp, handled := h.uc.HandleInput(ctx, req); handled {
		h.logCommand(req.UserID, "login-input", "processed")
		h.sendResponse(ctx, req.ChatID, resp.Message)
		return
	}

	if business.IsLink(req.Text) {
		h.logCommand(req.UserID, "link", "processing")
		if resp := h.uc.HandleDownload(ctx, req, firstWord(req.Text)); resp != nil {
			h.sendResponse(ctx, req.ChatID, resp.Message)
		}
		return
	}

	h.sendResponse(ctx, req.ChatID, h.uc.HandleFallback(ctx).Message)
}

// respond runs one command and sends its reply, if any
func (h *Handlers) respond(
	ctx context.Context,
	update *models.Update,
	command string,
	run func(req *dto.CommandRequest) *dto.CommandResponse,
) {
	req, ok := newRequest(update)
	if !ok || !isCommand(req.Text, command) {
		return
	}

	h.logCommand(req.UserID, command, "processing")

	if resp := run(req); resp != nil {
		h.sendResponse(ctx, req.ChatID, resp.Message)
	}

	h.logCommand(req.UserID, command, "success")
}

func (h *Handlers) sendResponse(ctx context.Context, chatID int64, text string) {
	if _, err := h.SendMessage(ctx, chatID, text); err != nil {
		h.logger.Error().Int64("chat_id", chatID).Err(err).Msg("Failed to send Telegram response")
	}
}

func (h *Handlers) sendSingleMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	msg, err := h.bot.SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Error().Int64("chat_id", chatID).Int("message_length", len(text)).Err(err).Msg("Failed to send message")
		return 0, fmt.Errorf("%w: send message: %w", boterrors.ErrTelegramAPI, err)
	}

	h.logger.Debug().Int64("chat_id", chatID).Int("message_length", len(text)).Msg("Message sent")
	return msg.ID, nil
}

// logCommand logs command processing
func (h *Handlers) logCommand(userID int64, command, result string) {
	h.logger.Info().Int64("user_id", userID).Str("command", command).Str("result", result).Msg("Telegram command processed")
}

// newRequest extracts a command request from a private text message
func newRequest(update *models.Update) (*dto.CommandRequest, bool) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return nil, false
	}
	msg := update.Message
	if msg.Chat.Type != models.ChatTypePrivate {
		return nil, false
	}

	text := strings.TrimSpace(msg.Text)
	fields := strings.Fields(text)

	var args []string
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		args = fields[1:]
	}

	return &dto.CommandRequest{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Username:  msg.From.Username,
		Args:      args,
		Text:      text,
	}, true
}

// isCommand reports whether text starts with exactly command, optionally addressed as command@bot
func isCommand(text, command string) bool {
	word := firstWord(text)
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return strings.EqualFold(word, command)
}

func firstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitMessage splits text on line boundaries into parts of at most MaxMessageLength bytes
func splitMessage(text string) []string {
	if len(text) <= MaxMessageLength {
		return []string{text}
	}

	var parts []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		for len(line) > MaxMessageLength {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			cut := MaxMessageLength
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = MaxMessageLength
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}

		if current.Len() > 0 && current.Len()+1+len(line) > MaxMessageLength {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

var _ deps.Messenger = (*Handlers)(nil)
