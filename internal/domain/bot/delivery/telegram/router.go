package telegram

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/internal/domain/bot/consts"
)

// Router registers Telegram bot handlers
type Router struct {
	handlers *Handlers
	logger   zerolog.Logger
}

// NewRouter creates new Telegram router
func NewRouter(handlers *Handlers, logger zerolog.Logger) *Router {
	return &Router{
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterRoutes registers all command handlers on the bot
func (r *Router) RegisterRoutes(bot *tgbot.Bot) {
	h := r.handlers

	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandStart.Slash(), tgbot.MatchTypeExact, h.HandleStart)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandHelp.Slash(), tgbot.MatchTypeExact, h.HandleHelp)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandPing.Slash(), tgbot.MatchTypeExact, h.HandlePing)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandLogin.Slash(), tgbot.MatchTypeExact, h.HandleLogin)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandCancel.Slash(), tgbot.MatchTypeExact, h.HandleCancel)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandLogout.Slash(), tgbot.MatchTypeExact, h.HandleLogout)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandStatus.Slash(), tgbot.MatchTypeExact, h.HandleStatus)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandKillAll.Slash(), tgbot.MatchTypeExact, h.HandleKillAll)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandChannel.Slash(), tgbot.MatchTypeExact, h.HandleChannel)

	// commands with arguments
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandDownload.Slash(), tgbot.MatchTypePrefix, h.HandleDownload)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandBatch.Slash(), tgbot.MatchTypePrefix, h.HandleBatch)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandSetChannel.Slash(), tgbot.MatchTypePrefix, h.HandleSetChannel)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, consts.CommandSetBackup.Slash(), tgbot.MatchTypePrefix, h.HandleSetBackup)

	r.logger.Info().Int("commands", len(consts.AllCommands)).Msg("All Telegram command handlers registered successfully")
}

// DefaultHandler handles messages without commands
func (r *Router) DefaultHandler() tgbot.HandlerFunc {
	return r.handlers.HandleText
}

// MenuCommands converts the command list for the bot menu
func MenuCommands() []models.BotCommand {
	out := make([]models.BotCommand, 0, len(consts.AllCommands))
	for _, c := range consts.AllCommands {
		out = append(out, models.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}
