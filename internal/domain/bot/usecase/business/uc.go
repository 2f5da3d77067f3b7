// Package business contains business logic for the bot domain
package business

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/bot/deps"
	"github.com/Conte777/media-relay/internal/domain/bot/dto"
	boterrors "github.com/Conte777/media-relay/internal/domain/bot/errors"
	sessionentities "github.com/Conte777/media-relay/internal/domain/session/entities"
	sessionerrors "github.com/Conte777/media-relay/internal/domain/session/errors"
)

// ProgressInterval is the minimum gap between two progress edits of one status message
const ProgressInterval = 3 * time.Second

// UseCase contains business logic for bot operations
type UseCase struct {
	sessions  deps.Sessions
	relay     deps.Relayer
	batch     deps.BatchRunner
	scheduler deps.Scheduler
	targets   deps.Targets
	sender    deps.Messenger
	cfg       *config.BotConfig
	logger    zerolog.Logger

	startedAt        time.Time
	progressInterval time.Duration

	// jobsCtx parents background relays and batches; stopJobs cancels them on shutdown
	jobsCtx  context.Context
	stopJobs context.CancelFunc
	jobs     sync.WaitGroup
}

// NewUseCase creates a new UseCase instance
// Note: sender is not passed here to break cyclic dependency
// Use SetSender after creating TelegramHandlers
func NewUseCase(
	sessions deps.Sessions,
	relay deps.Relayer,
	batch deps.BatchRunner,
	scheduler deps.Scheduler,
	targets deps.Targets,
	cfg *config.BotConfig,
	logger zerolog.Logger,
) *UseCase {
	jobsCtx, stopJobs := context.WithCancel(context.Background())

	return &UseCase{
		sessions:         sessions,
		relay:            relay,
		batch:            batch,
		scheduler:        scheduler,
		targets:          targets,
		cfg:              cfg,
		logger:           logger.With().Str("usecase", "bot").Logger(),
		startedAt:        time.Now(),
		progressInterval: ProgressInterval,
		jobsCtx:          jobsCtx,
		stopJobs:         stopJobs,
	}
}

// SetSender sets the Messenger after construction
func (uc *UseCase) SetSender(sender deps.Messenger) {
	uc.sender = sender
}

// HandleStart handles /start command
func (uc *UseCase) HandleStart(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	uc.logger.Info().
		Int64("user_id", req.UserID).
		Str("username", req.Username).
		Msg("User started bot")

	return &dto.CommandResponse{Message: msgWelcome}
}

// HandleHelp handles /help command
func (uc *UseCase) HandleHelp(ctx context.Context) *dto.CommandResponse {
	return &dto.CommandResponse{Message: msgHelp}
}

// HandleFallback answers text that is neither a command, a login input nor a link
func (uc *UseCase) HandleFallback(ctx context.Context) *dto.CommandResponse {
	return &dto.CommandResponse{Message: msgDefault}
}

// HandlePing handles /ping command
func (uc *UseCase) HandlePing(ctx context.Context) *dto.CommandResponse {
	return &dto.CommandResponse{Message: pingMessage(time.Since(uc.startedAt))}
}

// HandleLogin opens a login attempt
func (uc *UseCase) HandleLogin(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	step, err := uc.sessions.StartLogin(ctx, req.UserID)
	if err != nil {
		return &dto.CommandResponse{Message: loginErrorMessage(step, err)}
	}
	return &dto.CommandResponse{Message: loginStepMessage(step)}
}

// HandleInput feeds free text to the login state machine.
// ok is false when the user has no login in progress.
func (uc *UseCase) HandleInput(ctx context.Context, req *dto.CommandRequest) (resp *dto.CommandResponse, ok bool) {
	state := uc.sessions.State(req.UserID)
	if state == sessionentities.StateIdle {
		return nil, false
	}

	// the password must not stay in the chat history
	if state == sessionentities.StateWaitingPassword && req.MessageID != 0 {
		if err := uc.sender.DeleteMessage(ctx, req.ChatID, req.MessageID); err != nil {
			uc.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("Failed to delete password message")
		}
	}

	step, err := uc.sessions.HandleInput(ctx, req.UserID, req.Text)
	if errors.Is(err, sessionerrors.ErrNoLoginInProgress) {
		// cancelled between State and HandleInput
		return nil, false
	}
	if err != nil {
		uc.logger.Warn().Err(err).Int64("user_id", req.UserID).Str("state", state.String()).Msg("Login step failed")
		return &dto.CommandResponse{Message: loginErrorMessage(step, err)}, true
	}

	return &dto.CommandResponse{Message: loginStepMessage(step)}, true
}

// HandleCancel handles /cancel command
func (uc *UseCase) HandleCancel(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	if uc.sessions.CancelLogin(ctx, req.UserID) {
		return &dto.CommandResponse{Message: "✅ <b>Login cancelled.</b>"}
	}
	return &dto.CommandResponse{Message: "❌ <b>No active login process to cancel.</b>"}
}

// HandleLogout handles /logout command
func (uc *UseCase) HandleLogout(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	outcome, err := uc.sessions.Logout(ctx, req.UserID)
	if err != nil {
		uc.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("Logout failed")
		return &dto.CommandResponse{Message: "❌ <b>Failed to remove your session.</b> Please try again later."}
	}
	return &dto.CommandResponse{Message: logoutMessage(outcome)}
}

// HandleStatus handles /status command
func (uc *UseCase) HandleStatus(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	st := uc.sessions.Status(ctx, req.UserID)
	return &dto.CommandResponse{Message: statusMessage(st, uc.scheduler.Stats())}
}

// HandleKillAll cancels every queued and running transfer
func (uc *UseCase) HandleKillAll(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	n := uc.scheduler.CancelAll()
	uc.logger.Info().Int64("user_id", req.UserID).Int("cancelled", n).Msg("Cancelled all transfers")

	return &dto.CommandResponse{Message: "🛑 <b>Cancelled " + strconv.Itoa(n) + " running task(s).</b>"}
}

// HandleChannel shows the relay and backup channels
func (uc *UseCase) HandleChannel(ctx context.Context) *dto.CommandResponse {
	return &dto.CommandResponse{Message: channelMessage(uc.targets.Targets())}
}

// HandleSetChannel changes the relay channel
func (uc *UseCase) HandleSetChannel(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	return uc.setTarget(ctx, req, "Relay", "/setchannel", uc.targets.SetRelayChannel)
}

// HandleSetBackup changes the backup channel
func (uc *UseCase) HandleSetBackup(ctx context.Context, req *dto.CommandRequest) *dto.CommandResponse {
	return uc.setTarget(ctx, req, "Backup", "/setbackup", uc.targets.SetBackupChannel)
}

func (uc *UseCase) setTarget(
	ctx context.Context,
	req *dto.CommandRequest,
	title, command string,
	set func(ctx context.Context, id int64) error,
) *dto.CommandResponse {
	if !uc.isAdmin(req.UserID) {
		uc.logger.Warn().Int64("user_id", req.UserID).Str("command", command).Msg("Rejected target change from non-admin")
		return &dto.CommandResponse{Message: msgAdminOnly}
	}

	id, err := ParseChannelID(req.Arg(0))
	if err != nil {
		return &dto.CommandResponse{Message: "❌ <b>Usage:</b> <code>" + command + " -1001234567890</code> or <code>" + command + " off</code>"}
	}

	label := channelLabel(id)
	if err := set(ctx, id); err != nil {
		return &dto.CommandResponse{Message: "⚠️ <b>" + title + " channel set to</b> " + label +
			" for this run only; it could not be saved and resets on restart."}
	}

	uc.logger.Info().Int64("user_id", req.UserID).Str("command", command).Int64("channel_id", id).Msg("Relay target changed")
	return &dto.CommandResponse{Message: "✅ <b>" + title + " channel set to</b> " + label}
}

// ParseChannelID accepts a chat id or "off"/"0" to disable the target
func ParseChannelID(arg string) (int64, error) {
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(arg) {
	case "":
		return 0, boterrors.ErrInvalidChannelID
	case "off", "0", "none", "disable":
		return 0, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, boterrors.ErrInvalidChannelID
	}
	return id, nil
}

// NotifyStartup tells the admin that the bot is up
func (uc *UseCase) NotifyStartup(ctx context.Context) error {
	if uc.cfg.AdminID == 0 {
		return nil
	}

	text := startupMessage(time.Now(), uc.sessions.PoolStats(), uc.targets.Targets())
	if _, err := uc.sender.SendMessage(ctx, uc.cfg.AdminID, text); err != nil {
		return err
	}

	uc.logger.Info().Int64("admin_id", uc.cfg.AdminID).Msg("Startup notification sent")
	return nil
}

// Shutdown cancels background relays and batches and waits until they have reported or ctx is done
func (uc *UseCase) Shutdown(ctx context.Context) error {
	uc.stopJobs()

	done := make(chan struct{})
	go func() {
		uc.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *UseCase) isAdmin(userID int64) bool {
	return uc.cfg.AdminID == 0 || uc.cfg.AdminID == userID
}

// origin is the requesting chat as seen from the user's own account: the chat with the bot
func (uc *UseCase) origin(userID int64) domain.ChatRef {
	if name := uc.sender.BotUsername(); name != "" {
		return domain.ChatRef{Username: name}
	}
	return domain.ChatRef{ID: userID}
}

// IsLink reports whether free text should be treated as a post link
func IsLink(text string) bool {
	rest := strings.TrimSpace(text)
	for _, scheme := range []string{"https://", "http://"} {
		rest = strings.TrimPrefix(rest, scheme)
	}
	for _, host := range []string{"t.me/", "telegram.me/", "telegram.dog/"} {
		if strings.HasPrefix(rest, host) {
			return true
		}
	}
	return false
}
