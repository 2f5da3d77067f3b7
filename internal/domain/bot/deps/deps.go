package deps

import (
	"context"

	"github.com/Conte777/media-relay/internal/domain"
	batchentities "github.com/Conte777/media-relay/internal/domain/batch/entities"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
	sessionentities "github.com/Conte777/media-relay/internal/domain/session/entities"
	transferentities "github.com/Conte777/media-relay/internal/domain/transfer/entities"
	"github.com/Conte777/media-relay/internal/domain/transfer/workers"
)

// Sessions is the login state machine and connection pool as seen by the bot
type Sessions interface {
	State(userID int64) sessionentities.LoginState
	StartLogin(ctx context.Context, userID int64) (*sessionentities.LoginStep, error)
	HandleInput(ctx context.Context, userID int64, text string) (*sessionentities.LoginStep, error)
	CancelLogin(ctx context.Context, userID int64) bool
	Logout(ctx context.Context, userID int64) (sessionentities.LogoutOutcome, error)
	Status(ctx context.Context, userID int64) sessionentities.Status
	ConnectionFor(userID int64) domain.Connection
	PoolStats() sessionentities.PoolStats
}

// Relayer runs the relay pipeline for one post
type Relayer interface {
	Relay(ctx context.Context, req relayentities.Request) (*relayentities.Result, error)
}

// BatchRunner relays a range of posts
type BatchRunner interface {
	Run(ctx context.Context, req batchentities.Request) (*batchentities.Report, error)
}

// Scheduler gates relay work and cancels it on demand
type Scheduler interface {
	Submit(ctx context.Context, label string, fn workers.Func) *workers.Task
	CancelAll() int
	Stats() transferentities.Stats
}

// Targets reads and changes the relay and backup channels
type Targets interface {
	Targets() relayentities.Targets
	SetRelayChannel(ctx context.Context, id int64) error
	SetBackupChannel(ctx context.Context, id int64) error
}

// Messenger sends bot replies
type Messenger interface {
	// SendMessage sends HTML text and returns the message id
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)

	// EditMessage replaces the text of a message sent earlier
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error

	// DeleteMessage removes a message from the chat
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// BotUsername is the bot's @username, empty if unknown
	BotUsername() string
}
