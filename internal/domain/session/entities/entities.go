package entities

import (
	"time"

	"github.com/Conte777/media-relay/internal/domain"
)

// LoginState is the per-user position in the login flow
type LoginState int

const (
	StateIdle            LoginState = iota // no login attempt
	StateWaitingPhone                      // waiting for phone number
	StateWaitingCode                       // code sent, waiting for it
	StateWaitingPassword                   // waiting for two-step password
)

func (s LoginState) String() string {
	switch s {
	case StateWaitingPhone:
		return "waiting_phone"
	case StateWaitingCode:
		return "waiting_code"
	case StateWaitingPassword:
		return "waiting_password"
	default:
		return "idle"
	}
}

// LoginAttempt is the transient state of one user's login.
// Conn is set once a code has been requested.
type LoginAttempt struct {
	UserID    int64
	State     LoginState
	Conn      domain.Connection
	Phone     string
	CodeHash  string
	StartedAt time.Time

	// busy is set while a provider call for this attempt is in flight
	busy bool
}

// Busy reports whether a transition is currently running
func (a *LoginAttempt) Busy() bool {
	return a.busy
}

// SetBusy marks the attempt as running a transition
func (a *LoginAttempt) SetBusy(v bool) {
	a.busy = v
}

// LoginStep is the result of a login transition.
// Account is set only once the user is authenticated.
type LoginStep struct {
	State   LoginState
	Account *domain.Account
}

// Authenticated reports whether the step completed the login
func (s *LoginStep) Authenticated() bool {
	return s != nil && s.Account != nil
}

// LogoutOutcome describes what logout found
type LogoutOutcome int

const (
	// LogoutNotLoggedIn means there was neither a connection nor a stored session
	LogoutNotLoggedIn LogoutOutcome = iota
	// LogoutDisconnected means a live connection was closed and its session deleted
	LogoutDisconnected
	// LogoutSessionDeleted means only a stored, unloaded session was removed
	LogoutSessionDeleted
)

// Status is a user's view of the session manager
type Status struct {
	State         LoginState
	LoggedIn      bool
	Account       *domain.Account
	UsingFallback bool
}

// PoolStats summarizes the connection pool
type PoolStats struct {
	Connections int
	HasPrimary  bool
	HasFallback bool
}
