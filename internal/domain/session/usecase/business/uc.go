package business

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/session/entities"
	sessionerrors "github.com/Conte777/media-relay/internal/domain/session/errors"
	"github.com/Conte777/media-relay/internal/domain/session/pool"
	"github.com/Conte777/media-relay/internal/infrastructure/logger"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

const closeTimeout = 5 * time.Second

// UseCase is the session lifecycle manager: per-user login state machine plus the connection pool
type UseCase struct {
	connector domain.Connector
	store     domain.CredentialStore
	pool      *pool.Pool
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu       sync.Mutex
	attempts map[int64]*entities.LoginAttempt
}

// NewUseCase creates a new session use case
func NewUseCase(
	connector domain.Connector,
	store domain.CredentialStore,
	p *pool.Pool,
	logger zerolog.Logger,
) *UseCase {
	return &UseCase{
		connector: connector,
		store:     store,
		pool:      p,
		metrics:   metrics.GetDefaultMetrics(),
		logger:    logger.With().Str("usecase", "session").Logger(),
		attempts:  make(map[int64]*entities.LoginAttempt),
	}
}

// State returns the login state of userID
func (uc *UseCase) State(userID int64) entities.LoginState {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if a, ok := uc.attempts[userID]; ok {
		return a.State
	}
	return entities.StateIdle
}

// StartLogin opens a login attempt waiting for a phone number
func (uc *UseCase) StartLogin(ctx context.Context, userID int64) (*entities.LoginStep, error) {
	if _, ok := uc.pool.Get(userID); ok {
		return nil, sessionerrors.ErrAlreadyAuthenticated
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if a, ok := uc.attempts[userID]; ok {
		return &entities.LoginStep{State: a.State}, &sessionerrors.InProgressError{State: a.State}
	}

	uc.attempts[userID] = &entities.LoginAttempt{
		UserID:    userID,
		State:     entities.StateWaitingPhone,
		StartedAt: time.Now(),
	}
	uc.metrics.RecordLogin("start", "ok")
	uc.logger.Info().Int64("user_id", userID).Msg("Login started")

	return &entities.LoginStep{State: entities.StateWaitingPhone}, nil
}

// SubmitPhone requests a verification code for phone
func (uc *UseCase) SubmitPhone(ctx context.Context, userID int64, phone string) (*entities.LoginStep, error) {
	attempt, err := uc.begin(userID, entities.StateWaitingPhone)
	if err != nil {
		return uc.current(userID), err
	}

	phone = NormalizePhone(phone)
	if len(phone) < 8 {
		uc.release(attempt)
		uc.metrics.RecordLogin("phone", "invalid")
		return &entities.LoginStep{State: entities.StateWaitingPhone}, domain.ErrPhoneInvalid
	}

	log := uc.logger.With().Int64("user_id", userID).Str("phone", logger.MaskPhone(phone)).Logger()

	conn, err := uc.connector.Ephemeral(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open login connection")
		return uc.abort(ctx, attempt, "phone", err)
	}

	codeHash, err := conn.SendCode(ctx, phone)
	if err != nil {
		uc.closeConn(conn)

		var rateErr *pkgerrors.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			uc.metrics.RecordFloodWait()
			uc.metrics.RecordLogin("phone", "rate_limited")
			log.Warn().Dur("retry_after", rateErr.RetryAfter).Msg("Code request rate limited")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingPhone}, err
		case errors.Is(err, domain.ErrPhoneInvalid):
			uc.metrics.RecordLogin("phone", "invalid")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingPhone}, err
		default:
			log.Error().Err(err).Msg("Code request failed")
			return uc.abort(ctx, attempt, "phone", err)
		}
	}

	if !uc.commit(attempt, func(a *entities.LoginAttempt) {
		a.Conn = conn
		a.Phone = phone
		a.CodeHash = codeHash
		a.State = entities.StateWaitingCode
	}) {
		uc.closeConn(conn)
		return &entities.LoginStep{State: entities.StateIdle}, sessionerrors.ErrNoLoginInProgress
	}

	uc.metrics.RecordLogin("phone", "ok")
	log.Info().Msg("Verification code sent")

	return &entities.LoginStep{State: entities.StateWaitingCode}, nil
}

// SubmitCode signs in with the verification code
func (uc *UseCase) SubmitCode(ctx context.Context, userID int64, code string) (*entities.LoginStep, error) {
	attempt, err := uc.begin(userID, entities.StateWaitingCode)
	if err != nil {
		return uc.current(userID), err
	}

	code = NormalizeCode(code)
	if code == "" {
		uc.release(attempt)
		return &entities.LoginStep{State: entities.StateWaitingCode}, sessionerrors.ErrEmptyInput
	}

	account, err := attempt.Conn.SignIn(ctx, attempt.Phone, code, attempt.CodeHash)
	if err != nil {
		var rateErr *pkgerrors.RateLimitError
		switch {
		case errors.Is(err, domain.ErrPasswordRequired):
			if !uc.commit(attempt, func(a *entities.LoginAttempt) { a.State = entities.StateWaitingPassword }) {
				return &entities.LoginStep{State: entities.StateIdle}, sessionerrors.ErrNoLoginInProgress
			}
			uc.metrics.RecordLogin("code", "password_required")
			return &entities.LoginStep{State: entities.StateWaitingPassword}, nil
		case errors.Is(err, domain.ErrPhoneCodeInvalid):
			uc.metrics.RecordLogin("code", "invalid")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingCode}, err
		case errors.As(err, &rateErr):
			uc.metrics.RecordFloodWait()
			uc.metrics.RecordLogin("code", "rate_limited")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingCode}, err
		case errors.Is(err, domain.ErrPhoneCodeExpired):
			uc.logger.Info().Int64("user_id", userID).Msg("Verification code expired, login reset")
			return uc.abort(ctx, attempt, "code", err)
		default:
			uc.logger.Error().Err(err).Int64("user_id", userID).Msg("Sign in failed")
			return uc.abort(ctx, attempt, "code", err)
		}
	}

	return uc.finalize(ctx, attempt, account, "code")
}

// SubmitPassword completes two-step verification
func (uc *UseCase) SubmitPassword(ctx context.Context, userID int64, password string) (*entities.LoginStep, error) {
	attempt, err := uc.begin(userID, entities.StateWaitingPassword)
	if err != nil {
		return uc.current(userID), err
	}

	if password == "" {
		uc.release(attempt)
		return &entities.LoginStep{State: entities.StateWaitingPassword}, sessionerrors.ErrEmptyInput
	}

	account, err := attempt.Conn.CheckPassword(ctx, password)
	if err != nil {
		var rateErr *pkgerrors.RateLimitError
		switch {
		case errors.Is(err, domain.ErrPasswordInvalid):
			uc.metrics.RecordLogin("password", "invalid")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingPassword}, err
		case errors.As(err, &rateErr):
			uc.metrics.RecordFloodWait()
			uc.metrics.RecordLogin("password", "rate_limited")
			uc.release(attempt)
			return &entities.LoginStep{State: entities.StateWaitingPassword}, err
		default:
			uc.logger.Error().Err(err).Int64("user_id", userID).Msg("Password check failed")
			return uc.abort(ctx, attempt, "password", err)
		}
	}

	return uc.finalize(ctx, attempt, account, "password")
}

// HandleInput routes free text to the step the user is waiting on
func (uc *UseCase) HandleInput(ctx context.Context, userID int64, text string) (*entities.LoginStep, error) {
	switch uc.State(userID) {
	case entities.StateWaitingPhone:
		return uc.SubmitPhone(ctx, userID, text)
	case entities.StateWaitingCode:
		return uc.SubmitCode(ctx, userID, text)
	case entities.StateWaitingPassword:
		return uc.SubmitPassword(ctx, userID, text)
	default:
		return &entities.LoginStep{State: entities.StateIdle}, sessionerrors.ErrNoLoginInProgress
	}
}

// finalize exports the token, reconnects durably and swaps the ephemeral connection out.
// The token is persisted only once the login can no longer fail or be cancelled.
func (uc *UseCase) finalize(ctx context.Context, attempt *entities.LoginAttempt, account *domain.Account, step string) (*entities.LoginStep, error) {
	log := uc.logger.With().Int64("user_id", attempt.UserID).Logger()

	token, err := attempt.Conn.ExportToken(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to export session token")
		return uc.abort(ctx, attempt, step, err)
	}

	durable, err := uc.connector.FromToken(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open durable connection")
		return uc.abort(ctx, attempt, step, err)
	}

	uc.mu.Lock()
	if uc.attempts[attempt.UserID] != attempt {
		uc.mu.Unlock()
		uc.closeConn(durable)
		return &entities.LoginStep{State: entities.StateIdle}, sessionerrors.ErrNoLoginInProgress
	}
	delete(uc.attempts, attempt.UserID)
	uc.mu.Unlock()

	if err := uc.store.SaveSession(ctx, attempt.UserID, token, attempt.Phone); err != nil {
		log.Warn().Err(err).Msg("Session not persisted, it will not survive a restart")
	}

	uc.closeConn(attempt.Conn)

	if old := uc.pool.Add(attempt.UserID, durable); old != nil {
		uc.closeConn(old)
	}
	uc.metrics.UpdatePool(uc.pool.Size())
	uc.metrics.RecordLogin(step, "authenticated")

	if account == nil {
		account = &domain.Account{}
	}
	log.Info().Int64("account_id", account.ID).Msg("Login completed")

	return &entities.LoginStep{State: entities.StateIdle, Account: account}, nil
}

// CancelLogin drops the attempt of userID; false means there was nothing to cancel
func (uc *UseCase) CancelLogin(ctx context.Context, userID int64) bool {
	uc.mu.Lock()
	attempt, ok := uc.attempts[userID]
	if ok {
		delete(uc.attempts, userID)
	}
	uc.mu.Unlock()

	if !ok {
		return false
	}

	if attempt.Conn != nil {
		uc.closeConn(attempt.Conn)
	}
	uc.metrics.RecordLogin("cancel", "ok")
	uc.logger.Info().Int64("user_id", userID).Str("state", attempt.State.String()).Msg("Login cancelled")

	return true
}

// Logout closes the user's connection and removes the stored session
func (uc *UseCase) Logout(ctx context.Context, userID int64) (entities.LogoutOutcome, error) {
	log := uc.logger.With().Int64("user_id", userID).Logger()

	if conn, ok := uc.pool.Remove(userID); ok {
		uc.closeConn(conn)
		uc.metrics.UpdatePool(uc.pool.Size())

		if err := uc.store.DeleteSession(ctx, userID); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("Failed to delete stored session")
		}
		log.Info().Msg("Logged out")
		return entities.LogoutDisconnected, nil
	}

	// the stored token is never unsealed here, so a record sealed under an old secret is still removed
	if err := uc.store.DeleteSession(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return entities.LogoutNotLoggedIn, nil
		}
		log.Warn().Err(err).Msg("Failed to delete stored session")
		return entities.LogoutNotLoggedIn, err
	}
	log.Info().Msg("Stored session removed")

	return entities.LogoutSessionDeleted, nil
}

// LoadPersistedSessions reconnects every active stored session.
// Sessions that fail to reconnect are deactivated, not deleted.
func (uc *UseCase) LoadPersistedSessions(ctx context.Context) (loaded, failed int) {
	sessions, err := uc.store.ListActiveSessions(ctx)
	if err != nil {
		uc.logger.Warn().Err(err).Msg("Stored sessions unavailable, starting without them")
		return 0, 0
	}

	for _, s := range sessions {
		if ctx.Err() != nil {
			break
		}
		if _, ok := uc.pool.Get(s.UserID); ok {
			continue
		}

		log := uc.logger.With().Int64("user_id", s.UserID).Logger()

		var conn domain.Connection
		if s.SessionToken != "" {
			conn, err = uc.connector.FromToken(ctx, s.SessionToken)
		} else {
			err = domain.ErrSessionRevoked
		}
		if err != nil {
			failed++
			log.Warn().Err(err).Msg("Stored session failed to reconnect, deactivating")
			if derr := uc.store.DeactivateSession(ctx, s.UserID); derr != nil {
				log.Warn().Err(derr).Msg("Failed to deactivate session")
			}
			continue
		}

		uc.pool.Add(s.UserID, conn)
		loaded++
	}

	uc.metrics.UpdatePool(uc.pool.Size())
	uc.logger.Info().Int("loaded", loaded).Int("failed", failed).Msg("Stored sessions loaded")

	return loaded, failed
}

// InitFallback connects the operator-provided session and registers it as the pool fallback
func (uc *UseCase) InitFallback(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	conn, err := uc.connector.FromToken(ctx, token)
	if err != nil {
		return err
	}

	if old := uc.pool.SetFallback(conn); old != nil {
		uc.closeConn(old)
	}
	uc.logger.Info().Msg("Fallback session connected")

	return nil
}

// ConnectionFor returns the user's connection, else primary, else nil
func (uc *UseCase) ConnectionFor(userID int64) domain.Connection {
	conn, _ := uc.pool.For(userID)
	return conn
}

// Status reports the user's login state and the account their relays run as
func (uc *UseCase) Status(ctx context.Context, userID int64) entities.Status {
	st := entities.Status{State: uc.State(userID)}

	conn, shared := uc.pool.For(userID)
	if conn == nil {
		return st
	}
	st.LoggedIn = !shared
	st.UsingFallback = shared

	if acc, err := conn.Self(ctx); err == nil {
		st.Account = acc
	} else {
		uc.logger.Debug().Err(err).Int64("user_id", userID).Msg("Failed to fetch account")
	}

	return st
}

// PoolStats returns a snapshot of the connection pool
func (uc *UseCase) PoolStats() entities.PoolStats {
	return uc.pool.Stats()
}

// Shutdown closes every login and pooled connection
func (uc *UseCase) Shutdown(ctx context.Context) {
	uc.mu.Lock()
	attempts := uc.attempts
	uc.attempts = make(map[int64]*entities.LoginAttempt)
	uc.mu.Unlock()

	for _, a := range attempts {
		if a.Conn != nil {
			uc.closeConn(a.Conn)
		}
	}
	for _, conn := range uc.pool.Drain() {
		uc.closeConn(conn)
	}
	uc.metrics.UpdatePool(0)
}

// begin marks the attempt busy if it exists and is in the expected state
func (uc *UseCase) begin(userID int64, want entities.LoginState) (*entities.LoginAttempt, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	a, ok := uc.attempts[userID]
	if !ok {
		return nil, sessionerrors.ErrNoLoginInProgress
	}
	if a.Busy() {
		return nil, sessionerrors.ErrTransitionInFlight
	}
	if a.State != want {
		return nil, sessionerrors.ErrUnexpectedInput
	}
	a.SetBusy(true)
	return a, nil
}

// commit applies fn if the attempt has not been cancelled meanwhile
func (uc *UseCase) commit(attempt *entities.LoginAttempt, fn func(a *entities.LoginAttempt)) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.attempts[attempt.UserID] != attempt {
		return false
	}
	fn(attempt)
	attempt.SetBusy(false)
	return true
}

func (uc *UseCase) release(attempt *entities.LoginAttempt) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	attempt.SetBusy(false)
}

// abort resets the user to Idle and returns err
func (uc *UseCase) abort(ctx context.Context, attempt *entities.LoginAttempt, step string, err error) (*entities.LoginStep, error) {
	uc.mu.Lock()
	if uc.attempts[attempt.UserID] == attempt {
		delete(uc.attempts, attempt.UserID)
	}
	uc.mu.Unlock()

	if attempt.Conn != nil {
		uc.closeConn(attempt.Conn)
	}
	uc.metrics.RecordLogin(step, "aborted")

	return &entities.LoginStep{State: entities.StateIdle}, err
}

func (uc *UseCase) current(userID int64) *entities.LoginStep {
	return &entities.LoginStep{State: uc.State(userID)}
}

func (uc *UseCase) closeConn(conn domain.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := conn.Close(ctx); err != nil {
		uc.logger.Debug().Err(err).Msg("Failed to close connection")
	}
}

// NormalizePhone strips spaces, dashes and brackets and ensures a leading "+"
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}

// NormalizeCode strips spaces and dashes from a verification code
func NormalizeCode(code string) string {
	return strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(code))
}
