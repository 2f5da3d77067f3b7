package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/credential/repository/memory"
	"github.com/Conte777/media-relay/internal/domain/domaintest"
	"github.com/Conte777/media-relay/internal/domain/session/entities"
	sessionerrors "github.com/Conte777/media-relay/internal/domain/session/errors"
	"github.com/Conte777/media-relay/internal/domain/session/pool"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

const userID int64 = 42

type fixture struct {
	uc        *UseCase
	connector *domaintest.Connector
	store     *memory.Repository
	pool      *pool.Pool
}

func newFixture(t *testing.T, configure func(c *domaintest.Connection)) *fixture {
	t.Helper()

	connector := domaintest.NewConnector()
	connector.Configure = configure
	store := memory.NewRepository()
	p := pool.New()

	return &fixture{
		uc:        NewUseCase(connector, store, p, zerolog.Nop()),
		connector: connector,
		store:     store,
		pool:      p,
	}
}

func withCode(code string) func(c *domaintest.Connection) {
	return func(c *domaintest.Connection) {
		c.Code = code
		c.Account = &domain.Account{ID: 777, Username: "alice"}
	}
}

func TestLogin_PhoneThenCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	step, err := f.uc.StartLogin(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, entities.StateWaitingPhone, step.State)

	step, err = f.uc.SubmitPhone(ctx, userID, "+1 555-123-4567")
	require.NoError(t, err)
	require.Equal(t, entities.StateWaitingCode, step.State)

	step, err = f.uc.SubmitCode(ctx, userID, "12 345")
	require.NoError(t, err)
	require.True(t, step.Authenticated())
	require.Equal(t, entities.StateIdle, f.uc.State(userID))

	stored, err := f.store.GetSession(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "+15551234567", stored.PhoneNumber)
	require.True(t, stored.Active)

	conn, ok := f.pool.Get(userID)
	require.True(t, ok)
	require.Equal(t, domain.ScopeDurable, conn.Scope())
	require.Same(t, conn, f.pool.Primary())
	require.True(t, f.connector.LastEphemeral().Closed(), "ephemeral connection must be released")
}

func TestLogin_TokenRestoresSameAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")
	step, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.NoError(t, err)

	stored, err := f.store.GetSession(ctx, userID)
	require.NoError(t, err)

	restored, err := f.connector.FromToken(ctx, stored.SessionToken)
	require.NoError(t, err)
	self, err := restored.Self(ctx)
	require.NoError(t, err)
	require.Equal(t, step.Account.ID, self.ID)
}

func TestLogin_PasswordRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *domaintest.Connection) {
		c.Code = "11111"
		c.Password = "secret"
	})

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")

	step, err := f.uc.SubmitCode(ctx, userID, "11111")
	require.NoError(t, err)
	require.Equal(t, entities.StateWaitingPassword, step.State)

	step, err = f.uc.SubmitPassword(ctx, userID, "wrong")
	require.ErrorIs(t, err, domain.ErrPasswordInvalid)
	require.Equal(t, entities.StateWaitingPassword, step.State)

	step, err = f.uc.HandleInput(ctx, userID, "secret")
	require.NoError(t, err)
	require.True(t, step.Authenticated())
}

func TestLogin_InvalidCodeStaysWaiting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")

	step, err := f.uc.SubmitCode(ctx, userID, "99999")
	require.ErrorIs(t, err, domain.ErrPhoneCodeInvalid)
	require.Equal(t, entities.StateWaitingCode, step.State)
	require.Equal(t, entities.StateWaitingCode, f.uc.State(userID))
}

func TestLogin_ExpiredCodeResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *domaintest.Connection) {
		c.SignInErr = domain.ErrPhoneCodeExpired
	})

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")

	step, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.ErrorIs(t, err, domain.ErrPhoneCodeExpired)
	require.Equal(t, entities.StateIdle, step.State)
	require.Equal(t, entities.StateIdle, f.uc.State(userID))
	require.True(t, f.connector.LastEphemeral().Closed())
}

func TestLogin_RateLimitedPhoneStays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *domaintest.Connection) {
		c.SendCodeErr = pkgerrors.NewRateLimitError(30 * time.Second)
	})

	_, _ = f.uc.StartLogin(ctx, userID)
	step, err := f.uc.SubmitPhone(ctx, userID, "+15551234567")

	var rateErr *pkgerrors.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	require.Equal(t, 30*time.Second, rateErr.RetryAfter)
	require.Equal(t, entities.StateWaitingPhone, step.State)
	require.Equal(t, entities.StateWaitingPhone, f.uc.State(userID))
}

func TestLogin_InvalidCredentialsAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(c *domaintest.Connection) {
		c.SendCodeErr = domain.ErrAPICredentialsInvalid
	})

	_, _ = f.uc.StartLogin(ctx, userID)
	step, err := f.uc.SubmitPhone(ctx, userID, "+15551234567")
	require.ErrorIs(t, err, domain.ErrAPICredentialsInvalid)
	require.Equal(t, entities.StateIdle, step.State)
}

func TestLogin_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	_, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.ErrorIs(t, err, sessionerrors.ErrNoLoginInProgress)

	_, err = f.uc.StartLogin(ctx, userID)
	require.NoError(t, err)

	step, err := f.uc.StartLogin(ctx, userID)
	var inProgress *sessionerrors.InProgressError
	require.ErrorAs(t, err, &inProgress)
	require.ErrorIs(t, err, sessionerrors.ErrLoginInProgress)
	require.Equal(t, entities.StateWaitingPhone, step.State)

	_, err = f.uc.SubmitPassword(ctx, userID, "pw")
	require.ErrorIs(t, err, sessionerrors.ErrUnexpectedInput)

	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")
	_, _ = f.uc.SubmitCode(ctx, userID, "12345")

	_, err = f.uc.StartLogin(ctx, userID)
	require.ErrorIs(t, err, sessionerrors.ErrAlreadyAuthenticated)
}

func TestLogin_ConcurrentTransitionRejected(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	unblock := make(chan struct{})

	f := newFixture(t, nil)
	f.connector.Configure = func(c *domaintest.Connection) {
		c.Code = "12345"
	}

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")

	// block the store so the first transition stays in flight
	blocking := &blockingStore{Repository: f.store, entered: entered, unblock: unblock}
	f.uc.store = blocking

	done := make(chan error, 1)
	go func() {
		_, err := f.uc.SubmitCode(ctx, userID, "12345")
		done <- err
	}()

	<-entered
	_, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.ErrorIs(t, err, sessionerrors.ErrTransitionInFlight)

	close(unblock)
	require.NoError(t, <-done)
}

type blockingStore struct {
	*memory.Repository
	entered chan struct{}
	unblock chan struct{}
}

func (s *blockingStore) SaveSession(ctx context.Context, userID int64, token, phone string) error {
	close(s.entered)
	<-s.unblock
	return s.Repository.SaveSession(ctx, userID, token, phone)
}

func TestCancelLogin_Twice(t *testing.T) {
	ctx := context.Background()

	for _, state := range []entities.LoginState{entities.StateWaitingPhone, entities.StateWaitingCode, entities.StateWaitingPassword} {
		t.Run(state.String(), func(t *testing.T) {
			f := newFixture(t, func(c *domaintest.Connection) {
				c.Code = "1"
				c.Password = "pw"
			})

			_, _ = f.uc.StartLogin(ctx, userID)
			if state >= entities.StateWaitingCode {
				_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")
			}
			if state == entities.StateWaitingPassword {
				_, _ = f.uc.SubmitCode(ctx, userID, "1")
			}
			require.Equal(t, state, f.uc.State(userID))

			require.True(t, f.uc.CancelLogin(ctx, userID))
			require.Equal(t, entities.StateIdle, f.uc.State(userID))
			if eph := f.connector.LastEphemeral(); eph != nil {
				require.True(t, eph.Closed())
			}

			require.False(t, f.uc.CancelLogin(ctx, userID))
		})
	}
}

func TestLogin_DurableConnectFailureLeavesNothingStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))
	f.connector.FromTokenErr["token-1"] = errors.New("durable connect failed")

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")

	step, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.Error(t, err)
	require.Equal(t, entities.StateIdle, step.State)
	require.Equal(t, 0, f.pool.Size())

	_, err = f.store.GetSession(ctx, userID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound)

	loaded, failed := f.uc.LoadPersistedSessions(ctx)
	require.Zero(t, loaded)
	require.Zero(t, failed)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")
	_, err := f.uc.SubmitCode(ctx, userID, "12345")
	require.NoError(t, err)
	conn, _ := f.pool.Get(userID)

	outcome, err := f.uc.Logout(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, entities.LogoutDisconnected, outcome)
	require.True(t, conn.(*domaintest.Connection).Closed())
	require.Nil(t, f.pool.Primary())

	_, err = f.store.GetSession(ctx, userID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound)

	for i := 0; i < 2; i++ {
		outcome, err = f.uc.Logout(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, entities.LogoutNotLoggedIn, outcome)
	}
}

func TestLogout_UnloadedStoredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.store.SaveSession(ctx, userID, "stale", "+1"))

	outcome, err := f.uc.Logout(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, entities.LogoutSessionDeleted, outcome)
	require.Empty(t, f.connector.Durables, "logout must not reconnect")

	_, err = f.store.GetSession(ctx, userID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

type unsealFailingStore struct {
	*memory.Repository
}

func (s unsealFailingStore) GetSession(context.Context, int64) (*domain.UserSession, error) {
	return nil, errors.New("unseal session token: message authentication failed")
}

func TestLogout_UnreadableStoredSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRepository()
	require.NoError(t, store.SaveSession(ctx, userID, "sealed-with-old-secret", "+1"))

	uc := NewUseCase(domaintest.NewConnector(), unsealFailingStore{store}, pool.New(), zerolog.Nop())

	outcome, err := uc.Logout(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, entities.LogoutSessionDeleted, outcome)

	_, err = store.GetSession(ctx, userID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestLogout_PrimaryReassigned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a := domaintest.NewDurable(&domain.Account{ID: 1})
	b := domaintest.NewDurable(&domain.Account{ID: 2})
	f.pool.Add(1, a)
	f.pool.Add(2, b)

	_, err := f.uc.Logout(ctx, 1)
	require.NoError(t, err)
	require.Same(t, b, f.pool.Primary())
}

func TestLoadPersistedSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.connector.Register("good-1", &domain.Account{ID: 1})
	f.connector.Register("good-2", &domain.Account{ID: 2})
	require.NoError(t, f.store.SaveSession(ctx, 1, "good-1", "+1"))
	require.NoError(t, f.store.SaveSession(ctx, 2, "revoked", "+2"))
	require.NoError(t, f.store.SaveSession(ctx, 3, "good-2", "+3"))

	loaded, failed := f.uc.LoadPersistedSessions(ctx)
	require.Equal(t, 2, loaded)
	require.Equal(t, 1, failed)

	first, _ := f.pool.Get(1)
	require.Same(t, first, f.pool.Primary())

	revoked, err := f.store.GetSession(ctx, 2)
	require.NoError(t, err, "failed sessions are deactivated, not deleted")
	require.False(t, revoked.Active)
	require.Equal(t, "+2", revoked.PhoneNumber)
}

func TestInitFallbackAndConnectionFor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.Nil(t, f.uc.ConnectionFor(userID))

	f.connector.Register("env", &domain.Account{ID: 9})
	require.NoError(t, f.uc.InitFallback(ctx, "env"))

	fallback := f.uc.ConnectionFor(userID)
	require.NotNil(t, fallback)

	st := f.uc.Status(ctx, userID)
	require.False(t, st.LoggedIn)
	require.True(t, st.UsingFallback)
	require.Equal(t, int64(9), st.Account.ID)

	own := domaintest.NewDurable(&domain.Account{ID: 10})
	f.pool.Add(userID, own)
	require.Same(t, own, f.uc.ConnectionFor(userID))
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withCode("12345"))

	_, _ = f.uc.StartLogin(ctx, userID)
	_, _ = f.uc.SubmitPhone(ctx, userID, "+15551234567")
	durable := domaintest.NewDurable(&domain.Account{ID: 5})
	f.pool.Add(5, durable)

	f.uc.Shutdown(ctx)

	require.True(t, f.connector.LastEphemeral().Closed())
	require.True(t, durable.Closed())
	require.Equal(t, 0, f.pool.Size())
	require.Equal(t, entities.StateIdle, f.uc.State(userID))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "+15551234567", NormalizePhone(" +1 (555) 123-45-67 "))
	require.Equal(t, "+79991112233", NormalizePhone("79991112233"))
	require.Equal(t, "", NormalizePhone("abc"))
	require.Equal(t, "12345", NormalizeCode("1-2 3 4-5"))
}
