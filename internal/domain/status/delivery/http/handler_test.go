package http

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/media-relay/internal/domain"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
	sessionentities "github.com/Conte777/media-relay/internal/domain/session/entities"
	transferentities "github.com/Conte777/media-relay/internal/domain/transfer/entities"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
	"github.com/Conte777/media-relay/pkg/httputil"
)

type mockPool struct{ stats sessionentities.PoolStats }

func (m *mockPool) PoolStats() sessionentities.PoolStats { return m.stats }

type mockStore struct {
	connected bool
	sessions  []domain.UserSession
	err       error
}

func (m *mockStore) IsConnected() bool { return m.connected }

func (m *mockStore) ListActiveSessions(context.Context) ([]domain.UserSession, error) {
	return m.sessions, m.err
}

type mockScheduler struct{ stats transferentities.Stats }

func (m *mockScheduler) Stats() transferentities.Stats { return m.stats }

type mockTargets struct{ targets relayentities.Targets }

func (m *mockTargets) Targets() relayentities.Targets { return m.targets }

func newTestHandler(pool sessionentities.PoolStats, connected bool) *Handler {
	return newTestHandlerWithStore(pool, &mockStore{connected: connected})
}

func newTestHandlerWithStore(pool sessionentities.PoolStats, store *mockStore) *Handler {
	return NewHandler(
		&mockPool{stats: pool},
		store,
		&mockScheduler{stats: transferentities.Stats{Limit: 3, Running: 2, Queued: 4, Attached: 1}},
		&mockTargets{targets: relayentities.Targets{RelayChannelID: -1001, BackupChannelID: -1002}},
		pkgerrors.NewMapper(zerolog.Nop()),
		zerolog.Nop(),
	)
}

func decodeHealth(t *testing.T, ctx *fasthttp.RequestCtx) HealthResponse {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &envelope))
	return envelope.Data
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pool       sessionentities.PoolStats
		connected  bool
		wantStatus HealthStatus
		wantCode   int
	}{
		{
			name:       "all healthy",
			pool:       sessionentities.PoolStats{Connections: 2, HasPrimary: true},
			connected:  true,
			wantStatus: HealthStatusHealthy,
			wantCode:   fasthttp.StatusOK,
		},
		{
			name:       "fallback only with store down",
			pool:       sessionentities.PoolStats{HasFallback: true},
			connected:  false,
			wantStatus: HealthStatusDegraded,
			wantCode:   fasthttp.StatusOK,
		},
		{
			name:       "nothing available",
			connected:  false,
			wantStatus: HealthStatusUnhealthy,
			wantCode:   fasthttp.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &fasthttp.RequestCtx{}
			newTestHandler(tt.pool, tt.connected).Health(ctx)

			require.Equal(t, tt.wantCode, ctx.Response.StatusCode())
			require.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))

			resp := decodeHealth(t, ctx)
			require.Equal(t, tt.wantStatus, resp.Status)
			require.Len(t, resp.Components, 2)
		})
	}
}

func TestStatus(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	newTestHandler(sessionentities.PoolStats{Connections: 2, HasPrimary: true}, true).Status(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var envelope struct {
		httputil.Response
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &envelope))

	require.True(t, envelope.Success)
	require.Equal(t, PoolStatus{Connections: 2, HasPrimary: true}, envelope.Data.Pool)
	require.True(t, envelope.Data.StoreConnected)
	require.Equal(t, TransferStatus{Limit: 3, Running: 2, Queued: 4, Attached: 1}, envelope.Data.Transfers)
	require.Equal(t, TargetStatus{RelayChannelID: -1001, BackupChannelID: -1002}, envelope.Data.Targets)
}

func TestSessions(t *testing.T) {
	store := &mockStore{
		connected: true,
		sessions: []domain.UserSession{
			{UserID: 7, SessionToken: "secret-token", PhoneNumber: "+15550001111", Active: true},
			{UserID: 9, SessionToken: "other-token", Active: true},
		},
	}

	ctx := &fasthttp.RequestCtx{}
	newTestHandlerWithStore(sessionentities.PoolStats{}, store).Sessions(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.NotContains(t, string(ctx.Response.Body()), "secret-token")
	require.NotContains(t, string(ctx.Response.Body()), "+1555")

	var envelope struct {
		Data SessionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &envelope))
	require.Equal(t, SessionsResponse{Active: 2, UserIDs: []int64{7, 9}}, envelope.Data)
}

func TestSessions_StoreUnavailable(t *testing.T) {
	store := &mockStore{err: fmt.Errorf("list sessions: %w", domain.ErrStorageUnavailable)}

	ctx := &fasthttp.RequestCtx{}
	newTestHandlerWithStore(sessionentities.PoolStats{}, store).Sessions(ctx)

	require.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)
}
