package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/media-relay/internal/domain/status/deps"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
	"github.com/Conte777/media-relay/pkg/httputil"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// PoolStatus is the pool part of the status report
type PoolStatus struct {
	Connections int  `json:"connections"`
	HasPrimary  bool `json:"has_primary"`
	HasFallback bool `json:"has_fallback"`
}

// TransferStatus is the scheduler part of the status report
type TransferStatus struct {
	Limit    int `json:"limit"`
	Running  int `json:"running"`
	Queued   int `json:"queued"`
	Attached int `json:"attached"`
}

// TargetStatus is the relay configuration part of the status report; 0 means disabled
type TargetStatus struct {
	RelayChannelID  int64 `json:"relay_channel_id"`
	BackupChannelID int64 `json:"backup_channel_id"`
}

// StatusResponse is the body of /status
type StatusResponse struct {
	Pool           PoolStatus     `json:"pool"`
	StoreConnected bool           `json:"store_connected"`
	Transfers      TransferStatus `json:"transfers"`
	Targets        TargetStatus   `json:"targets"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
}

// SessionsResponse is the body of /sessions; tokens and phone numbers are never exposed
type SessionsResponse struct {
	Active  int     `json:"active"`
	UserIDs []int64 `json:"user_ids"`
}

// storeTimeout bounds a credential store read
const storeTimeout = 5 * time.Second

// Handler serves the read-only status endpoints
type Handler struct {
	pool      deps.Pool
	store     deps.Store
	scheduler deps.Scheduler
	targets   deps.Targets
	mapper    *pkgerrors.Mapper
	startedAt time.Time
	logger    zerolog.Logger
}

// NewHandler creates a new status handler
func NewHandler(
	pool deps.Pool,
	store deps.Store,
	scheduler deps.Scheduler,
	targets deps.Targets,
	mapper *pkgerrors.Mapper,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		pool:      pool,
		store:     store,
		scheduler: scheduler,
		targets:   targets,
		mapper:    mapper,
		startedAt: time.Now(),
		logger:    logger.With().Str("component", "status-handler").Logger(),
	}
}

// Health handles GET /health
func (h *Handler) Health(ctx *fasthttp.RequestCtx) {
	components := h.checkComponents()
	status := determineOverallStatus(components)

	response := HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	} else if status == HealthStatusDegraded {
		logEvent = h.logger.Info()
	}
	logEvent.
		Str("status", string(status)).
		Interface("components", components).
		Msg("Health check completed")

	httputil.WriteHealthResponse(ctx, response, status != HealthStatusUnhealthy)
}

// Status handles GET /status
func (h *Handler) Status(ctx *fasthttp.RequestCtx) {
	pool := h.pool.PoolStats()
	stats := h.scheduler.Stats()
	t := h.targets.Targets()

	httputil.WriteResponse(ctx, StatusResponse{
		Pool: PoolStatus{
			Connections: pool.Connections,
			HasPrimary:  pool.HasPrimary,
			HasFallback: pool.HasFallback,
		},
		StoreConnected: h.store.IsConnected(),
		Transfers: TransferStatus{
			Limit:    stats.Limit,
			Running:  stats.Running,
			Queued:   stats.Queued,
			Attached: stats.Attached,
		},
		Targets: TargetStatus{
			RelayChannelID:  t.RelayChannelID,
			BackupChannelID: t.BackupChannelID,
		},
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// Sessions handles GET /sessions
func (h *Handler) Sessions(ctx *fasthttp.RequestCtx) {
	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	sessions, err := h.store.ListActiveSessions(storeCtx)
	if err != nil {
		status, msg := h.mapper.MapErrorToHTTP(err)
		httputil.WriteErrorResponse(ctx, msg, status)
		return
	}

	resp := SessionsResponse{Active: len(sessions), UserIDs: make([]int64, 0, len(sessions))}
	for _, s := range sessions {
		resp.UserIDs = append(resp.UserIDs, s.UserID)
	}
	httputil.WriteResponse(ctx, resp)
}

func (h *Handler) checkComponents() []ComponentHealth {
	components := make([]ComponentHealth, 0, 2)

	pool := h.pool.PoolStats()
	poolHealthy := pool.Connections > 0 || pool.HasFallback
	poolMsg := ""
	if !poolHealthy {
		poolMsg = "No Telegram connections available"
	}
	components = append(components, ComponentHealth{
		Name:    "telegram_pool",
		Healthy: poolHealthy,
		Message: poolMsg,
	})

	storeHealthy := h.store.IsConnected()
	storeMsg := ""
	if !storeHealthy {
		storeMsg = "Credential store is not reachable, sessions are kept in memory only"
	}
	components = append(components, ComponentHealth{
		Name:    "credential_store",
		Healthy: storeHealthy,
		Message: storeMsg,
	})

	return components
}

// determineOverallStatus determines overall health status based on component health
func determineOverallStatus(components []ComponentHealth) HealthStatus {
	allHealthy := true
	anyHealthy := false

	for _, component := range components {
		if !component.Healthy {
			allHealthy = false
		} else {
			anyHealthy = true
		}
	}

	if allHealthy {
		return HealthStatusHealthy
	} else if anyHealthy {
		return HealthStatusDegraded
	}

	return HealthStatusUnhealthy
}
