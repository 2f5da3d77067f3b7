// Package status exposes the read-only health and status endpoints
package status

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/targets"
	sessionbusiness "github.com/Conte777/media-relay/internal/domain/session/usecase/business"
	"github.com/Conte777/media-relay/internal/domain/status/delivery/http"
	"github.com/Conte777/media-relay/internal/domain/status/deps"
	"github.com/Conte777/media-relay/internal/domain/transfer/workers"
	"github.com/Conte777/media-relay/internal/infrastructure/http/server"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

// Module provides status domain components for fx DI
var Module = fx.Module("status",
	fx.Provide(
		func(uc *sessionbusiness.UseCase) deps.Pool { return uc },
		func(store domain.CredentialStore) deps.Store { return store },
		func(s *workers.Scheduler) deps.Scheduler { return s },
		func(s *targets.Service) deps.Targets { return s },
	),
	fx.Provide(
		pkgerrors.NewMapper,
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

// registerRoutes registers status HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
