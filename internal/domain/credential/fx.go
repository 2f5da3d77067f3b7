// Package credential contains the session and settings store
package credential

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/credential/repository/memory"
	"github.com/Conte777/media-relay/internal/domain/credential/repository/postgres"
)

// Module provides the credential store for fx DI
var Module = fx.Module("credential",
	fx.Provide(NewStore),
)

// NewStore returns the in-memory store when no database is configured.
// A configured but unreachable database yields the postgres store in unavailable mode.
func NewStore(
	db *gorm.DB,
	cfg *config.DatabaseConfig,
	sealer domain.TokenSealer,
	logger zerolog.Logger,
) domain.CredentialStore {
	if !cfg.Enabled() {
		return memory.NewRepository()
	}
	return postgres.NewRepository(db, sealer, logger)
}
