package database

import (
	"context"

	"github.com/Conte777/media-relay/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides database components for fx dependency injection
var Module = fx.Module("database",
	fx.Provide(NewPostgresDBFx),
)

// NewPostgresDBFx opens the database with lifecycle management.
// A nil *gorm.DB is returned when no database is configured or it cannot be reached;
// the credential store then runs without durability.
func NewPostgresDBFx(
	lc fx.Lifecycle,
	cfg *config.DatabaseConfig,
	logger zerolog.Logger,
) *gorm.DB {
	log := logger.With().Str("component", "database").Logger()

	if !cfg.Enabled() {
		log.Warn().Msg("DATABASE_HOST not set, sessions will not survive restarts")
		return nil
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Database unavailable, continuing without durable storage")
		return nil
	}

	if err := RunMigrations(db, cfg); err != nil {
		log.Warn().Err(err).Msg("Failed to run migrations")
	} else {
		log.Info().Msg("Database migrations completed successfully")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing database connection")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.DBName).
		Msg("Database connected successfully")

	return db
}
