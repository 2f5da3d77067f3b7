package deps

import (
	"context"

	"github.com/Conte777/media-relay/internal/domain"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
	sessionentities "github.com/Conte777/media-relay/internal/domain/session/entities"
	transferentities "github.com/Conte777/media-relay/internal/domain/transfer/entities"
)

// Pool reports the connection pool
type Pool interface {
	PoolStats() sessionentities.PoolStats
}

// Store is the read side of the credential store
type Store interface {
	IsConnected() bool
	ListActiveSessions(ctx context.Context) ([]domain.UserSession, error)
}

// Scheduler reports transfer counts
type Scheduler interface {
	Stats() transferentities.Stats
}

// Targets reads the relay and backup channels
type Targets interface {
	Targets() relayentities.Targets
}
