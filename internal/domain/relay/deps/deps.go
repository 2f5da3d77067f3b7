package deps

import (
	"context"

	"github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// TargetSource provides the current relay and backup channels
type TargetSource interface {
	Targets() entities.Targets
}

// EventPublisher emits relay events
type EventPublisher interface {
	PublishRelayCompleted(ctx context.Context, event entities.RelayEvent) error
}

// ArtifactArchiver keeps a copy of uploaded files
type ArtifactArchiver interface {
	// Archive stores the file at path under key
	Archive(ctx context.Context, key, path string) error
}
