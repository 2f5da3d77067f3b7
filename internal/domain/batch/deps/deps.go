package deps

import (
	"context"

	"github.com/Conte777/media-relay/internal/domain"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// Relayer relays one resolved post
type Relayer interface {
	RelayItem(ctx context.Context, req relayentities.Request, item *domain.Item) (*relayentities.Result, error)
}
