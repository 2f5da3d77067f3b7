package credential

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/credential/repository/memory"
	"github.com/Conte777/media-relay/internal/domain/credential/repository/postgres"
	"github.com/Conte777/media-relay/internal/infrastructure/crypto"
)

func TestNewStore(t *testing.T) {
	store := NewStore(nil, &config.DatabaseConfig{}, crypto.PlainSealer{}, zerolog.Nop())
	require.IsType(t, &memory.Repository{}, store)

	store = NewStore(nil, &config.DatabaseConfig{Host: "db"}, crypto.PlainSealer{}, zerolog.Nop())
	require.IsType(t, &postgres.Repository{}, store)
	require.False(t, store.IsConnected())
}
