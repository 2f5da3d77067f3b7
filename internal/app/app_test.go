package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestCreateApp(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token-123")
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "0123456789abcdef")

	// Validate fx dependency graph
	require.NoError(t, fx.ValidateApp(CreateApp()))
}
