package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "hash")
	t.Setenv("BOT_TOKEN", "123:abc")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 3, cfg.Relay.MaxConcurrent)
	require.Equal(t, 10, cfg.Relay.WindowSize)
	require.Equal(t, 3*time.Second, cfg.Relay.WindowDelay)
	require.Equal(t, 60*time.Second, cfg.Relay.ThumbnailTimeout)
	require.Equal(t, int64(0), cfg.Relay.RelayChannelID)
	require.False(t, cfg.Database.Enabled())
	require.False(t, cfg.Kafka.Enabled())
	require.False(t, cfg.S3.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FORWARD_CHANNEL_ID", "-100123")
	t.Setenv("BIN_CHANNEL_ID", "-100456")
	t.Setenv("FLOOD_WAIT_DELAY", "5")
	t.Setenv("BATCH_SIZE", "2")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("DATABASE_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, int64(-100123), cfg.Relay.RelayChannelID)
	require.Equal(t, int64(-100456), cfg.Relay.BackupChannelID)
	require.Equal(t, 5*time.Second, cfg.Relay.WindowDelay)
	require.Equal(t, 2, cfg.Relay.WindowSize)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.True(t, cfg.Database.Enabled())
	require.Contains(t, cfg.Database.GetDSN(), "host=db")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing api id", map[string]string{"TELEGRAM_API_ID": "", "TELEGRAM_API_HASH": "h", "BOT_TOKEN": "t"}},
		{"bad api id", map[string]string{"TELEGRAM_API_ID": "abc", "TELEGRAM_API_HASH": "h", "BOT_TOKEN": "t"}},
		{"missing bot token", map[string]string{"TELEGRAM_API_ID": "1", "TELEGRAM_API_HASH": "h", "BOT_TOKEN": ""}},
		{"zero concurrency", map[string]string{"TELEGRAM_API_ID": "1", "TELEGRAM_API_HASH": "h", "BOT_TOKEN": "t", "MAX_CONCURRENT_TRANSMISSIONS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
