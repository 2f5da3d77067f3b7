package targets

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/relay/deps"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
)

const (
	KeyRelayChannel  = "relay_channel_id"
	KeyBackupChannel = "backup_channel_id"
)

// Service keeps the relay and backup channel ids.
// Values persisted in the credential store win over the environment.
type Service struct {
	store  domain.CredentialStore
	cfg    *config.RelayConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	targets entities.Targets
}

// NewService creates a targets service initialised from the environment
func NewService(store domain.CredentialStore, cfg *config.RelayConfig, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "relay-targets").Logger(),
		targets: entities.Targets{
			RelayChannelID:  cfg.RelayChannelID,
			BackupChannelID: cfg.BackupChannelID,
		},
	}
}

// Load reads persisted values, keeping the environment value for any missing key
func (s *Service) Load(ctx context.Context) entities.Targets {
	relay := s.load(ctx, KeyRelayChannel, s.cfg.RelayChannelID)
	backup := s.load(ctx, KeyBackupChannel, s.cfg.BackupChannelID)

	s.mu.Lock()
	s.targets = entities.Targets{RelayChannelID: relay, BackupChannelID: backup}
	t := s.targets
	s.mu.Unlock()

	s.logger.Info().
		Int64("relay_channel_id", t.RelayChannelID).
		Int64("backup_channel_id", t.BackupChannelID).
		Msg("Relay targets loaded")

	return t
}

// Targets returns the current values
func (s *Service) Targets() entities.Targets {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.targets
}

// SetRelayChannel updates the relay channel; 0 disables it.
// The in-memory value changes even if persisting fails.
func (s *Service) SetRelayChannel(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.targets.RelayChannelID = id
	s.mu.Unlock()

	return s.persist(ctx, KeyRelayChannel, id)
}

// SetBackupChannel updates the backup channel; 0 disables it
func (s *Service) SetBackupChannel(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.targets.BackupChannelID = id
	s.mu.Unlock()

	return s.persist(ctx, KeyBackupChannel, id)
}

func (s *Service) load(ctx context.Context, key string, def int64) int64 {
	defStr := strconv.FormatInt(def, 10)

	value, err := s.store.GetSetting(ctx, key, defStr)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read setting, using environment value")
		return def
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", value).Msg("Stored setting is not a chat id, ignoring")
		return def
	}

	return id
}

func (s *Service) persist(ctx context.Context, key string, id int64) error {
	if err := s.store.SaveSetting(ctx, key, strconv.FormatInt(id, 10)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Setting not persisted, it will reset on restart")
		return err
	}
	return nil
}

var _ deps.TargetSource = (*Service)(nil)
