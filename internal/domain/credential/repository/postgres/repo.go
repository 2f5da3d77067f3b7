package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/credential/entities"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements domain.CredentialStore using PostgreSQL.
// With a nil db every call fails with domain.ErrStorageUnavailable.
type Repository struct {
	db     *gorm.DB
	sealer domain.TokenSealer
	logger zerolog.Logger
}

// NewRepository creates a new PostgreSQL credential store
func NewRepository(db *gorm.DB, sealer domain.TokenSealer, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		sealer: sealer,
		logger: logger.With().Str("component", "credential-store").Logger(),
	}
}

// IsConnected reports whether the database handle is usable
func (r *Repository) IsConnected() bool {
	if r.db == nil {
		return false
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func (r *Repository) conn(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	return r.db.WithContext(ctx), nil
}

// GetSession returns the stored session of userID
func (r *Repository) GetSession(ctx context.Context, userID int64) (*domain.UserSession, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var model entities.UserSessionModel
	if err := db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, r.fail("get session", err)
	}

	return r.open(model.ToEntity())
}

// SaveSession upserts the session of userID and marks it active
func (r *Repository) SaveSession(ctx context.Context, userID int64, token, phone string) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	sealed, err := r.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal session token: %w", err)
	}

	model := &entities.UserSessionModel{
		UserID:       userID,
		SessionToken: sealed,
		PhoneNumber:  phone,
		IsActive:     true,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_token", "phone_number", "is_active", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return r.fail("save session", result.Error)
	}

	return nil
}

// DeleteSession removes the session of userID
func (r *Repository) DeleteSession(ctx context.Context, userID int64) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	result := db.Where("user_id = ?", userID).Delete(&entities.UserSessionModel{})
	if result.Error != nil {
		return r.fail("delete session", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

// DeactivateSession keeps the record but excludes it from startup loading
func (r *Repository) DeactivateSession(ctx context.Context, userID int64) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&entities.UserSessionModel{}).
		Where("user_id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		return r.fail("deactivate session", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

// ListActiveSessions returns every active session, oldest first.
// Records whose token cannot be opened are returned with an empty token.
func (r *Repository) ListActiveSessions(ctx context.Context) ([]domain.UserSession, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var models []entities.UserSessionModel
	if err := db.Where("is_active = ?", true).Order("updated_at ASC").Find(&models).Error; err != nil {
		return nil, r.fail("list sessions", err)
	}

	sessions := make([]domain.UserSession, 0, len(models))
	for i := range models {
		s, err := r.open(models[i].ToEntity())
		if err != nil {
			r.logger.Warn().Err(err).Int64("user_id", models[i].UserID).Msg("Stored session token cannot be opened")
			s = models[i].ToEntity()
			s.SessionToken = ""
		}
		sessions = append(sessions, *s)
	}

	return sessions, nil
}

// GetSetting returns the value of key or defaultValue
func (r *Repository) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return defaultValue, err
	}

	var model entities.SettingModel
	if err := db.Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultValue, nil
		}
		return defaultValue, r.fail("get setting", err)
	}

	return model.Value, nil
}

// SaveSetting upserts key
func (r *Repository) SaveSetting(ctx context.Context, key, value string) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entities.SettingModel{Key: key, Value: value})
	if result.Error != nil {
		return r.fail("save setting", result.Error)
	}

	return nil
}

// DeleteSetting removes key; a missing key is not an error
func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("key = ?", key).Delete(&entities.SettingModel{}).Error; err != nil {
		return r.fail("delete setting", err)
	}

	return nil
}

func (r *Repository) open(s *domain.UserSession) (*domain.UserSession, error) {
	token, err := r.sealer.Open(s.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("open session token: %w", err)
	}
	s.SessionToken = token
	return s, nil
}

// fail wraps driver errors so callers can branch on ErrStorageUnavailable
func (r *Repository) fail(op string, err error) error {
	r.logger.Error().Err(err).Str("op", op).Msg("Credential store operation failed")
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}

var _ domain.CredentialStore = (*Repository)(nil)
