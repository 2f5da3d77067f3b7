package entities

import (
	"time"

	"github.com/Conte777/media-relay/internal/domain"
)

// UserSessionModel is a GORM model for the user_sessions table
type UserSessionModel struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       int64     `gorm:"not null;uniqueIndex:uq_user_sessions_user_id"`
	SessionToken string    `gorm:"type:text;not null"`
	PhoneNumber  string    `gorm:"size:32;not null;default:''"`
	IsActive     bool      `gorm:"not null;default:true;index:idx_user_sessions_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserSessionModel) TableName() string {
	return "user_sessions"
}

// ToEntity converts DB model to domain entity
func (m *UserSessionModel) ToEntity() *domain.UserSession {
	return &domain.UserSession{
		UserID:       m.UserID,
		SessionToken: m.SessionToken,
		PhoneNumber:  m.PhoneNumber,
		Active:       m.IsActive,
	}
}

// SettingModel is a GORM model for the bot_settings table
type SettingModel struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SettingModel) TableName() string {
	return "bot_settings"
}
