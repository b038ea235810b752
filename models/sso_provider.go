package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SsoProvider 代表支援的 SSO 提供者，例如 google、microsoft
type SsoProvider struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	Name string    `gorm:"type:text;not null;uniqueIndex;<-:create"`
}

func (p *SsoProvider) BeforeCreate(*gorm.DB) error {
	EnsureID(&p.ID)
	return nil
}
