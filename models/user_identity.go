package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserIdentity 代表使用者在某個 SSO 提供者的身份
// 同一個提供者下，一個使用者只會有一個身份，一個身份也只會對應一個使用者
type UserIdentity struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	SsoProviderID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_identity_sso_provider_id_user_id;uniqueIndex:idx_user_identity_sso_provider_id_identity;not null;<-:create"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_identity_sso_provider_id_user_id;not null;<-:create"`
	Identity      string    `gorm:"type:text;uniqueIndex:idx_user_identity_sso_provider_id_identity;not null;<-:create"`

	SsoProvider *SsoProvider `gorm:"foreignKey:SsoProviderID"`
	User        *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (i *UserIdentity) BeforeCreate(*gorm.DB) error {
	EnsureID(&i.ID)
	return nil
}
