package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 代表拍賣系統中的使用者
// 包含基本的使用者資訊，如使用者名稱、通知用的電子郵件以及管理員權限
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string    `gorm:"type:varchar(254);not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	IsAdmin      bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"type:timestamp with time zone;not null"`
	UpdatedAt    time.Time `gorm:"type:timestamp with time zone;not null"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	EnsureID(&u.ID)
	return nil
}
