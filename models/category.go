package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category 代表拍賣商品的分類，名稱不可重複
type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:varchar(64);not null;uniqueIndex"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	EnsureID(&c.ID)
	return nil
}
