package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment 代表商品頁面上的留言，只會新增不會修改
type Comment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListingID   uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	CommenterID uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Content     string    `gorm:"type:text;not null;<-:create"`
	Timestamp   time.Time `gorm:"type:timestamp with time zone;not null;<-:create"`

	Commenter User `gorm:"foreignKey:CommenterID;constraint:OnDelete:CASCADE"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	EnsureID(&c.ID)
	return nil
}
