package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification 代表站內通知，只會因為出價或結標而產生
// 建立後除了 Read 之外不會再被修改
// OwnerEmail 是建立當下商品擁有者的 email 快照
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index;<-:create"`
	Title       string     `gorm:"type:varchar(140);not null;<-:create"`
	Message     string     `gorm:"type:text;not null;<-:create"`
	ListingID   *uuid.UUID `gorm:"type:uuid;index;<-:create"`
	URL         string     `gorm:"type:varchar(255);not null;<-:create"`
	Read        bool       `gorm:"not null"`
	OwnerEmail  string     `gorm:"type:varchar(254);not null;<-:create"`
	CreatedAt   time.Time  `gorm:"type:timestamp with time zone;not null;index"`

	Recipient User     `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE"`
	Listing   *Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	EnsureID(&n.ID)
	return nil
}
