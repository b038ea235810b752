package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WatchlistEntry 代表使用者關注的商品，同一使用者對同一商品只會有一筆
type WatchlistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchlist_user_listing"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchlist_user_listing"`
	AddedAt   time.Time `gorm:"type:timestamp with time zone;not null"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Listing Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

func (WatchlistEntry) TableName() string {
	return "watchlist"
}

func (w *WatchlistEntry) BeforeCreate(*gorm.DB) error {
	EnsureID(&w.ID)
	return nil
}
