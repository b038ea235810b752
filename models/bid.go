package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid 代表拍賣商品的出價紀錄，建立後不可修改
// 出價者被刪除時 BidderID 會被設為 NULL，出價紀錄本身保留
type Bid struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;<-:create"`
	ListingID uuid.UUID  `gorm:"type:uuid;not null;index:idx_bid_listing_amount,priority:1;<-:create"`
	BidderID  *uuid.UUID `gorm:"type:uuid;index;<-:create"`
	Amount    Money      `gorm:"type:numeric(10,2);not null;index:idx_bid_listing_amount,priority:2,sort:desc;<-:create"`
	Timestamp time.Time  `gorm:"type:timestamp with time zone;not null;<-:create"`

	// 外鍵關聯
	Bidder  *User    `gorm:"foreignKey:BidderID;constraint:OnDelete:SET NULL"`
	Listing *Listing `gorm:"foreignKey:ListingID"`
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	EnsureID(&b.ID)
	return nil
}

// Outranks 判斷 b 是否排在 other 之前：金額高者優先，同金額時較早的出價優先
func (b *Bid) Outranks(other *Bid) bool {
	if other == nil {
		return true
	}
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	if !b.Timestamp.Equal(other.Timestamp) {
		return b.Timestamp.Before(other.Timestamp)
	}
	return b.ID.String() < other.ID.String()
}
