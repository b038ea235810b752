package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing 代表拍賣系統中的商品
// 包含商品資訊、起標價、擁有者、分類以及結標後的得標者
//
// Winner 只會在 Active 為 false 時被設定
type Listing struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title       string     `gorm:"type:varchar(128);not null"`
	Description string     `gorm:"type:text;not null"`
	StartingBid Money      `gorm:"type:numeric(10,2);not null"`
	ImageURL    string     `gorm:"type:text;not null"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index;<-:create"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index"`
	Active      bool       `gorm:"not null;index"`
	WinnerID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time  `gorm:"type:timestamp with time zone;not null;index"`

	// 外鍵關聯
	Owner    User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Winner   *User     `gorm:"foreignKey:WinnerID;constraint:OnDelete:SET NULL"`
	Bids     []Bid     `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	Comments []Comment `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	EnsureID(&l.ID)
	return nil
}

// URL 站內的商品頁面路徑，通知與 email 都使用這個路徑
func (l *Listing) URL() string {
	return "/listings/" + l.ID.String()
}
