package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 代表使用者上傳給商品使用的圖片
// 用來計算每小時的上傳次數限制
type Image struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Url        string    `gorm:"type:text;not null;<-:create"`
	CreatedAt  time.Time `gorm:"type:timestamp with time zone;not null"`

	Uploader *User `gorm:"foreignKey:UploaderID;constraint:OnDelete:CASCADE"`
}

func (i *Image) BeforeCreate(*gorm.DB) error {
	EnsureID(&i.ID)
	return nil
}
