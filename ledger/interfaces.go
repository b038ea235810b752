//go:generate mockgen -package=ledger -destination=mock.go -source=interfaces.go

package ledger

import (
	"context"

	"github.com/google/uuid"

	"commerce/models"
	"commerce/notify"
)

// Actor 是發出請求的使用者
type Actor interface {
	UserID() uuid.UUID
	Username() string
	IsAdmin() bool
}

// Store 提供帳本需要的讀取與鎖定操作
type Store interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	// HighestBid 依金額由高到低、時間由早到晚排序取第一筆，沒有出價時回傳 nil
	HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error)
	// WithListingLock 鎖定商品後執行 fn，fn 回傳錯誤時整個交易會被撤銷
	// 傳入 fn 的 listing 已載入 Owner
	WithListingLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx Tx, listing *models.Listing) error) error
}

// Tx 是持有商品鎖期間可以使用的操作
type Tx interface {
	HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error)
	CreateBid(ctx context.Context, bid *models.Bid) error
	SetAuctionState(ctx context.Context, listingID uuid.UUID, active bool, winnerID *uuid.UUID) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier 接收交易提交後要送出的通知，不可阻塞
type Notifier interface {
	Dispatch(notice notify.Notice)
}

// Observer 在交易提交後收到狀態變化，例如更新價格快取或推送即時出價
type Observer interface {
	BidAccepted(ctx context.Context, listing *models.Listing, bid *models.Bid)
	AuctionStateChanged(ctx context.Context, listing *models.Listing)
}
