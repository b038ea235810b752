//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"commerce/models"
)

// IProducer 將資料寫入 stream
type IProducer[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// IConsumer 以廣播方式讀取 stream，每個實例都會收到全部訊息
type IConsumer[T any] interface {
	Start()
	Subscribe() <-chan T
	Close()
}

// IGroupConsumer 以 consumer group 讀取 stream，每則訊息只會交給一個 consumer
type IGroupConsumer[T any] interface {
	Start() error
	Subscribe() <-chan *Message[T]
	Close() error
}

// IAutoRenewMutex 是會自動續期的分散式鎖
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}

// IPriceCache 快取商品目前的最高價，只會往上調整
type IPriceCache interface {
	Raise(ctx context.Context, listingID uuid.UUID, price models.Money) (models.Money, error)
	Set(ctx context.Context, listingID uuid.UUID, price models.Money) error
	Get(ctx context.Context, listingIDs ...uuid.UUID) (map[uuid.UUID]models.Money, error)
	Forget(ctx context.Context, listingID uuid.UUID) error
	TTL() time.Duration
}
