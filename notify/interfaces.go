//go:generate mockgen -package=notify -destination=mock.go -source=interfaces.go

package notify

import (
	"context"

	"commerce/models"
)

// Store 定義了通知寫入資料庫的操作介面
type Store interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

// Relay 定義了 email 轉送的介面，可以直接寄送或是交給 stream 由背景 worker 寄送
type Relay interface {
	Relay(ctx context.Context, job EmailJob) error
}

// Sender 定義了實際寄出 email 的介面
type Sender interface {
	Send(ctx context.Context, job EmailJob) error
}
