//go:generate mockgen -package=session -destination=mock.go -source=interfaces.go

package session

import "context"

// IStore 是 session 資料的儲存層，資料以整份覆寫的方式保存
type IStore interface {
	Load(ctx context.Context, name string) (map[string]string, error)
	Save(ctx context.Context, name string, data map[string]string) error
	Delete(ctx context.Context, name string) error
}

// ISession 是單一請求內的 session 操作介面
type ISession interface {
	ID() string
	Load() error
	Get(key string) string
	Set(key, value string)
	Delete(key string)
	Pop(key string) string
	Clear()
	Dirty() bool
	Save() error
	Destroy() error
}
