package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"commerce/adapters/session"
)

// Store 以 redis hash 保存 session 資料
type Store struct {
	client  *redis.Client
	options storeOptions
}

type storeOptions struct {
	prefix string
	ttl    time.Duration
}

type StoreOption func(*storeOptions)

// WithStorePrefix 設定 key 前綴
func WithStorePrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		o.prefix = prefix
	}
}

// WithStoreTTL 設定 session 的存活時間，每次 Save 都會重新計算
func WithStoreTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

func NewStore(client *redis.Client, opts ...StoreOption) session.IStore {
	options := storeOptions{
		prefix: "session:",
		ttl:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{client: client, options: options}
}

func (s *Store) Load(ctx context.Context, name string) (map[string]string, error) {
	const op = "redis.Store.Load"
	result, err := s.client.HGetAll(ctx, s.options.prefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get hash, err=%w", op, err)
	}
	return result, nil
}

// saveScript 以單一原子操作覆寫整個 hash 並設定期限
var saveScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])
redis.call('DEL', key)
if #ARGV > 1 then
    redis.call('HSET', key, unpack(ARGV, 2))
    if ttl > 0 then
        redis.call('PEXPIRE', key, ttl)
    end
end
return 1
`)

func (s *Store) Save(ctx context.Context, name string, data map[string]string) error {
	const op = "redis.Store.Save"
	args := make([]any, 0, len(data)*2+1)
	args = append(args, s.options.ttl.Milliseconds())
	for k, v := range data {
		args = append(args, k, v)
	}
	if err := saveScript.Run(ctx, s.client, []string{s.options.prefix + name}, args...).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to execute save script, err=%w", op, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	const op = "redis.Store.Delete"
	if err := s.client.Del(ctx, s.options.prefix+name).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to delete session, err=%w", op, err)
	}
	return nil
}
