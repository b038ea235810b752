package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"commerce/models"
)

// raisePriceScript 只在新價格高於快取價格時才更新
//
//	KEYS[1] - 商品價格的 key
//	ARGV[1] - 新價格 (分)
//	ARGV[2] - 存活時間 (毫秒)
//
// 返回值為更新後快取中的價格
var raisePriceScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]))
local price = tonumber(ARGV[1])
if current ~= nil and price <= current then
    return current
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return price
`)

// PriceCache 快取商品列表頁需要的目前最高價
// 帳本在每次出價成功後呼叫 Raise，快取過期或遺失時由資料庫重建
type PriceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type PriceCacheOption func(*PriceCache)

func WithPriceCachePrefix(prefix string) PriceCacheOption {
	return func(c *PriceCache) {
		c.prefix = prefix
	}
}

func WithPriceCacheTTL(ttl time.Duration) PriceCacheOption {
	return func(c *PriceCache) {
		c.ttl = ttl
	}
}

func NewPriceCache(client *redis.Client, opts ...PriceCacheOption) (*PriceCache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	c := &PriceCache{client: client, prefix: "price:", ttl: 10 * time.Minute}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *PriceCache) key(listingID uuid.UUID) string {
	return c.prefix + listingID.String()
}

func (c *PriceCache) TTL() time.Duration {
	return c.ttl
}

// Raise 將快取價格提高到 price，回傳快取中實際的價格
func (c *PriceCache) Raise(ctx context.Context, listingID uuid.UUID, price models.Money) (models.Money, error) {
	const op = "PriceCache.Raise"
	v, err := raisePriceScript.Run(ctx, c.client, []string{c.key(listingID)}, int64(price), c.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("[%s] Fail to raise price of %s, err=%w", op, listingID, err)
	}
	return models.Money(v), nil
}

// Set 直接覆寫快取價格，用於重新開放拍賣或從資料庫重建
func (c *PriceCache) Set(ctx context.Context, listingID uuid.UUID, price models.Money) error {
	const op = "PriceCache.Set"
	if err := c.client.Set(ctx, c.key(listingID), int64(price), c.ttl).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to set price of %s, err=%w", op, listingID, err)
	}
	return nil
}

// Get 批次讀取，沒有快取的商品不會出現在結果中
func (c *PriceCache) Get(ctx context.Context, listingIDs ...uuid.UUID) (map[uuid.UUID]models.Money, error) {
	const op = "PriceCache.Get"
	result := make(map[uuid.UUID]models.Money, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}
	keys := make([]string, len(listingIDs))
	for i, id := range listingIDs {
		keys[i] = c.key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get prices, err=%w", op, err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		cents, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		result[listingIDs[i]] = models.Money(cents)
	}
	return result, nil
}

func (c *PriceCache) Forget(ctx context.Context, listingID uuid.UUID) error {
	const op = "PriceCache.Forget"
	if err := c.client.Del(ctx, c.key(listingID)).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to delete price of %s, err=%w", op, listingID, err)
	}
	return nil
}
