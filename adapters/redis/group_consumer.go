package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrConsumerClosed = errors.New("consumer is closed")

// DeadLetterStream 回傳 stream 對應的死信 stream 名稱
func DeadLetterStream(stream string) string {
	return stream + ":dead-letter"
}

// EnsureGroup 建立 consumer group，stream 不存在時一併建立
// group 已存在不視為錯誤
func EnsureGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	const op = "redis.EnsureGroup"
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("[%s] Fail to create group %s on %s, err=%w", op, group, stream, err)
	}
	return nil
}

// Message 是交給下游處理的訊息，處理完必須呼叫 Done 或 Fail
type Message[T any] struct {
	Data T
	ID   string

	client *redis.Client
	stream string
	group  string
	raw    map[string]any
	mu     sync.Mutex
	acked  bool
}

// Done 確認訊息處理完成
func (m *Message[T]) Done(ctx context.Context) error {
	const op = "Message.Done"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acked {
		return nil
	}
	if err := m.client.XAck(ctx, m.stream, m.group, m.ID).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to ack message %s, err=%w", op, m.ID, err)
	}
	m.acked = true
	return nil
}

// Fail 將訊息連同錯誤原因移到死信 stream 後確認
func (m *Message[T]) Fail(ctx context.Context, cause error) error {
	const op = "Message.Fail"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acked {
		return nil
	}
	values := make(map[string]any, len(m.raw)+2)
	for k, v := range m.raw {
		values[k] = v
	}
	values["error"] = cause.Error()
	values["origin_id"] = m.ID

	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: DeadLetterStream(m.stream), Values: values})
		pipe.XAck(ctx, m.stream, m.group, m.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to move message %s to dead letter, err=%w", op, m.ID, err)
	}
	m.acked = true
	return nil
}

type groupConsumerOptions[T any] struct {
	logger         *slog.Logger
	decode         func(map[string]any) (T, error)
	bufferSize     int
	blockTimeout   time.Duration
	mutex          IAutoRenewMutex
	strictOrdering bool
}

type GroupConsumerOption[T any] func(*groupConsumerOptions[T])

// WithGroupConsumerLogger 設置日誌記錄器
func WithGroupConsumerLogger[T any](logger *slog.Logger) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.logger = logger
	}
}

// WithGroupConsumerDecoder 設置反序列化函數
func WithGroupConsumerDecoder[T any](fn func(map[string]any) (T, error)) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.decode = fn
	}
}

// WithGroupConsumerBufferSize 設置下游 channel 的緩衝大小
func WithGroupConsumerBufferSize[T any](size int) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.bufferSize = size
	}
}

// WithGroupConsumerBlockTimeout 設置 XREADGROUP 的阻塞時間
func WithGroupConsumerBlockTimeout[T any](d time.Duration) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.blockTimeout = d
	}
}

// WithGroupConsumerMutex 注入嚴格順序模式使用的鎖
func WithGroupConsumerMutex[T any](mutex IAutoRenewMutex) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.mutex = mutex
	}
}

// WithGroupConsumerStrictOrdering 同一個 group 同時間只有持有鎖的 consumer 會讀取訊息
func WithGroupConsumerStrictOrdering[T any](strict bool) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.strictOrdering = strict
	}
}

type GroupConsumer[T any] struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	downStream chan *Message[T]
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	mutex      IAutoRenewMutex
	options    groupConsumerOptions[T]
}

func NewGroupConsumer[T any](
	client *redis.Client,
	stream, group, consumer string,
	opts ...GroupConsumerOption[T],
) (IGroupConsumer[T], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" || group == "" || consumer == "" {
		return nil, errors.New("stream, group and consumer cannot be empty")
	}

	options := groupConsumerOptions[T]{
		logger:       slog.Default(),
		decode:       DecodeMessage[T],
		bufferSize:   1,
		blockTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	gc := &GroupConsumer[T]{
		logger: options.logger.With(
			slog.String("caller", "GroupConsumer"),
			slog.String("stream", stream),
			slog.String("group", group),
			slog.String("consumer", consumer),
		),
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		closed:   true,
		options:  options,
	}
	if options.strictOrdering {
		gc.mutex = options.mutex
		if gc.mutex == nil {
			gc.mutex = NewAutoRenewMutex(client, fmt.Sprintf("lock:%s:%s", stream, group), WithAutoRenewMutexSkipLockError(true))
		}
	}
	return gc, nil
}

// Start 建立 consumer group 並開始讀取
// 每一輪都會先重送這個 consumer 名下尚未確認的訊息，再讀取新訊息
func (g *GroupConsumer[T]) Start() error {
	const op = "GroupConsumer.Start"
	if !g.closed {
		return nil
	}
	if err := EnsureGroup(context.Background(), g.client, g.stream, g.group); err != nil {
		return fmt.Errorf("[%s] Fail to prepare group, err=%w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.downStream = make(chan *Message[T], g.options.bufferSize)
	g.cancel = cancel
	g.closed = false
	g.logger.Info("starting group consumer")

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.logger.Info("group consumer goroutine stopped")
		defer close(g.downStream)

		for ctx.Err() == nil {
			workCtx := ctx
			if g.options.strictOrdering {
				lockCtx, err := g.mutex.Lock(ctx)
				if err != nil {
					if ctx.Err() == nil {
						g.logger.Error("failed to acquire lock", slog.Any("error", err))
					}
					continue
				}
				workCtx = lockCtx
			}

			err := g.round(workCtx)
			if g.options.strictOrdering {
				if _, unlockErr := g.mutex.Unlock(); unlockErr != nil {
					g.logger.Debug("unlock failed", slog.Any("error", unlockErr))
				}
			}
			if err != nil && ctx.Err() == nil {
				g.logger.Error("group consumer round aborted, restarting", slog.Any("error", err))
			}
		}
	}()
	return nil
}

// round 先處理 pending 訊息，之後持續讀取新訊息直到 ctx 結束或發生錯誤
func (g *GroupConsumer[T]) round(ctx context.Context) error {
	cursor := "0"
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		messages, err := g.read(ctx, cursor)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				cursor = ">"
				continue
			}
			return err
		}
		// pending 已經全部送出，改讀新訊息
		if cursor != ">" && len(messages) == 0 {
			cursor = ">"
			continue
		}
		for _, message := range messages {
			if cursor != ">" {
				cursor = message.ID
			}
			if err := g.deliver(ctx, message); err != nil {
				return err
			}
		}
	}
}

func (g *GroupConsumer[T]) read(ctx context.Context, cursor string) ([]redis.XMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    g.group,
		Consumer: g.consumer,
		Streams:  []string{g.stream, cursor},
		Count:    1,
		Block:    -1,
	}
	if cursor == ">" {
		args.Block = g.options.blockTimeout
	}
	streams, err := g.client.XReadGroup(ctx, args).Result()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func (g *GroupConsumer[T]) deliver(ctx context.Context, message redis.XMessage) error {
	msg := &Message[T]{
		ID:     message.ID,
		client: g.client,
		stream: g.stream,
		group:  g.group,
		raw:    message.Values,
	}
	// 被刪除的 pending 訊息 XREADGROUP 會回傳空的 values
	if len(message.Values) == 0 {
		return msg.Done(ctx)
	}
	data, err := g.options.decode(message.Values)
	if err != nil {
		g.logger.Error("failed to decode message",
			slog.String("messageId", message.ID),
			slog.Any("error", err),
		)
		return msg.Fail(ctx, err)
	}
	msg.Data = data

	select {
	case <-ctx.Done():
		return ctx.Err()
	case g.downStream <- msg:
		return nil
	}
}

// Subscribe 取得下游 channel，Close 之後會被關閉
func (g *GroupConsumer[T]) Subscribe() <-chan *Message[T] {
	return g.downStream
}

func (g *GroupConsumer[T]) Close() error {
	if g.closed {
		return nil
	}
	g.logger.Info("closing group consumer")
	g.closed = true
	g.cancel()
	g.wg.Wait()
	g.logger.Info("group consumer closed")
	return nil
}
