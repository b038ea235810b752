package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"
)

var ErrProducerClosed = errors.New("producer is closed")

type producerOptions[T any] struct {
	logger     *slog.Logger
	bufferSize int
	maxLen     int64
	encode     func(T) (map[string]any, error)
}

type ProducerOption[T any] func(*producerOptions[T])

// WithProducerLogger 設置日誌記錄器
func WithProducerLogger[T any](logger *slog.Logger) ProducerOption[T] {
	return func(o *producerOptions[T]) {
		o.logger = logger
	}
}

// WithProducerBufferSize 設置本地佇列的初始容量
func WithProducerBufferSize[T any](size int) ProducerOption[T] {
	return func(o *producerOptions[T]) {
		o.bufferSize = size
	}
}

// WithProducerMaxLen 設置 stream 的近似長度上限，0 代表不修剪
func WithProducerMaxLen[T any](n int64) ProducerOption[T] {
	return func(o *producerOptions[T]) {
		o.maxLen = n
	}
}

// WithProducerEncoder 設置序列化函數
func WithProducerEncoder[T any](fn func(T) (map[string]any, error)) ProducerOption[T] {
	return func(o *producerOptions[T]) {
		o.encode = fn
	}
}

// Producer 先把訊息放進本地的無界佇列，再由背景 goroutine 依序 XADD
// Publish 因此不會因為 redis 延遲而阻塞呼叫端
type Producer[T any] struct {
	client  *redis.Client
	stream  string
	queue   *chanx.UnboundedChan[map[string]any]
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
	options producerOptions[T]
}

func NewProducer[T any](client *redis.Client, stream string, opts ...ProducerOption[T]) (*Producer[T], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}

	options := producerOptions[T]{
		logger:     slog.Default(),
		bufferSize: 64,
		encode:     EncodeMessage[T],
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Producer[T]{
		client:  client,
		stream:  stream,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "Producer"), slog.String("stream", stream)),
		options: options,
	}, nil
}

func (p *Producer[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.queue = chanx.NewUnboundedChan[map[string]any](ctx, p.options.bufferSize)
	p.cancel = cancel
	p.closed = false
	p.logger.Info("starting stream producer")

	p.wg.Add(1)
	go p.run(ctx)
}

func (p *Producer[T]) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.logger.Info("producer goroutine stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case values, ok := <-p.queue.Out:
			if !ok {
				return
			}
			args := &redis.XAddArgs{Stream: p.stream, Values: values}
			if p.options.maxLen > 0 {
				args.MaxLen = p.options.maxLen
				args.Approx = true
			}
			id, err := p.client.XAdd(ctx, args).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				p.logger.Error("publish message error", slog.Any("error", err))
				continue
			}
			p.logger.Debug("message published", slog.String("messageId", id))
		}
	}
}

func (p *Producer[T]) Publish(data T) error {
	const op = "Producer.Publish"
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	values, err := p.options.encode(data)
	if err != nil {
		return fmt.Errorf("[%s] Fail to encode message, err=%w", op, err)
	}
	p.queue.In <- values
	return nil
}

// Close 停止背景 goroutine，尚未寫入 redis 的訊息會被丟棄
func (p *Producer[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.logger.Info("closing stream producer")
	p.closed = true
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("stream producer closed")
}
