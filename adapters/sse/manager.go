package sse

import (
	"context"
	"log/slog"
	"sync"
)

type managerOptions[T any] struct {
	logger     *slog.Logger
	subscriber ISubscriber[PublishRequest[T]]
	publisher  IPublisher[PublishRequest[T]]
	bufferSize int
}

type ManagerOption[T any] func(*managerOptions[T])

func WithLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.logger = logger
	}
}

// WithSubscriber 設置跨實例訊息的來源，收到的訊息會廣播到本地的頻道
func WithSubscriber[T any](subscriber ISubscriber[PublishRequest[T]]) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.subscriber = subscriber
	}
}

// WithPublisher 設置後 Publish 會送往共用的 stream，再經由 subscriber 回到各實例
// 沒有設置時 Publish 只會廣播給本地的訂閱者
func WithPublisher[T any](publisher IPublisher[PublishRequest[T]]) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.publisher = publisher
	}
}

// WithSubscriberBufferSize 設置每個訂閱者的緩衝大小
func WithSubscriberBufferSize[T any](size int) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.bufferSize = size
	}
}

// connectionManager 管理多個 SSE 頻道的訂閱與發布。
// 透過 Redis Stream 實現跨節點的訊息廣播，讓多個服務實例能夠協同運作。
type connectionManager[T any] struct {
	logger *slog.Logger

	mu     sync.RWMutex   // 保護 active 和 channels 的讀寫
	wg     sync.WaitGroup // 用於等待所有 goroutine 完成
	active bool           // 標記 manager 是否正在運作中

	channels map[string]IChannel[T] // 儲存所有活躍的頻道
	options  managerOptions[T]
}

// NewConnectionManager 建立一個新的連線管理器。
func NewConnectionManager[T any](opts ...ManagerOption[T]) (IConnectionManager[T], error) {
	options := managerOptions[T]{
		logger:     slog.Default(),
		bufferSize: DefaultSubscriberBufferSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &connectionManager[T]{
		logger:   options.logger.With(slog.String("caller", "ConnectionManager")),
		channels: make(map[string]IChannel[T]),
		active:   true,
		options:  options,
	}, nil
}

// Start 啟動連線管理器，開始處理訊息的接收與廣播。
// 應在呼叫其他方法前先呼叫此方法。
func (cm *connectionManager[T]) Start() {
	subscriber := cm.options.subscriber
	if subscriber == nil {
		return
	}
	subscriber.Start()

	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		for msg := range subscriber.Subscribe() {
			cm.broadcast(msg)
		}
	}()
}

func (cm *connectionManager[T]) broadcast(msg PublishRequest[T]) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	channel, ok := cm.channels[msg.Channel]
	if !ok {
		return
	}
	if skipped := channel.Broadcast(msg.Message); skipped > 0 {
		cm.logger.Warn("slow subscribers skipped", slog.String("channel", msg.Channel), slog.Int("skipped", skipped))
	}
}

// Done 停止連線管理器的運作。
func (cm *connectionManager[T]) Done() {
	cm.mu.Lock()
	if !cm.active {
		cm.mu.Unlock()
		return
	}
	cm.active = false
	cm.mu.Unlock()

	// subscriber 關閉後轉發的 goroutine 才會結束，這段期間不能持有寫鎖
	if cm.options.subscriber != nil {
		cm.options.subscriber.Close()
	}
	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

// Subscribe 訂閱指定的頻道。
// channelName: 要訂閱的頻道名稱
// 返回: 用於接收訊息的唯讀通道，以及可能的錯誤
func (cm *connectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.active {
		return nil, context.Canceled
	}

	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T](cm.options.bufferSize)
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

// Publish 發布訊息到指定的頻道。
// channelName: 目標頻道名稱
// data: 要發布的訊息內容
func (cm *connectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	active := cm.active
	cm.mu.RUnlock()
	if !active {
		return context.Canceled
	}

	msg := PublishRequest[T]{Channel: channelName, Message: data}
	if cm.options.publisher != nil {
		return cm.options.publisher.Publish(msg)
	}
	cm.broadcast(msg)
	return nil
}

// Unsubscribe 取消訂閱指定的頻道。
func (cm *connectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
