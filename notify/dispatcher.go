package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smallnest/chanx"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

type dispatcherOptions struct {
	logger      *slog.Logger
	relay       Relay
	baseURL     string
	now         func() time.Time
	bufferSize  int
	sendTimeout time.Duration
}

type DispatcherOption func(*dispatcherOptions)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.logger = logger
	}
}

// WithEmailRelay 啟用 email 通知，未設定時只會寫入站內通知
func WithEmailRelay(relay Relay) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.relay = relay
	}
}

// WithBaseURL 設置 email 內連結使用的網址
func WithBaseURL(baseURL string) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.baseURL = baseURL
	}
}

// WithClock 替換時間來源，主要用於測試
func WithClock(now func() time.Time) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.now = now
	}
}

// WithBufferSize 設置佇列的初始容量
func WithBufferSize(size int) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.bufferSize = size
	}
}

// WithSendTimeout 設置每一則通知寫入與轉送的時間上限
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.sendTimeout = d
	}
}

// Dispatcher 在背景處理通知
// 呼叫端不會等待，也不會收到任何失敗，所有錯誤只會被記錄下來
type Dispatcher struct {
	store   Store
	queue   *chanx.UnboundedChan[Notice]
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
	options dispatcherOptions
}

func NewDispatcher(store Store, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("notification store cannot be nil")
	}
	options := dispatcherOptions{
		logger:      slog.Default(),
		now:         time.Now,
		bufferSize:  64,
		sendTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Dispatcher{
		store:   store,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "Dispatcher")),
		options: options,
	}, nil
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.queue = chanx.NewUnboundedChan[Notice](ctx, d.options.bufferSize)
	d.cancel = cancel
	d.closed = false
	d.logger.Info("starting notification dispatcher")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.logger.Info("notification dispatcher stopped")
		for notice := range d.queue.Out {
			d.handle(notice)
		}
	}()
}

// Dispatch 將通知放進佇列後立即返回
// dispatcher 尚未啟動或已經關閉時通知會被丟棄
func (d *Dispatcher) Dispatch(notice Notice) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dropping notification",
			slog.String("kind", string(notice.Kind)),
			slog.String("recipient", notice.RecipientID.String()),
			slog.Any("error", ErrDispatcherClosed),
		)
		return
	}
	d.queue.In <- notice
}

// Close 停止接收新的通知，並等待佇列中的通知處理完畢
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.logger.Info("closing notification dispatcher", slog.Int("pending", d.queue.Len()))
	d.closed = true
	close(d.queue.In)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

func (d *Dispatcher) handle(notice Notice) {
	logger := d.logger.With(
		slog.String("kind", string(notice.Kind)),
		slog.String("recipient", notice.RecipientID.String()),
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification handler panicked", slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.options.sendTimeout)
	defer cancel()

	now := d.options.now()
	if err := d.store.CreateNotification(ctx, notice.Notification(now)); err != nil {
		logger.Error("failed to store notification", slog.Any("error", err))
	}

	if err := d.relayEmail(ctx, notice, now); err != nil {
		logger.Error("failed to relay notification email", slog.Any("error", err))
	}
}

func (d *Dispatcher) relayEmail(ctx context.Context, notice Notice, now time.Time) error {
	const op = "Dispatcher.relayEmail"
	if d.options.relay == nil || notice.RecipientEmail == "" {
		return nil
	}
	job := NewEmailJob(notice.RecipientEmail, notice.Title, notice.EmailBody(d.options.baseURL), now)
	if err := d.options.relay.Relay(ctx, job); err != nil {
		return fmt.Errorf("[%s] Fail to relay email %s, err=%w", op, job.ID, err)
	}
	return nil
}
