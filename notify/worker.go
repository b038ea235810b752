package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	rds "commerce/adapters/redis"
)

// MailWorker 從 redis stream 取出 email job 並寄出
// 寄送失敗的 job 會被移到死信 stream，不會重試
type MailWorker struct {
	consumer rds.IGroupConsumer[EmailJob]
	sender   Sender
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewMailWorker(consumer rds.IGroupConsumer[EmailJob], sender Sender, logger *slog.Logger) (*MailWorker, error) {
	if consumer == nil || sender == nil {
		return nil, errors.New("consumer and sender cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MailWorker{
		consumer: consumer,
		sender:   sender,
		timeout:  30 * time.Second,
		logger:   logger.With(slog.String("caller", "MailWorker")),
	}, nil
}

func (w *MailWorker) Start() error {
	if err := w.consumer.Start(); err != nil {
		return err
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for msg := range w.consumer.Subscribe() {
			w.process(msg)
		}
	}()
	return nil
}

func (w *MailWorker) process(msg *rds.Message[EmailJob]) {
	logger := w.logger.With(slog.String("jobId", msg.Data.ID), slog.String("messageId", msg.ID))
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.sender.Send(ctx, msg.Data); err != nil {
		logger.Error("failed to send email", slog.Any("error", err))
		if err := msg.Fail(ctx, err); err != nil {
			logger.Error("failed to move email job to dead letter", slog.Any("error", err))
		}
		return
	}
	if err := msg.Done(ctx); err != nil {
		logger.Error("failed to ack email job", slog.Any("error", err))
		return
	}
	logger.Debug("email sent")
}

// Close 停止讀取並等待處理中的 job 結束
func (w *MailWorker) Close() error {
	err := w.consumer.Close()
	w.wg.Wait()
	return err
}
