package notify

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	rds "commerce/adapters/redis"
)

// EmailJob 是一封待寄出的 email，會透過 redis stream 在服務之間傳遞
type EmailJob struct {
	ID        string
	To        string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// NewEmailJob 以 ULID 作為 job ID，方便依時間排序與追查
func NewEmailJob(to, subject, body string, now time.Time) EmailJob {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return EmailJob{
		ID:        id.String(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
	}
}

// DirectRelay 在 dispatcher 的背景 goroutine 內直接寄信
type DirectRelay struct {
	sender Sender
}

func NewDirectRelay(sender Sender) *DirectRelay {
	return &DirectRelay{sender: sender}
}

func (r *DirectRelay) Relay(ctx context.Context, job EmailJob) error {
	return r.sender.Send(ctx, job)
}

// StreamRelay 將 email 交給 redis stream，由 MailWorker 寄出
type StreamRelay struct {
	producer rds.IProducer[EmailJob]
}

func NewStreamRelay(producer rds.IProducer[EmailJob]) *StreamRelay {
	return &StreamRelay{producer: producer}
}

func (r *StreamRelay) Relay(_ context.Context, job EmailJob) error {
	const op = "StreamRelay.Relay"
	if err := r.producer.Publish(job); err != nil {
		return fmt.Errorf("[%s] Fail to publish email job %s, err=%w", op, job.ID, err)
	}
	return nil
}
