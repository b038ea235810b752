package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	rds "commerce/adapters/redis"
)

func setupStream(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStreamRelayToMailWorker(t *testing.T) {
	client := setupStream(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	sender := NewMockSender(ctrl)

	producer, err := rds.NewProducer[EmailJob](client, "mail")
	require.NoError(t, err)
	producer.Start()
	defer producer.Close()

	consumer, err := rds.NewGroupConsumer[EmailJob](client, "mail", "mailers", "worker-1",
		rds.WithGroupConsumerBlockTimeout[EmailJob](50*time.Millisecond),
	)
	require.NoError(t, err)

	sent := make(chan EmailJob, 2)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job EmailJob) error {
		sent <- job
		if job.To == "broken@example.com" {
			return errors.New("550 mailbox unavailable")
		}
		return nil
	}).Times(2)

	worker, err := NewMailWorker(consumer, sender, nil)
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	relay := NewStreamRelay(producer)
	ok := NewEmailJob("bob@example.com", "You won the auction: Camera", "body", fixedNow)
	bad := NewEmailJob("broken@example.com", "New bid on your listing: Camera", "body", fixedNow)
	require.NoError(t, relay.Relay(ctx, ok))
	require.NoError(t, relay.Relay(ctx, bad))

	for _, want := range []EmailJob{ok, bad} {
		select {
		case got := <-sent:
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.To, got.To)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for email")
		}
	}

	assert.Eventually(t, func() bool {
		n, err := client.XLen(ctx, rds.DeadLetterStream("mail")).Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, "mail", "mailers").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, worker.Close())
}

func TestDirectRelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := NewMockSender(ctrl)
	job := NewEmailJob("bob@example.com", "subject", "body", fixedNow)
	sender.EXPECT().Send(gomock.Any(), job).Return(nil)

	require.NoError(t, NewDirectRelay(sender).Relay(context.Background(), job))
}

func TestStreamRelay_ProducerClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := rds.NewMockIProducer[EmailJob](ctrl)
	producer.EXPECT().Publish(gomock.Any()).Return(rds.ErrProducerClosed)

	err := NewStreamRelay(producer).Relay(context.Background(), EmailJob{ID: "x"})
	assert.ErrorIs(t, err, rds.ErrProducerClosed)
}

func TestNewEmailJob_SortableIDs(t *testing.T) {
	a := NewEmailJob("a@example.com", "s", "b", fixedNow)
	b := NewEmailJob("a@example.com", "s", "b", fixedNow.Add(time.Millisecond))
	assert.Less(t, a.ID, b.ID)
}
