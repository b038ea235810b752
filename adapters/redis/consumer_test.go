package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_ReceivesInOrder(t *testing.T) {
	client, _ := setupMiniredis(t)

	for i := 0; i < 3; i++ {
		values, err := EncodeMessage(testEvent{Amount: int64(i)})
		require.NoError(t, err)
		xadd(t, client, "events", values)
	}
	// 無法解析的訊息會被略過
	xadd(t, client, "events", map[string]any{"payload": "!!"})
	values, err := EncodeMessage(testEvent{Amount: 3})
	require.NoError(t, err)
	xadd(t, client, "events", values)

	c, err := NewConsumer[testEvent](client, "events",
		WithConsumerStartID[testEvent]("0"),
		WithConsumerBlockTimeout[testEvent](50*time.Millisecond),
	)
	require.NoError(t, err)
	c.Start()

	for want := int64(0); want < 4; want++ {
		select {
		case got := <-c.Subscribe():
			assert.Equal(t, want, got.Amount)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for message %d", want)
		}
	}

	c.Close()
	_, ok := <-c.Subscribe()
	assert.False(t, ok, "downstream is closed after Close")
}

func TestConsumer_OnlyNewMessagesByDefault(t *testing.T) {
	client, _ := setupMiniredis(t)

	old, err := EncodeMessage(testEvent{Note: "old"})
	require.NoError(t, err)
	xadd(t, client, "events", old)

	c, err := NewConsumer[testEvent](client, "events", WithConsumerBlockTimeout[testEvent](50*time.Millisecond))
	require.NoError(t, err)
	c.Start()
	defer c.Close()

	fresh, err := EncodeMessage(testEvent{Note: "new"})
	require.NoError(t, err)
	// "$" 在第一次 XREAD 時才會決定，持續寫入直到收到為止
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-c.Subscribe():
			assert.Equal(t, "new", got.Note)
			return
		case <-tick.C:
			xadd(t, client, "events", fresh)
		case <-deadline:
			t.Fatal("timeout waiting for new message")
		}
	}
}
