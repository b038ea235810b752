package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoRenewMutex_LockUnlock(t *testing.T) {
	client, mr := setupMiniredis(t)
	m := NewAutoRenewMutex(client, "lock:test", WithAutoRenewMutexExpiry(time.Second))

	lockCtx, err := m.Lock(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Valid())
	assert.True(t, mr.Exists("lock:test"))

	ok, err := m.Unlock()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, m.Valid())
	assert.ErrorIs(t, lockCtx.Err(), context.Canceled)
	assert.False(t, mr.Exists("lock:test"))
}

func TestAutoRenewMutex_WaitsForHolder(t *testing.T) {
	client, _ := setupMiniredis(t)
	holder := NewAutoRenewMutex(client, "lock:test", WithAutoRenewMutexExpiry(time.Second))
	waiter := NewAutoRenewMutex(client, "lock:test",
		WithAutoRenewMutexExpiry(time.Second),
		WithAutoRenewMutexRetryDelay(10*time.Millisecond),
	)

	_, err := holder.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = waiter.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = holder.Unlock()
	require.NoError(t, err)

	_, err = waiter.Lock(context.Background())
	require.NoError(t, err)
	_, err = waiter.Unlock()
	require.NoError(t, err)
}
