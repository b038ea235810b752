package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		want    map[string]string
		wantErr bool
	}{
		{
			name: "success",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectHGetAll("test:sid").SetVal(map[string]string{"state": "s1"})
			},
			want: map[string]string{"state": "s1"},
		},
		{
			name: "missing",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectHGetAll("test:sid").SetVal(map[string]string{})
			},
			want: map[string]string{},
		},
		{
			name: "redis error",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectHGetAll("test:sid").SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock, cleanup := setupTest(t)
			defer cleanup()
			tt.setup(mock)

			got, err := NewStore(client, WithStorePrefix("test:")).Load(context.Background(), "sid")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_Save(t *testing.T) {
	client, mock, cleanup := setupTest(t)
	defer cleanup()

	mock.ExpectEvalSha(saveScript.Hash(), []string{"test:sid"}, int64(60000), "state", "s1").SetVal(int64(1))
	store := NewStore(client, WithStorePrefix("test:"), WithStoreTTL(time.Minute))
	require.NoError(t, store.Save(context.Background(), "sid", map[string]string{"state": "s1"}))
}

func TestStore_RoundTrip(t *testing.T) {
	client, mr := setupMiniredis(t)
	ctx := context.Background()
	store := NewStore(client, WithStoreTTL(time.Minute))

	require.NoError(t, store.Save(ctx, "sid", map[string]string{"state": "s1", "nonce": "n1"}))
	got, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"state": "s1", "nonce": "n1"}, got)
	assert.Equal(t, time.Minute, mr.TTL("session:sid"))

	// 覆寫會移除舊欄位
	require.NoError(t, store.Save(ctx, "sid", map[string]string{"redirect": "/"}))
	got, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"redirect": "/"}, got)

	mr.FastForward(2 * time.Minute)
	got, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Save(ctx, "other", map[string]string{"a": "b"}))
	require.NoError(t, store.Delete(ctx, "other"))
	assert.False(t, mr.Exists("session:other"))
}
