package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSession_Load(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(*MockIStore)
		wantErr   bool
		want      string
	}{
		{
			name: "existing data",
			mockSetup: func(m *MockIStore) {
				m.EXPECT().Load(gomock.Any(), "sid").Return(map[string]string{"state": "abc"}, nil)
			},
			want: "abc",
		},
		{
			name: "missing session",
			mockSetup: func(m *MockIStore) {
				m.EXPECT().Load(gomock.Any(), "sid").Return(nil, nil)
			},
		},
		{
			name: "store error",
			mockSetup: func(m *MockIStore) {
				m.EXPECT().Load(gomock.Any(), "sid").Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := NewMockIStore(ctrl)
			tt.mockSetup(store)

			s := NewSession(context.Background(), "sid", store)
			err := s.Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Get("state"))

			// 第二次 Load 不會再讀取 store
			require.NoError(t, s.Load())
		})
	}
}

func TestSession_SaveOnlyWhenDirty(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockIStore(ctrl)
	store.EXPECT().Load(gomock.Any(), "sid").Return(map[string]string{"nonce": "n1"}, nil)
	store.EXPECT().Save(gomock.Any(), "sid", map[string]string{"nonce": "n1", "redirect": "/listings"}).Return(nil)

	s := NewSession(context.Background(), "sid", store)
	require.NoError(t, s.Load())
	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())

	s.Set("redirect", "/listings")
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())
	require.NoError(t, s.Save())
}

func TestSession_Pop(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockIStore(ctrl)
	store.EXPECT().Load(gomock.Any(), "sid").Return(map[string]string{"state": "s1"}, nil)

	s := NewSession(context.Background(), "sid", store)
	require.NoError(t, s.Load())
	assert.Equal(t, "s1", s.Pop("state"))
	assert.Equal(t, "", s.Pop("state"))
	assert.True(t, s.Dirty())
}

func TestSession_Destroy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockIStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), "sid").Return(nil)

	s := NewSession(nil, "sid", store)
	s.Set("state", "s1")
	require.NoError(t, s.Destroy())
	assert.Equal(t, "", s.Get("state"))
	assert.False(t, s.Dirty())

	store.EXPECT().Delete(gomock.Any(), "sid").Return(errors.New("boom"))
	assert.Error(t, s.Destroy())
}
