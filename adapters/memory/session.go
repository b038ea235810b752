package memory

import (
	"context"
	"maps"
	"sync"

	"commerce/adapters/session"
)

var _ session.IStore = (*SessionStore)(nil)

// SessionStore 是沒有 redis 時使用的 session 儲存，資料不會過期
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string]map[string]string)}
}

func (s *SessionStore) Load(_ context.Context, name string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data[name]), nil
}

func (s *SessionStore) Save(_ context.Context, name string, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) == 0 {
		delete(s.data, name)
		return nil
	}
	s.data[name] = maps.Clone(data)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}
