package session

import (
	"context"
	"fmt"
)

type sessionImpl struct {
	id    string
	ctx   context.Context
	data  map[string]string
	dirty bool
	store IStore
}

// NewSession 建立 session，資料會在第一次 Load 時才從 store 讀取
func NewSession(ctx context.Context, id string, store IStore) ISession {
	if ctx == nil {
		ctx = context.Background()
	}
	return &sessionImpl{
		id:    id,
		ctx:   ctx,
		store: store,
	}
}

func (s *sessionImpl) ID() string {
	return s.id
}

func (s *sessionImpl) Load() error {
	const op = "session.Load"
	if s.data != nil {
		return nil
	}
	data, err := s.store.Load(s.ctx, s.id)
	if err != nil {
		return fmt.Errorf("[%s] Fail to load session, err=%w", op, err)
	}
	if data == nil {
		data = make(map[string]string)
	}
	s.data = data
	return nil
}

func (s *sessionImpl) Get(key string) string {
	return s.data[key]
}

func (s *sessionImpl) Set(key, value string) {
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.data[key] = value
	s.dirty = true
}

func (s *sessionImpl) Delete(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.dirty = true
	}
}

// Pop 取出並刪除 key，用於只能使用一次的值，例如 OAuth state
func (s *sessionImpl) Pop(key string) string {
	v := s.Get(key)
	s.Delete(key)
	return v
}

func (s *sessionImpl) Clear() {
	s.data = make(map[string]string)
	s.dirty = true
}

func (s *sessionImpl) Dirty() bool {
	return s.dirty
}

// Save 只有在資料被修改過時才寫入 store
func (s *sessionImpl) Save() error {
	const op = "session.Save"
	if !s.dirty {
		return nil
	}
	if err := s.store.Save(s.ctx, s.id, s.data); err != nil {
		return fmt.Errorf("[%s] Fail to save session, err=%w", op, err)
	}
	s.dirty = false
	return nil
}

// Destroy 從 store 移除整個 session
func (s *sessionImpl) Destroy() error {
	const op = "session.Destroy"
	if err := s.store.Delete(s.ctx, s.id); err != nil {
		return fmt.Errorf("[%s] Fail to delete session, err=%w", op, err)
	}
	s.data = make(map[string]string)
	s.dirty = false
	return nil
}
