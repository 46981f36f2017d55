package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[Key]*Session), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, key Key, state map[string]any) (*Session, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	key.SessionID = strings.TrimSpace(key.SessionID)
	if key.SessionID == "" {
		key.SessionID = newID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, key.SessionID)
	}
	s := &Session{Key: key, LastUpdateTime: m.now()}
	s.State = make(map[string]any, len(state))
	for k, v := range state {
		s.State[k] = v
	}
	m.sessions[key] = s
	return s.clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key.SessionID)
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, s.SessionID)
	}
	stored := s.clone()
	stored.LastUpdateTime = m.now()
	m.sessions[s.Key] = stored
	s.LastUpdateTime = stored.LastUpdateTime
	return nil
}

// List returns the user's sessions ordered by id.
func (m *MemoryStore) List(_ context.Context, appName, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for key, s := range m.sessions {
		if key.AppName == appName && key.UserID == userID {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key.SessionID)
	}
	delete(m.sessions, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
