// Package session stores conversation sessions: per-user state shared by
// the agent tree and the events of every run.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// Key addresses one session.
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

func (k Key) validate() error {
	if strings.TrimSpace(k.AppName) == "" || strings.TrimSpace(k.UserID) == "" {
		return errors.New("session: app name and user id are required")
	}
	return nil
}

type Session struct {
	Key
	State          map[string]any
	Events         []adkapi.Event
	LastUpdateTime time.Time
}

// Wire converts the session to its API representation.
func (s *Session) Wire() adkapi.Session {
	state := s.State
	if state == nil {
		state = map[string]any{}
	}
	events := s.Events
	if events == nil {
		events = []adkapi.Event{}
	}
	return adkapi.Session{
		ID:             s.SessionID,
		AppName:        s.AppName,
		UserID:         s.UserID,
		State:          state,
		Events:         events,
		LastUpdateTime: adkapi.EventTime(s.LastUpdateTime),
	}
}

func (s *Session) clone() *Session {
	out := &Session{Key: s.Key, LastUpdateTime: s.LastUpdateTime}
	out.State = make(map[string]any, len(s.State))
	for k, v := range s.State {
		out.State[k] = v
	}
	out.Events = append([]adkapi.Event(nil), s.Events...)
	return out
}

// Store persists sessions. Returned sessions are copies; changes take
// effect only through Save.
type Store interface {
	// Create registers a new session. An empty SessionID is replaced with
	// a generated one; an existing id yields ErrExists.
	Create(ctx context.Context, key Key, state map[string]any) (*Session, error)
	Get(ctx context.Context, key Key) (*Session, error)
	// Save replaces the state and events of an existing session.
	Save(ctx context.Context, s *Session) error
	List(ctx context.Context, appName, userID string) ([]*Session, error)
	Delete(ctx context.Context, key Key) error
	Close() error
}

func newID() string { return uuid.NewString() }
