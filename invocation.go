package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Event is one entry of an invocation's log: a user message, a model turn,
// or a batch of tool results.
type Event struct {
	ID              string
	InvocationID    string
	Author          string
	Role            string
	Text            string
	FunctionCalls   []models.FunctionCall
	FunctionResults []models.FunctionResult
	Timestamp       time.Time
}

// State is the session state shared by every agent in one invocation.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState copies initial into a fresh State.
func NewState(initial map[string]any) *State {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &State{values: values}
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Snapshot returns a copy of all values.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Invocation carries per-turn context through an agent tree.
type Invocation struct {
	ID        string
	AppName   string
	UserID    string
	SessionID string
	State     *State

	// Depth is 0 for the root agent and grows by one per agent-as-tool hop.
	Depth int

	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

// NewInvocation starts an invocation over the given state.
func NewInvocation(appName, userID, sessionID string, state *State) *Invocation {
	if state == nil {
		state = NewState(nil)
	}
	return &Invocation{
		ID:        "e-" + uuid.NewString(),
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
		State:     state,
		now:       time.Now,
	}
}

// Child returns an invocation that shares state but keeps its own log.
func (inv *Invocation) Child() *Invocation {
	child := NewInvocation(inv.AppName, inv.UserID, inv.SessionID, inv.State)
	child.Depth = inv.Depth + 1
	return child
}

// Record appends ev, filling in its id, invocation id and timestamp.
func (inv *Invocation) Record(ev Event) Event {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.InvocationID = inv.ID
	if ev.Timestamp.IsZero() {
		now := inv.now
		if now == nil {
			now = time.Now
		}
		ev.Timestamp = now()
	}
	inv.events = append(inv.events, ev)
	return ev
}

// Events returns the log in recording order.
func (inv *Invocation) Events() []Event {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]Event(nil), inv.events...)
}
