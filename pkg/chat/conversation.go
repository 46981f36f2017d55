package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

var (
	ErrNoSession     = errors.New("no active session")
	ErrTurnInFlight  = errors.New("a message is already awaiting a response")
	ErrEmptyInput    = errors.New("message is empty")
	ErrSessionCreate = errors.New("create session")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Phase int

const (
	PhaseNoSession Phase = iota
	PhaseSessionActive
	PhaseAwaitingResponse
)

func (p Phase) String() string {
	switch p {
	case PhaseNoSession:
		return "no-session"
	case PhaseSessionActive:
		return "session-active"
	case PhaseAwaitingResponse:
		return "awaiting-response"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// SessionError reports a failed session creation. Detail is the raw
// response body when the server answered.
type SessionError struct {
	Detail string
	Err    error
}

func (e *SessionError) Error() string { return msgCreateFailed + e.Detail }

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) Is(target error) bool { return target == ErrSessionCreate }

type Message struct {
	Role    string
	Content string
}

// Backend is the part of *Client a Conversation needs.
type Backend interface {
	CreateSession(ctx context.Context, userID, sessionID string) (adkapi.Session, error)
	Run(ctx context.Context, userID, sessionID, text string) ([]adkapi.Event, error)
}

// UserID scopes a user's sessions to this client instance.
func UserID(email string) string {
	return email + "-" + uuid.NewString()
}

// SessionID derives a session id from the wall clock at second resolution.
func SessionID(now time.Time) string {
	return fmt.Sprintf("session-%d", now.Unix())
}

type ConversationOption func(*Conversation)

func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) ConversationOption {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Conversation holds one user's chat history and the active session.
// Only one turn may be outstanding at a time.
type Conversation struct {
	backend Backend
	userID  string
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	phase     Phase
	creating  bool
	sessionID string
	history   []Message
}

func NewConversation(backend Backend, userID string, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		backend: backend,
		userID:  userID,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conversation) UserID() string { return c.userID }

func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history...)
}

// LastReply returns the most recent assistant turn that is not a warning.
func (c *Conversation) LastReply() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.history) - 1; i >= 0; i-- {
		m := c.history[i]
		if m.Role == RoleAssistant && m.Content != "" && !IsWarning(m.Content) {
			return m.Content, true
		}
	}
	return "", false
}

// NewSession creates a fresh session and clears the history. On failure
// the previous session, if any, stays active. Sends and other session
// switches are refused with ErrTurnInFlight until it returns.
func (c *Conversation) NewSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.creating || c.phase == PhaseAwaitingResponse {
		c.mu.Unlock()
		return "", ErrTurnInFlight
	}
	c.creating = true
	c.mu.Unlock()

	id := SessionID(c.now())
	_, err := c.backend.CreateSession(ctx, c.userID, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.creating = false
	if err != nil {
		c.logger.Warn("session create failed", "session", id, "err", err)
		detail := err.Error()
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			detail = string(reqErr.Body)
		}
		return "", &SessionError{Detail: detail, Err: err}
	}

	c.sessionID = id
	c.history = nil
	c.phase = PhaseSessionActive
	c.logger.Info("session created", "session", id, "user", c.userID)
	return id, nil
}

// Send submits one user turn and blocks until it resolves. The returned
// message is the assistant turn appended to the history; when the turn
// failed it carries the warning text and err describes the cause.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return Message{}, ErrTurnInFlight
	}
	switch c.phase {
	case PhaseNoSession:
		c.mu.Unlock()
		return Message{}, ErrNoSession
	case PhaseAwaitingResponse:
		c.mu.Unlock()
		return Message{}, ErrTurnInFlight
	}
	c.phase = PhaseAwaitingResponse
	sessionID := c.sessionID
	c.history = append(c.history, Message{Role: RoleUser, Content: text})
	c.mu.Unlock()

	reply, err := c.turn(ctx, sessionID, text)
	var msg Message
	if err != nil {
		c.logger.Warn("turn failed", "session", sessionID, "err", err)
		msg = Message{Role: RoleAssistant, Content: WarningPrefix + Describe(err)}
	} else {
		msg = Message{Role: RoleAssistant, Content: reply}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, msg)
	c.phase = PhaseSessionActive
	return msg, err
}

func (c *Conversation) turn(ctx context.Context, sessionID, text string) (string, error) {
	events, err := c.backend.Run(ctx, c.userID, sessionID, text)
	if err != nil {
		return "", err
	}
	reply, ok := adkapi.LastModelText(events)
	if !ok {
		return "", ErrNoResponse
	}
	return reply, nil
}
