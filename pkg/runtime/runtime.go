// Package runtime executes user turns against the root agent, keeping
// session state and event history in a session.Store.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
	"github.com/Protocol-Lattice/diet-agent/pkg/session"
)

var (
	// ErrSessionNotFound is returned by Run for unknown sessions.
	ErrSessionNotFound = session.ErrNotFound
	// ErrUnknownApp is returned when a request names another application.
	ErrUnknownApp = errors.New("unknown app")
	// ErrEmptyMessage is returned when the new message carries no text.
	ErrEmptyMessage = errors.New("new message has no text")
)

// AgentLoader constructs the root agent.
type AgentLoader func(ctx context.Context) (*agent.Agent, error)

// StoreFactory creates the session store. An empty dsn selects the
// in-memory store.
type StoreFactory func(ctx context.Context, dsn string) (session.Store, error)

// Option configures runtime construction.
type Option func(*config)

type config struct {
	appName      string
	dsn          string
	rootAgent    AgentLoader
	storeFactory StoreFactory
	runTimeout   time.Duration
	logger       *slog.Logger
}

func defaultConfig() *config {
	return &config{storeFactory: defaultStoreFactory}
}

func (c *config) validate() error {
	if strings.TrimSpace(c.appName) == "" {
		return errors.New("runtime requires an app name")
	}
	if c.rootAgent == nil {
		return errors.New("runtime requires a root agent loader")
	}
	return nil
}

func defaultStoreFactory(ctx context.Context, dsn string) (session.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return session.NewMemoryStore(), nil
	}
	return session.NewPostgresStore(ctx, dsn)
}

// WithAppName sets the application name sessions are scoped to.
func WithAppName(name string) Option {
	return func(c *config) {
		c.appName = strings.TrimSpace(name)
	}
}

// WithDSN configures the Postgres connection string for the default store
// factory.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = strings.TrimSpace(dsn)
	}
}

// WithRootAgent sets the loader responsible for constructing the root agent.
func WithRootAgent(loader AgentLoader) Option {
	return func(c *config) {
		c.rootAgent = loader
	}
}

// WithStoreFactory supplies a custom session store factory.
func WithStoreFactory(factory StoreFactory) Option {
	return func(c *config) {
		if factory != nil {
			c.storeFactory = factory
		}
	}
}

// WithRunTimeout bounds each run. Zero means no bound beyond the caller's
// context.
func WithRunTimeout(d time.Duration) Option {
	return func(c *config) {
		c.runTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Runtime binds a root agent to a session store.
type Runtime struct {
	appName    string
	root       *agent.Agent
	store      session.Store
	runTimeout time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[session.Key]*sessionLock
}

// New builds a runtime based on the supplied configuration options.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	store, err := cfg.storeFactory(ctx, cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	root, err := cfg.rootAgent(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load root agent: %w", err)
	}
	if root == nil {
		store.Close()
		return nil, errors.New("load root agent: loader returned nil")
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Runtime{
		appName:    cfg.appName,
		root:       root,
		store:      store,
		runTimeout: cfg.runTimeout,
		logger:     logger,
		locks:      make(map[session.Key]*sessionLock),
	}, nil
}

func (rt *Runtime) AppName() string { return rt.appName }

// Agent exposes the root agent.
func (rt *Runtime) Agent() *agent.Agent { return rt.root }

// Close releases the session store.
func (rt *Runtime) Close() error { return rt.store.Close() }

func (rt *Runtime) checkApp(appName string) error {
	if appName != rt.appName {
		return fmt.Errorf("%w: %s", ErrUnknownApp, appName)
	}
	return nil
}

// CreateSession provisions a session. If key.SessionID is empty a unique
// identifier is generated.
func (rt *Runtime) CreateSession(ctx context.Context, key session.Key, state map[string]any) (*session.Session, error) {
	if err := rt.checkApp(key.AppName); err != nil {
		return nil, err
	}
	s, err := rt.store.Create(ctx, key, state)
	if err != nil {
		return nil, err
	}
	rt.logger.InfoContext(ctx, "session created", "app", key.AppName, "user", key.UserID, "session", s.SessionID)
	return s, nil
}

func (rt *Runtime) GetSession(ctx context.Context, key session.Key) (*session.Session, error) {
	if err := rt.checkApp(key.AppName); err != nil {
		return nil, err
	}
	return rt.store.Get(ctx, key)
}

func (rt *Runtime) ListSessions(ctx context.Context, appName, userID string) ([]*session.Session, error) {
	if err := rt.checkApp(appName); err != nil {
		return nil, err
	}
	return rt.store.List(ctx, appName, userID)
}

func (rt *Runtime) DeleteSession(ctx context.Context, key session.Key) error {
	if err := rt.checkApp(key.AppName); err != nil {
		return err
	}
	return rt.store.Delete(ctx, key)
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes runs on one session so sub-agent state writes from
// concurrent turns do not interleave. The entry is dropped once no run
// holds or waits on it.
func (rt *Runtime) lock(key session.Key) func() {
	rt.mu.Lock()
	l, ok := rt.locks[key]
	if !ok {
		l = &sessionLock{}
		rt.locks[key] = l
	}
	l.refs++
	rt.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		rt.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(rt.locks, key)
		}
		rt.mu.Unlock()
	}
}

// Run executes one user turn and returns the events it produced. State and
// events are persisted only when the run succeeds.
func (rt *Runtime) Run(ctx context.Context, req adkapi.RunRequest) ([]adkapi.Event, error) {
	if err := rt.checkApp(req.AppName); err != nil {
		return nil, err
	}
	text := messageText(req.NewMessage)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	key := session.Key{AppName: req.AppName, UserID: req.UserID, SessionID: req.SessionID}
	unlock := rt.lock(key)
	defer unlock()

	sess, err := rt.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if rt.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.runTimeout)
		defer cancel()
	}

	state := agent.NewState(sess.State)
	inv := agent.NewInvocation(key.AppName, key.UserID, key.SessionID, state)
	inv.Record(agent.Event{Author: agent.RoleUser, Role: agent.RoleUser, Text: text})

	start := time.Now()
	if _, err := rt.root.Run(ctx, inv, text); err != nil {
		rt.logger.WarnContext(ctx, "run failed", "session", key.SessionID, "err", err, "elapsed", time.Since(start))
		return nil, err
	}

	events := ConvertEvents(inv.Events())
	sess.State = state.Snapshot()
	sess.Events = append(sess.Events, events...)
	if err := rt.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	rt.logger.InfoContext(ctx, "run complete", "session", key.SessionID, "events", len(events), "elapsed", time.Since(start))
	return events, nil
}

func messageText(c adkapi.Content) string {
	var parts []string
	for _, p := range c.Parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
