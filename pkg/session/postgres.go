package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

const schema = `
CREATE TABLE IF NOT EXISTS diet_sessions (
    app_name    TEXT        NOT NULL,
    user_id     TEXT        NOT NULL,
    session_id  TEXT        NOT NULL,
    state       JSONB       NOT NULL DEFAULT '{}'::jsonb,
    events      JSONB       NOT NULL DEFAULT '[]'::jsonb,
    update_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (app_name, user_id, session_id)
);`

// PostgresStore persists sessions in a single Postgres table, with state
// and events stored as JSONB.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the sessions table
// exists.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &PostgresStore{DB: db}
	if err := ps.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := ps.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Create(ctx context.Context, key Key, state map[string]any) (*Session, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	key.SessionID = strings.TrimSpace(key.SessionID)
	if key.SessionID == "" {
		key.SessionID = newID()
	}
	if state == nil {
		state = map[string]any{}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("session: encode state: %w", err)
	}

	var updated time.Time
	err = ps.DB.QueryRow(ctx, `
        INSERT INTO diet_sessions (app_name, user_id, session_id, state)
        VALUES ($1, $2, $3, $4::jsonb)
        ON CONFLICT DO NOTHING
        RETURNING update_time;
        `, key.AppName, key.UserID, key.SessionID, string(stateJSON)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrExists, key.SessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("session: insert: %w", err)
	}
	return &Session{Key: key, State: state, LastUpdateTime: updated}, nil
}

func (ps *PostgresStore) Get(ctx context.Context, key Key) (*Session, error) {
	row := ps.DB.QueryRow(ctx, `
        SELECT state, events, update_time
        FROM diet_sessions
        WHERE app_name = $1 AND user_id = $2 AND session_id = $3;
        `, key.AppName, key.UserID, key.SessionID)
	s, err := scanSession(key, row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key.SessionID)
	}
	return s, err
}

func (ps *PostgresStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	stateJSON, err := json.Marshal(nonNilState(s.State))
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	eventsJSON, err := json.Marshal(nonNilEvents(s.Events))
	if err != nil {
		return fmt.Errorf("session: encode events: %w", err)
	}
	err = ps.DB.QueryRow(ctx, `
        UPDATE diet_sessions
        SET state = $4::jsonb, events = $5::jsonb, update_time = now()
        WHERE app_name = $1 AND user_id = $2 AND session_id = $3
        RETURNING update_time;
        `, s.AppName, s.UserID, s.SessionID, string(stateJSON), string(eventsJSON)).Scan(&s.LastUpdateTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, s.SessionID)
	}
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	return nil
}

func (ps *PostgresStore) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	rows, err := ps.DB.Query(ctx, `
        SELECT session_id, state, events, update_time
        FROM diet_sessions
        WHERE app_name = $1 AND user_id = $2
        ORDER BY session_id;
        `, appName, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var id string
		var stateJSON, eventsJSON []byte
		var updated time.Time
		if err := rows.Scan(&id, &stateJSON, &eventsJSON, &updated); err != nil {
			return nil, err
		}
		s, err := decodeSession(Key{AppName: appName, UserID: userID, SessionID: id}, stateJSON, eventsJSON, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Delete(ctx context.Context, key Key) error {
	tag, err := ps.DB.Exec(ctx, `
        DELETE FROM diet_sessions
        WHERE app_name = $1 AND user_id = $2 AND session_id = $3;
        `, key.AppName, key.UserID, key.SessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key.SessionID)
	}
	return nil
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

func scanSession(key Key, row pgx.Row) (*Session, error) {
	var stateJSON, eventsJSON []byte
	var updated time.Time
	if err := row.Scan(&stateJSON, &eventsJSON, &updated); err != nil {
		return nil, err
	}
	return decodeSession(key, stateJSON, eventsJSON, updated)
}

func decodeSession(key Key, stateJSON, eventsJSON []byte, updated time.Time) (*Session, error) {
	s := &Session{Key: key, LastUpdateTime: updated}
	if err := json.Unmarshal(stateJSON, &s.State); err != nil {
		return nil, fmt.Errorf("session: decode state: %w", err)
	}
	if err := json.Unmarshal(eventsJSON, &s.Events); err != nil {
		return nil, fmt.Errorf("session: decode events: %w", err)
	}
	return s, nil
}

func nonNilState(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilEvents(e []adkapi.Event) []adkapi.Event {
	if e == nil {
		return []adkapi.Event{}
	}
	return e
}

var _ Store = (*PostgresStore)(nil)
