package session

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	key := Key{AppName: "my-diet-assistant", UserID: "ada@example.com-1", SessionID: "session-1700000000"}

	created, err := store.Create(ctx, key, map[string]any{"locale": "en"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.SessionID != key.SessionID || created.State["locale"] != "en" {
		t.Fatalf("unexpected session: %+v", created)
	}
	if _, err := store.Create(ctx, key, nil); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	created.State["user_profile"] = "vegan, 30"
	created.Events = append(created.Events, adkapi.Event{
		ID:      "ev-1",
		Author:  "personalized_diet_agent",
		Content: &adkapi.Content{Role: adkapi.RoleModel, Parts: []adkapi.Part{{Text: "Hello there!"}}},
	})
	if err := store.Save(ctx, created); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.State["user_profile"] != "vegan, 30" || len(got.Events) != 1 {
		t.Fatalf("expected saved state and events, got %+v", got)
	}
	if text, _ := adkapi.LastModelText(got.Events); text != "Hello there!" {
		t.Fatalf("unexpected event text %q", text)
	}

	generated, err := store.Create(ctx, Key{AppName: key.AppName, UserID: key.UserID}, nil)
	if err != nil {
		t.Fatalf("Create without id returned error: %v", err)
	}
	if generated.SessionID == "" {
		t.Fatalf("expected a generated session id")
	}

	list, err := store.List(ctx, key.AppName, key.UserID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Save(ctx, created); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving a deleted session, got %v", err)
	}
	if err := store.Delete(ctx, generated.Key); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	key := Key{AppName: "app", UserID: "u", SessionID: "s"}
	s, _ := store.Create(context.Background(), key, nil)
	s.State["leak"] = true

	got, _ := store.Get(context.Background(), key)
	if _, ok := got.State["leak"]; ok {
		t.Fatalf("mutating a returned session must not change the store")
	}
}

func TestCreateValidatesKey(t *testing.T) {
	if _, err := NewMemoryStore().Create(context.Background(), Key{SessionID: "s"}, nil); err == nil {
		t.Fatalf("expected error for missing app and user")
	}
}

func TestWireDefaultsToEmptyCollections(t *testing.T) {
	w := (&Session{Key: Key{AppName: "a", UserID: "u", SessionID: "s"}}).Wire()
	if w.State == nil || w.Events == nil {
		t.Fatalf("expected non-nil state and events: %+v", w)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DIET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DIET_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore returned error: %v", err)
	}
	defer store.Close()
	if _, err := store.DB.Exec(ctx, `DELETE FROM diet_sessions WHERE app_name = 'my-diet-assistant'`); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	exerciseStore(t, store)
}
