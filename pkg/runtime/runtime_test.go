package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
	"github.com/Protocol-Lattice/diet-agent/pkg/session"
)

const app = "my-diet-assistant"

func rootLoader(model models.ChatModel, tools ...agent.Tool) AgentLoader {
	return func(context.Context) (*agent.Agent, error) {
		return agent.New(agent.Options{
			Name:        "personalized_diet_agent",
			Instruction: "Profile so far: {user_profile?}",
			Model:       model,
			Tools:       tools,
		})
	}
}

func newRuntime(t *testing.T, model models.ChatModel, tools ...agent.Tool) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), WithAppName(app), WithRootAgent(rootLoader(model, tools...)))
	if err != nil {
		t.Fatalf("runtime.New returned error: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func runRequest(session, text string) adkapi.RunRequest {
	return adkapi.RunRequest{AppName: app, UserID: "u1", SessionID: session, NewMessage: adkapi.UserText(text)}
}

func TestRuntimeNewValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, WithAppName(app)); err == nil {
		t.Fatalf("expected error when root agent is missing")
	}
	if _, err := New(ctx, WithRootAgent(rootLoader(models.NewScriptedModel("m")))); err == nil {
		t.Fatalf("expected error when app name is missing")
	}

	failingStore := func(context.Context, string) (session.Store, error) { return nil, errors.New("boom") }
	if _, err := New(ctx, WithAppName(app), WithRootAgent(rootLoader(models.NewScriptedModel("m"))), WithStoreFactory(failingStore)); err == nil {
		t.Fatalf("expected error when store factory fails")
	}

	failingAgent := func(context.Context) (*agent.Agent, error) { return nil, errors.New("no key") }
	if _, err := New(ctx, WithAppName(app), WithRootAgent(failingAgent)); err == nil {
		t.Fatalf("expected error when root agent fails to load")
	}
}

func TestRunPersistsStateAndEvents(t *testing.T) {
	profile := &subAgentTool{name: "interview_agent", key: "user_profile", value: "Ada, vegan"}
	model := models.NewScriptedModel("m",
		models.Step{Turn: models.Turn{Calls: []models.FunctionCall{{Name: "interview_agent", Args: map[string]any{"request": "hi"}}}}},
		models.Step{Turn: models.Turn{Text: "Nice to meet you, Ada!"}},
	)
	rt := newRuntime(t, model, profile)
	ctx := context.Background()
	key := session.Key{AppName: app, UserID: "u1", SessionID: "session-1"}
	if _, err := rt.CreateSession(ctx, key, nil); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	events, err := rt.Run(ctx, runRequest("session-1", "hello, I'm Ada"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected user, call, response and reply events, got %d", len(events))
	}
	if events[0].Content.Role != adkapi.RoleUser || events[0].Content.Parts[0].Text != "hello, I'm Ada" {
		t.Fatalf("unexpected first event: %+v", events[0].Content)
	}
	if events[1].Content.Parts[0].FunctionCall == nil || events[2].Content.Parts[0].FunctionResponse == nil {
		t.Fatalf("expected function call and response events")
	}
	if text, ok := adkapi.LastModelText(events); !ok || text != "Nice to meet you, Ada!" {
		t.Fatalf("unexpected reply %q", text)
	}

	stored, err := rt.GetSession(ctx, key)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if stored.State["user_profile"] != "Ada, vegan" {
		t.Fatalf("expected output key to be persisted, got %+v", stored.State)
	}
	if len(stored.Events) != 4 {
		t.Fatalf("expected events to be persisted, got %d", len(stored.Events))
	}
}

func TestRunRendersStateFromEarlierTurns(t *testing.T) {
	model := models.NewScriptedModel("m",
		models.Step{Turn: models.Turn{Text: "first"}},
		models.Step{Turn: models.Turn{Text: "second"}},
	)
	rt := newRuntime(t, model)
	ctx := context.Background()
	key := session.Key{AppName: app, UserID: "u1", SessionID: "s"}
	if _, err := rt.CreateSession(ctx, key, map[string]any{"user_profile": "keto"}); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if _, err := rt.Run(ctx, runRequest("s", "one")); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := model.Configs()[0].SystemInstruction; got != "Profile so far: keto" {
		t.Fatalf("unexpected instruction %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	model := models.NewScriptedModel("m", models.Step{Err: boom})
	rt := newRuntime(t, model)
	ctx := context.Background()

	if _, err := rt.Run(ctx, runRequest("missing", "hi")); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	bad := runRequest("s", "hi")
	bad.AppName = "other"
	if _, err := rt.Run(ctx, bad); !errors.Is(err, ErrUnknownApp) {
		t.Fatalf("expected ErrUnknownApp, got %v", err)
	}
	if _, err := rt.Run(ctx, runRequest("s", "   ")); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	key := session.Key{AppName: app, UserID: "u1", SessionID: "s"}
	if _, err := rt.CreateSession(ctx, key, nil); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if _, err := rt.Run(ctx, runRequest("s", "hi")); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	stored, _ := rt.GetSession(ctx, key)
	if len(stored.Events) != 0 {
		t.Fatalf("failed runs must not be persisted")
	}
}

func TestRunSerializesPerSession(t *testing.T) {
	steps := make([]models.Step, 8)
	for i := range steps {
		steps[i] = models.Step{Turn: models.Turn{Text: "ok"}}
	}
	rt := newRuntime(t, models.NewScriptedModel("m", steps...))
	ctx := context.Background()
	key := session.Key{AppName: app, UserID: "u1", SessionID: "s"}
	if _, err := rt.CreateSession(ctx, key, nil); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < len(steps); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rt.Run(ctx, runRequest("s", "hi")); err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := rt.GetSession(ctx, key)
	if len(stored.Events) != 2*len(steps) {
		t.Fatalf("expected every turn to be persisted, got %d events", len(stored.Events))
	}
	if n := len(rt.locks); n != 0 {
		t.Fatalf("expected session locks to be released, %d remain", n)
	}
}

func TestRunReleasesSessionLocks(t *testing.T) {
	steps := make([]models.Step, 5)
	for i := range steps {
		steps[i] = models.Step{Turn: models.Turn{Text: "ok"}}
	}
	rt := newRuntime(t, models.NewScriptedModel("m", steps...))
	ctx := context.Background()
	for i := range steps {
		id := fmt.Sprintf("session-%d", i)
		key := session.Key{AppName: app, UserID: "u1", SessionID: id}
		if _, err := rt.CreateSession(ctx, key, nil); err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		if _, err := rt.Run(ctx, runRequest(id, "hi")); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if err := rt.DeleteSession(ctx, key); err != nil {
			t.Fatalf("DeleteSession returned error: %v", err)
		}
	}
	if n := len(rt.locks); n != 0 {
		t.Fatalf("expected no session locks after the runs finished, %d remain", n)
	}
}

func TestConvertEventsOrdersParts(t *testing.T) {
	ev := agent.Event{
		Author:          "Dietwriter",
		Role:            agent.RoleModel,
		Text:            "checking the season",
		FunctionCalls:   []models.FunctionCall{{Name: "get_current_season"}},
		FunctionResults: nil,
	}
	out := ConvertEvents([]agent.Event{ev})
	parts := out[0].Content.Parts
	if len(parts) != 2 || parts[0].Text == "" || parts[1].FunctionCall.Name != "get_current_season" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if out[0].Author != "Dietwriter" || out[0].Content.Role != adkapi.RoleModel {
		t.Fatalf("unexpected event: %+v", out[0])
	}
}

// subAgentTool stands in for an agent-as-tool that writes an output key.
type subAgentTool struct {
	name, key, value string
}

func (s *subAgentTool) Spec() agent.ToolSpec { return agent.ToolSpec{Name: s.name} }
func (s *subAgentTool) Invoke(_ context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	req.Invocation.State.Set(s.key, s.value)
	return agent.ToolResponse{Result: map[string]any{"result": s.value}}, nil
}
