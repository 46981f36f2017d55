package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

func TestNewAgentToolRequiresDescription(t *testing.T) {
	a, _ := New(Options{Name: "farewell_agent", Model: models.NewScriptedModel("m")})
	if _, err := NewAgentTool(a); err == nil {
		t.Fatalf("expected error for missing description")
	}
	if _, err := NewAgentTool(nil); err == nil {
		t.Fatalf("expected error for nil agent")
	}
}

func TestAgentToolSpecAndInvoke(t *testing.T) {
	model := models.NewScriptedModel("m", models.Step{Turn: models.Turn{Text: "Goodbye!"}})
	sub, _ := New(Options{
		Name:        "farewell_agent",
		Description: "Handles simple farewells.",
		Model:       model,
		OutputKey:   "farewell",
	})
	tool, err := sub.AsTool()
	if err != nil {
		t.Fatalf("AsTool returned error: %v", err)
	}

	spec := tool.Spec()
	if spec.Name != "farewell_agent" || spec.Description != "Handles simple farewells." {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Parameters == nil || spec.Parameters.Properties["request"] == nil {
		t.Fatalf("expected a request parameter")
	}

	parent := NewInvocation("app", "u", "s", nil)
	resp, err := tool.Invoke(context.Background(), ToolRequest{
		Invocation: parent,
		Arguments:  map[string]any{"request": "bye"},
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if resp.Result["result"] != "Goodbye!" {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}
	if v, _ := parent.State.Get("farewell"); v != "Goodbye!" {
		t.Fatalf("expected sub-agent output key in shared state, got %v", v)
	}
	if len(parent.Events()) != 0 {
		t.Fatalf("sub-agent events must stay out of the caller's log")
	}
	if got := model.Inputs(); len(got) != 1 || got[0] != "bye" {
		t.Fatalf("unexpected sub-agent input: %v", got)
	}
}

func TestAgentToolRejectsMissingRequest(t *testing.T) {
	sub, _ := New(Options{Name: "helper", Description: "d", Model: models.NewScriptedModel("m")})
	tool, _ := NewAgentTool(sub)
	_, err := tool.Invoke(context.Background(), ToolRequest{Arguments: map[string]any{}})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestRootDelegatesThroughAgentTool(t *testing.T) {
	subModel := models.NewScriptedModel("sub", models.Step{Turn: models.Turn{Text: "oats and berries"}})
	writer, _ := New(Options{Name: "Dietwriter", Description: "Writes diets.", Model: subModel, OutputKey: "generated_diet"})
	writerTool, _ := writer.AsTool()

	rootModel := models.NewScriptedModel("root",
		models.Step{Turn: models.Turn{Calls: []models.FunctionCall{{Name: "Dietwriter", Args: map[string]any{"request": "vegan breakfast"}}}}},
		models.Step{Turn: models.Turn{Text: "Here is your plan: oats and berries"}},
	)
	root, err := New(Options{Name: "personalized_diet_agent", Model: rootModel, Tools: []Tool{writerTool}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	inv := NewInvocation("app", "u", "s", nil)
	out, err := root.Run(context.Background(), inv, "I want a vegan breakfast")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "Here is your plan: oats and berries" {
		t.Fatalf("unexpected output %q", out)
	}
	if v, _ := inv.State.Get("generated_diet"); v != "oats and berries" {
		t.Fatalf("expected generated_diet in state, got %v", v)
	}
	resp := rootModel.Results()[0][0]
	if resp.Name != "Dietwriter" || resp.Response["result"] != "oats and berries" {
		t.Fatalf("unexpected function result: %+v", resp)
	}
}
