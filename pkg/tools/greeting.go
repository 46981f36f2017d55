package tools

import (
	"context"
	"fmt"
	"strings"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/instructions"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// Farewell is the constant reply of the goodbye tool.
const Farewell = "Goodbye! Have a great day."

// Interview builds the greeting and intake questionnaire. An empty name
// yields the generic greeting.
func Interview(src instructions.Source, name string) (string, error) {
	if src == nil {
		src = instructions.Default
	}
	questions, err := src.Load(instructions.Interview)
	if err != nil {
		return "", err
	}
	greeting := "Hello there!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Hello, %s!", name)
	}
	return greeting + questions, nil
}

// InterviewTool greets the user and returns the intake questions.
type InterviewTool struct {
	Source instructions.Source
}

func (t *InterviewTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "interview",
		Description: "Provides a greeting and initial set of questions. If a name is provided, it will be used.",
		Parameters: &models.Schema{
			Type: "object",
			Properties: map[string]*models.Schema{
				"name": {Type: "string", Description: "The name of the person to greet. Optional."},
			},
		},
	}
}

func (t *InterviewTool) Invoke(_ context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	var name string
	if raw, ok := req.Arguments["name"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return agent.ToolResponse{}, fmt.Errorf("%w: 'name' must be a string", agent.ErrInvalidArguments)
		}
		name = s
	}
	text, err := Interview(t.Source, name)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	return agent.ToolResponse{Result: map[string]any{"result": text}}, nil
}

// GoodbyeTool concludes the conversation.
type GoodbyeTool struct{}

func (GoodbyeTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "say_goodbye",
		Description: "Provides a simple farewell message to conclude the conversation.",
		Parameters:  &models.Schema{Type: "object"},
	}
}

func (GoodbyeTool) Invoke(context.Context, agent.ToolRequest) (agent.ToolResponse, error) {
	return agent.ToolResponse{Result: map[string]any{"result": Farewell}}, nil
}

var (
	_ agent.Tool = (*InterviewTool)(nil)
	_ agent.Tool = GoodbyeTool{}
)
