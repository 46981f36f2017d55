package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// AgentTool adapts an Agent to the Tool interface. The wrapped agent runs in
// a child invocation: it shares session state with the caller but its model
// turns stay out of the caller's event log.
type AgentTool struct {
	agent *Agent
}

// NewAgentTool wraps agent. The agent's description becomes the tool
// description the calling model chooses by, so it must not be empty.
func NewAgentTool(agent *Agent) (*AgentTool, error) {
	if agent == nil {
		return nil, errors.New("agent tool: agent is nil")
	}
	if agent.Description() == "" {
		return nil, fmt.Errorf("agent tool %s: description is required", agent.Name())
	}
	return &AgentTool{agent: agent}, nil
}

func (t *AgentTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        t.agent.Name(),
		Description: t.agent.Description(),
		Parameters: &models.Schema{
			Type: "object",
			Properties: map[string]*models.Schema{
				"request": {
					Type:        "string",
					Description: "The instruction or query for the sub-agent.",
				},
			},
			Required: []string{"request"},
		},
	}
}

func (t *AgentTool) Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error) {
	request, ok := req.Arguments["request"].(string)
	if !ok || strings.TrimSpace(request) == "" {
		return ToolResponse{}, fmt.Errorf("%w: missing or invalid 'request'", ErrInvalidArguments)
	}

	var child *Invocation
	if req.Invocation != nil {
		child = req.Invocation.Child()
	}

	result, err := t.agent.Run(ctx, child, request)
	if err != nil {
		return ToolResponse{}, err
	}
	return ToolResponse{Result: map[string]any{"result": result}}, nil
}

// Agent returns the wrapped agent.
func (t *AgentTool) Agent() *Agent { return t.agent }

var _ Tool = (*AgentTool)(nil)
