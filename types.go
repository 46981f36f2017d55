package agent

import (
	"context"
	"errors"

	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// ErrInvalidArguments marks a tool failure caused by the model's arguments.
// The agent loop reports such failures back to the model instead of
// aborting the run.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ToolSpec describes how the agent should present a tool to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  *models.Schema `json:"parameters,omitempty"`
}

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	Invocation *Invocation
	Arguments  map[string]any
}

// ToolResponse is the structured record handed back to the model.
type ToolResponse struct {
	Result map[string]any
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// ToolCatalog exposes tool registration and lookup.
type ToolCatalog interface {
	Register(tool Tool) error
	Lookup(name string) (Tool, ToolSpec, bool)
	Specs() []ToolSpec
	Tools() []Tool
}
