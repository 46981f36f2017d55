package agent

import (
	"context"
	"log/slog"

	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// CallbackContext identifies where in the tree a callback fires.
type CallbackContext struct {
	Invocation *Invocation
	AgentName  string
	Model      string
}

// ModelRequest describes one call to the hosted model.
type ModelRequest struct {
	Step              int
	SystemInstruction string
	Input             string
	Results           []models.FunctionResult
}

// Callbacks are the six lifecycle slots of an agent. Every slot is optional.
// Callbacks observe only: their effects never reach the agent's control
// flow, and a panicking callback is recovered and logged.
type Callbacks struct {
	BeforeAgent func(ctx context.Context, cc *CallbackContext, input string)
	AfterAgent  func(ctx context.Context, cc *CallbackContext, output string, err error)
	BeforeModel func(ctx context.Context, cc *CallbackContext, req ModelRequest)
	AfterModel  func(ctx context.Context, cc *CallbackContext, turn models.Turn, err error)
	BeforeTool  func(ctx context.Context, cc *CallbackContext, call models.FunctionCall)
	AfterTool   func(ctx context.Context, cc *CallbackContext, call models.FunctionCall, result map[string]any, err error)
}

// hooks runs Callbacks with panic isolation.
type hooks struct {
	cb     Callbacks
	logger *slog.Logger
}

func (h hooks) guard(ctx context.Context, slot string, cc *CallbackContext, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WarnContext(ctx, "callback panicked", "slot", slot, "agent", cc.AgentName, "panic", r)
		}
	}()
	fn()
}

func (h hooks) beforeAgent(ctx context.Context, cc *CallbackContext, input string) {
	if h.cb.BeforeAgent == nil {
		return
	}
	h.guard(ctx, "before_agent", cc, func() { h.cb.BeforeAgent(ctx, cc, input) })
}

func (h hooks) afterAgent(ctx context.Context, cc *CallbackContext, output string, err error) {
	if h.cb.AfterAgent == nil {
		return
	}
	h.guard(ctx, "after_agent", cc, func() { h.cb.AfterAgent(ctx, cc, output, err) })
}

func (h hooks) beforeModel(ctx context.Context, cc *CallbackContext, req ModelRequest) {
	if h.cb.BeforeModel == nil {
		return
	}
	h.guard(ctx, "before_model", cc, func() { h.cb.BeforeModel(ctx, cc, req) })
}

func (h hooks) afterModel(ctx context.Context, cc *CallbackContext, turn models.Turn, err error) {
	if h.cb.AfterModel == nil {
		return
	}
	h.guard(ctx, "after_model", cc, func() { h.cb.AfterModel(ctx, cc, turn, err) })
}

func (h hooks) beforeTool(ctx context.Context, cc *CallbackContext, call models.FunctionCall) {
	if h.cb.BeforeTool == nil {
		return
	}
	h.guard(ctx, "before_tool", cc, func() { h.cb.BeforeTool(ctx, cc, call) })
}

func (h hooks) afterTool(ctx context.Context, cc *CallbackContext, call models.FunctionCall, result map[string]any, err error) {
	if h.cb.AfterTool == nil {
		return
	}
	h.guard(ctx, "after_tool", cc, func() { h.cb.AfterTool(ctx, cc, call, result, err) })
}
