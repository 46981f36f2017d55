// Package tracing turns agent lifecycle callbacks into telemetry. One Sink
// is attached uniformly to every agent through Profile.
package tracing

import (
	"context"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// Sink receives every lifecycle event of every agent it is attached to.
// Implementations must be safe for concurrent use.
type Sink interface {
	AgentStart(ctx context.Context, cc *agent.CallbackContext, input string)
	AgentEnd(ctx context.Context, cc *agent.CallbackContext, output string, err error)
	ModelStart(ctx context.Context, cc *agent.CallbackContext, req agent.ModelRequest)
	ModelEnd(ctx context.Context, cc *agent.CallbackContext, turn models.Turn, err error)
	ToolStart(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall)
	ToolEnd(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall, result map[string]any, err error)
}

// Profile fills all six callback slots from sink. A nil sink yields empty
// callbacks.
func Profile(sink Sink) agent.Callbacks {
	if sink == nil {
		return agent.Callbacks{}
	}
	return agent.Callbacks{
		BeforeAgent: sink.AgentStart,
		AfterAgent:  sink.AgentEnd,
		BeforeModel: sink.ModelStart,
		AfterModel:  sink.ModelEnd,
		BeforeTool:  sink.ToolStart,
		AfterTool:   sink.ToolEnd,
	}
}

type multi []Sink

// Multi fans every event out to sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) AgentStart(ctx context.Context, cc *agent.CallbackContext, input string) {
	for _, s := range m {
		s.AgentStart(ctx, cc, input)
	}
}

func (m multi) AgentEnd(ctx context.Context, cc *agent.CallbackContext, output string, err error) {
	for _, s := range m {
		s.AgentEnd(ctx, cc, output, err)
	}
}

func (m multi) ModelStart(ctx context.Context, cc *agent.CallbackContext, req agent.ModelRequest) {
	for _, s := range m {
		s.ModelStart(ctx, cc, req)
	}
}

func (m multi) ModelEnd(ctx context.Context, cc *agent.CallbackContext, turn models.Turn, err error) {
	for _, s := range m {
		s.ModelEnd(ctx, cc, turn, err)
	}
}

func (m multi) ToolStart(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall) {
	for _, s := range m {
		s.ToolStart(ctx, cc, call)
	}
}

func (m multi) ToolEnd(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall, result map[string]any, err error) {
	for _, s := range m {
		s.ToolEnd(ctx, cc, call, result, err)
	}
}

// truncate caps s at n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

func callNames(calls []models.FunctionCall) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

func invocationID(cc *agent.CallbackContext) string {
	if cc == nil || cc.Invocation == nil {
		return ""
	}
	return cc.Invocation.ID
}
