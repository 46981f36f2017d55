package tracing

import (
	"context"
	"log/slog"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

const logPreview = 200

// LogSink writes lifecycle events as structured log records. Starts are
// logged at debug level, completions at info, failures at warn.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "trace")}
}

func (s *LogSink) attrs(cc *agent.CallbackContext) []any {
	if cc == nil {
		return nil
	}
	out := []any{"agent", cc.AgentName, "model", cc.Model, "invocation", invocationID(cc)}
	if cc.Invocation != nil {
		out = append(out, "session", cc.Invocation.SessionID, "depth", cc.Invocation.Depth)
	}
	return out
}

func (s *LogSink) AgentStart(ctx context.Context, cc *agent.CallbackContext, input string) {
	s.logger.DebugContext(ctx, "agent start", append(s.attrs(cc), "input", truncate(input, logPreview))...)
}

func (s *LogSink) AgentEnd(ctx context.Context, cc *agent.CallbackContext, output string, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "agent failed", append(s.attrs(cc), "err", err)...)
		return
	}
	s.logger.InfoContext(ctx, "agent done", append(s.attrs(cc), "output_length", len(output))...)
}

func (s *LogSink) ModelStart(ctx context.Context, cc *agent.CallbackContext, req agent.ModelRequest) {
	s.logger.DebugContext(ctx, "model call", append(s.attrs(cc), "step", req.Step, "results", len(req.Results))...)
}

func (s *LogSink) ModelEnd(ctx context.Context, cc *agent.CallbackContext, turn models.Turn, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "model call failed", append(s.attrs(cc), "err", err)...)
		return
	}
	s.logger.DebugContext(ctx, "model reply", append(s.attrs(cc),
		"content", truncate(turn.Text, logPreview),
		"tool_calls", callNames(turn.Calls),
	)...)
}

func (s *LogSink) ToolStart(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall) {
	s.logger.DebugContext(ctx, "tool call", append(s.attrs(cc), "tool", call.Name, "args", call.Args)...)
}

func (s *LogSink) ToolEnd(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall, result map[string]any, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "tool failed", append(s.attrs(cc), "tool", call.Name, "err", err)...)
		return
	}
	attrs := append(s.attrs(cc), "tool", call.Name)
	if status, ok := result["status"]; ok {
		attrs = append(attrs, "status", status)
	}
	s.logger.InfoContext(ctx, "tool done", attrs...)
}

var _ Sink = (*LogSink)(nil)
