package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// InstrumentationName identifies spans emitted by OTelSink.
const InstrumentationName = "github.com/Protocol-Lattice/diet-agent/pkg/tracing"

// OTelSink records one span per agent run, model call and tool call. Model
// and tool spans are children of the agent span of the same invocation.
// Callbacks cannot hand a context back to the agent loop, so open spans are
// tracked by invocation and agent name.
type OTelSink struct {
	tracer trace.Tracer

	mu   sync.Mutex
	open map[string]trace.Span
}

// NewOTelSink uses tracer, or the global provider's tracer when nil.
func NewOTelSink(tracer trace.Tracer) *OTelSink {
	if tracer == nil {
		tracer = otel.Tracer(InstrumentationName)
	}
	return &OTelSink{tracer: tracer, open: make(map[string]trace.Span)}
}

func spanKey(cc *agent.CallbackContext, kind, name string) string {
	agentName := ""
	if cc != nil {
		agentName = cc.AgentName
	}
	return fmt.Sprintf("%s|%s|%s|%s", invocationID(cc), agentName, kind, name)
}

func (s *OTelSink) start(ctx context.Context, key, parentKey, spanName string, attrs ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentKey != "" {
		if parent, ok := s.open[parentKey]; ok {
			ctx = trace.ContextWithSpan(ctx, parent)
		}
	}
	_, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	s.open[key] = span
}

func (s *OTelSink) end(key string, err error, attrs ...attribute.KeyValue) {
	s.mu.Lock()
	span, ok := s.open[key]
	delete(s.open, key)
	s.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func baseAttrs(cc *agent.CallbackContext) []attribute.KeyValue {
	if cc == nil {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.String("agent.name", cc.AgentName),
		attribute.String("agent.model", cc.Model),
	}
	if cc.Invocation != nil {
		attrs = append(attrs,
			attribute.String("invocation.id", cc.Invocation.ID),
			attribute.String("session.id", cc.Invocation.SessionID),
			attribute.String("user.id", cc.Invocation.UserID),
			attribute.Int("agent.depth", cc.Invocation.Depth),
		)
	}
	return attrs
}

func (s *OTelSink) AgentStart(ctx context.Context, cc *agent.CallbackContext, input string) {
	s.start(ctx, spanKey(cc, "agent", ""), "", "agent.run",
		append(baseAttrs(cc), attribute.Int("input.length", len(input)))...)
}

func (s *OTelSink) AgentEnd(_ context.Context, cc *agent.CallbackContext, output string, err error) {
	s.end(spanKey(cc, "agent", ""), err, attribute.Int("output.length", len(output)))
}

func (s *OTelSink) ModelStart(ctx context.Context, cc *agent.CallbackContext, req agent.ModelRequest) {
	s.start(ctx, spanKey(cc, "model", ""), spanKey(cc, "agent", ""), "llm.call",
		append(baseAttrs(cc),
			attribute.Int("llm.step", req.Step),
			attribute.Int("llm.function_results", len(req.Results)),
		)...)
}

func (s *OTelSink) ModelEnd(_ context.Context, cc *agent.CallbackContext, turn models.Turn, err error) {
	s.end(spanKey(cc, "model", ""), err,
		attribute.Int("llm.content_length", len(turn.Text)),
		attribute.StringSlice("llm.tool_calls", callNames(turn.Calls)),
	)
}

func (s *OTelSink) ToolStart(ctx context.Context, cc *agent.CallbackContext, call models.FunctionCall) {
	s.start(ctx, spanKey(cc, "tool", call.Name), spanKey(cc, "agent", ""), "tool.call",
		append(baseAttrs(cc), attribute.String("tool.name", call.Name))...)
}

func (s *OTelSink) ToolEnd(_ context.Context, cc *agent.CallbackContext, call models.FunctionCall, result map[string]any, err error) {
	var attrs []attribute.KeyValue
	if status, ok := result["status"].(string); ok {
		attrs = append(attrs, attribute.String("tool.status", status))
	}
	s.end(spanKey(cc, "tool", call.Name), err, attrs...)
}

var _ Sink = (*OTelSink)(nil)
