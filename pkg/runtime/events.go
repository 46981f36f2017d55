package runtime

import (
	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

// ConvertEvents maps invocation events to their wire form. Text comes
// first, then function calls, then function responses.
func ConvertEvents(events []agent.Event) []adkapi.Event {
	out := make([]adkapi.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, convertEvent(ev))
	}
	return out
}

func convertEvent(ev agent.Event) adkapi.Event {
	parts := make([]adkapi.Part, 0, 1+len(ev.FunctionCalls)+len(ev.FunctionResults))
	if ev.Text != "" {
		parts = append(parts, adkapi.Part{Text: ev.Text})
	}
	for _, c := range ev.FunctionCalls {
		parts = append(parts, adkapi.Part{FunctionCall: &adkapi.FunctionCall{Name: c.Name, Args: c.Args}})
	}
	for _, r := range ev.FunctionResults {
		parts = append(parts, adkapi.Part{FunctionResponse: &adkapi.FunctionResponse{Name: r.Name, Response: r.Response}})
	}
	return adkapi.Event{
		ID:           ev.ID,
		InvocationID: ev.InvocationID,
		Author:       ev.Author,
		Timestamp:    adkapi.EventTime(ev.Timestamp),
		Content:      &adkapi.Content{Role: ev.Role, Parts: parts},
	}
}
