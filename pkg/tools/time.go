package tools

import (
	"context"
	"time"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

// Clock returns the current time. Tools read the system-local clock unless
// a Clock is injected.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// SeasonForMonth maps a calendar month to its northern-hemisphere season.
func SeasonForMonth(m time.Month) string {
	switch {
	case m >= time.March && m <= time.May:
		return "Spring"
	case m >= time.June && m <= time.August:
		return "Summer"
	case m >= time.September && m <= time.November:
		return "Autumn"
	default:
		return "Winter"
	}
}

// SeasonTool reports the current season.
type SeasonTool struct {
	Clock Clock
}

func (t *SeasonTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "get_current_season",
		Description: "Returns the current season (Spring, Summer, Autumn, Winter).",
		Parameters:  &models.Schema{Type: "object"},
	}
}

func (t *SeasonTool) Invoke(context.Context, agent.ToolRequest) (agent.ToolResponse, error) {
	return agent.ToolResponse{Result: map[string]any{"result": SeasonForMonth(t.Clock.now().Month())}}, nil
}

// MonthDayTool reports the current month and day for seasonal planning.
type MonthDayTool struct {
	Clock Clock
}

func (t *MonthDayTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "get_current_month_day",
		Description: "Returns the current month and day to use for seasonal planning. The result has a 'status' key and, on success, a 'report' key with the month and day.",
		Parameters:  &models.Schema{Type: "object"},
	}
}

func (t *MonthDayTool) Invoke(context.Context, agent.ToolRequest) (agent.ToolResponse, error) {
	report := "The current month and day are " + t.Clock.now().Format("January 02")
	return agent.ToolResponse{Result: map[string]any{"status": "success", "report": report}}, nil
}

var (
	_ agent.Tool = (*SeasonTool)(nil)
	_ agent.Tool = (*MonthDayTool)(nil)
)
