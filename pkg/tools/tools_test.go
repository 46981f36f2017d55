package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	agent "github.com/Protocol-Lattice/diet-agent"
)

type staticSource map[string]string

func (s staticSource) Load(name string) (string, error) {
	text, ok := s[name]
	if !ok {
		return "", fmt.Errorf("no template %s", name)
	}
	return text, nil
}

func fixedClock(year int, month time.Month, day int) Clock {
	return func() time.Time { return time.Date(year, month, day, 9, 30, 0, 0, time.Local) }
}

func TestSeasonForMonth(t *testing.T) {
	want := map[time.Month]string{
		time.January: "Winter", time.February: "Winter", time.March: "Spring",
		time.April: "Spring", time.May: "Spring", time.June: "Summer",
		time.July: "Summer", time.August: "Summer", time.September: "Autumn",
		time.October: "Autumn", time.November: "Autumn", time.December: "Winter",
	}
	for m := time.January; m <= time.December; m++ {
		if got := SeasonForMonth(m); got != want[m] {
			t.Fatalf("month %s: got %s want %s", m, got, want[m])
		}
	}
}

func TestSeasonToolUsesClock(t *testing.T) {
	tool := &SeasonTool{Clock: fixedClock(2025, time.October, 3)}
	resp, err := tool.Invoke(context.Background(), agent.ToolRequest{})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if resp.Result["result"] != "Autumn" {
		t.Fatalf("unexpected season: %+v", resp.Result)
	}
}

func TestMonthDayTool(t *testing.T) {
	tool := &MonthDayTool{Clock: fixedClock(2025, time.January, 2)}
	resp, err := tool.Invoke(context.Background(), agent.ToolRequest{})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if resp.Result["status"] != "success" {
		t.Fatalf("expected success status: %+v", resp.Result)
	}
	if resp.Result["report"] != "The current month and day are January 02" {
		t.Fatalf("unexpected report: %v", resp.Result["report"])
	}
}

func TestInterviewGreeting(t *testing.T) {
	src := staticSource{"diet_interview_instruction.txt": " Tell me about yourself."}

	generic, err := Interview(src, "")
	if err != nil {
		t.Fatalf("Interview returned error: %v", err)
	}
	if generic != "Hello there! Tell me about yourself." {
		t.Fatalf("unexpected generic greeting: %q", generic)
	}

	blank, err := Interview(src, "   ")
	if err != nil {
		t.Fatalf("Interview returned error: %v", err)
	}
	if blank != generic {
		t.Fatalf("whitespace-only name should get the generic greeting, got %q", blank)
	}

	named, err := Interview(src, "Ada")
	if err != nil {
		t.Fatalf("Interview returned error: %v", err)
	}
	if !strings.HasPrefix(named, "Hello, Ada!") || !strings.HasSuffix(named, "Tell me about yourself.") {
		t.Fatalf("unexpected named greeting: %q", named)
	}
}

func TestInterviewToolWithEmbeddedTemplate(t *testing.T) {
	tool := &InterviewTool{}
	resp, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{"name": "Ada"}})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	text, _ := resp.Result["result"].(string)
	if !strings.HasPrefix(text, "Hello, Ada!") || len(text) <= len("Hello, Ada!") {
		t.Fatalf("unexpected interview text: %q", text)
	}

	_, err = tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{"name": 42.0}})
	if !errors.Is(err, agent.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestInterviewMissingTemplate(t *testing.T) {
	if _, err := Interview(staticSource{}, "Ada"); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestGoodbyeToolIsConstant(t *testing.T) {
	for i := 0; i < 3; i++ {
		resp, err := GoodbyeTool{}.Invoke(context.Background(), agent.ToolRequest{})
		if err != nil {
			t.Fatalf("Invoke returned error: %v", err)
		}
		if resp.Result["result"] != "Goodbye! Have a great day." {
			t.Fatalf("unexpected farewell: %v", resp.Result["result"])
		}
	}
}

type countingSearcher struct {
	calls int
	hits  []SearchResult
	err   error
}

func (s *countingSearcher) Search(_ context.Context, _ string, _ int64) ([]SearchResult, error) {
	s.calls++
	return s.hits, s.err
}

func TestSearchToolCachesResults(t *testing.T) {
	searcher := &countingSearcher{hits: []SearchResult{{Title: "Kale", Link: "https://example.com/kale", Snippet: "in season"}}}
	tool, err := NewSearchTool(searcher, WithSearchCache(8, time.Minute))
	if err != nil {
		t.Fatalf("NewSearchTool returned error: %v", err)
	}

	for _, q := range []string{"winter produce", "  Winter Produce "} {
		resp, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{"query": q}})
		if err != nil {
			t.Fatalf("Invoke returned error: %v", err)
		}
		results, _ := resp.Result["results"].([]any)
		if resp.Result["status"] != "success" || len(results) != 1 {
			t.Fatalf("unexpected result: %+v", resp.Result)
		}
	}
	if searcher.calls != 1 {
		t.Fatalf("expected one backend call, got %d", searcher.calls)
	}
}

func TestSearchToolReportsFailures(t *testing.T) {
	tool, _ := NewSearchTool(&countingSearcher{err: errors.New("quota exceeded")})
	resp, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{"query": "oats"}})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if resp.Result["status"] != "error" || !strings.Contains(resp.Result["error_message"].(string), "quota exceeded") {
		t.Fatalf("unexpected error record: %+v", resp.Result)
	}

	_, err = tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{}})
	if !errors.Is(err, agent.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestSearchCount(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{nil, 5}, {0.0, 5}, {3.0, 3}, {25.0, 10}, {7, 7}, {"x", 5},
	}
	for _, tc := range tests {
		if got := searchCount(tc.in); got != tc.want {
			t.Fatalf("searchCount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCustomSearchCallsAPI(t *testing.T) {
	var gotQuery, gotCx string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotCx = r.URL.Query().Get("cx")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"title":"Seasonal produce","link":"https://example.com","snippet":"Squash and kale"}]}`)
	}))
	defer srv.Close()

	cs, err := NewCustomSearch(context.Background(), "", "engine-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewCustomSearch returned error: %v", err)
	}
	hits, err := cs.Search(context.Background(), "winter vegetables", 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if gotQuery != "winter vegetables" || gotCx != "engine-1" {
		t.Fatalf("unexpected request q=%q cx=%q", gotQuery, gotCx)
	}
	if len(hits) != 1 || hits[0].Title != "Seasonal produce" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestNewCustomSearchRequiresEngine(t *testing.T) {
	if _, err := NewCustomSearch(context.Background(), "key", " "); err == nil {
		t.Fatalf("expected error for missing engine id")
	}
}
