package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/cache"
	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, num int64) ([]SearchResult, error)
}

// CustomSearch queries the Google Custom Search JSON API.
type CustomSearch struct {
	service  *customsearch.Service
	engineID string
}

// NewCustomSearch creates a client for the programmable search engine
// identified by engineID. Extra options (endpoint, HTTP client) are passed
// through to the API client.
func NewCustomSearch(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*CustomSearch, error) {
	if strings.TrimSpace(engineID) == "" {
		return nil, errors.New("custom search: engine id is required")
	}
	if strings.TrimSpace(apiKey) != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}
	return &CustomSearch{service: svc, engineID: engineID}, nil
}

func (c *CustomSearch) Search(ctx context.Context, query string, num int64) ([]SearchResult, error) {
	res, err := c.service.Cse.List().Cx(c.engineID).Q(query).Num(num).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil {
			continue
		}
		out = append(out, SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return out, nil
}

// SearchTool exposes a Searcher to the model as google_search. Results are
// cached per query; failures are reported to the model as error records.
type SearchTool struct {
	searcher Searcher
	cache    *cache.LRU[[]SearchResult]
	logger   *slog.Logger
}

// SearchOption configures a SearchTool.
type SearchOption func(*SearchTool)

// WithSearchCache sets the result cache size and lifetime.
func WithSearchCache(capacity int, ttl time.Duration) SearchOption {
	return func(t *SearchTool) { t.cache = cache.New[[]SearchResult](capacity, ttl) }
}

func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(t *SearchTool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewSearchTool(searcher Searcher, opts ...SearchOption) (*SearchTool, error) {
	if searcher == nil {
		return nil, errors.New("search tool: searcher is nil")
	}
	t := &SearchTool{
		searcher: searcher,
		cache:    cache.New[[]SearchResult](128, 10*time.Minute),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *SearchTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "google_search",
		Description: "Searches the web with Google and returns the top results with title, link and snippet.",
		Parameters: &models.Schema{
			Type: "object",
			Properties: map[string]*models.Schema{
				"query": {Type: "string", Description: "The search query."},
				"num":   {Type: "integer", Description: "Number of results to return, 1 to 10. Defaults to 5."},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	query, _ := req.Arguments["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return agent.ToolResponse{}, fmt.Errorf("%w: missing 'query'", agent.ErrInvalidArguments)
	}
	num := searchCount(req.Arguments["num"])

	key := cache.Key(query, fmt.Sprint(num))
	if hits, ok := t.cache.Get(key); ok {
		t.logger.DebugContext(ctx, "search cache hit", "query", query)
		return agent.ToolResponse{Result: searchRecord(hits)}, nil
	}

	hits, err := t.searcher.Search(ctx, query, num)
	if err != nil {
		if ctx.Err() != nil {
			return agent.ToolResponse{}, ctx.Err()
		}
		t.logger.WarnContext(ctx, "search failed", "query", query, "err", err)
		return agent.ToolResponse{Result: map[string]any{
			"status":        "error",
			"error_message": fmt.Sprintf("search failed: %v", err),
		}}, nil
	}
	t.cache.Set(key, hits)
	return agent.ToolResponse{Result: searchRecord(hits)}, nil
}

func searchCount(raw any) int64 {
	var n int64
	switch v := raw.(type) {
	case float64:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	}
	switch {
	case n <= 0:
		return defaultSearchResults
	case n > maxSearchResults:
		return maxSearchResults
	}
	return n
}

func searchRecord(hits []SearchResult) map[string]any {
	results := make([]any, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]any{"title": h.Title, "link": h.Link, "snippet": h.Snippet})
	}
	return map[string]any{"status": "success", "results": results}
}

var _ agent.Tool = (*SearchTool)(nil)

// DisabledSearch is used when no search engine is configured. Every search
// fails, which the model sees as an error record.
type DisabledSearch struct{}

func (DisabledSearch) Search(context.Context, string, int64) ([]SearchResult, error) {
	return nil, errors.New("web search is not configured")
}
