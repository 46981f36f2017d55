// Package chat is a terminal client for the diet agent API. It creates a
// session, sends one blocking request per user turn and renders the final
// model text.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
)

var (
	ErrEncodeRequest  = errors.New("encode request")
	ErrDecodeResponse = errors.New("decode response")
	ErrReadResponse   = errors.New("read response")
	ErrTimeout        = errors.New("request timed out")
	ErrConnection     = errors.New("connection failed")
	ErrNoResponse     = errors.New("no model text in response")
)

// RequestError is returned for any non-200 reply.
type RequestError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	reason := http.StatusText(e.StatusCode)
	if reason == "" {
		reason = "unknown status"
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("request failed: status=%d (%s)", e.StatusCode, reason)
	}
	return fmt.Sprintf("request failed: status=%d (%s) body=%s", e.StatusCode, reason, body)
}

// Client talks to the agent API for a single application.
type Client struct {
	baseURL    string
	appName    string
	httpClient *http.Client
}

func NewClient(baseURL, appName string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("new client: base URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("new client: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("new client: base URL must include scheme and host")
	}
	if strings.TrimSpace(appName) == "" {
		return nil, fmt.Errorf("new client: app name is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		appName:    appName,
		httpClient: httpClient,
	}, nil
}

func (c *Client) AppName() string { return c.appName }

// CreateSession registers sessionID for userID with an empty state.
func (c *Client) CreateSession(ctx context.Context, userID, sessionID string) (adkapi.Session, error) {
	path := fmt.Sprintf("/apps/%s/users/%s/sessions/%s",
		url.PathEscape(c.appName), url.PathEscape(userID), url.PathEscape(sessionID))

	var out adkapi.Session
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &out); err != nil {
		return adkapi.Session{}, err
	}
	return out, nil
}

// Run sends text as a new user message and returns every event the run
// produced.
func (c *Client) Run(ctx context.Context, userID, sessionID, text string) ([]adkapi.Event, error) {
	req := adkapi.RunRequest{
		AppName:    c.appName,
		UserID:     userID,
		SessionID:  sessionID,
		NewMessage: adkapi.UserText(text),
	}
	var events []adkapi.Event
	if err := c.doJSON(ctx, http.MethodPost, "/run", req, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var encoded bytes.Buffer
	if err := json.NewEncoder(&encoded).Encode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &encoded)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyRead(err)
	}
	if resp.StatusCode != http.StatusOK {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}
	return nil
}

func classifyTransport(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

func classifyRead(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrReadResponse, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
