// Package adkapi defines the JSON shapes exchanged with an agent-serving
// HTTP API: sessions, run requests and the events a run produces.
package adkapi

import "time"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Part is one piece of content. Exactly one field is set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// UserText builds a single-part user message.
func UserText(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

type Event struct {
	ID           string   `json:"id"`
	InvocationID string   `json:"invocationId"`
	Author       string   `json:"author"`
	Timestamp    float64  `json:"timestamp"`
	Content      *Content `json:"content,omitempty"`
}

// EventTime converts t to the fractional Unix seconds used in Event.
func EventTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	AppName    string  `json:"app_name"`
	UserID     string  `json:"user_id"`
	SessionID  string  `json:"session_id"`
	NewMessage Content `json:"new_message"`
	Streaming  bool    `json:"streaming,omitempty"`
}

// CreateSessionRequest is the optional body of a session creation call.
type CreateSessionRequest struct {
	State map[string]any `json:"state,omitempty"`
}

type Session struct {
	ID             string         `json:"id"`
	AppName        string         `json:"appName"`
	UserID         string         `json:"userId"`
	State          map[string]any `json:"state"`
	Events         []Event        `json:"events"`
	LastUpdateTime float64        `json:"lastUpdateTime"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LastModelText returns the text of the last model-authored event whose
// first part carries text. Earlier model texts are superseded.
func LastModelText(events []Event) (string, bool) {
	var (
		text  string
		found bool
	)
	for _, ev := range events {
		if ev.Content == nil || ev.Content.Role != RoleModel || len(ev.Content.Parts) == 0 {
			continue
		}
		if t := ev.Content.Parts[0].Text; t != "" {
			text, found = t, true
		}
	}
	return text, found
}
