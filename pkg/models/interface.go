package models

import (
	"context"
	"errors"
)

// ErrToolsUnsupported is returned when a chat is started with function
// declarations on a backend that cannot call functions.
var ErrToolsUnsupported = errors.New("model backend does not support function calling")

// TextModel is a plain prompt-in, text-out completion backend.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatModel opens multi-turn conversations with a hosted model.
type ChatModel interface {
	Name() string
	StartChat(ctx context.Context, cfg ChatConfig) (Chat, error)
}

// Chat is a single conversation. Implementations keep the history.
type Chat interface {
	Send(ctx context.Context, text string) (Turn, error)
	SendResults(ctx context.Context, results []FunctionResult) (Turn, error)
}

// ChatConfig is fixed for the lifetime of a Chat.
type ChatConfig struct {
	SystemInstruction string
	Functions         []FunctionDeclaration
}

// FunctionDeclaration advertises a callable function to the model.
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Schema is the subset of OpenAPI schema the hosted models accept.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// FunctionCall is a model request to run a declared function.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionResult answers a FunctionCall.
type FunctionResult struct {
	Name     string
	Response map[string]any
}

// Turn is one model reply: text, function calls, or both.
type Turn struct {
	Text  string
	Calls []FunctionCall
}

// SupportsFunctions reports whether m can call functions. Models opt out by
// implementing SupportsFunctions() bool.
func SupportsFunctions(m ChatModel) bool {
	if fc, ok := m.(interface{ SupportsFunctions() bool }); ok {
		return fc.SupportsFunctions()
	}
	return true
}
