package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

// NewGeminiClient opens a Gemini API client. An empty apiKey falls back to
// GOOGLE_API_KEY and then GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return client, nil
}

// GeminiModel is a ChatModel with native function calling.
type GeminiModel struct {
	Client *genai.Client
	Model  string
}

func NewGeminiModel(client *genai.Client, model string) *GeminiModel {
	return &GeminiModel{Client: client, Model: model}
}

func (g *GeminiModel) Name() string { return g.Model }

func (g *GeminiModel) StartChat(_ context.Context, cfg ChatConfig) (Chat, error) {
	if g.Client == nil {
		return nil, errors.New("gemini: client is nil")
	}
	model := g.Client.GenerativeModel(g.Model)
	if instr := strings.TrimSpace(cfg.SystemInstruction); instr != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instr)}}
	}
	if len(cfg.Functions) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(cfg.Functions))
		for _, fn := range cfg.Functions {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  toGeminiSchema(fn.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &geminiChat{session: model.StartChat()}, nil
}

type geminiChat struct {
	session *genai.ChatSession
}

func (c *geminiChat) Send(ctx context.Context, text string) (Turn, error) {
	return c.send(ctx, genai.Text(text))
}

func (c *geminiChat) SendResults(ctx context.Context, results []FunctionResult) (Turn, error) {
	if len(results) == 0 {
		return Turn{}, errors.New("gemini: no function results to send")
	}
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
	}
	return c.send(ctx, parts...)
}

func (c *geminiChat) send(ctx context.Context, parts ...genai.Part) (Turn, error) {
	resp, err := c.session.SendMessage(ctx, parts...)
	if err != nil {
		return Turn{}, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Turn{}, errors.New("gemini: empty response")
	}

	var (
		turn Turn
		text strings.Builder
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			turn.Calls = append(turn.Calls, FunctionCall{Name: p.Name, Args: p.Args})
		}
	}
	turn.Text = text.String()
	return turn, nil
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        geminiType(s.Type),
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
		Items:       toGeminiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	return out
}

func geminiType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

var _ ChatModel = (*GeminiModel)(nil)
