package models

import (
	"context"
	"fmt"
	"strings"
)

// TextChatModel adapts a TextModel to ChatModel by replaying the transcript
// into every prompt. It cannot call functions.
type TextChatModel struct {
	model TextModel
	name  string
}

func NewTextChatModel(name string, model TextModel) *TextChatModel {
	return &TextChatModel{model: model, name: name}
}

func (m *TextChatModel) Name() string { return m.name }

func (m *TextChatModel) SupportsFunctions() bool { return false }

func (m *TextChatModel) StartChat(_ context.Context, cfg ChatConfig) (Chat, error) {
	if len(cfg.Functions) > 0 {
		return nil, fmt.Errorf("%s: %w", m.name, ErrToolsUnsupported)
	}
	return &textChat{model: m.model, system: strings.TrimSpace(cfg.SystemInstruction)}, nil
}

type textChat struct {
	model      TextModel
	system     string
	transcript []string
}

func (c *textChat) Send(ctx context.Context, text string) (Turn, error) {
	c.transcript = append(c.transcript, "User: "+strings.TrimSpace(text))

	var sb strings.Builder
	if c.system != "" {
		sb.WriteString(c.system)
		sb.WriteString("\n\n")
	}
	sb.WriteString(strings.Join(c.transcript, "\n"))
	sb.WriteString("\nAssistant:")

	out, err := c.model.Generate(ctx, sb.String())
	if err != nil {
		return Turn{}, err
	}
	c.transcript = append(c.transcript, "Assistant: "+strings.TrimSpace(out))
	return Turn{Text: out}, nil
}

func (c *textChat) SendResults(context.Context, []FunctionResult) (Turn, error) {
	return Turn{}, ErrToolsUnsupported
}

var _ ChatModel = (*TextChatModel)(nil)
