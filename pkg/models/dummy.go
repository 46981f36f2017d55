package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyModel is a lightweight model useful for running the server offline.
type DummyModel struct {
	Prefix string
}

func NewDummyModel(prefix string) *DummyModel {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyModel{Prefix: prefix}
}

// Generate echoes the last non-empty line of the prompt that is not the
// trailing "Assistant:" cue.
func (d *DummyModel) Generate(_ context.Context, prompt string) (string, error) {
	lines := strings.Split(prompt, "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if candidate != "" && candidate != "Assistant:" {
			last = strings.TrimPrefix(candidate, "User: ")
			break
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	return fmt.Sprintf("%s %s", d.Prefix, last), nil
}

var _ TextModel = (*DummyModel)(nil)
