package models

import (
	"context"
	"fmt"
	"sync"
)

// Step configures one model turn in a scripted sequence.
type Step struct {
	Turn Turn
	Err  error
}

// ScriptedModel is a deterministic ChatModel for tests. All chats started
// from one ScriptedModel consume the same step queue in call order.
type ScriptedModel struct {
	name string

	mu      sync.Mutex
	index   int
	steps   []Step
	configs []ChatConfig
	inputs  []string
	results [][]FunctionResult
}

func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	cloned := make([]Step, len(steps))
	copy(cloned, steps)
	return &ScriptedModel{name: name, steps: cloned}
}

func (m *ScriptedModel) Name() string { return m.name }

func (m *ScriptedModel) StartChat(_ context.Context, cfg ChatConfig) (Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, cfg)
	return &scriptedChat{model: m}, nil
}

// Configs returns the configuration of every chat started so far.
func (m *ScriptedModel) Configs() []ChatConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatConfig(nil), m.configs...)
}

// Inputs returns the user texts sent so far.
func (m *ScriptedModel) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

// Results returns the function result batches sent so far.
func (m *ScriptedModel) Results() [][]FunctionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]FunctionResult(nil), m.results...)
}

func (m *ScriptedModel) next() (Turn, error) {
	if m.index >= len(m.steps) {
		return Turn{}, fmt.Errorf("%s: script exhausted at step %d", m.name, m.index+1)
	}
	current := m.steps[m.index]
	m.index++
	if current.Err != nil {
		return Turn{}, current.Err
	}
	return current.Turn, nil
}

type scriptedChat struct {
	model *ScriptedModel
}

func (c *scriptedChat) Send(_ context.Context, text string) (Turn, error) {
	c.model.mu.Lock()
	defer c.model.mu.Unlock()
	c.model.inputs = append(c.model.inputs, text)
	return c.model.next()
}

func (c *scriptedChat) SendResults(_ context.Context, results []FunctionResult) (Turn, error) {
	c.model.mu.Lock()
	defer c.model.mu.Unlock()
	c.model.results = append(c.model.results, append([]FunctionResult(nil), results...))
	return c.model.next()
}

var _ ChatModel = (*ScriptedModel)(nil)
