package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
)

const defaultMaxSteps = 12

// ErrMaxSteps is returned when the model keeps calling tools past the step
// budget of a single run.
var ErrMaxSteps = errors.New("agent exceeded its step budget")

// Agent is an immutable descriptor: a hosted model, an instruction, and the
// tools the model may call.
type Agent struct {
	name        string
	description string
	instruction string
	outputKey   string
	maxSteps    int

	model   models.ChatModel
	catalog ToolCatalog
	hooks   hooks
	logger  *slog.Logger
}

// Options configure a new Agent.
type Options struct {
	Name        string
	Description string
	// Instruction is used verbatim as the system instruction after
	// {key} placeholders are rendered from session state.
	Instruction string
	// OutputKey, when set, receives the agent's final text in session state.
	OutputKey string
	Model     models.ChatModel
	Tools     []Tool
	Callbacks Callbacks
	MaxSteps  int
	Logger    *slog.Logger
}

// New creates an Agent. Any missing or invalid dependency is an error; New
// never returns a partially configured agent.
func New(opts Options) (*Agent, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, errors.New("agent requires a name")
	}
	if !toolNamePattern.MatchString(name) {
		return nil, fmt.Errorf("agent name %q must be a valid identifier", name)
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("agent %s requires a language model", name)
	}

	if len(opts.Tools) > 0 && !models.SupportsFunctions(opts.Model) {
		return nil, fmt.Errorf("agent %s: model %s: %w", name, opts.Model.Name(), models.ErrToolsUnsupported)
	}

	catalog := NewStaticToolCatalog()
	for i, tool := range opts.Tools {
		if tool == nil {
			return nil, fmt.Errorf("agent %s: tool %d is nil", name, i)
		}
		if err := catalog.Register(tool); err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("agent", name)

	return &Agent{
		name:        name,
		description: strings.TrimSpace(opts.Description),
		instruction: opts.Instruction,
		outputKey:   strings.TrimSpace(opts.OutputKey),
		maxSteps:    maxSteps,
		model:       opts.Model,
		catalog:     catalog,
		hooks:       hooks{cb: opts.Callbacks, logger: logger},
		logger:      logger,
	}, nil
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Description() string { return a.description }
func (a *Agent) Instruction() string { return a.instruction }
func (a *Agent) OutputKey() string   { return a.outputKey }
func (a *Agent) Model() string       { return a.model.Name() }

// Tools returns the registered tools in registration order.
func (a *Agent) Tools() []Tool {
	return a.catalog.Tools()
}

// ToolSpecs returns the registered tool specifications in registration order.
func (a *Agent) ToolSpecs() []ToolSpec {
	return a.catalog.Specs()
}

// AsTool wraps the agent so another agent's model can call it.
func (a *Agent) AsTool() (Tool, error) {
	return NewAgentTool(a)
}

// Run drives one conversation with the model: send input, dispatch every
// function call the model makes, feed results back, and stop at the first
// reply without calls.
func (a *Agent) Run(ctx context.Context, inv *Invocation, input string) (output string, err error) {
	if inv == nil {
		inv = NewInvocation("", "", "", nil)
	}
	cc := &CallbackContext{Invocation: inv, AgentName: a.name, Model: a.model.Name()}

	a.hooks.beforeAgent(ctx, cc, input)
	defer func() { a.hooks.afterAgent(ctx, cc, output, err) }()

	instruction, err := RenderInstruction(a.instruction, inv.State)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", a.name, err)
	}

	chat, err := a.model.StartChat(ctx, models.ChatConfig{
		SystemInstruction: instruction,
		Functions:         a.declarations(),
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: start chat: %w", a.name, err)
	}

	req := ModelRequest{Step: 1, SystemInstruction: instruction, Input: input}
	turn, err := a.callModel(ctx, cc, req, func() (models.Turn, error) {
		return chat.Send(ctx, input)
	})

	for step := 1; ; step++ {
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, err)
		}
		inv.Record(Event{Author: a.name, Role: RoleModel, Text: turn.Text, FunctionCalls: turn.Calls})
		if len(turn.Calls) == 0 {
			break
		}
		if step >= a.maxSteps {
			return "", fmt.Errorf("agent %s: %w (%d)", a.name, ErrMaxSteps, a.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, err)
		}

		results, dispatchErr := a.dispatch(ctx, cc, turn.Calls)
		if dispatchErr != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, dispatchErr)
		}
		inv.Record(Event{Author: a.name, Role: RoleUser, FunctionResults: results})

		req = ModelRequest{Step: step + 1, SystemInstruction: instruction, Results: results}
		turn, err = a.callModel(ctx, cc, req, func() (models.Turn, error) {
			return chat.SendResults(ctx, results)
		})
	}

	output = strings.TrimSpace(turn.Text)
	if a.outputKey != "" {
		inv.State.Set(a.outputKey, output)
	}
	return output, nil
}

func (a *Agent) callModel(ctx context.Context, cc *CallbackContext, req ModelRequest, call func() (models.Turn, error)) (models.Turn, error) {
	a.hooks.beforeModel(ctx, cc, req)
	turn, err := call()
	a.hooks.afterModel(ctx, cc, turn, err)
	return turn, err
}

// dispatch runs calls in the order the model issued them. Unknown tools and
// argument errors are reported to the model; any other tool error aborts.
func (a *Agent) dispatch(ctx context.Context, cc *CallbackContext, calls []models.FunctionCall) ([]models.FunctionResult, error) {
	results := make([]models.FunctionResult, 0, len(calls))
	for _, call := range calls {
		a.hooks.beforeTool(ctx, cc, call)

		tool, spec, ok := a.catalog.Lookup(call.Name)
		if !ok {
			result := errorRecord(fmt.Sprintf("unknown tool: %s", call.Name))
			a.hooks.afterTool(ctx, cc, call, result, nil)
			results = append(results, models.FunctionResult{Name: call.Name, Response: result})
			continue
		}

		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		resp, err := tool.Invoke(ctx, ToolRequest{Invocation: cc.Invocation, Arguments: args})
		switch {
		case errors.Is(err, ErrInvalidArguments):
			a.logger.DebugContext(ctx, "tool rejected arguments", "tool", spec.Name, "err", err)
			resp.Result = errorRecord(err.Error())
		case err != nil:
			a.hooks.afterTool(ctx, cc, call, nil, err)
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
		if resp.Result == nil {
			resp.Result = map[string]any{}
		}
		a.hooks.afterTool(ctx, cc, call, resp.Result, nil)
		results = append(results, models.FunctionResult{Name: spec.Name, Response: resp.Result})
	}
	return results, nil
}

func (a *Agent) declarations() []models.FunctionDeclaration {
	specs := a.catalog.Specs()
	if len(specs) == 0 {
		return nil
	}
	decls := make([]models.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, models.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		})
	}
	return decls
}

func errorRecord(msg string) map[string]any {
	return map[string]any{"status": "error", "error_message": msg}
}
