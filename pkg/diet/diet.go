// Package diet assembles the personalized diet agent tree: a root router
// that delegates to specialist agents exposed to it as tools.
package diet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	agent "github.com/Protocol-Lattice/diet-agent"
	"github.com/Protocol-Lattice/diet-agent/pkg/instructions"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
	"github.com/Protocol-Lattice/diet-agent/pkg/tools"
)

// Agent names. The root model selects sub-agents by these names.
const (
	InterviewAgent = "interview_agent"
	FarewellAgent  = "farewell_agent"
	SearchAgent    = "SearchAgent"
	DietWriter     = "Dietwriter"
	PromoScout     = "GroceryPromoScout"
	Shopper        = "GroceryShopper"
	Formatter      = "MarkdownFormatter"
	Root           = "personalized_diet_agent"
)

// Session state keys written by the sub-agents.
const (
	KeyUserProfile   = "user_profile"
	KeyGeneratedDiet = "generated_diet"
	KeyPromos        = "generated_promos"
	KeyFinalPlan     = "final_diet_plan"
)

// ModelIDs names the model of every agent as "[provider:]model".
type ModelIDs struct {
	Interview string `yaml:"interview"`
	Farewell  string `yaml:"farewell"`
	Search    string `yaml:"search"`
	Writer    string `yaml:"writer"`
	Scout     string `yaml:"scout"`
	Shopper   string `yaml:"shopper"`
	Formatter string `yaml:"formatter"`
	Root      string `yaml:"root"`
}

// DefaultModelIDs returns the stock model assignment.
func DefaultModelIDs() ModelIDs {
	const flash = "gemini-2.0-flash-001"
	return ModelIDs{
		Interview: flash,
		Farewell:  flash,
		Search:    "gemini-2.0-flash-exp",
		Writer:    flash,
		Scout:     flash,
		Shopper:   flash,
		Formatter: flash,
		Root:      flash,
	}
}

// withDefaults fills empty ids from DefaultModelIDs.
func (m ModelIDs) withDefaults() ModelIDs {
	d := DefaultModelIDs()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Interview, d.Interview)
	fill(&m.Farewell, d.Farewell)
	fill(&m.Search, d.Search)
	fill(&m.Writer, d.Writer)
	fill(&m.Scout, d.Scout)
	fill(&m.Shopper, d.Shopper)
	fill(&m.Formatter, d.Formatter)
	fill(&m.Root, d.Root)
	return m
}

// ModelResolver turns a model identifier into a ChatModel.
// *models.Factory implements it.
type ModelResolver interface {
	ChatModel(ctx context.Context, identifier string) (models.ChatModel, error)
}

// Deps are the collaborators Build wires into the tree.
type Deps struct {
	Models       ModelResolver
	ModelIDs     ModelIDs
	Instructions instructions.Source
	Searcher     tools.Searcher
	// SearchCacheSize and SearchCacheTTL size the google_search result
	// cache. A zero size keeps the tool's default.
	SearchCacheSize int
	SearchCacheTTL  time.Duration
	// Callbacks is the instrumentation profile applied to every agent.
	Callbacks agent.Callbacks
	Clock     tools.Clock
	Logger    *slog.Logger
}

// Tree holds every constructed agent. Root is the entry point.
type Tree struct {
	Root      *agent.Agent
	Interview *agent.Agent
	Farewell  *agent.Agent
	Search    *agent.Agent
	Writer    *agent.Agent
	Scout     *agent.Agent
	Shopper   *agent.Agent
	Formatter *agent.Agent
}

// Agents lists the tree, root first.
func (t *Tree) Agents() []*agent.Agent {
	return []*agent.Agent{t.Root, t.Interview, t.Scout, t.Writer, t.Shopper, t.Formatter, t.Farewell, t.Search}
}

// Build constructs the whole tree or returns the first error. It never
// returns a partially built tree.
func Build(ctx context.Context, deps Deps) (*Tree, error) {
	if deps.Models == nil {
		return nil, errors.New("diet: model resolver is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("diet: search backend is required")
	}
	if deps.Instructions == nil {
		deps.Instructions = instructions.Default
	}
	b := &builder{ctx: ctx, deps: deps, ids: deps.ModelIDs.withDefaults()}

	var t Tree
	var err error

	if t.Interview, err = b.agent(agentSpec{
		name:        InterviewAgent,
		model:       b.ids.Interview,
		description: "Handles greetings and initial triage using the 'interview' tool.",
		instruction: interviewInstruction,
		outputKey:   KeyUserProfile,
		tools:       []agent.Tool{&tools.InterviewTool{Source: deps.Instructions}},
	}); err != nil {
		return nil, err
	}

	if t.Farewell, err = b.agent(agentSpec{
		name:        FarewellAgent,
		model:       b.ids.Farewell,
		description: "Handles simple farewells and goodbyes using the 'say_goodbye' tool.",
		instruction: farewellInstruction,
		tools:       []agent.Tool{tools.GoodbyeTool{}},
	}); err != nil {
		return nil, err
	}

	searchOpts := []tools.SearchOption{tools.WithSearchLogger(deps.Logger)}
	if deps.SearchCacheSize > 0 {
		searchOpts = append(searchOpts, tools.WithSearchCache(deps.SearchCacheSize, deps.SearchCacheTTL))
	}
	search, err := tools.NewSearchTool(deps.Searcher, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("diet: %w", err)
	}
	if t.Search, err = b.agent(agentSpec{
		name:        SearchAgent,
		model:       b.ids.Search,
		description: "Agent to answer questions and augment knowledge using Google Search.",
		instruction: searchInstruction,
		tools:       []agent.Tool{search},
	}); err != nil {
		return nil, err
	}
	searchTool, err := t.Search.AsTool()
	if err != nil {
		return nil, fmt.Errorf("diet: %w", err)
	}
	seasonal := func() []agent.Tool {
		return []agent.Tool{
			searchTool,
			&tools.SeasonTool{Clock: deps.Clock},
			&tools.MonthDayTool{Clock: deps.Clock},
		}
	}

	if t.Writer, err = b.agent(agentSpec{
		name:        DietWriter,
		model:       b.ids.Writer,
		description: "Writes a personalized, seasonal diet plan and grocery list from the user's profile, constraints and current grocery specials.",
		template:    instructions.DietWriter,
		outputKey:   KeyGeneratedDiet,
		tools:       seasonal(),
	}); err != nil {
		return nil, err
	}

	if t.Scout, err = b.agent(agentSpec{
		name:        PromoScout,
		model:       b.ids.Scout,
		description: "This agent searches local online stores with the ability to use **Google Search** to gather and organize grocery store specials in a structured, comparable format.",
		template:    instructions.GroceryPromos,
		outputKey:   KeyPromos,
		tools:       seasonal(),
	}); err != nil {
		return nil, err
	}

	if t.Shopper, err = b.agent(agentSpec{
		name:        Shopper,
		model:       b.ids.Shopper,
		description: "This agent searches local online stores for each item on an input grocery list, compares prices across multiple retailers, selects the best available price for each item, and outputs a detailed itemized list with prices and the total estimated cost for the full grocery order.",
		template:    instructions.GroceryShopper,
		outputKey:   KeyGeneratedDiet,
		tools:       seasonal(),
	}); err != nil {
		return nil, err
	}

	if t.Formatter, err = b.agent(agentSpec{
		name:        Formatter,
		model:       b.ids.Formatter,
		description: "Formats the final diet plan into Markdown format.",
		instruction: formatterInstruction,
		outputKey:   KeyFinalPlan,
	}); err != nil {
		return nil, err
	}

	subAgents := []*agent.Agent{t.Interview, t.Scout, t.Writer, t.Shopper, t.Formatter, t.Farewell}
	rootTools := make([]agent.Tool, 0, len(subAgents))
	for _, sub := range subAgents {
		tool, err := sub.AsTool()
		if err != nil {
			return nil, fmt.Errorf("diet: %w", err)
		}
		rootTools = append(rootTools, tool)
	}

	if t.Root, err = b.agent(agentSpec{
		name:        Root,
		model:       b.ids.Root,
		description: "You are an agent that can identify **person** objectives and constraints and write diet plans. You have subagents that can do this",
		template:    instructions.PersonalizedDiet,
		tools:       rootTools,
	}); err != nil {
		return nil, err
	}

	if deps.Logger != nil {
		for _, a := range t.Agents() {
			deps.Logger.Info("agent created", "agent", a.Name(), "model", a.Model(), "tools", len(a.Tools()))
		}
	}
	return &t, nil
}

type agentSpec struct {
	name        string
	model       string
	description string
	// Exactly one of instruction and template is set.
	instruction string
	template    string
	outputKey   string
	tools       []agent.Tool
}

type builder struct {
	ctx  context.Context
	deps Deps
	ids  ModelIDs
}

func (b *builder) agent(spec agentSpec) (*agent.Agent, error) {
	model, err := b.deps.Models.ChatModel(b.ctx, spec.model)
	if err != nil {
		return nil, fmt.Errorf("diet: agent %s: model %s: %w", spec.name, spec.model, err)
	}
	instruction := spec.instruction
	if spec.template != "" {
		if instruction, err = b.deps.Instructions.Load(spec.template); err != nil {
			return nil, fmt.Errorf("diet: agent %s: %w", spec.name, err)
		}
	}
	a, err := agent.New(agent.Options{
		Name:        spec.name,
		Description: spec.description,
		Instruction: instruction,
		OutputKey:   spec.outputKey,
		Model:       model,
		Tools:       spec.tools,
		Callbacks:   b.deps.Callbacks,
		Logger:      b.deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("diet: %w", err)
	}
	return a, nil
}
