// Package workflow drives the planning stages: work breakdown, schedule, team,
// cost estimate and board population.
//
// Each stage sends one prompt, parses the tool calls embedded in the reply and
// dispatches them. The schedule stage runs inside the generation retry loop, the
// cost and board stages continue their conversation once with the tool results.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planbuilder/pkg/board"
	"planbuilder/pkg/config"
	"planbuilder/pkg/conversation"
	"planbuilder/pkg/generate"
	"planbuilder/pkg/llm"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
	"planbuilder/pkg/retrieval"
	"planbuilder/pkg/tools"
)

// SalaryResolver resolves role salaries in submission order. *retrieval.Engine implements it.
type SalaryResolver = retrieval.Resolver

// Plan is everything a run produced.
//
//nolint:govet // fieldalignment: field order follows the stages
type Plan struct {
	RunID       string
	Description string
	CreatedAt   time.Time

	WBS        string
	Graph      *DependencyGraph
	GraphOrder []string

	Schedule *Schedule
	Team     *Team

	Salaries []retrieval.Result
	Estimate string

	Board *board.Ref
	Cards []string

	Warnings []string
}

func (p *Plan) warn(logger *logx.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	p.Warnings = append(p.Warnings, msg)
}

// Options tune a Planner.
type Options struct {
	SkipBoard      bool
	ChartAttempts  int
	Params         conversation.Params
	ScheduleParams conversation.Params
}

// DefaultOptions returns the sampling and retry settings used when no config is loaded.
func DefaultOptions() Options {
	return Options{
		ChartAttempts: generate.DefaultMaxAttempts,
		Params:        conversation.DefaultParams(),
		ScheduleParams: conversation.Params{
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.TemperatureSchedule,
			TopP:        llm.TopPSchedule,
		},
	}
}

// OptionsFromConfig reads sampling and retry settings from cfg.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	if cfg.LLM != nil {
		opts.Params = conversation.Params{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		}
		opts.ScheduleParams = conversation.Params{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.ScheduleTemperature,
			TopP:        cfg.LLM.ScheduleTopP,
		}
	}
	if cfg.Chart != nil && cfg.Chart.MaxAttempts > 0 {
		opts.ChartAttempts = cfg.Chart.MaxAttempts
	}
	return opts
}

// Planner runs the stages against one model.
//
// The estimate stage has its own dispatcher holding only the salary tool, so a
// cost reply cannot trigger graph, chart or board calls.
type Planner struct {
	client     llm.LLMClient
	boards     board.Service
	dispatcher *tools.Dispatcher
	salaryTool *retrieval.SalaryTool
	estimator  *tools.Dispatcher
	recorder   metrics.Recorder
	opts       Options
	logger     *logx.Logger
}

// NewPlanner creates a planner. boards may be nil, in which case the board stage is skipped.
func NewPlanner(client llm.LLMClient, salaries SalaryResolver, boards board.Service, recorder metrics.Recorder, opts Options) *Planner {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if opts.ChartAttempts <= 0 {
		opts.ChartAttempts = generate.DefaultMaxAttempts
	}

	d := tools.NewDispatcher(recorder)
	d.Register(GraphTool{})
	d.Register(ChartTool{})
	if boards != nil {
		d.Register(board.NewCreateBoardTool(boards))
		d.Register(board.NewAddCardTool(boards))
	}

	salaryTool := retrieval.NewSalaryTool(salaries, tools.ToolGetRoleAverageAnnualSalary)
	estimator := tools.NewDispatcher(recorder)
	estimator.Register(salaryTool)
	estimator.RegisterAs(tools.ToolGetRoleAverageSalary, salaryTool)

	return &Planner{
		client:     client,
		boards:     boards,
		dispatcher: d,
		salaryTool: salaryTool,
		estimator:  estimator,
		recorder:   recorder,
		opts:       opts,
		logger:     logx.NewLogger("workflow"),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, plan *Plan, logger *logx.Logger) error
	skip bool
}

// Run executes every stage in order. On failure the partial plan is returned
// with an error naming the stage.
func (p *Planner) Run(ctx context.Context, description string) (*Plan, error) {
	plan := &Plan{
		RunID:       uuid.NewString(),
		Description: description,
		CreatedAt:   time.Now(),
	}
	logger := p.logger.WithComponent("workflow-" + plan.RunID[:8])

	stages := []stage{
		{name: "wbs", run: p.runWBS},
		{name: "gantt", run: p.runGantt},
		{name: "team", run: p.runTeam},
		{name: "estimate", run: p.runEstimate},
		{name: "board", run: p.runBoard, skip: p.opts.SkipBoard || p.boards == nil},
	}

	for _, s := range stages {
		if s.skip {
			logger.Info("Skipping %s stage", s.name)
			continue
		}
		logger.Info("Starting %s stage", s.name)
		start := time.Now()
		if err := s.run(ctx, plan, logger); err != nil {
			logger.Warn("%s stage stopped after %s", s.name, time.Since(start).Round(time.Millisecond))
			return plan, logx.Wrap(err, s.name+" stage")
		}
		logger.Info("Finished %s stage in %s", s.name, time.Since(start).Round(time.Millisecond))
	}
	return plan, nil
}

func (p *Planner) ask(ctx context.Context, system string, params conversation.Params, prompt string) (*conversation.Conversation, string, error) {
	conv := conversation.New(system).WithParams(params)
	reply, err := conv.Ask(ctx, p.client, prompt)
	if err != nil {
		return nil, "", err //nolint:wrapcheck // generate names the failure
	}
	return conv, reply, nil
}
