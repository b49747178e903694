package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planbuilder/pkg/board"
	"planbuilder/pkg/envelope"
	"planbuilder/pkg/generate"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/prompts"
	"planbuilder/pkg/retrieval"
	"planbuilder/pkg/tools"
)

// Stage failures.
var (
	ErrNoWBS       = errors.New("reply has no work breakdown")
	ErrNoChartCall = errors.New("reply has no " + tools.ToolCreateGanttChart + " call")
	ErrNoBoard     = errors.New("reply has no " + tools.ToolCreateBoard + " call")
)

func (p *Planner) runWBS(ctx context.Context, plan *Plan, logger *logx.Logger) error {
	_, reply, err := p.ask(ctx, prompts.WBS(GraphTool{}.Definition()), p.opts.Params,
		"This is the raw client email: "+plan.Description)
	if err != nil {
		return err
	}

	wbs, ok := envelope.ExtractTag(reply, "wbs")
	if !ok {
		wbs = strings.TrimSpace(envelope.Strip(reply))
		if wbs == "" {
			return ErrNoWBS
		}
		plan.warn(logger, "reply has no <wbs> block, using the whole reply")
	}
	plan.WBS = wbs

	env, err := envelope.Parse(reply)
	if err != nil {
		plan.warn(logger, "dependency graph skipped: %v", err)
		return nil
	}
	calls := env.Named(tools.ToolGenerateDependencyGraph)
	if len(calls) == 0 {
		plan.warn(logger, "reply has no %s call", tools.ToolGenerateDependencyGraph)
		return nil
	}
	results, err := p.dispatcher.Dispatch(ctx, calls[:1], nil)
	if err != nil {
		plan.warn(logger, "dependency graph skipped: %v", err)
		return nil
	}
	graph, ok := results[0].Output.Data.(*DependencyGraph)
	if !ok {
		return fmt.Errorf("unexpected %s result %T", tools.ToolGenerateDependencyGraph, results[0].Output.Data)
	}
	plan.Graph = graph
	if plan.GraphOrder, err = graph.Order(); err != nil {
		plan.warn(logger, "dependency order unavailable: %v", err)
	}
	return nil
}

func (p *Planner) runGantt(ctx context.Context, plan *Plan, logger *logx.Logger) error {
	system := prompts.Gantt(ChartTool{}.Definition())
	prompt := fmt.Sprintf("This is the raw client email: %s\n This is the WBS: %s\n Think step by step and create a full and complete GANTT chart.",
		plan.Description, plan.WBS)

	policy := generate.Policy{MaxAttempts: p.opts.ChartAttempts, Recorder: p.recorder, Logger: logger}
	schedule, err := generate.Retry(ctx, policy, "GANTT chart", func(ctx context.Context, _ int) (*Schedule, error) {
		_, reply, err := p.ask(ctx, system, p.opts.ScheduleParams, prompt)
		if err != nil {
			return nil, err
		}
		env, err := envelope.Parse(reply)
		if err != nil {
			return nil, err //nolint:wrapcheck // ErrMalformed carries the cause
		}
		calls := env.Named(tools.ToolCreateGanttChart)
		if len(calls) == 0 {
			return nil, ErrNoChartCall
		}
		results, err := p.dispatcher.Dispatch(ctx, calls[:1], nil)
		if err != nil {
			return nil, err //nolint:wrapcheck // dispatcher names the tool
		}
		s, ok := results[0].Output.Data.(*Schedule)
		if !ok {
			return nil, fmt.Errorf("unexpected %s result %T", tools.ToolCreateGanttChart, results[0].Output.Data)
		}
		return s, nil
	})
	if err != nil {
		return err //nolint:wrapcheck // ExhaustedError carries label and cause
	}
	plan.Schedule = schedule
	logger.Info("Schedule has %d tasks from %s to %s (%d workdays)", len(schedule.Tasks),
		schedule.Start().Format(DateLayout), schedule.End().Format(DateLayout), schedule.Workdays())
	return nil
}

func (p *Planner) runTeam(ctx context.Context, plan *Plan, _ *logx.Logger) error {
	_, reply, err := p.ask(ctx, prompts.Team(), p.opts.Params,
		fmt.Sprintf("This is the raw client email: %s\n These are the tasks: %s", plan.Description, plan.Schedule.Brief()))
	if err != nil {
		return err
	}
	team, err := ParseTeam(reply)
	if err != nil {
		return err
	}
	plan.Team = team
	return nil
}

func (p *Planner) runEstimate(ctx context.Context, plan *Plan, logger *logx.Logger) error {
	conv, reply, err := p.ask(ctx, prompts.Cost(p.salaryTool.Definition()), p.opts.Params,
		fmt.Sprintf("This is the raw client email: %s\n These are the tasks: %s\n This is the team structure: %s",
			plan.Description, plan.Schedule.Brief(), plan.Team))
	if err != nil {
		return err
	}

	env, err := envelope.Parse(reply)
	if err != nil {
		return err //nolint:wrapcheck // ErrMalformed carries the cause
	}
	for _, call := range env {
		if _, err := p.estimator.Get(call.Name); err != nil {
			plan.warn(logger, "ignored %s call in cost estimate", call.Name)
		}
	}
	results, err := p.estimator.Dispatch(ctx, env, nil)
	if err != nil {
		return err //nolint:wrapcheck // dispatcher names the tool
	}
	for _, r := range results {
		salary, ok := r.Output.Data.(retrieval.Result)
		if !ok {
			plan.warn(logger, "ignored salary call: %s", r.Output.Content)
			continue
		}
		plan.Salaries = append(plan.Salaries, salary)
	}
	if len(plan.Salaries) == 0 {
		plan.warn(logger, "no salary lookups requested, keeping the first estimate")
		plan.Estimate = strings.TrimSpace(envelope.Strip(reply))
		return nil
	}

	summary := retrieval.Summary(plan.Salaries)
	logger.Info("Salary lookups: %s", summary)

	final, err := conv.Ask(ctx, p.client, summary)
	if err != nil {
		return err //nolint:wrapcheck // generate names the failure
	}
	plan.Estimate = strings.TrimSpace(envelope.Strip(final))
	return nil
}

func (p *Planner) runBoard(ctx context.Context, plan *Plan, logger *logx.Logger) error {
	createDef := board.NewCreateBoardTool(p.boards).Definition()
	addDef := board.NewAddCardTool(p.boards).Definition()
	conv, reply, err := p.ask(ctx, prompts.Board(createDef, addDef), p.opts.Params,
		fmt.Sprintf("Requirements: %s\n Tasks: %s\n Team structure: %s", plan.Description, plan.Schedule.Brief(), plan.Team))
	if err != nil {
		return err
	}

	first, err := envelope.Parse(reply)
	if err != nil {
		return err //nolint:wrapcheck // ErrMalformed carries the cause
	}
	creates := first.Named(tools.ToolCreateBoard)
	if len(creates) == 0 {
		return ErrNoBoard
	}
	if len(creates) > 1 {
		plan.warn(logger, "reply asked for %d boards, creating only the first", len(creates))
	}
	results, err := p.dispatcher.Dispatch(ctx, creates[:1], nil)
	if err != nil {
		return err //nolint:wrapcheck // dispatcher names the tool
	}
	ref, ok := results[0].Output.Data.(board.Ref)
	if !ok {
		return fmt.Errorf("unexpected %s result %T", tools.ToolCreateBoard, results[0].Output.Data)
	}
	plan.Board = &ref
	logger.Info("Created board %s", ref.URL())

	reply, err = conv.Ask(ctx, p.client, results[0].Output.Content)
	if err != nil {
		return err //nolint:wrapcheck // generate names the failure
	}
	second, err := envelope.Parse(reply)
	if err != nil {
		return err //nolint:wrapcheck // ErrMalformed carries the cause
	}
	cards := second.Named(tools.ToolAddCard)
	if len(cards) == 0 {
		cards = first.Named(tools.ToolAddCard)
	}
	if len(cards) == 0 {
		plan.warn(logger, "no cards were requested for board %s", ref.BoardID)
		return nil
	}

	results, err = p.dispatcher.Dispatch(ctx, cards, tools.Bindings{tools.PlaceholderBoardID: ref.ListID})
	if err != nil {
		return err //nolint:wrapcheck // dispatcher names the tool
	}
	for _, r := range results {
		plan.Cards = append(plan.Cards, r.Output.Content)
	}
	return nil
}
