package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"planbuilder/pkg/envelope"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// PlaceholderBoardID is the token a model writes when it does not yet know the board list identifier.
const PlaceholderBoardID = "{board_id}"

// ErrNotRegistered is reported for calls naming a tool the dispatcher does not have.
var ErrNotRegistered = errors.New("tool not registered")

// Bindings maps placeholder tokens to the values substituted into call parameters.
type Bindings map[string]string

// Result pairs a dispatched call with its output.
type Result struct {
	Call   envelope.ToolCall
	Output *ExecResult
}

// Dispatcher routes envelope calls to registered tools.
type Dispatcher struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewDispatcher creates an empty dispatcher. A nil recorder disables metrics.
func NewDispatcher(recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Dispatcher{
		tools:    make(map[string]Tool),
		recorder: recorder,
		logger:   logx.NewLogger("dispatch"),
	}
}

// Register adds a tool. Registering the same name twice panics.
func (d *Dispatcher) Register(tool Tool) {
	d.RegisterAs(tool.Name(), tool)
}

// RegisterAs adds a tool under an additional name.
func (d *Dispatcher) RegisterAs(name string, tool Tool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[name]; exists {
		panic(fmt.Sprintf("tool %s already registered", name))
	}
	d.tools[name] = tool
}

// Get returns the tool registered under name.
func (d *Dispatcher) Get(name string) (Tool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tool, ok := d.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return tool, nil
}

// Names returns the registered names, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs every registered call of env concurrently and returns their results in envelope order.
//
// Unregistered calls are skipped, logged and counted; they produce no result. Placeholder
// tokens in string parameters are replaced from bindings on a copy of the parameters.
// Calls to a BatchTool run as a single ExecBatch, concurrently with the other calls.
// The first tool error cancels the remaining calls and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, env envelope.Envelope, bindings Bindings) ([]Result, error) {
	type scheduled struct {
		tool Tool
		call envelope.ToolCall
	}

	var plan []scheduled
	for _, call := range env {
		tool, err := d.Get(call.Name)
		if err != nil {
			d.logger.Warn("Skipping call to unknown tool %q", call.Name)
			d.recorder.ObserveToolCall(call.Name, metrics.StatusSkipped)
			continue
		}
		plan = append(plan, scheduled{
			tool: tool,
			call: envelope.ToolCall{Name: call.Name, Parameters: d.resolve(call.Parameters, bindings)},
		})
	}

	results := make([]Result, len(plan))
	batches := make(map[BatchTool][]int)
	var batchOrder []BatchTool
	g, gctx := errgroup.WithContext(ctx)
	for i := range plan {
		if bt, ok := plan[i].tool.(BatchTool); ok {
			if _, seen := batches[bt]; !seen {
				batchOrder = append(batchOrder, bt)
			}
			batches[bt] = append(batches[bt], i)
			continue
		}
		g.Go(func() error {
			out, err := plan[i].tool.Exec(gctx, plan[i].call.Parameters)
			if err != nil {
				d.recorder.ObserveToolCall(plan[i].call.Name, metrics.StatusError)
				return fmt.Errorf("%s: %w", plan[i].call.Name, err)
			}
			d.recorder.ObserveToolCall(plan[i].call.Name, metrics.StatusSuccess)
			results[i] = Result{Call: plan[i].call, Output: out}
			return nil
		})
	}
	for _, bt := range batchOrder {
		idx := batches[bt]
		g.Go(func() error {
			args := make([]map[string]any, len(idx))
			for j, i := range idx {
				args[j] = plan[i].call.Parameters
			}
			d.logger.Debug("Running %d calls to %s as one batch", len(idx), bt.Name())
			outs, err := bt.ExecBatch(gctx, args)
			if err == nil && len(outs) != len(idx) {
				err = fmt.Errorf("batch returned %d results for %d calls", len(outs), len(idx))
			}
			if err != nil {
				for _, i := range idx {
					d.recorder.ObserveToolCall(plan[i].call.Name, metrics.StatusError)
				}
				return fmt.Errorf("%s: %w", bt.Name(), err)
			}
			for j, i := range idx {
				d.recorder.ObserveToolCall(plan[i].call.Name, metrics.StatusSuccess)
				results[i] = Result{Call: plan[i].call, Output: outs[j]}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already names the failing tool
	}
	return results, nil
}

// resolve deep-copies params, substituting placeholder tokens in every string value.
func (d *Dispatcher) resolve(params map[string]any, bindings Bindings) map[string]any {
	replacements := make([]string, 0, 2*(len(bindings)+1))
	if _, ok := bindings[PlaceholderBoardID]; !ok {
		replacements = append(replacements, PlaceholderBoardID, "")
	}
	for token, value := range bindings {
		replacements = append(replacements, token, value)
	}
	replacer := strings.NewReplacer(replacements...)

	warned := false
	var walk func(v any) any
	walk = func(v any) any {
		switch val := v.(type) {
		case string:
			if strings.Contains(val, PlaceholderBoardID) && bindings[PlaceholderBoardID] == "" && !warned {
				d.logger.Warn("No board bound for %s placeholder, substituting empty value", PlaceholderBoardID)
				warned = true
			}
			return replacer.Replace(val)
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, item := range val {
				out[k] = walk(item)
			}
			return out
		case []any:
			out := make([]any, len(val))
			for i, item := range val {
				out[i] = walk(item)
			}
			return out
		default:
			return val
		}
	}

	resolved, _ := walk(params).(map[string]any)
	if resolved == nil {
		resolved = map[string]any{}
	}
	return resolved
}
