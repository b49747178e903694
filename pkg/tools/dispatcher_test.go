package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbuilder/pkg/envelope"
	"planbuilder/pkg/metrics"
)

type fakeTool struct {
	name  string
	exec  func(ctx context.Context, args map[string]any) (*ExecResult, error)
	mu    sync.Mutex
	calls []map[string]any
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Definition() ToolDefinition {
	return ToolDefinition{Name: f.name, InputSchema: InputSchema{Type: "object"}}
}

func (f *fakeTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()
	return f.exec(ctx, args)
}

// echoTool returns its "id" argument after the delay encoded in "delay_ms".
func echoTool(name string) *fakeTool {
	return &fakeTool{name: name, exec: func(ctx context.Context, args map[string]any) (*ExecResult, error) {
		if ms, ok := args["delay_ms"].(float64); ok {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		id, _ := args["id"].(string)
		return &ExecResult{Content: id, Data: id}, nil
	}}
}

type toolCounts struct {
	metrics.NoopRecorder
	mu     sync.Mutex
	status map[string]int
}

func (c *toolCounts) ObserveToolCall(_, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		c.status = map[string]int{}
	}
	c.status[status]++
}

func TestDispatchPreservesEnvelopeOrder(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(echoTool("echo"))

	env := envelope.Envelope{
		{Name: "echo", Parameters: map[string]any{"id": "first", "delay_ms": float64(80)}},
		{Name: "echo", Parameters: map[string]any{"id": "second", "delay_ms": float64(40)}},
		{Name: "echo", Parameters: map[string]any{"id": "third"}},
	}

	results, err := d.Dispatch(context.Background(), env, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, results[i].Output.Content)
		assert.Equal(t, "echo", results[i].Call.Name)
	}
}

func TestDispatchRunsConcurrently(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(echoTool("echo"))

	env := make(envelope.Envelope, 5)
	for i := range env {
		env[i] = envelope.ToolCall{Name: "echo", Parameters: map[string]any{"delay_ms": float64(100)}}
	}

	start := time.Now()
	_, err := d.Dispatch(context.Background(), env, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDispatchSkipsUnknownTools(t *testing.T) {
	rec := &toolCounts{}
	d := NewDispatcher(rec)
	d.Register(echoTool("echo"))

	env := envelope.Envelope{
		{Name: "mystery", Parameters: map[string]any{}},
		{Name: "echo", Parameters: map[string]any{"id": "kept"}},
	}

	results, err := d.Dispatch(context.Background(), env, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Output.Content)
	assert.Equal(t, 1, rec.status[metrics.StatusSkipped])
	assert.Equal(t, 1, rec.status[metrics.StatusSuccess])
}

func TestDispatchEmptyEnvelope(t *testing.T) {
	d := NewDispatcher(nil)
	results, err := d.Dispatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDispatchSubstitutesPlaceholder(t *testing.T) {
	d := NewDispatcher(nil)
	card := echoTool("card")
	d.Register(card)

	params := map[string]any{
		"id_list": PlaceholderBoardID,
		"nested":  map[string]any{"ref": "list " + PlaceholderBoardID},
		"many":    []any{PlaceholderBoardID, 3.0},
	}
	env := envelope.Envelope{{Name: "card", Parameters: params}}

	_, err := d.Dispatch(context.Background(), env, Bindings{PlaceholderBoardID: "list-42"})
	require.NoError(t, err)

	require.Len(t, card.calls, 1)
	got := card.calls[0]
	assert.Equal(t, "list-42", got["id_list"])
	assert.Equal(t, "list list-42", got["nested"].(map[string]any)["ref"])
	assert.Equal(t, []any{"list-42", 3.0}, got["many"])

	// The parsed call is left untouched.
	assert.Equal(t, PlaceholderBoardID, params["id_list"])
}

func TestDispatchUnboundPlaceholderBecomesEmpty(t *testing.T) {
	d := NewDispatcher(nil)
	card := echoTool("card")
	d.Register(card)

	_, err := d.Dispatch(context.Background(), envelope.Envelope{
		{Name: "card", Parameters: map[string]any{"id_list": PlaceholderBoardID}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", card.calls[0]["id_list"])
}

func TestDispatchFirstErrorAbortsBatch(t *testing.T) {
	d := NewDispatcher(nil)
	boom := errors.New("board API down")
	d.Register(&fakeTool{name: "fail", exec: func(context.Context, map[string]any) (*ExecResult, error) {
		return nil, boom
	}})
	d.Register(echoTool("echo"))

	env := envelope.Envelope{
		{Name: "echo", Parameters: map[string]any{"delay_ms": float64(2000)}},
		{Name: "fail", Parameters: map[string]any{}},
	}

	start := time.Now()
	results, err := d.Dispatch(context.Background(), env, nil)
	assert.Nil(t, results)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fail")
	assert.Less(t, time.Since(start), time.Second)
}

// batchTool answers every call with its "id" argument, upper-cased, and records each batch.
type batchTool struct {
	name    string
	mu      sync.Mutex
	batches [][]map[string]any
	short   bool
}

func (b *batchTool) Name() string { return b.name }

func (b *batchTool) Definition() ToolDefinition {
	return ToolDefinition{Name: b.name, InputSchema: InputSchema{Type: "object"}}
}

func (b *batchTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	outs, err := b.ExecBatch(ctx, []map[string]any{args})
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

func (b *batchTool) ExecBatch(_ context.Context, args []map[string]any) ([]*ExecResult, error) {
	b.mu.Lock()
	b.batches = append(b.batches, args)
	b.mu.Unlock()
	outs := make([]*ExecResult, 0, len(args))
	for _, a := range args {
		id, _ := a["id"].(string)
		outs = append(outs, &ExecResult{Content: strings.ToUpper(id)})
	}
	if b.short {
		outs = outs[:len(outs)-1]
	}
	return outs, nil
}

func TestDispatchGroupsBatchToolCalls(t *testing.T) {
	rec := &toolCounts{}
	d := NewDispatcher(rec)
	lookup := &batchTool{name: "lookup"}
	d.Register(lookup)
	d.RegisterAs("lookup_alias", lookup)
	d.Register(echoTool("echo"))

	env := envelope.Envelope{
		{Name: "lookup", Parameters: map[string]any{"id": "a"}},
		{Name: "echo", Parameters: map[string]any{"id": "plain"}},
		{Name: "mystery", Parameters: map[string]any{}},
		{Name: "lookup_alias", Parameters: map[string]any{"id": "b"}},
		{Name: "lookup", Parameters: map[string]any{"id": "c"}},
	}

	results, err := d.Dispatch(context.Background(), env, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "A", results[0].Output.Content)
	assert.Equal(t, "plain", results[1].Output.Content)
	assert.Equal(t, "B", results[2].Output.Content)
	assert.Equal(t, "lookup_alias", results[2].Call.Name)
	assert.Equal(t, "C", results[3].Output.Content)

	require.Len(t, lookup.batches, 1)
	assert.Len(t, lookup.batches[0], 3)
	assert.Equal(t, 4, rec.status[metrics.StatusSuccess])
	assert.Equal(t, 1, rec.status[metrics.StatusSkipped])
}

func TestDispatchRejectsShortBatch(t *testing.T) {
	rec := &toolCounts{}
	d := NewDispatcher(rec)
	d.Register(&batchTool{name: "lookup", short: true})

	_, err := d.Dispatch(context.Background(), envelope.Envelope{
		{Name: "lookup", Parameters: map[string]any{"id": "a"}},
		{Name: "lookup", Parameters: map[string]any{"id": "b"}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 results for 2 calls")
	assert.Equal(t, 2, rec.status[metrics.StatusError])
}

func TestRegisterDuplicatePanics(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(echoTool("echo"))
	assert.Panics(t, func() { d.Register(echoTool("echo")) })
}

func TestRegisterAsAlias(t *testing.T) {
	d := NewDispatcher(nil)
	tool := echoTool("primary")
	d.Register(tool)
	d.RegisterAs("alias", tool)

	assert.Equal(t, []string{"alias", "primary"}, d.Names())
	_, err := d.Get("missing")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestFunctionsDocument(t *testing.T) {
	doc := FunctionsDocument(ToolDefinition{Name: "x", Description: "does x", InputSchema: InputSchema{Type: "object"}})
	assert.Contains(t, doc, `"functions"`)
	assert.Contains(t, doc, `"name": "x"`)
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"ok": "v", "num": 1.0, "blank": "  "}

	v, err := StringArg(args, "ok")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	for _, name := range []string{"num", "blank", "missing"} {
		_, err := StringArg(args, name)
		assert.Error(t, err, name)
	}
	assert.Equal(t, "", OptionalStringArg(args, "missing"))
}
