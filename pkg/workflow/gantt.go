package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"planbuilder/pkg/tools"
)

// DateLayout is the task date format.
const DateLayout = "2006-01-02"

// ErrInvalidSchedule is returned for chart calls that cannot be turned into a schedule.
var ErrInvalidSchedule = errors.New("invalid gantt chart")

// Task is one scheduled task.
type Task struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start_date" yaml:"start_date"`
	End   time.Time `json:"end_date" yaml:"end_date"`
}

type taskDates struct {
	Name  string `json:"name" yaml:"name"`
	Start string `json:"start_date" yaml:"start_date"`
	End   string `json:"end_date" yaml:"end_date"`
}

func (t Task) dates() taskDates {
	return taskDates{Name: t.Name, Start: t.Start.Format(DateLayout), End: t.End.Format(DateLayout)}
}

// MarshalJSON writes dates as YYYY-MM-DD.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.dates()) //nolint:wrapcheck // transparent encoding
}

// MarshalYAML writes dates as YYYY-MM-DD.
func (t Task) MarshalYAML() (any, error) {
	return t.dates(), nil
}

// Workdays counts Monday to Friday days between Start and End, inclusive.
func (t Task) Workdays() int {
	return Workdays(t.Start, t.End)
}

// Schedule is the parsed Gantt chart.
type Schedule struct {
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// Start returns the earliest task start.
func (s *Schedule) Start() time.Time {
	var start time.Time
	for i, t := range s.Tasks {
		if i == 0 || t.Start.Before(start) {
			start = t.Start
		}
	}
	return start
}

// End returns the latest task end.
func (s *Schedule) End() time.Time {
	var end time.Time
	for _, t := range s.Tasks {
		if t.End.After(end) {
			end = t.End
		}
	}
	return end
}

// Workdays counts the weekdays spanned by the whole project.
func (s *Schedule) Workdays() int {
	if len(s.Tasks) == 0 {
		return 0
	}
	return Workdays(s.Start(), s.End())
}

// Brief renders the tasks as the JSON list passed to later prompts.
func (s *Schedule) Brief() string {
	data, err := json.Marshal(s.Tasks)
	if err != nil {
		return fmt.Sprintf("%d tasks", len(s.Tasks))
	}
	return string(data)
}

// Sorted returns the tasks ordered by start date, ties in chart order.
func (s *Schedule) Sorted() []Task {
	out := append([]Task(nil), s.Tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Workdays counts Monday to Friday days in [start, end].
func Workdays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// ParseDate reads a YYYY-MM-DD date. A "-00" day or month is read as "-01".
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "00" {
			parts[i] = "01"
		}
	}
	t, err := time.Parse(DateLayout, strings.Join(parts, "-"))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidSchedule, s)
	}
	return t, nil
}

// ParseSchedule reads parameters.gantt_chart.tasks of a create_gantt_chart_to_file call.
func ParseSchedule(params map[string]any) (*Schedule, error) {
	chart, ok := params["gantt_chart"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing gantt_chart", ErrInvalidSchedule)
	}
	rawTasks, ok := chart["tasks"].([]any)
	if !ok || len(rawTasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", ErrInvalidSchedule)
	}

	s := &Schedule{Tasks: make([]Task, 0, len(rawTasks))}
	for i, raw := range rawTasks {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: task %d is not an object", ErrInvalidSchedule, i)
		}
		name, _ := fields["name"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: task %d has no name", ErrInvalidSchedule, i)
		}
		startRaw, _ := fields["start_date"].(string)
		endRaw, _ := fields["end_date"].(string)
		start, err := ParseDate(startRaw)
		if err != nil {
			return nil, fmt.Errorf("task %q start: %w", name, err)
		}
		end, err := ParseDate(endRaw)
		if err != nil {
			return nil, fmt.Errorf("task %q end: %w", name, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: task %q ends before it starts", ErrInvalidSchedule, name)
		}
		s.Tasks = append(s.Tasks, Task{Name: strings.TrimSpace(name), Start: start, End: end})
	}
	return s, nil
}

// ChartTool implements create_gantt_chart_to_file. ExecResult.Data holds the *Schedule.
type ChartTool struct{}

// Name returns the tool name.
func (ChartTool) Name() string { return tools.ToolCreateGanttChart }

// Definition returns the tool definition for LLM.
func (ChartTool) Definition() tools.ToolDefinition {
	task := &tools.Property{
		Type: "object",
		Properties: map[string]*tools.Property{
			"name":       {Type: "string", Description: "Task name"},
			"start_date": {Type: "string", Description: "YYYY-MM-DD"},
			"end_date":   {Type: "string", Description: "YYYY-MM-DD"},
		},
	}
	return tools.ToolDefinition{
		Name:        tools.ToolCreateGanttChart,
		Description: "It creates a Gantt chart. Task dates must be in the format YYYY-MM-DD. Days start from 01. February 2025 has 28 days.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"gantt_chart": {
					Type:        "object",
					Description: "The chart, holding every task in one list",
					Properties: map[string]*tools.Property{
						"tasks": {Type: "array", Description: "The tasks", Items: task},
					},
				},
			},
			Required: []string{"gantt_chart"},
		},
	}
}

// Exec parses and validates the chart.
func (ChartTool) Exec(_ context.Context, args map[string]any) (*tools.ExecResult, error) {
	s, err := ParseSchedule(args)
	if err != nil {
		return nil, err
	}
	return &tools.ExecResult{
		Content: fmt.Sprintf("Gantt chart with %d tasks over %d workdays", len(s.Tasks), s.Workdays()),
		Data:    s,
	}, nil
}
