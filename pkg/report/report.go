// Package report renders a finished plan as markdown, YAML or JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"planbuilder/pkg/workflow"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned for formats other than markdown, yaml and json.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the supported formats.
func Formats() []string {
	return []string{FormatMarkdown, FormatYAML, FormatJSON}
}

type scheduleView struct {
	Start    string          `json:"start" yaml:"start"`
	End      string          `json:"end" yaml:"end"`
	Workdays int             `json:"workdays" yaml:"workdays"`
	Tasks    []workflow.Task `json:"tasks" yaml:"tasks"`
}

type salaryView struct {
	Role    string `json:"role" yaml:"role"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Text    string `json:"text" yaml:"text"`
}

type boardView struct {
	BoardID string   `json:"board_id" yaml:"board_id"`
	ListID  string   `json:"list_id" yaml:"list_id"`
	URL     string   `json:"url" yaml:"url"`
	Cards   []string `json:"cards,omitempty" yaml:"cards,omitempty"`
}

type document struct {
	RunID       string                    `json:"run_id" yaml:"run_id"`
	Description string                    `json:"description" yaml:"description"`
	CreatedAt   string                    `json:"created_at" yaml:"created_at"`
	WBS         string                    `json:"wbs" yaml:"wbs"`
	Graph       *workflow.DependencyGraph `json:"dependency_graph,omitempty" yaml:"dependency_graph,omitempty"`
	Order       []string                  `json:"dependency_order,omitempty" yaml:"dependency_order,omitempty"`
	Schedule    *scheduleView             `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Team        *workflow.Team            `json:"team,omitempty" yaml:"team,omitempty"`
	Salaries    []salaryView              `json:"salaries,omitempty" yaml:"salaries,omitempty"`
	Estimate    string                    `json:"estimate,omitempty" yaml:"estimate,omitempty"`
	Board       *boardView                `json:"board,omitempty" yaml:"board,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newDocument(plan *workflow.Plan) document {
	doc := document{
		RunID:       plan.RunID,
		Description: plan.Description,
		CreatedAt:   plan.CreatedAt.Format(time.RFC3339),
		WBS:         plan.WBS,
		Graph:       plan.Graph,
		Order:       plan.GraphOrder,
		Team:        plan.Team,
		Estimate:    plan.Estimate,
		Warnings:    plan.Warnings,
	}
	if s := plan.Schedule; s != nil {
		doc.Schedule = &scheduleView{
			Start:    s.Start().Format(workflow.DateLayout),
			End:      s.End().Format(workflow.DateLayout),
			Workdays: s.Workdays(),
			Tasks:    s.Sorted(),
		}
	}
	for _, r := range plan.Salaries {
		doc.Salaries = append(doc.Salaries, salaryView{
			Role:    r.Identifier,
			Outcome: r.Outcome.Kind.String(),
			Value:   r.Outcome.Value,
			Text:    r.Text(),
		})
	}
	if plan.Board != nil {
		doc.Board = &boardView{
			BoardID: plan.Board.BoardID,
			ListID:  plan.Board.ListID,
			URL:     plan.Board.URL(),
			Cards:   plan.Cards,
		}
	}
	return doc
}

// Render writes plan to w in format. An empty format means markdown.
func Render(w io.Writer, plan *workflow.Plan, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(plan))
		return err //nolint:wrapcheck // writer error returned as-is
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(plan)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close() //nolint:wrapcheck // flush error returned as-is
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newDocument(plan)); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// Markdown renders the plan as a markdown document.
func Markdown(plan *workflow.Plan) string {
	var sb strings.Builder
	sb.WriteString("# Project Plan\n\n")
	fmt.Fprintf(&sb, "_Run %s, %s_\n\n", plan.RunID, plan.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(plan.Description), "\n", "\n> "))

	if plan.WBS != "" {
		sb.WriteString("## Work Breakdown Structure\n\n```text\n")
		sb.WriteString(plan.WBS)
		sb.WriteString("\n```\n\n")
	}

	if g := plan.Graph; g != nil {
		sb.WriteString("## Dependency Graph\n\n")
		for _, e := range g.Edges {
			fmt.Fprintf(&sb, "- %s -> %s\n", e.From, e.To)
		}
		if len(plan.GraphOrder) > 0 {
			sb.WriteString("\nSuggested order:\n\n")
			for i, n := range plan.GraphOrder {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, n)
			}
		}
		sb.WriteString("\n")
	}

	if s := plan.Schedule; s != nil {
		sb.WriteString("## Gantt Chart\n\n")
		fmt.Fprintf(&sb, "%s to %s, %d workdays.\n\n",
			s.Start().Format(workflow.DateLayout), s.End().Format(workflow.DateLayout), s.Workdays())
		sb.WriteString("| Task | Start | End | Workdays |\n|---|---|---|---|\n")
		for _, t := range s.Sorted() {
			fmt.Fprintf(&sb, "| %s | %s | %s | %d |\n",
				escapeCell(t.Name), t.Start.Format(workflow.DateLayout), t.End.Format(workflow.DateLayout), t.Workdays())
		}
		sb.WriteString("\n")
	}

	if plan.Team != nil {
		sb.WriteString(plan.Team.Markdown())
	}

	if len(plan.Salaries) > 0 {
		sb.WriteString("## Salaries\n\n")
		for _, r := range plan.Salaries {
			fmt.Fprintf(&sb, "- **%s:** %s\n", r.Identifier, r.Text())
		}
		sb.WriteString("\n")
	}

	if plan.Estimate != "" {
		sb.WriteString("## Cost Estimate\n\n")
		sb.WriteString(plan.Estimate)
		sb.WriteString("\n\n")
	}

	if plan.Board != nil {
		sb.WriteString("## Trello Board\n\n")
		fmt.Fprintf(&sb, "Board URL: %s\n\n", plan.Board.URL())
		if len(plan.Cards) > 0 {
			fmt.Fprintf(&sb, "%d cards created.\n\n", len(plan.Cards))
		}
	}

	if len(plan.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range plan.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
