package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"planbuilder/internal/printer"
	"planbuilder/pkg/board"
	"planbuilder/pkg/config"
	"planbuilder/pkg/llm/factory"
	"planbuilder/pkg/report"
	"planbuilder/pkg/retrieval"
	"planbuilder/pkg/workflow"
)

//nolint:gochecknoglobals // cobra flags
var (
	planFile      string
	planOutput    string
	planOutFile   string
	planSkipBoard bool
)

var planCmd = &cobra.Command{
	Use:   "plan [DESCRIPTION...]",
	Short: "Generate a project plan from a description",
	Long: `Generate a project plan from a free-text project description.

The description is taken from the arguments, from --file, or from stdin
when neither is given. Stages run in order: work breakdown, Gantt chart,
team structure, cost estimate and Trello board. A failing stage stops the
run, and whatever was produced so far is still rendered.

Examples:
  # Plan from an inline description
  planbuilder plan "An online shop for handmade furniture with payments"

  # Plan from a client email, as YAML, without touching Trello
  planbuilder plan --file email.txt --output yaml --skip-board`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // cobra wiring
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "Read the description from a file")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", report.FormatMarkdown,
		"Output format: "+strings.Join(report.Formats(), ", "))
	planCmd.Flags().StringVar(&planOutFile, "out-file", "", "Write the report to a file instead of stdout")
	planCmd.Flags().BoolVar(&planSkipBoard, "skip-board", false, "Do not create a Trello board")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	description, err := readDescription(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	f, err := factory.NewClientFactory(env.cfg, env.recorder)
	if err != nil {
		return printer.Error("Invalid model configuration", err.Error(), nil)
	}
	client, err := f.CreateClient()
	if err != nil {
		return printer.Error("Failed to create model client", err.Error(), []string{
			"Store the provider key with 'planbuilder secrets set <NAME>'",
			"Or export it in the environment",
		})
	}

	engine := retrieval.NewEngineFromConfig(*env.cfg.Retrieval, env.recorder)

	opts := workflow.OptionsFromConfig(env.cfg)
	opts.SkipBoard = planSkipBoard
	var boards board.Service
	if !planSkipBoard {
		if svc, err := newBoardClient(env.cfg); err != nil {
			printer.Warning("Trello board stage skipped: %v", err)
		} else {
			boards = svc
		}
	}

	printer.Step("Planning with %s", env.cfg.LLM.Model)
	plan, runErr := workflow.NewPlanner(client, engine, boards, env.recorder, opts).Run(ctx, description)
	if plan != nil {
		if err := writeReport(cmd.OutOrStdout(), plan); err != nil {
			return printer.Error("Failed to write report", err.Error(), nil)
		}
	}
	if runErr != nil {
		return printer.Error("Planning failed", runErr.Error(), []string{
			"Re-run with --verbose to see each exchange with the model",
		})
	}

	for _, w := range plan.Warnings {
		printer.Warning("%s", w)
	}
	if plan.Board != nil {
		printer.Success("Board created: %s", plan.Board.URL())
	}
	return nil
}

func readDescription(stdin io.Reader, args []string) (string, error) {
	var text string
	switch {
	case planFile != "":
		data, err := os.ReadFile(planFile)
		if err != nil {
			return "", printer.Error("Cannot read description", err.Error(), nil)
		}
		text = string(data)
	case len(args) > 0:
		text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", printer.Error("No project description", "The plan command needs something to plan.", []string{
			`planbuilder plan "A mobile app for booking tennis courts"`,
			"planbuilder plan --file brief.txt",
		})
	}
	return text, nil
}

func newBoardClient(cfg config.Config) (*board.Client, error) {
	key, token, err := config.GetTrelloCredentials()
	if err != nil {
		return nil, fmt.Errorf("trello credentials: %w", err)
	}
	return board.NewClient(board.Config{
		BaseURL:  cfg.Board.BaseURL,
		WebURL:   cfg.Board.WebURL,
		ListName: cfg.Board.ListName,
		Key:      key,
		Token:    token,
		Timeout:  cfg.Board.Timeout,
	}), nil
}

func writeReport(stdout io.Writer, plan *workflow.Plan) error {
	if planOutFile == "" {
		return report.Render(stdout, plan, planOutput)
	}
	f, err := os.Create(planOutFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", planOutFile, err)
	}
	defer f.Close()
	if err := report.Render(f, plan, planOutput); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	printer.Success("Report written to %s", planOutFile)
	return nil
}
