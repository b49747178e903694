package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"planbuilder/internal/printer"
	"planbuilder/pkg/retrieval"
)

//nolint:gochecknoglobals // cobra flags
var salariesJSON bool

var salariesCmd = &cobra.Command{
	Use:   "salaries ROLE [ROLE...]",
	Short: "Look up salaries for one or more roles",
	Long: `Look up the average salary of each role concurrently and print the
results in the order the roles were given.

Examples:
  planbuilder salaries "Backend Engineer" "Product Designer"
  planbuilder salaries --json "Data Scientist"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSalaries,
}

func init() { //nolint:gochecknoinits // cobra wiring
	salariesCmd.Flags().BoolVar(&salariesJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(salariesCmd)
}

type salaryLine struct {
	Role    string `json:"role"`
	Outcome string `json:"outcome"`
	Value   string `json:"value,omitempty"`
	Text    string `json:"text"`
}

func runSalaries(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	engine := retrieval.NewEngineFromConfig(*env.cfg.Retrieval, env.recorder)
	results := engine.Resolve(ctx, retrieval.Targets(args...))
	return printSalaries(cmd.OutOrStdout(), results, salariesJSON)
}

func printSalaries(w io.Writer, results []retrieval.Result, asJSON bool) error {
	if asJSON {
		lines := make([]salaryLine, 0, len(results))
		for _, r := range results {
			lines = append(lines, salaryLine{
				Role:    r.Identifier,
				Outcome: r.Outcome.Kind.String(),
				Value:   r.Outcome.Value,
				Text:    r.Text(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lines); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		return nil
	}

	failed := 0
	for _, r := range results {
		if !r.Outcome.IsOK() {
			failed++
		}
		fmt.Fprintf(w, "%s: %s\n", r.Identifier, r.Text())
	}
	if failed > 0 {
		printer.Warning("%d of %d lookups did not return a salary", failed, len(results))
	}
	return nil
}
