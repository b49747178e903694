// Package commands implements the planbuilder command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"planbuilder/internal/printer"
	"planbuilder/pkg/config"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// EnvPassword holds the secrets password for non-interactive runs.
const EnvPassword = "PLANBUILDER_PASSWORD"

//nolint:gochecknoglobals // cobra command tree
var (
	projectDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "planbuilder",
	Short: "planbuilder - turn a project description into a delivery plan",
	Long: `planbuilder asks a language model to break a project description down into
a work breakdown structure, a dependency graph, a Gantt schedule, a team
structure and a cost estimate backed by live salary lookups, and can publish
the tasks to a Trello board.

Configuration lives in <project-dir>/.planbuilder/config.json and is created
with defaults on first use. API keys are read from the encrypted secrets file
or from the environment.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the string shown by --version.
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() { //nolint:gochecknoinits // cobra wiring
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "Directory holding .planbuilder/")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// environment is what every working subcommand needs.
type environment struct {
	cfg      config.Config
	recorder metrics.Recorder
}

// loadEnvironment loads config and secrets, and starts the metrics endpoint when enabled.
// The endpoint stops when ctx is done.
func loadEnvironment(ctx context.Context) (*environment, error) {
	if verbose {
		logx.SetDebugConfig(true, false, "")
	}

	if err := config.LoadConfig(projectDir); err != nil {
		return nil, printer.Error("Failed to load configuration", err.Error(), []string{
			fmt.Sprintf("Check %s/%s/%s for syntax errors", projectDir, config.ProjectConfigDir, config.ProjectConfigFilename),
		})
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}

	if err := unlockSecrets(); err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, recorder: metrics.Nop()}
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		env.recorder = metrics.NewPrometheusRecorder(reg)
		if err := metrics.NewServer(cfg.Metrics.ListenAddr, reg).Start(ctx); err != nil {
			printer.Warning("Metrics endpoint disabled: %v", err)
		}
	}
	return env, nil
}

// unlockSecrets decrypts the secrets file if the project has one.
func unlockSecrets() error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}
	password := os.Getenv(EnvPassword)
	if password == "" {
		var err error
		password, err = readPassword("Secrets password: ")
		if err != nil {
			return printer.Error("Secrets file is locked", err.Error(), []string{
				fmt.Sprintf("Set %s for non-interactive runs", EnvPassword),
			})
		}
	}
	if err := config.LoadSecrets(projectDir, password); err != nil {
		return printer.Error("Failed to unlock secrets", err.Error(), []string{
			"Check the password",
			fmt.Sprintf("Delete %s/%s to start over", config.ProjectConfigDir, "secrets.json.enc"),
		})
	}
	return nil
}

var errNoTerminal = errors.New("stdin is not a terminal")

func readPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) { //nolint:unconvert // syscall.Stdin is not int on every platform
		return "", errNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // see above
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	defer clear(raw)
	return string(raw), nil
}

// promptNewPassword asks for a password twice.
func promptNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		first, err := readPassword("New secrets password: ")
		if err != nil {
			return "", err
		}
		second, err := readPassword("Confirm password: ")
		if err != nil {
			return "", err
		}
		if first == second && first != "" {
			return first, nil
		}
		if attempt < maxAttempts {
			printer.Warning("Passwords do not match or are empty. Please try again.")
		}
	}
	return "", fmt.Errorf("passwords do not match after %d attempts", maxAttempts)
}
