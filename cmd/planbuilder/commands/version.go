package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"planbuilder/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "planbuilder %s\n", version.String())
	},
}

func init() { //nolint:gochecknoinits // cobra wiring
	rootCmd.AddCommand(versionCmd)
}
