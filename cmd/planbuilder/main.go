package main

import (
	"os"

	"planbuilder/cmd/planbuilder/commands"
	"planbuilder/pkg/version"
)

func main() {
	commands.SetVersionInfo(version.Version, version.Commit, version.Date)

	// Errors are already printed by the printer package.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
