package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tidecall",
	Short: "Tidecall session tools",
	Long: `Tidecall relays privileged board mutations from untrusted session
participants to the single privileged coordinator.

Available commands:
  coordinator    Run the privileged coordinator process

Use "tidecall [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
