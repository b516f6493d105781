// Package commands assembles the analyzer CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "analyzer",
		Short:   "Recurring batch analyzer for financial transaction feeds",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}
