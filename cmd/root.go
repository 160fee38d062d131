package cmd

import (
	"github.com/spf13/cobra"
)

var (
	DbPath string
)

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(callersCmd())
	rootCmd.AddCommand(calleesCmd())
	rootCmd.AddCommand(traceCmd())
	rootCmd.AddCommand(pathsCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(mcpCmd())
}
