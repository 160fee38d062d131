package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "decoder",
		Short: "Static call graph traversal for Python codebases",
		Long: `decoder builds a call graph from Python source using static
analysis, stores it in SQLite, and answers questions about it:
who calls what, how calls flow between two functions, and where
the cycles and hot spots are.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cmd.DbPath, "db", "d", ".decoder.db", "Database file path")

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
