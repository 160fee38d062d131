package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/indexer"
)

func indexCmd() *cobra.Command {
	var force bool
	var excludes []string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory to build the call graph",
		Long: `Index all Python files in a directory and store the extracted
symbols and call edges in the database.

Unchanged files (by content hash) are skipped unless --force is given.
Hidden directories and common build artifacts are always excluded;
additional glob patterns can be passed with --exclude.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if force {
				if err := db.Clear(); err != nil {
					return fmt.Errorf("failed to clear database: %w", err)
				}
			}

			ix := indexer.New(db)
			opts := indexer.Options{
				Excludes: excludes,
				Force:    force,
			}
			if !quiet {
				opts.OnProgress = func(file string, current, total int) {
					fmt.Printf("\r[%d/%d] %-60s", current, total, truncateLeft(file, 60))
				}
			}

			stats, err := ix.Index(cmd.Context(), path, opts)
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Println()
			}

			fmt.Println("Done!")
			fmt.Printf("  Files indexed: %d\n", stats.FilesIndexed)
			fmt.Printf("  Symbols found: %d\n", stats.Symbols)
			fmt.Printf("  Edges created: %d\n", stats.Edges)
			if stats.FilesSkipped > 0 {
				fmt.Printf("  Skipped: %d\n", stats.FilesSkipped)
			}
			if stats.Unchanged > 0 {
				fmt.Printf("  Unchanged: %d\n", stats.Unchanged)
			}
			fmt.Printf("  Took: %v\n", stats.Duration.Round(time.Millisecond))
			if len(stats.Errors) > 0 {
				fmt.Printf("  Errors: %d\n", len(stats.Errors))
				for _, e := range stats.Errors {
					fmt.Printf("    %s\n", e)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-index all files regardless of content hash")
	cmd.Flags().StringSliceVarP(&excludes, "exclude", "e", nil, "Additional glob patterns to exclude")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-file progress output")

	return cmd
}

func truncateLeft(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
