package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/indexer"
	"github.com/yuan-shuo/decoder/internal/mcp"
	"github.com/yuan-shuo/decoder/internal/watcher"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp [project-path]",
		Short: "Start the MCP (Model Context Protocol) server",
		Long: `Start an MCP server on stdio so AI assistants can query the call
graph directly.

Available tools:
  - decoder_find: search symbols by name
  - decoder_callers: who calls a function
  - decoder_callees: what a function calls
  - decoder_trace: full call tree around a symbol
  - decoder_path: call paths between two symbols
  - decoder_cycles: circular call chains
  - decoder_stats: index statistics
  - decoder_index: refresh the index`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			server := mcp.NewServer(db, root)
			return server.Run()
		},
	}

	return cmd
}

func watchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "Watch for file changes and keep the index up to date",
		Long: `Watch the project tree for Python file changes. Changed files are
re-indexed after a short debounce window; deleted files are removed
from the index.

Example:
  decoder watch .                  # watch the current directory
  decoder watch . --debounce 1000  # use a 1 second debounce window`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			fmt.Println("Running initial index...")
			db, err := openDB()
			if err != nil {
				return err
			}
			ix := indexer.New(db)
			stats, err := ix.Index(cmd.Context(), projectPath, indexer.Options{})
			db.Close()
			if err != nil {
				return fmt.Errorf("initial index failed: %w", err)
			}
			fmt.Printf("Initial index done: %d files, %d symbols, %d edges\n",
				stats.FilesIndexed, stats.Symbols, stats.Edges)

			fmt.Printf("\nWatching: %s\n", projectPath)
			fmt.Printf("Database: %s\n", DbPath)
			fmt.Printf("Debounce: %dms\n", debounceMs)
			fmt.Println("\nPress Ctrl+C to stop...")
			fmt.Println()

			w, err := watcher.New(
				projectPath,
				DbPath,
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnIndexStart(func(files []string) {
					fmt.Printf("[%s] %d file(s) changed, re-indexing...\n",
						time.Now().Format("15:04:05"), len(files))
				}),
				watcher.WithOnIndexDone(func(stats *indexer.Stats) {
					fmt.Printf("[%s] Re-index done: %d files, %d symbols, %d edges (%v)\n",
						time.Now().Format("15:04:05"), stats.FilesIndexed, stats.Symbols,
						stats.Edges, stats.Duration.Round(time.Millisecond))
					for _, e := range stats.Errors {
						fmt.Fprintf(os.Stderr, "  %s\n", e)
					}
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] Error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}

			w.Start()
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\nStopping...")
			return nil
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "Debounce delay in milliseconds")

	return cmd
}
