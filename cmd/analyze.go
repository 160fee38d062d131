package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/display"
	"github.com/yuan-shuo/decoder/internal/graph"
)

func analyzeCmd() *cobra.Command {
	var maxCycles int
	var topK int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the structure of the call graph",
		Long: `Run structural analysis over the indexed call graph: cycle
detection, entry points (never called), leaf functions (call nothing)
and the most connected symbols.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			g, err := graph.Load(db)
			if err != nil {
				return err
			}

			cycles := g.FindCycles(maxCycles)
			entries := g.EntryPoints()
			leaves := g.LeafFunctions()
			hot := g.HotPaths(topK)
			order, acyclic := g.TopologicalSort()

			if asJSON {
				result := map[string]any{
					"cycles":         cycles,
					"entry_points":   entries,
					"leaf_functions": leaves,
					"hot_paths":      hot,
					"acyclic":        acyclic,
				}
				if acyclic {
					names := make([]string, 0, len(order))
					for _, s := range order {
						names = append(names, s.QualifiedName)
					}
					result["topological_order"] = names
				}
				return outputJSON(result)
			}

			symbols, edges := g.Size()
			fmt.Printf("Graph: %d symbols, %d edges\n\n", symbols, edges)

			if len(cycles) == 0 {
				fmt.Println("Cycles: none")
			} else {
				fmt.Printf("Cycles (showing up to %d):\n", maxCycles)
				for _, c := range cycles {
					fmt.Printf("  %s\n", display.FormatCycle(c))
				}
			}
			fmt.Println()

			fmt.Printf("Entry points: %d\n", len(entries))
			for _, s := range entries {
				fmt.Printf("  %s  %s:%d\n", s.QualifiedName, s.File, s.Line)
			}
			fmt.Println()

			fmt.Printf("Leaf functions: %d\n", len(leaves))
			for _, s := range leaves {
				fmt.Printf("  %s  %s:%d\n", s.QualifiedName, s.File, s.Line)
			}
			fmt.Println()

			fmt.Printf("Hot paths (top %d by connectivity):\n", topK)
			for _, h := range hot {
				fmt.Printf("  %s  (callers: %d, callees: %d)\n",
					h.Symbol.QualifiedName, h.CallerCount, h.CalleeCount)
			}

			if acyclic {
				fmt.Println("\nThe graph is acyclic; a topological order exists.")
			} else {
				fmt.Println("\nThe graph contains cycles; no topological order exists.")
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&maxCycles, "max-cycles", 10, "Maximum number of cycles to report")
	cmd.Flags().IntVar(&topK, "top", 10, "Number of hot symbols to show")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			if asJSON {
				return outputJSON(stats)
			}

			fmt.Printf("Files indexed: %d\n", stats.Files)
			fmt.Printf("Symbols: %d\n", stats.Symbols)
			for kind, count := range stats.SymbolKinds {
				fmt.Printf("  %s: %d\n", kind, count)
			}
			fmt.Printf("Edges: %d\n", stats.Edges)
			for kind, count := range stats.EdgeKinds {
				fmt.Printf("  %s: %d\n", kind, count)
			}
			if stats.LastIndexed != "" {
				fmt.Printf("Last indexed: %s\n", stats.LastIndexed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}
