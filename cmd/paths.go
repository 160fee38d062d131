package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/display"
	"github.com/yuan-shuo/decoder/internal/graph"
)

func pathsCmd() *cobra.Command {
	var all bool
	var maxPaths int
	var maxDepth int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "paths <from> <to>",
		Short: "Find call paths between two functions",
		Long: `Find how calls flow from one function to another. By default the
shortest path is shown; --all enumerates every simple path up to the
given limits.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			from, err := busiestMatch(db, args[0])
			if err != nil {
				return err
			}
			to, err := busiestMatch(db, args[1])
			if err != nil {
				return err
			}

			g, err := graph.Load(db)
			if err != nil {
				return err
			}

			var paths []*graph.Path
			if all {
				paths = g.AllPaths(from.ID, to.ID, maxPaths, maxDepth)
			} else if p := g.ShortestPath(from.ID, to.ID); p != nil {
				paths = []*graph.Path{p}
			}

			if asJSON {
				return outputJSON(map[string]any{
					"from":  from.QualifiedName,
					"to":    to.QualifiedName,
					"paths": paths,
				})
			}

			if len(paths) == 0 {
				fmt.Printf("No path from %s to %s\n", from.QualifiedName, to.QualifiedName)
				return nil
			}

			fmt.Printf("Paths from %s to %s:\n\n", from.QualifiedName, to.QualifiedName)
			for i, p := range paths {
				if len(paths) > 1 {
					fmt.Printf("Path %d (%d hops):\n", i+1, p.Len()-1)
				}
				fmt.Print(display.FormatPath(p))
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Enumerate all simple paths instead of just the shortest")
	cmd.Flags().IntVar(&maxPaths, "max-paths", 10, "Maximum number of paths to enumerate")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 10, "Maximum path length")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}
