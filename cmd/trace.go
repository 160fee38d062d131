package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/display"
	"github.com/yuan-shuo/decoder/internal/graph"
)

func traceCmd() *cobra.Command {
	var maxDepth int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trace <name>",
		Short: "Trace the call tree around a function (callers and callees)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			start, err := busiestMatch(db, name)
			if err != nil {
				return err
			}

			g, err := graph.Load(db)
			if err != nil {
				return err
			}

			callerTree := g.CallerTree(start.ID, maxDepth)
			calleeTree := g.CalleeTree(start.ID, maxDepth)

			if asJSON {
				result := map[string]any{"start": start.QualifiedName}
				if callerTree != nil {
					result["callers"] = callerTree
				}
				if calleeTree != nil {
					result["callees"] = calleeTree
				}
				return outputJSON(result)
			}

			fmt.Printf("\nCall tree for %s\n", start.Name)
			fmt.Printf("%s:%d\n\n", start.File, start.Line)

			if callerTree != nil && len(callerTree.Children) > 0 {
				fmt.Println("Callers:")
				fmt.Print(display.FormatCallerTree(callerTree))
				fmt.Println()
			}

			fmt.Printf("▶ %s ◀ selected\n\n", start.Name)

			if calleeTree != nil && len(calleeTree.Children) > 0 {
				fmt.Println("Callees:")
				fmt.Print(display.FormatCalleeTree(calleeTree))
			}

			callerCount, calleeCount := 0, 0
			if callerTree != nil {
				callerCount = callerTree.Len() - 1
			}
			if calleeTree != nil {
				calleeCount = calleeTree.Len() - 1
			}
			fmt.Printf("\nCallers: %d | Callees: %d\n", callerCount, calleeCount)

			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "depth", 10, "Maximum trace depth")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}
