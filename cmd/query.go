package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuan-shuo/decoder/internal/display"
	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/storage"
)

func findCmd() *cobra.Command {
	var symbolType string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Search for functions, classes, and methods by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			symbols, err := db.FindSymbolsByPattern(name, graph.SymbolKind(symbolType))
			if err != nil {
				return err
			}

			if asJSON {
				results := make([]map[string]any, 0, len(symbols))
				for _, s := range symbols {
					results = append(results, symbolJSON(s))
				}
				return outputJSON(results)
			}

			if len(symbols) == 0 {
				fmt.Printf("No matches for '%s'\n", name)
				return nil
			}
			for _, s := range symbols {
				fmt.Printf("%s (%s)\n", s.QualifiedName, s.Kind)
				fmt.Printf("  %s:%d\n", s.File, s.Line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbolType, "type", "t", "", "Filter by type: function, class, method")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func callersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "callers <name>",
		Short: "Show what calls a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCallQuery(args[0], asJSON, true)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func calleesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "callees <name>",
		Short: "Show what a function calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCallQuery(args[0], asJSON, false)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func runCallQuery(name string, asJSON, callers bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	symbols, err := db.FindSymbolsByPattern(name, "")
	if err != nil {
		return err
	}

	if asJSON {
		results := make([]map[string]any, 0, len(symbols))
		for _, sym := range symbols {
			sites, err := lookupSites(db, sym.ID, callers)
			if err != nil {
				return err
			}
			siteDicts := make([]map[string]any, 0, len(sites))
			for _, cs := range sites {
				d := symbolJSON(cs.Symbol)
				d["call_line"] = cs.Edge.CallLine
				d["is_conditional"] = cs.Edge.IsConditional
				d["condition"] = cs.Edge.Condition
				d["is_loop"] = cs.Edge.IsLoop
				d["is_try_block"] = cs.Edge.IsTry
				siteDicts = append(siteDicts, d)
			}
			entry := map[string]any{"symbol": symbolJSON(sym)}
			if callers {
				entry["callers"] = siteDicts
			} else {
				entry["callees"] = siteDicts
			}
			results = append(results, entry)
		}
		return outputJSON(results)
	}

	if len(symbols) == 0 {
		fmt.Printf("No matches for '%s'\n", name)
		return nil
	}

	for _, sym := range symbols {
		fmt.Printf("\n%s (%s)\n", sym.QualifiedName, sym.Kind)
		fmt.Printf("  %s:%d\n", sym.File, sym.Line)

		sites, err := lookupSites(db, sym.ID, callers)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			if callers {
				fmt.Println("  No callers found")
			} else {
				fmt.Println("  No calls found")
			}
			continue
		}

		if callers {
			fmt.Println("  Called by:")
		} else {
			fmt.Println("  Calls:")
		}
		for _, cs := range sites {
			ctx := display.FormatEdgeContext(cs.Edge)
			if ctx != "" {
				ctx = " " + ctx
			}
			if callers {
				fmt.Printf("    %s (%s:%d)%s\n", cs.Symbol.Name, cs.Symbol.File, cs.Edge.CallLine, ctx)
			} else {
				fmt.Printf("    %s (line %d)%s\n", cs.Symbol.Name, cs.Edge.CallLine, ctx)
			}
		}
	}
	return nil
}

func lookupSites(db *storage.DB, symbolID int64, callers bool) ([]storage.CallSite, error) {
	if callers {
		return db.GetCallers(symbolID)
	}
	return db.GetCallees(symbolID)
}
