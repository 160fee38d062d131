package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openDB() (*storage.DB, error) {
	db, err := storage.Open(DbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// busiestMatch picks the pattern match with the most direct edges, so
// commands that need a single starting symbol prefer the one with the
// most call activity
func busiestMatch(db *storage.DB, name string) (*graph.Symbol, error) {
	symbols, err := db.FindSymbolsByPattern(name, "")
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbol found matching '%s' (run 'decoder index' first?)", name)
	}

	best := symbols[0]
	bestDegree := -1
	for _, sym := range symbols {
		in, err := db.GetEdgesTo(sym.ID)
		if err != nil {
			return nil, err
		}
		out, err := db.GetEdgesFrom(sym.ID)
		if err != nil {
			return nil, err
		}
		if degree := len(in) + len(out); degree > bestDegree {
			bestDegree = degree
			best = sym
		}
	}
	return best, nil
}

func symbolJSON(s *graph.Symbol) map[string]any {
	return map[string]any{
		"id":             s.ID,
		"name":           s.Name,
		"qualified_name": s.QualifiedName,
		"type":           s.Kind,
		"file":           s.File,
		"line":           s.Line,
		"end_line":       s.EndLine,
	}
}
