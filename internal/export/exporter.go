// Package export serializes the indexed call graph to interchange
// formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/storage"
)

// Exporter writes the call graph stored in a database
type Exporter struct {
	db *storage.DB
}

// New creates an exporter reading from the given database
func New(db *storage.DB) *Exporter {
	return &Exporter{db: db}
}

type jsonDocument struct {
	Symbols []*graph.Symbol `json:"symbols"`
	Edges   []*graph.Edge   `json:"edges"`
	Stats   *storage.Stats  `json:"stats"`
}

// JSON writes the full graph as an indented JSON document
func (e *Exporter) JSON(w io.Writer) error {
	symbols, err := e.db.GetAllSymbols()
	if err != nil {
		return err
	}
	edges, err := e.db.GetAllEdges()
	if err != nil {
		return err
	}
	stats, err := e.db.GetStats()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{Symbols: symbols, Edges: edges, Stats: stats})
}

// DOT writes the call graph in Graphviz dot format. Conditional call
// sites render as dashed edges, imports as dotted, inheritance as bold.
func (e *Exporter) DOT(w io.Writer) error {
	symbols, err := e.db.GetAllSymbols()
	if err != nil {
		return err
	}
	edges, err := e.db.GetAllEdges()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("digraph callgraph {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, fontname=\"monospace\"];\n\n")

	known := make(map[int64]bool, len(symbols))
	for _, s := range symbols {
		known[s.ID] = true
		label := fmt.Sprintf("%s\\n%s:%d", escapeDOT(s.Name), escapeDOT(s.File), s.Line)
		attrs := ""
		if s.Kind == graph.KindClass {
			attrs = ", style=filled, fillcolor=lightgray"
		}
		fmt.Fprintf(&sb, "  n%d [label=\"%s\"%s];\n", s.ID, label, attrs)
	}
	sb.WriteString("\n")

	for _, edge := range edges {
		if !known[edge.CallerID] || !known[edge.CalleeID] {
			continue
		}
		var attrs []string
		switch edge.Kind {
		case graph.EdgeImport:
			attrs = append(attrs, "style=dotted", "color=gray")
		case graph.EdgeInherit:
			attrs = append(attrs, "style=bold", "arrowhead=empty")
		default:
			if edge.IsConditional {
				attrs = append(attrs, "style=dashed")
			}
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&sb, "  n%d -> n%d [%s];\n", edge.CallerID, edge.CalleeID, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&sb, "  n%d -> n%d;\n", edge.CallerID, edge.CalleeID)
		}
	}

	sb.WriteString("}\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
