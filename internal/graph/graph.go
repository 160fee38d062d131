package graph

import "sort"

// SymbolKind classifies a code element extracted from Python source
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindClass    SymbolKind = "class"
	KindMethod   SymbolKind = "method"
	KindVariable SymbolKind = "variable"
)

// EdgeKind classifies the relationship between two symbols
type EdgeKind string

const (
	EdgeCall      EdgeKind = "call"
	EdgeImport    EdgeKind = "import"
	EdgeInherit   EdgeKind = "inherit"
	EdgeAttribute EdgeKind = "attribute"
)

// Symbol is a named code element (function, class, method or variable)
type Symbol struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"`
	File          string     `json:"file"`
	Line          int        `json:"line"`
	EndLine       *int       `json:"end_line,omitempty"`
	Kind          SymbolKind `json:"type"`
	ParentID      *int64     `json:"parent_id,omitempty"`
}

// Edge is a directed relationship between two symbols, annotated with
// the control-flow context of the call site
type Edge struct {
	ID            int64    `json:"id"`
	CallerID      int64    `json:"caller_id"`
	CalleeID      int64    `json:"callee_id"`
	CallLine      int      `json:"call_line"`
	Kind          EdgeKind `json:"call_type"`
	IsConditional bool     `json:"is_conditional"`
	Condition     string   `json:"condition,omitempty"`
	IsLoop        bool     `json:"is_loop"`
	IsTry         bool     `json:"is_try_block"`
	IsExcept      bool     `json:"is_except_handler"`
}

type neighbor struct {
	id   int64
	edge *Edge
}

// Call pairs a neighboring symbol with the edge that connects it
type Call struct {
	Symbol *Symbol `json:"symbol"`
	Edge   *Edge   `json:"edge"`
}

// CallGraph is a directed graph over symbols with adjacency lists for
// O(1) neighbor lookup in both directions
type CallGraph struct {
	symbols map[int64]*Symbol
	edges   []*Edge
	out     map[int64][]neighbor
	in      map[int64][]neighbor
}

// New creates an empty call graph
func New() *CallGraph {
	return &CallGraph{
		symbols: make(map[int64]*Symbol),
		out:     make(map[int64][]neighbor),
		in:      make(map[int64][]neighbor),
	}
}

// AddSymbol adds a symbol node
func (g *CallGraph) AddSymbol(s *Symbol) {
	g.symbols[s.ID] = s
	if _, ok := g.out[s.ID]; !ok {
		g.out[s.ID] = nil
	}
	if _, ok := g.in[s.ID]; !ok {
		g.in[s.ID] = nil
	}
}

// AddEdge adds a directed edge between two symbols
func (g *CallGraph) AddEdge(e *Edge) {
	g.edges = append(g.edges, e)
	g.out[e.CallerID] = append(g.out[e.CallerID], neighbor{id: e.CalleeID, edge: e})
	g.in[e.CalleeID] = append(g.in[e.CalleeID], neighbor{id: e.CallerID, edge: e})
}

// Symbol returns the symbol with the given ID
func (g *CallGraph) Symbol(id int64) (*Symbol, bool) {
	s, ok := g.symbols[id]
	return s, ok
}

// Edges returns all edges in insertion order
func (g *CallGraph) Edges() []*Edge {
	return g.edges
}

// Callees returns direct callees of a symbol. Neighbors whose symbol
// was never loaded into the graph are skipped.
func (g *CallGraph) Callees(id int64) []Call {
	return g.resolve(g.out[id])
}

// Callers returns direct callers of a symbol
func (g *CallGraph) Callers(id int64) []Call {
	return g.resolve(g.in[id])
}

func (g *CallGraph) resolve(ns []neighbor) []Call {
	var calls []Call
	for _, n := range ns {
		if s, ok := g.symbols[n.id]; ok {
			calls = append(calls, Call{Symbol: s, Edge: n.edge})
		}
	}
	return calls
}

// OutDegree returns the number of outgoing edges
func (g *CallGraph) OutDegree(id int64) int {
	return len(g.out[id])
}

// InDegree returns the number of incoming edges
func (g *CallGraph) InDegree(id int64) int {
	return len(g.in[id])
}

// Size returns the number of symbols and edges
func (g *CallGraph) Size() (symbols, edges int) {
	return len(g.symbols), len(g.edges)
}

// symbolIDs returns all symbol IDs in ascending order so traversals
// over the graph are deterministic
func (g *CallGraph) symbolIDs() []int64 {
	ids := make([]int64, 0, len(g.symbols))
	for id := range g.symbols {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
