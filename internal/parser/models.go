package parser

import (
	"fmt"

	"github.com/yuan-shuo/decoder/internal/graph"
)

// RawSymbol is a symbol extracted from a single file, before database
// IDs are assigned
type RawSymbol struct {
	Name          string
	QualifiedName string
	Kind          graph.SymbolKind
	Line          int
	EndLine       int
	// Parent is the qualified name of the enclosing scope, empty at
	// module level
	Parent string
}

// CallContext records the control flow surrounding a call site
type CallContext struct {
	Conditional bool
	Condition   string
	Loop        bool
	Try         bool
	Except      bool
}

// IsZero reports whether no context flag is set
func (c CallContext) IsZero() bool {
	return !c.Conditional && !c.Loop && !c.Try && !c.Except
}

// RawEdge is an unresolved reference from a scope to a callee name as
// written in source
type RawEdge struct {
	// Caller is the qualified name of the enclosing scope
	Caller  string
	Callee  string
	Line    int
	Kind    graph.EdgeKind
	Context CallContext
}

// TypedVar is a variable with a known type annotation, used for
// heuristic call resolution. Name is either a plain variable ("svc") or
// an instance attribute ("self.svc").
type TypedVar struct {
	Name  string
	Type  string
	Scope string
}

// ParseResult holds everything extracted from one file
type ParseResult struct {
	Path        string
	Module      string
	Symbols     []RawSymbol
	Edges       []RawEdge
	Imports     map[string]string
	StarImports []string
	TypedVars   []TypedVar
}

// ParseError reports a file that could not be parsed
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s: %s", e.Path, e.Reason)
}
