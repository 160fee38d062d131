package indexer

import (
	"strings"

	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/parser"
)

const selfPrefix = "self."

// resolveCallee maps a callee name as written in source to a symbol
// ID. Resolution tries, in order: the symbol cache, self.method and
// self.attr.method within the enclosing class, typed local variables,
// import aliases, and finally a direct qualified-name lookup.
func (ix *Indexer) resolveCallee(callee, caller string, res *parser.ParseResult) (int64, bool) {
	if id, ok := ix.cache[callee]; ok {
		return id, true
	}

	if strings.HasPrefix(callee, selfPrefix) {
		method := callee[len(selfPrefix):]

		if strings.Contains(method, ".") {
			if id, ok := ix.resolveInstanceVarCall(callee, caller, res); ok {
				return id, true
			}
		}

		if class := ix.enclosingClass(caller); class != "" {
			if id, ok := ix.cache[class+"."+method]; ok {
				return id, true
			}
		}
	}

	if strings.Contains(callee, ".") {
		if id, ok := ix.resolveTypedCall(callee, caller, res); ok {
			return id, true
		}
	}

	first := strings.SplitN(callee, ".", 2)[0]
	if module, ok := res.Imports[first]; ok {
		resolved := module + callee[len(first):]
		if id, ok := ix.cache[resolved]; ok {
			return id, true
		}
	}

	if sym, err := ix.db.GetSymbolByQualifiedName(callee); err == nil {
		return sym.ID, true
	}
	return 0, false
}

// resolveInstanceVarCall resolves a method call through a typed
// instance attribute, e.g. self.repo.create where self.repo was
// assigned from an annotated __init__ parameter
func (ix *Indexer) resolveInstanceVarCall(callee, caller string, res *parser.ParseResult) (int64, bool) {
	if len(res.TypedVars) == 0 {
		return 0, false
	}

	parts := strings.Split(callee, ".")
	if len(parts) < 3 || parts[0] != "self" {
		return 0, false
	}
	attr := "self." + parts[1]
	method := strings.Join(parts[2:], ".")

	class := ix.enclosingClass(caller)
	if class == "" {
		return 0, false
	}

	varType := lookupTypedVar(res.TypedVars, attr, class)
	if varType == "" {
		return 0, false
	}
	return ix.resolveMethodOnType(varType, method, res)
}

// resolveTypedCall resolves a method call through an annotated local
// variable, e.g. service.create where service: TodoService is a
// parameter of the calling function
func (ix *Indexer) resolveTypedCall(callee, caller string, res *parser.ParseResult) (int64, bool) {
	if len(res.TypedVars) == 0 {
		return 0, false
	}

	parts := strings.SplitN(callee, ".", 2)
	if len(parts) != 2 {
		return 0, false
	}
	varName, method := parts[0], parts[1]

	varType := lookupTypedVar(res.TypedVars, varName, caller)
	if varType == "" {
		return 0, false
	}
	return ix.resolveMethodOnType(varType, method, res)
}

// resolveMethodOnType finds varType.method, substituting the import
// alias for varType when one exists. When the qualified lookup misses,
// a name search with a .varType.method suffix match serves as a
// fallback for types the import map does not cover.
func (ix *Indexer) resolveMethodOnType(varType, method string, res *parser.ParseResult) (int64, bool) {
	resolvedType := varType
	if imported, ok := res.Imports[varType]; ok {
		resolvedType = imported
	}

	qualified := resolvedType + "." + method
	if id, ok := ix.cache[qualified]; ok {
		return id, true
	}
	if sym, err := ix.db.GetSymbolByQualifiedName(qualified); err == nil {
		return sym.ID, true
	}

	candidates, err := ix.db.FindSymbolsByName(method, "")
	if err != nil {
		return 0, false
	}
	suffix := "." + varType + "." + method
	for _, s := range candidates {
		if strings.HasSuffix(s.QualifiedName, suffix) {
			return s.ID, true
		}
	}
	return 0, false
}

func lookupTypedVar(vars []parser.TypedVar, name, scope string) string {
	for _, tv := range vars {
		if tv.Name == name && tv.Scope == scope {
			return tv.Type
		}
	}
	return ""
}

// enclosingClass walks up a qualified name until it finds a component
// that is a known class symbol
func (ix *Indexer) enclosingClass(qualified string) string {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return ""
	}
	parent := qualified[:idx]

	if _, ok := ix.cache[parent]; ok {
		if sym, err := ix.db.GetSymbolByQualifiedName(parent); err == nil && sym.Kind == graph.KindClass {
			return parent
		}
	}
	return ix.enclosingClass(parent)
}
