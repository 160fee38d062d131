// Package parser extracts symbols, call edges and type hints from
// Python source files using tree-sitter.
package parser

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/yuan-shuo/decoder/internal/graph"
)

// Parser parses Python files. It is not safe for concurrent use; each
// goroutine should create its own Parser.
type Parser struct {
	parser *sitter.Parser
}

// New creates a Python parser
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Supports reports whether the parser handles the given file
func (p *Parser) Supports(path string) bool {
	return strings.HasSuffix(path, ".py")
}

// ParseFile reads and parses a Python file. path should be relative to
// the project root: it determines the module name of the symbols.
func (p *Parser) ParseFile(ctx context.Context, root, path string) (*ParseResult, error) {
	content, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}
	return p.Parse(ctx, path, content)
}

// Parse parses Python source. path determines the module name.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	if !utf8.Valid(content) {
		return nil, &ParseError{Path: path, Reason: "file is not valid UTF-8"}
	}

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, &ParseError{Path: path, Reason: "syntax error"}
	}

	w := &walker{
		src:    content,
		module: moduleName(path),
		res: &ParseResult{
			Path:    path,
			Module:  moduleName(path),
			Imports: make(map[string]string),
		},
	}
	w.walkChildren(root)
	return w.res, nil
}

// moduleName converts a relative file path to a dotted module name.
// A leading "src" component is dropped so that src-layout projects
// produce importable names.
func moduleName(path string) string {
	path = strings.TrimSuffix(filepath.ToSlash(path), ".py")
	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "src" {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// scope is one level of the lexical nesting during traversal
type scope struct {
	name      string
	qualified string
	kind      graph.SymbolKind
}

type walker struct {
	src    []byte
	module string
	res    *ParseResult

	scopes []scope
	ctxs   []CallContext

	// currentClass is the qualified name of the innermost enclosing
	// class, empty outside any class
	currentClass string

	// initParams maps annotated __init__ parameter names to their
	// types while inside __init__, for self.x = param tracking
	initParams map[string]string
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.src[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

func (w *walker) currentScope() *scope {
	if len(w.scopes) == 0 {
		return nil
	}
	return &w.scopes[len(w.scopes)-1]
}

func (w *walker) currentQualified() string {
	if s := w.currentScope(); s != nil {
		return s.qualified
	}
	return w.module
}

func (w *walker) qualify(name string) string {
	return w.currentQualified() + "." + name
}

// mergedContext flattens the context stack into a single context. Flags
// accumulate; the outermost condition text wins.
func (w *walker) mergedContext() CallContext {
	var merged CallContext
	for _, ctx := range w.ctxs {
		if ctx.Conditional {
			merged.Conditional = true
			if ctx.Condition != "" && merged.Condition == "" {
				merged.Condition = ctx.Condition
			}
		}
		if ctx.Loop {
			merged.Loop = true
		}
		if ctx.Try {
			merged.Try = true
		}
		if ctx.Except {
			merged.Except = true
		}
	}
	return merged
}

func (w *walker) pushCtx(ctx CallContext) {
	w.ctxs = append(w.ctxs, ctx)
}

func (w *walker) popCtx() {
	w.ctxs = w.ctxs[:len(w.ctxs)-1]
}

func (w *walker) addSymbol(name string, kind graph.SymbolKind, ln, end int) string {
	qualified := w.qualify(name)
	sym := RawSymbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		Line:          ln,
		EndLine:       end,
	}
	if s := w.currentScope(); s != nil {
		sym.Parent = s.qualified
	}
	w.res.Symbols = append(w.res.Symbols, sym)
	return qualified
}

func (w *walker) addEdge(callee string, ln int, kind graph.EdgeKind) {
	w.res.Edges = append(w.res.Edges, RawEdge{
		Caller:  w.currentQualified(),
		Callee:  callee,
		Line:    ln,
		Kind:    kind,
		Context: w.mergedContext(),
	})
}

func (w *walker) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

func (w *walker) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		w.handleImport(n)
	case "import_from_statement":
		w.handleImportFrom(n)
	case "class_definition":
		w.handleClass(n, nil)
	case "function_definition":
		w.handleFunction(n, nil)
	case "decorated_definition":
		w.handleDecorated(n)
	case "assignment":
		w.handleAssignment(n)
		w.walkChildren(n)
	case "call":
		if callee := w.nameOf(n.ChildByFieldName("function")); callee != "" {
			w.addEdge(callee, line(n), graph.EdgeCall)
		}
		w.walkChildren(n)
	case "if_statement":
		w.handleIf(n)
	case "for_statement":
		w.pushCtx(CallContext{Loop: true})
		w.walkChildren(n)
		w.popCtx()
	case "while_statement":
		w.handleWhile(n)
	case "try_statement":
		w.handleTry(n)
	case "with_statement":
		// Context managers behave like try blocks for cleanup purposes
		w.pushCtx(CallContext{Try: true})
		w.walkChildren(n)
		w.popCtx()
	default:
		w.walkChildren(n)
	}
}

// handleImport handles "import a.b" and "import a.b as c"
func (w *walker) handleImport(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			module := w.text(child)
			local := strings.SplitN(module, ".", 2)[0]
			w.res.Imports[local] = module
			w.addEdge(module, line(n), graph.EdgeImport)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			module := w.text(name)
			w.res.Imports[w.text(alias)] = module
			w.addEdge(module, line(n), graph.EdgeImport)
		}
	}
}

// handleImportFrom handles "from a.b import c", aliases, relative
// imports and wildcard imports
func (w *walker) handleImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := w.resolveImportModule(moduleNode)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		// The module path appears among the named children too; skip it
		if child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			name := w.text(child)
			qualified := name
			if module != "" {
				qualified = module + "." + name
			}
			w.res.Imports[name] = qualified
			w.addEdge(qualified, line(n), graph.EdgeImport)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			name := w.text(nameNode)
			qualified := name
			if module != "" {
				qualified = module + "." + name
			}
			w.res.Imports[w.text(aliasNode)] = qualified
			w.addEdge(qualified, line(n), graph.EdgeImport)
		case "wildcard_import":
			w.res.StarImports = append(w.res.StarImports, module)
			w.addEdge(module+".*", line(n), graph.EdgeImport)
		}
	}
}

// resolveImportModule returns the absolute module path for an import
// source, resolving relative imports against the current module
func (w *walker) resolveImportModule(n *sitter.Node) string {
	if n.Type() != "relative_import" {
		return w.text(n)
	}

	level := 0
	module := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_prefix":
			level = len(w.text(child))
		case "dotted_name":
			module = w.text(child)
		}
	}

	parts := strings.Split(w.module, ".")
	if len(parts) < level {
		return module
	}
	base := parts[:len(parts)-level]
	if module != "" {
		return strings.Join(append(base, module), ".")
	}
	return strings.Join(base, ".")
}

// handleDecorated collects the decorators and dispatches to the
// wrapped definition
func (w *walker) handleDecorated(n *sitter.Node) {
	var decorators []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}
	switch def.Type() {
	case "class_definition":
		w.handleClass(def, decorators)
	case "function_definition":
		w.handleFunction(def, decorators)
	}
}

func (w *walker) decoratorName(dec *sitter.Node) string {
	if dec.NamedChildCount() == 0 {
		return ""
	}
	return w.nameOf(dec.NamedChild(0))
}

func (w *walker) handleClass(n *sitter.Node, decorators []*sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	qualified := w.addSymbol(name, graph.KindClass, line(n), endLine(n))

	// Base class and decorator edges originate from the enclosing
	// scope: the class body has not been entered yet
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			if base := w.nameOf(supers.NamedChild(i)); base != "" {
				w.addEdge(base, line(n), graph.EdgeInherit)
			}
		}
	}
	for _, dec := range decorators {
		if decName := w.decoratorName(dec); decName != "" {
			w.addEdge(decName, line(dec), graph.EdgeCall)
		}
	}

	oldClass := w.currentClass
	w.currentClass = qualified
	w.scopes = append(w.scopes, scope{name: name, qualified: qualified, kind: graph.KindClass})

	if body := n.ChildByFieldName("body"); body != nil {
		w.walkChildren(body)
	}

	w.scopes = w.scopes[:len(w.scopes)-1]
	w.currentClass = oldClass
}

func (w *walker) handleFunction(n *sitter.Node, decorators []*sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)

	kind := graph.KindFunction
	if s := w.currentScope(); s != nil && s.kind == graph.KindClass {
		kind = graph.KindMethod
	}

	qualified := w.addSymbol(name, kind, line(n), endLine(n))

	params := w.collectTypedParams(n.ChildByFieldName("parameters"))
	for param, typeName := range params {
		w.res.TypedVars = append(w.res.TypedVars, TypedVar{
			Name:  param,
			Type:  typeName,
			Scope: qualified,
		})
	}

	for _, dec := range decorators {
		decName := w.decoratorName(dec)
		if decName != "" && decName != "property" {
			w.addEdge(decName, line(dec), graph.EdgeCall)
		}
	}

	oldParams := w.initParams
	w.initParams = nil
	if kind == graph.KindMethod && name == "__init__" {
		w.initParams = params
	}

	w.scopes = append(w.scopes, scope{name: name, qualified: qualified, kind: kind})

	if body := n.ChildByFieldName("body"); body != nil {
		w.walkChildren(body)
	}

	w.scopes = w.scopes[:len(w.scopes)-1]
	w.initParams = oldParams
}

// collectTypedParams returns the annotated parameters of a function,
// excluding self and cls
func (w *walker) collectTypedParams(params *sitter.Node) map[string]string {
	typed := make(map[string]string)
	if params == nil {
		return typed
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		var nameNode, typeNode *sitter.Node
		switch p.Type() {
		case "typed_parameter":
			if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
				nameNode = p.NamedChild(0)
			}
			typeNode = p.ChildByFieldName("type")
		case "typed_default_parameter":
			nameNode = p.ChildByFieldName("name")
			typeNode = p.ChildByFieldName("type")
		}
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := w.text(nameNode)
		if name == "self" || name == "cls" {
			continue
		}
		if typeName := w.typeFromAnnotation(typeNode); typeName != "" {
			typed[name] = typeName
		}
	}
	return typed
}

// typeFromAnnotation extracts a usable type name from an annotation,
// unwrapping Annotated[X, ...] to X
func (w *walker) typeFromAnnotation(n *sitter.Node) string {
	if n.Type() == "type" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	if n.Type() == "subscript" && w.nameOf(n.ChildByFieldName("value")) == "Annotated" {
		if inner := n.ChildByFieldName("subscript"); inner != nil {
			return w.nameOf(inner)
		}
		return ""
	}
	return w.nameOf(n)
}

// handleAssignment records variable symbols at module or class level
// and tracks self.x = param assignments inside __init__
func (w *walker) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}

	w.trackSelfAssignment(left, n.ChildByFieldName("right"))

	s := w.currentScope()
	if s != nil && s.kind != graph.KindClass {
		return
	}

	switch left.Type() {
	case "identifier":
		w.addSymbol(w.text(left), graph.KindVariable, line(n), endLine(n))
	case "pattern_list", "tuple_pattern":
		for i := 0; i < int(left.NamedChildCount()); i++ {
			elt := left.NamedChild(i)
			if elt.Type() == "identifier" {
				w.addSymbol(w.text(elt), graph.KindVariable, line(n), endLine(n))
			}
		}
	}
}

func (w *walker) trackSelfAssignment(left, right *sitter.Node) {
	if w.currentClass == "" || len(w.initParams) == 0 || right == nil {
		return
	}
	if left.Type() != "attribute" || right.Type() != "identifier" {
		return
	}
	obj := left.ChildByFieldName("object")
	attr := left.ChildByFieldName("attribute")
	if obj == nil || attr == nil || obj.Type() != "identifier" || w.text(obj) != "self" {
		return
	}
	typeName, ok := w.initParams[w.text(right)]
	if !ok {
		return
	}
	w.res.TypedVars = append(w.res.TypedVars, TypedVar{
		Name:  "self." + w.text(attr),
		Type:  typeName,
		Scope: w.currentClass,
	})
}

func (w *walker) handleIf(n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	condText := ""
	if cond != nil {
		condText = w.conditionText(cond)
		w.walk(cond)
	}

	w.pushCtx(CallContext{Conditional: true, Condition: condText})
	if body := n.ChildByFieldName("consequence"); body != nil {
		w.walkChildren(body)
	}
	w.popCtx()

	// elif/else branches run under the negation of every condition
	// tested so far; the negations stay stacked until the chain ends
	negations := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			w.pushCtx(CallContext{Conditional: true, Condition: negate(condText)})
			negations++

			elifCond := child.ChildByFieldName("condition")
			elifText := ""
			if elifCond != nil {
				elifText = w.conditionText(elifCond)
				w.walk(elifCond)
			}
			w.pushCtx(CallContext{Conditional: true, Condition: elifText})
			if body := child.ChildByFieldName("consequence"); body != nil {
				w.walkChildren(body)
			}
			w.popCtx()
			condText = elifText
		case "else_clause":
			w.pushCtx(CallContext{Conditional: true, Condition: negate(condText)})
			negations++
			if body := child.ChildByFieldName("body"); body != nil {
				w.walkChildren(body)
			}
		}
	}
	for ; negations > 0; negations-- {
		w.popCtx()
	}
}

func (w *walker) handleWhile(n *sitter.Node) {
	if cond := n.ChildByFieldName("condition"); cond != nil {
		w.walk(cond)
	}

	w.pushCtx(CallContext{Loop: true})
	if body := n.ChildByFieldName("body"); body != nil {
		w.walkChildren(body)
	}
	w.popCtx()

	// The while/else clause runs outside the loop
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if body := alt.ChildByFieldName("body"); body != nil {
			w.walkChildren(body)
		}
	}
}

func (w *walker) handleTry(n *sitter.Node) {
	w.pushCtx(CallContext{Try: true})
	if body := n.ChildByFieldName("body"); body != nil {
		w.walkChildren(body)
	}
	w.popCtx()

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "except_clause":
			w.pushCtx(CallContext{Except: true})
			w.walkExceptBody(child)
			w.popCtx()
		case "else_clause", "finally_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				sub := child.NamedChild(j)
				if sub.Type() == "block" {
					w.walkChildren(sub)
				}
			}
		}
	}
}

func (w *walker) walkExceptBody(clause *sitter.Node) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		if child.Type() == "block" {
			w.walkChildren(child)
		}
	}
}

// negate renders the else-branch condition. Long conditions collapse
// to "else" to keep the annotation readable.
func negate(cond string) string {
	if cond == "" || len(cond) >= 30 {
		return "else"
	}
	return "not (" + cond + ")"
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// conditionText returns the condition source with whitespace collapsed
// onto a single line
func (w *walker) conditionText(n *sitter.Node) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(w.text(n), " "))
}

// nameOf extracts a dotted name from an expression node: identifiers
// and attribute chains resolve to their source text, calls resolve to
// the called expression, subscripts to the subscripted value
func (w *walker) nameOf(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "dotted_name":
		return w.text(n)
	case "attribute":
		obj := w.nameOf(n.ChildByFieldName("object"))
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return obj
		}
		if obj == "" {
			return w.text(attr)
		}
		return obj + "." + w.text(attr)
	case "call":
		return w.nameOf(n.ChildByFieldName("function"))
	case "subscript":
		return w.nameOf(n.ChildByFieldName("value"))
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return w.nameOf(n.NamedChild(0))
		}
	}
	return ""
}
