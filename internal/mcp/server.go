// Package mcp exposes the call graph to editors and agents over the
// Model Context Protocol (JSON-RPC 2.0 on stdio).
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/indexer"
	"github.com/yuan-shuo/decoder/internal/storage"
)

// Server implements the MCP protocol for decoder
type Server struct {
	db     *storage.DB
	root   string
	input  io.Reader
	output io.Writer
}

// NewServer creates a new MCP server. root is the project directory
// used by the index tool.
func NewServer(db *storage.DB, root string) *Server {
	return &Server{
		db:     db,
		root:   root,
		input:  os.Stdin,
		output: os.Stdout,
	}
}

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP specific types
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run starts the MCP server
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	// Increase buffer size for large messages
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized":
		// Notification, no response needed
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(req)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "decoder",
			Version: "1.0.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsList(req *Request) {
	tools := []Tool{
		{
			Name:        "decoder_find",
			Description: "Search for symbols (functions, classes, methods) by name. Supports partial matching.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "Search query (partial name match)",
					},
					"type": {
						Type:        "string",
						Description: "Filter by symbol type (optional)",
						Enum:        []string{"function", "class", "method"},
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "decoder_callers",
			Description: "Find all functions/methods that call a given symbol. Returns callers with file locations and call context (conditional, loop, etc).",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name": {
						Type:        "string",
						Description: "Name of the function/method to find callers for",
					},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "decoder_callees",
			Description: "Find all functions/methods that a given symbol calls. Returns callees with line numbers and call context.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name": {
						Type:        "string",
						Description: "Name of the function/method to find callees for",
					},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "decoder_trace",
			Description: "Trace the full call tree for a symbol - both callers (what calls it) and callees (what it calls). Returns a tree structure showing the complete call trace.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name": {
						Type:        "string",
						Description: "Name of the function/method to trace",
					},
					"max_depth": {
						Type:        "number",
						Description: "Maximum depth to trace (default: 5)",
						Default:     5,
					},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "decoder_path",
			Description: "Find call paths between two symbols. Returns the shortest path by default, or all simple paths up to a limit.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"from": {
						Type:        "string",
						Description: "Name of the starting function/method",
					},
					"to": {
						Type:        "string",
						Description: "Name of the target function/method",
					},
					"all": {
						Type:        "boolean",
						Description: "Return all simple paths instead of just the shortest",
					},
					"max_paths": {
						Type:        "number",
						Description: "Maximum number of paths to return (default: 10)",
						Default:     10,
					},
					"max_depth": {
						Type:        "number",
						Description: "Maximum path length (default: 10)",
						Default:     10,
					},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        "decoder_cycles",
			Description: "Detect circular call chains in the indexed codebase.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"max_cycles": {
						Type:        "number",
						Description: "Maximum number of cycles to report (default: 10)",
						Default:     10,
					},
				},
			},
		},
		{
			Name:        "decoder_stats",
			Description: "Get statistics about the indexed codebase.",
			InputSchema: InputSchema{
				Type: "object",
			},
		},
		{
			Name:        "decoder_index",
			Description: "Index or re-index the project to refresh the call graph.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"force": {
						Type:        "boolean",
						Description: "Re-index files even when unchanged",
					},
				},
			},
		},
	}

	s.sendResult(req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	var result interface{}
	var isError bool

	switch params.Name {
	case "decoder_find":
		result, isError = s.toolFind(params.Arguments)
	case "decoder_callers":
		result, isError = s.toolCallers(params.Arguments)
	case "decoder_callees":
		result, isError = s.toolCallees(params.Arguments)
	case "decoder_trace":
		result, isError = s.toolTrace(params.Arguments)
	case "decoder_path":
		result, isError = s.toolPath(params.Arguments)
	case "decoder_cycles":
		result, isError = s.toolCycles(params.Arguments)
	case "decoder_stats":
		result, isError = s.toolStats()
	case "decoder_index":
		result, isError = s.toolIndex(params.Arguments)
	default:
		result = map[string]string{"error": fmt.Sprintf("Unknown tool: %s", params.Name)}
		isError = true
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		isError = true
	}

	s.sendResult(req.ID, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(text)}},
		IsError: isError,
	})
}

func errorResult(format string, args ...interface{}) (interface{}, bool) {
	return map[string]string{"error": fmt.Sprintf(format, args...)}, true
}

func symbolDict(s *graph.Symbol) map[string]interface{} {
	return map[string]interface{}{
		"name":           s.Name,
		"qualified_name": s.QualifiedName,
		"type":           s.Kind,
		"file":           s.File,
		"line":           s.Line,
		"end_line":       s.EndLine,
	}
}

func callSiteDict(cs storage.CallSite) map[string]interface{} {
	d := symbolDict(cs.Symbol)
	d["call_line"] = cs.Edge.CallLine
	d["is_conditional"] = cs.Edge.IsConditional
	d["condition"] = cs.Edge.Condition
	d["is_loop"] = cs.Edge.IsLoop
	d["is_try_block"] = cs.Edge.IsTry
	return d
}

func treeDict(node *graph.TreeNode) map[string]interface{} {
	d := symbolDict(node.Symbol)
	d["depth"] = node.Depth
	if node.Edge != nil {
		d["is_conditional"] = node.Edge.IsConditional
		d["condition"] = node.Edge.Condition
		d["is_loop"] = node.Edge.IsLoop
		d["is_try_block"] = node.Edge.IsTry
	}
	children := make([]map[string]interface{}, 0, len(node.Children))
	for _, c := range node.Children {
		children = append(children, treeDict(c))
	}
	d["children"] = children
	return d
}

func (s *Server) toolFind(args map[string]interface{}) (interface{}, bool) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return errorResult("a query is required")
	}
	kind := graph.SymbolKind("")
	if t, ok := args["type"].(string); ok {
		kind = graph.SymbolKind(t)
	}

	symbols, err := s.db.FindSymbolsByPattern(query, kind)
	if err != nil {
		return errorResult("%v", err)
	}

	results := make([]map[string]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		results = append(results, symbolDict(sym))
	}
	return map[string]interface{}{"results": results}, false
}

func (s *Server) toolCallers(args map[string]interface{}) (interface{}, bool) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return errorResult("a symbol name is required")
	}

	symbols, err := s.db.FindSymbolsByPattern(name, "")
	if err != nil {
		return errorResult("%v", err)
	}
	if len(symbols) == 0 {
		return errorResult("no symbol found matching '%s'", name)
	}

	results := make([]map[string]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		callers, err := s.db.GetCallers(sym.ID)
		if err != nil {
			return errorResult("%v", err)
		}
		callerDicts := make([]map[string]interface{}, 0, len(callers))
		for _, cs := range callers {
			callerDicts = append(callerDicts, callSiteDict(cs))
		}
		results = append(results, map[string]interface{}{
			"symbol":  symbolDict(sym),
			"callers": callerDicts,
		})
	}
	return map[string]interface{}{"results": results}, false
}

func (s *Server) toolCallees(args map[string]interface{}) (interface{}, bool) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return errorResult("a symbol name is required")
	}

	symbols, err := s.db.FindSymbolsByPattern(name, "")
	if err != nil {
		return errorResult("%v", err)
	}
	if len(symbols) == 0 {
		return errorResult("no symbol found matching '%s'", name)
	}

	results := make([]map[string]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		callees, err := s.db.GetCallees(sym.ID)
		if err != nil {
			return errorResult("%v", err)
		}
		calleeDicts := make([]map[string]interface{}, 0, len(callees))
		for _, cs := range callees {
			calleeDicts = append(calleeDicts, callSiteDict(cs))
		}
		results = append(results, map[string]interface{}{
			"symbol":  symbolDict(sym),
			"callees": calleeDicts,
		})
	}
	return map[string]interface{}{"results": results}, false
}

func (s *Server) toolTrace(args map[string]interface{}) (interface{}, bool) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return errorResult("a symbol name is required")
	}
	maxDepth := 5
	if d, ok := args["max_depth"].(float64); ok && d > 0 {
		maxDepth = int(d)
	}

	start, err := s.busiestMatch(name)
	if err != nil {
		return errorResult("%v", err)
	}
	if start == nil {
		return errorResult("no symbol found matching '%s'", name)
	}

	g, err := graph.Load(s.db)
	if err != nil {
		return errorResult("%v", err)
	}

	result := map[string]interface{}{
		"symbol": symbolDict(start),
	}
	if t := g.CallerTree(start.ID, maxDepth); t != nil {
		result["callers"] = treeDict(t)
	}
	if t := g.CalleeTree(start.ID, maxDepth); t != nil {
		result["callees"] = treeDict(t)
	}
	return result, false
}

// busiestMatch picks the match with the most direct edges, so tracing a
// common name starts from the symbol with the most activity
func (s *Server) busiestMatch(name string) (*graph.Symbol, error) {
	symbols, err := s.db.FindSymbolsByPattern(name, "")
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	var best *graph.Symbol
	bestDegree := -1
	for _, sym := range symbols {
		in, err := s.db.GetEdgesTo(sym.ID)
		if err != nil {
			return nil, err
		}
		out, err := s.db.GetEdgesFrom(sym.ID)
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

func (s *Server) toolPath(args map[string]interface{}) (interface{}, bool) {
	fromName, ok := args["from"].(string)
	if !ok || fromName == "" {
		return errorResult("a 'from' symbol name is required")
	}
	toName, ok := args["to"].(string)
	if !ok || toName == "" {
		return errorResult("a 'to' symbol name is required")
	}
	all, _ := args["all"].(bool)
	maxPaths := 10
	if v, ok := args["max_paths"].(float64); ok && v > 0 {
		maxPaths = int(v)
	}
	maxDepth := 10
	if v, ok := args["max_depth"].(float64); ok && v > 0 {
		maxDepth = int(v)
	}

	from, err := s.busiestMatch(fromName)
	if err != nil {
		return errorResult("%v", err)
	}
	if from == nil {
		return errorResult("no symbol found matching '%s'", fromName)
	}
	to, err := s.busiestMatch(toName)
	if err != nil {
		return errorResult("%v", err)
	}
	if to == nil {
		return errorResult("no symbol found matching '%s'", toName)
	}

	g, err := graph.Load(s.db)
	if err != nil {
		return errorResult("%v", err)
	}

	var paths []*graph.Path
	if all {
		paths = g.AllPaths(from.ID, to.ID, maxPaths, maxDepth)
	} else if p := g.ShortestPath(from.ID, to.ID); p != nil {
		paths = []*graph.Path{p}
	}

	pathDicts := make([][]map[string]interface{}, 0, len(paths))
	for _, p := range paths {
		steps := make([]map[string]interface{}, 0, p.Len())
		for i, sym := range p.Symbols {
			step := symbolDict(sym)
			if i > 0 && i-1 < len(p.Edges) {
				step["call_line"] = p.Edges[i-1].CallLine
			}
			steps = append(steps, step)
		}
		pathDicts = append(pathDicts, steps)
	}

	return map[string]interface{}{
		"from":  from.QualifiedName,
		"to":    to.QualifiedName,
		"paths": pathDicts,
	}, false
}

func (s *Server) toolCycles(args map[string]interface{}) (interface{}, bool) {
	maxCycles := 10
	if v, ok := args["max_cycles"].(float64); ok && v > 0 {
		maxCycles = int(v)
	}

	g, err := graph.Load(s.db)
	if err != nil {
		return errorResult("%v", err)
	}

	cycles := g.FindCycles(maxCycles)
	cycleDicts := make([][]map[string]interface{}, 0, len(cycles))
	for _, cycle := range cycles {
		members := make([]map[string]interface{}, 0, len(cycle))
		for _, sym := range cycle {
			members = append(members, symbolDict(sym))
		}
		cycleDicts = append(cycleDicts, members)
	}
	return map[string]interface{}{"cycles": cycleDicts}, false
}

func (s *Server) toolStats() (interface{}, bool) {
	stats, err := s.db.GetStats()
	if err != nil {
		return errorResult("%v", err)
	}
	return stats, false
}

func (s *Server) toolIndex(args map[string]interface{}) (interface{}, bool) {
	force, _ := args["force"].(bool)

	ix := indexer.New(s.db)
	stats, err := ix.Index(context.Background(), s.root, indexer.Options{Force: force})
	if err != nil {
		return errorResult("%v", err)
	}
	return stats, false
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

func (s *Server) sendError(id interface{}, code int, message string) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
	s.send(resp)
}

func (s *Server) send(resp Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.output, string(data))
}
