package graph

import "sort"

// HasCycle reports whether the graph contains a cycle, using
// three-color DFS. O(V + E).
func (g *CallGraph) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int64]int, len(g.symbols))

	var dfs func(id int64) bool
	dfs = func(id int64) bool {
		color[id] = gray
		for _, n := range g.out[id] {
			if _, known := g.symbols[n.id]; !known {
				continue
			}
			if color[n.id] == gray {
				return true
			}
			if color[n.id] == white && dfs(n.id) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.symbolIDs() {
		if color[id] == white && dfs(id) {
			return true
		}
	}
	return false
}

// FindCycles returns up to maxCycles cycles as symbol sequences. The
// walk is a DFS with an explicit path stack; which cycles are reported
// first depends on traversal order, so treat the result as a diagnostic
// sample rather than an exhaustive enumeration.
func (g *CallGraph) FindCycles(maxCycles int) [][]*Symbol {
	var cycles [][]*Symbol
	visited := make(map[int64]bool)
	var stack []int64
	onStack := make(map[int64]bool)

	var dfs func(id int64)
	dfs = func(id int64) {
		if len(cycles) >= maxCycles {
			return
		}
		visited[id] = true
		stack = append(stack, id)
		onStack[id] = true

		for _, n := range g.out[id] {
			if !visited[n.id] {
				dfs(n.id)
			} else if onStack[n.id] {
				idx := 0
				for i, sid := range stack {
					if sid == n.id {
						idx = i
						break
					}
				}
				cycle := make([]*Symbol, 0, len(stack)-idx)
				for _, sid := range stack[idx:] {
					cycle = append(cycle, g.symbols[sid])
				}
				cycles = append(cycles, cycle)
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, id)
	}

	for _, id := range g.symbolIDs() {
		if !visited[id] {
			dfs(id)
		}
	}
	return cycles
}

// EntryPoints returns symbols with no incoming edges
func (g *CallGraph) EntryPoints() []*Symbol {
	var result []*Symbol
	for _, id := range g.symbolIDs() {
		if len(g.in[id]) == 0 {
			result = append(result, g.symbols[id])
		}
	}
	return result
}

// LeafFunctions returns symbols with no outgoing edges
func (g *CallGraph) LeafFunctions() []*Symbol {
	var result []*Symbol
	for _, id := range g.symbolIDs() {
		if len(g.out[id]) == 0 {
			result = append(result, g.symbols[id])
		}
	}
	return result
}

// HotSpot is a symbol ranked by connectivity
type HotSpot struct {
	Symbol      *Symbol `json:"symbol"`
	CallerCount int     `json:"caller_count"`
	CalleeCount int     `json:"callee_count"`
}

// HotPaths returns the topK most connected symbols, ranked by total
// degree. O(V log V).
func (g *CallGraph) HotPaths(topK int) []HotSpot {
	spots := make([]HotSpot, 0, len(g.symbols))
	for _, id := range g.symbolIDs() {
		spots = append(spots, HotSpot{
			Symbol:      g.symbols[id],
			CallerCount: len(g.in[id]),
			CalleeCount: len(g.out[id]),
		})
	}
	sort.SliceStable(spots, func(i, j int) bool {
		return spots[i].CallerCount+spots[i].CalleeCount > spots[j].CallerCount+spots[j].CalleeCount
	})
	if len(spots) > topK {
		spots = spots[:topK]
	}
	return spots
}

// TopologicalSort orders symbols so callers precede callees, using
// Kahn's algorithm. Returns ok=false when the graph is cyclic.
func (g *CallGraph) TopologicalSort() (order []*Symbol, ok bool) {
	inDegree := make(map[int64]int, len(g.symbols))
	var queue []int64
	for _, id := range g.symbolIDs() {
		inDegree[id] = len(g.in[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, g.symbols[id])

		for _, n := range g.out[id] {
			if _, known := inDegree[n.id]; !known {
				continue
			}
			inDegree[n.id]--
			if inDegree[n.id] == 0 {
				queue = append(queue, n.id)
			}
		}
	}

	if len(order) != len(g.symbols) {
		return nil, false
	}
	return order, true
}
