package graph

// Path is an ordered walk through the graph. Edges[i] connects
// Symbols[i] to Symbols[i+1].
type Path struct {
	Symbols []*Symbol `json:"symbols"`
	Edges   []*Edge   `json:"edges"`
}

// Len returns the number of symbols on the path
func (p *Path) Len() int {
	return len(p.Symbols)
}

// ShortestPath finds the shortest path from one symbol to another using
// BFS. Returns nil when either endpoint is missing or no path exists.
func (g *CallGraph) ShortestPath(fromID, toID int64) *Path {
	if _, ok := g.symbols[fromID]; !ok {
		return nil
	}
	if _, ok := g.symbols[toID]; !ok {
		return nil
	}
	if fromID == toID {
		return &Path{Symbols: []*Symbol{g.symbols[fromID]}}
	}

	queue := []int64{fromID}
	parent := make(map[int64]pathStep)
	visited := map[int64]bool{fromID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range g.out[current] {
			if visited[n.id] {
				continue
			}
			visited[n.id] = true
			parent[n.id] = pathStep{prev: current, edge: n.edge}
			if n.id == toID {
				return g.reconstruct(fromID, toID, parent)
			}
			queue = append(queue, n.id)
		}
	}
	return nil
}

type pathStep struct {
	prev int64
	edge *Edge
}

func (g *CallGraph) reconstruct(fromID, toID int64, parent map[int64]pathStep) *Path {
	var symbols []*Symbol
	var edges []*Edge

	current := toID
	for current != fromID {
		symbols = append(symbols, g.symbols[current])
		p := parent[current]
		edges = append(edges, p.edge)
		current = p.prev
	}
	symbols = append(symbols, g.symbols[fromID])

	for i, j := 0, len(symbols)-1; i < j; i, j = i+1, j-1 {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return &Path{Symbols: symbols, Edges: edges}
}

// AllPaths enumerates simple paths from one symbol to another using DFS
// with backtracking. Bounded by maxPaths and maxDepth to avoid explosion
// on dense graphs.
func (g *CallGraph) AllPaths(fromID, toID int64, maxPaths, maxDepth int) []*Path {
	if _, ok := g.symbols[fromID]; !ok {
		return nil
	}
	if _, ok := g.symbols[toID]; !ok {
		return nil
	}

	var paths []*Path
	currentNodes := []int64{fromID}
	var currentEdges []*Edge
	visited := map[int64]bool{fromID: true}

	var dfs func(id int64, depth int)
	dfs = func(id int64, depth int) {
		if len(paths) >= maxPaths || depth > maxDepth {
			return
		}
		if id == toID {
			symbols := make([]*Symbol, len(currentNodes))
			for i, nid := range currentNodes {
				symbols[i] = g.symbols[nid]
			}
			edges := make([]*Edge, len(currentEdges))
			copy(edges, currentEdges)
			paths = append(paths, &Path{Symbols: symbols, Edges: edges})
			return
		}

		for _, n := range g.out[id] {
			if visited[n.id] {
				continue
			}
			visited[n.id] = true
			currentNodes = append(currentNodes, n.id)
			currentEdges = append(currentEdges, n.edge)

			dfs(n.id, depth+1)

			currentNodes = currentNodes[:len(currentNodes)-1]
			currentEdges = currentEdges[:len(currentEdges)-1]
			delete(visited, n.id)
		}
	}

	dfs(fromID, 0)
	return paths
}
