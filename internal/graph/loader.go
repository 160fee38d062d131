package graph

// Direction selects which way LoadSubgraph expands from the root
type Direction string

const (
	DirectionCallees Direction = "callees"
	DirectionCallers Direction = "callers"
)

// Store is the persistence surface the loader needs. *storage.DB
// satisfies it.
type Store interface {
	GetAllSymbols() ([]*Symbol, error)
	GetAllEdges() ([]*Edge, error)
	GetSymbolByID(id int64) (*Symbol, error)
	GetEdgesFrom(callerID int64) ([]*Edge, error)
	GetEdgesTo(calleeID int64) ([]*Edge, error)
}

// Load builds the full graph from the store. O(V + E).
func Load(store Store) (*CallGraph, error) {
	g := New()

	symbols, err := store.GetAllSymbols()
	if err != nil {
		return nil, err
	}
	for _, s := range symbols {
		g.AddSymbol(s)
	}

	edges, err := store.GetAllEdges()
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		g.AddEdge(e)
	}
	return g, nil
}

// LoadSubgraph builds only the portion of the graph reachable from
// root in the given direction, up to maxDepth hops. Cheaper than Load
// on large databases.
func LoadSubgraph(store Store, rootID int64, direction Direction, maxDepth int) (*CallGraph, error) {
	g := New()
	visited := make(map[int64]bool)

	type frontier struct {
		id    int64
		depth int
	}
	queue := []frontier{{id: rootID}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if visited[item.id] || item.depth > maxDepth {
			continue
		}
		visited[item.id] = true

		sym, err := store.GetSymbolByID(item.id)
		if err == nil {
			g.AddSymbol(sym)
		}

		var edges []*Edge
		if direction == DirectionCallees {
			edges, err = store.GetEdgesFrom(item.id)
		} else {
			edges, err = store.GetEdgesTo(item.id)
		}
		if err != nil {
			return nil, err
		}

		for _, e := range edges {
			g.AddEdge(e)
			next := e.CalleeID
			if direction != DirectionCallees {
				next = e.CallerID
			}
			if !visited[next] {
				queue = append(queue, frontier{id: next, depth: item.depth + 1})
			}
		}
	}
	return g, nil
}
