package graph

import "sort"

// TreeNode is a node in an extracted call tree. Edge is the edge that
// led here from the parent (nil at the root).
type TreeNode struct {
	Symbol   *Symbol     `json:"symbol"`
	Edge     *Edge       `json:"edge,omitempty"`
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Len returns the total number of nodes in the subtree
func (n *TreeNode) Len() int {
	total := 1
	for _, c := range n.Children {
		total += c.Len()
	}
	return total
}

// Flatten returns the subtree in pre-order
func (n *TreeNode) Flatten() []*TreeNode {
	result := []*TreeNode{n}
	for _, c := range n.Children {
		result = append(result, c.Flatten()...)
	}
	return result
}

// CalleeTree builds the tree of everything reachable downward from root.
// The cycle guard is scoped to the current path, so a symbol may appear
// on several distinct branches. Returns nil if root is not in the graph.
func (g *CallGraph) CalleeTree(rootID int64, maxDepth int) *TreeNode {
	if _, ok := g.symbols[rootID]; !ok {
		return nil
	}
	visited := make(map[int64]bool)
	return g.buildTree(rootID, nil, 0, maxDepth, visited, g.out)
}

// CallerTree builds the tree of everything that transitively calls root
func (g *CallGraph) CallerTree(rootID int64, maxDepth int) *TreeNode {
	if _, ok := g.symbols[rootID]; !ok {
		return nil
	}
	visited := make(map[int64]bool)
	return g.buildTree(rootID, nil, 0, maxDepth, visited, g.in)
}

func (g *CallGraph) buildTree(id int64, edge *Edge, depth, maxDepth int, visited map[int64]bool, adj map[int64][]neighbor) *TreeNode {
	if depth > maxDepth || visited[id] {
		return nil
	}
	sym, ok := g.symbols[id]
	if !ok {
		return nil
	}

	visited[id] = true
	node := &TreeNode{Symbol: sym, Edge: edge, Depth: depth}

	ns := make([]neighbor, len(adj[id]))
	copy(ns, adj[id])
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].edge.CallLine < ns[j].edge.CallLine
	})
	for _, n := range ns {
		if child := g.buildTree(n.id, n.edge, depth+1, maxDepth, visited, adj); child != nil {
			node.Children = append(node.Children, child)
		}
	}

	delete(visited, id)
	return node
}
