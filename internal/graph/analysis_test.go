package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCycle(t *testing.T) {
	t.Run("linear graph has no cycle", func(t *testing.T) {
		g := buildLinear(4)
		assert.False(t, g.HasCycle())
	})

	t.Run("self loop", func(t *testing.T) {
		g := New()
		g.AddSymbol(sym(1, "a"))
		g.AddEdge(edge(1, 1, 1))
		assert.True(t, g.HasCycle())
	})

	t.Run("three node cycle", func(t *testing.T) {
		g := buildLinear(3)
		g.AddEdge(edge(3, 1, 30))
		assert.True(t, g.HasCycle())
	})

	t.Run("diamond is acyclic", func(t *testing.T) {
		g := New()
		for i := int64(1); i <= 4; i++ {
			g.AddSymbol(sym(i, "f"))
		}
		g.AddEdge(edge(1, 2, 1))
		g.AddEdge(edge(1, 3, 2))
		g.AddEdge(edge(2, 4, 3))
		g.AddEdge(edge(3, 4, 4))
		assert.False(t, g.HasCycle())
	})
}

func TestFindCycles(t *testing.T) {
	t.Run("no cycles", func(t *testing.T) {
		g := buildLinear(3)
		assert.Empty(t, g.FindCycles(10))
	})

	t.Run("reports cycle members in order", func(t *testing.T) {
		g := buildLinear(3)
		g.AddEdge(edge(3, 1, 30))

		cycles := g.FindCycles(10)
		require.Len(t, cycles, 1)
		require.Len(t, cycles[0], 3)
		assert.Equal(t, "a", cycles[0][0].Name)
		assert.Equal(t, "b", cycles[0][1].Name)
		assert.Equal(t, "c", cycles[0][2].Name)
	})

	t.Run("respects max cycles", func(t *testing.T) {
		g := New()
		// Two independent 2-cycles
		for i := int64(1); i <= 4; i++ {
			g.AddSymbol(sym(i, "f"))
		}
		g.AddEdge(edge(1, 2, 1))
		g.AddEdge(edge(2, 1, 2))
		g.AddEdge(edge(3, 4, 3))
		g.AddEdge(edge(4, 3, 4))

		assert.Len(t, g.FindCycles(1), 1)
		assert.Len(t, g.FindCycles(10), 2)
	})
}

func TestEntryPoints(t *testing.T) {
	t.Run("linear", func(t *testing.T) {
		g := buildLinear(3)
		entries := g.EntryPoints()
		require.Len(t, entries, 1)
		assert.Equal(t, "a", entries[0].Name)
	})

	t.Run("disconnected symbol is both entry and leaf", func(t *testing.T) {
		g := buildLinear(2)
		g.AddSymbol(sym(9, "lonely"))

		entryNames := names(g.EntryPoints())
		assert.Contains(t, entryNames, "a")
		assert.Contains(t, entryNames, "lonely")

		leafNames := names(g.LeafFunctions())
		assert.Contains(t, leafNames, "b")
		assert.Contains(t, leafNames, "lonely")
	})
}

func TestLeafFunctions(t *testing.T) {
	g := buildLinear(3)
	leaves := g.LeafFunctions()
	require.Len(t, leaves, 1)
	assert.Equal(t, "c", leaves[0].Name)
}

func TestHotPaths(t *testing.T) {
	g := New()
	for i := int64(1); i <= 4; i++ {
		g.AddSymbol(sym(i, "f"))
	}
	// Symbol 4 has the most edges
	g.AddEdge(edge(1, 4, 1))
	g.AddEdge(edge(2, 4, 2))
	g.AddEdge(edge(3, 4, 3))
	g.AddEdge(edge(4, 1, 4))

	spots := g.HotPaths(2)
	require.Len(t, spots, 2)
	assert.Equal(t, int64(4), spots[0].Symbol.ID)
	assert.Equal(t, 3, spots[0].CallerCount)
	assert.Equal(t, 1, spots[0].CalleeCount)
}

func TestHotPathsLimit(t *testing.T) {
	g := buildLinear(5)
	assert.Len(t, g.HotPaths(3), 3)
	assert.Len(t, g.HotPaths(100), 5)
}

func TestTopologicalSort(t *testing.T) {
	t.Run("linear order", func(t *testing.T) {
		g := buildLinear(3)
		order, ok := g.TopologicalSort()
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b", "c"}, names(order))
	})

	t.Run("branching keeps callers before callees", func(t *testing.T) {
		g := New()
		for i := int64(1); i <= 4; i++ {
			g.AddSymbol(sym(i, string(rune('a'+i-1))))
		}
		g.AddEdge(edge(1, 2, 1))
		g.AddEdge(edge(1, 3, 2))
		g.AddEdge(edge(2, 4, 3))
		g.AddEdge(edge(3, 4, 4))

		order, ok := g.TopologicalSort()
		require.True(t, ok)
		require.Len(t, order, 4)
		pos := make(map[string]int)
		for i, s := range order {
			pos[s.Name] = i
		}
		assert.Less(t, pos["a"], pos["b"])
		assert.Less(t, pos["a"], pos["c"])
		assert.Less(t, pos["b"], pos["d"])
		assert.Less(t, pos["c"], pos["d"])
	})

	t.Run("cyclic graph has no order", func(t *testing.T) {
		g := buildLinear(3)
		g.AddEdge(edge(3, 1, 30))
		order, ok := g.TopologicalSort()
		assert.False(t, ok)
		assert.Nil(t, order)
	})
}

func names(symbols []*Symbol) []string {
	result := make([]string, 0, len(symbols))
	for _, s := range symbols {
		result = append(result, s.Name)
	}
	return result
}
