package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalleeTree(t *testing.T) {
	t.Run("linear chain", func(t *testing.T) {
		g := buildLinear(3)
		tree := g.CalleeTree(1, 10)
		require.NotNil(t, tree)
		assert.Equal(t, "a", tree.Symbol.Name)
		assert.Nil(t, tree.Edge)
		require.Len(t, tree.Children, 1)
		assert.Equal(t, "b", tree.Children[0].Symbol.Name)
		assert.Equal(t, 1, tree.Children[0].Depth)
		require.Len(t, tree.Children[0].Children, 1)
		assert.Equal(t, "c", tree.Children[0].Children[0].Symbol.Name)
	})

	t.Run("depth limit prunes", func(t *testing.T) {
		g := buildLinear(4)
		tree := g.CalleeTree(1, 1)
		require.NotNil(t, tree)
		require.Len(t, tree.Children, 1)
		assert.Empty(t, tree.Children[0].Children)
	})

	t.Run("missing root returns nil", func(t *testing.T) {
		g := buildLinear(2)
		assert.Nil(t, g.CalleeTree(99, 10))
	})

	t.Run("cycle does not recurse forever", func(t *testing.T) {
		g := buildLinear(2)
		g.AddEdge(edge(2, 1, 20))
		tree := g.CalleeTree(1, 10)
		require.NotNil(t, tree)
		require.Len(t, tree.Children, 1)
		// a -> b -> back to a is cut by the path guard
		assert.Empty(t, tree.Children[0].Children)
	})

	t.Run("children sorted by call line", func(t *testing.T) {
		g := New()
		g.AddSymbol(sym(1, "a"))
		g.AddSymbol(sym(2, "b"))
		g.AddSymbol(sym(3, "c"))
		g.AddEdge(edge(1, 3, 50))
		g.AddEdge(edge(1, 2, 10))

		tree := g.CalleeTree(1, 5)
		require.Len(t, tree.Children, 2)
		assert.Equal(t, "b", tree.Children[0].Symbol.Name)
		assert.Equal(t, "c", tree.Children[1].Symbol.Name)
	})
}

func TestCallerTree(t *testing.T) {
	t.Run("linear chain", func(t *testing.T) {
		g := buildLinear(3)
		tree := g.CallerTree(3, 10)
		require.NotNil(t, tree)
		assert.Equal(t, "c", tree.Symbol.Name)
		require.Len(t, tree.Children, 1)
		assert.Equal(t, "b", tree.Children[0].Symbol.Name)
		require.Len(t, tree.Children[0].Children, 1)
		assert.Equal(t, "a", tree.Children[0].Children[0].Symbol.Name)
	})

	t.Run("branching callers", func(t *testing.T) {
		g := New()
		g.AddSymbol(sym(1, "a"))
		g.AddSymbol(sym(2, "b"))
		g.AddSymbol(sym(3, "shared"))
		g.AddEdge(edge(1, 3, 5))
		g.AddEdge(edge(2, 3, 8))

		tree := g.CallerTree(3, 10)
		require.NotNil(t, tree)
		assert.Len(t, tree.Children, 2)
	})
}

func TestTreeNodeLenAndFlatten(t *testing.T) {
	g := buildLinear(3)
	tree := g.CalleeTree(1, 10)
	require.NotNil(t, tree)

	assert.Equal(t, 3, tree.Len())

	flat := tree.Flatten()
	require.Len(t, flat, 3)
	assert.Equal(t, "a", flat[0].Symbol.Name)
	assert.Equal(t, "b", flat[1].Symbol.Name)
	assert.Equal(t, "c", flat[2].Symbol.Name)
}
