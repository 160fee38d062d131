package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	symbols []*Symbol
	edges   []*Edge
	fail    bool
}

func (f *fakeStore) GetAllSymbols() ([]*Symbol, error) {
	if f.fail {
		return nil, errors.New("store failure")
	}
	return f.symbols, nil
}

func (f *fakeStore) GetAllEdges() ([]*Edge, error) {
	return f.edges, nil
}

func (f *fakeStore) GetSymbolByID(id int64) (*Symbol, error) {
	for _, s := range f.symbols {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.New("symbol not found")
}

func (f *fakeStore) GetEdgesFrom(callerID int64) ([]*Edge, error) {
	var out []*Edge
	for _, e := range f.edges {
		if e.CallerID == callerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetEdgesTo(calleeID int64) ([]*Edge, error) {
	var out []*Edge
	for _, e := range f.edges {
		if e.CalleeID == calleeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func linearStore(n int) *fakeStore {
	f := &fakeStore{}
	for i := 1; i <= n; i++ {
		f.symbols = append(f.symbols, sym(int64(i), string(rune('a'+i-1))))
	}
	for i := 1; i < n; i++ {
		f.edges = append(f.edges, edge(int64(i), int64(i+1), i*10))
	}
	return f
}

func TestLoad(t *testing.T) {
	g, err := Load(linearStore(3))
	require.NoError(t, err)

	symbols, edges := g.Size()
	assert.Equal(t, 3, symbols)
	assert.Equal(t, 2, edges)

	callees := g.Callees(1)
	require.Len(t, callees, 1)
	assert.Equal(t, "b", callees[0].Symbol.Name)
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	_, err := Load(&fakeStore{fail: true})
	assert.Error(t, err)
}

func TestLoadSubgraph(t *testing.T) {
	t.Run("callees within depth", func(t *testing.T) {
		g, err := LoadSubgraph(linearStore(4), 1, DirectionCallees, 2)
		require.NoError(t, err)

		symbols, _ := g.Size()
		assert.Equal(t, 3, symbols)
		_, ok := g.Symbol(4)
		assert.False(t, ok)
	})

	t.Run("callers walk backwards", func(t *testing.T) {
		g, err := LoadSubgraph(linearStore(4), 4, DirectionCallers, 1)
		require.NoError(t, err)

		_, ok := g.Symbol(3)
		assert.True(t, ok)
		_, ok = g.Symbol(2)
		assert.False(t, ok)

		callers := g.Callers(4)
		require.Len(t, callers, 1)
		assert.Equal(t, "c", callers[0].Symbol.Name)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		f := linearStore(2)
		f.edges = append(f.edges, edge(2, 1, 20))
		g, err := LoadSubgraph(f, 1, DirectionCallees, 10)
		require.NoError(t, err)

		symbols, _ := g.Size()
		assert.Equal(t, 2, symbols)
	})
}
