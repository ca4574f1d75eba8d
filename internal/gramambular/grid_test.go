package gramambular

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abcModel() mapModel {
	return mapModel{
		"a":     {{Value: "A", Score: -1}},
		"b":     {{Value: "B", Score: -1}},
		"c":     {{Value: "C", Score: -1}},
		"a-b":   {{Value: "AB", Score: -1.5}},
		"b-c":   {{Value: "BC", Score: -1.5}},
		"a-b-c": {{Value: "ABC", Score: -1.8}},
		"c-a":   {{Value: "CA", Score: -1.2}},
	}
}

// assertConsistent checks that a node of length L ends at E exactly when the
// model knows the readings [E-L, E).
func assertConsistent(t *testing.T, rg *ReadingGrid, lm LanguageModel) {
	t.Helper()
	g := rg.Grid()
	require.Equal(t, rg.Width(), g.Width())
	for end := 1; end <= rg.Width(); end++ {
		for length := 1; length <= end; length++ {
			key := rg.Key(end-length, end)
			want := length <= rg.MaxSpan() && lm.HasUnigrams(key)
			node := g.NodeAt(end, length)
			if want {
				if assert.NotNil(t, node, "missing node %q ending at %d", key, end) {
					assert.Equal(t, key, node.Key())
				}
			} else {
				assert.Nil(t, node, "unexpected node %q ending at %d", key, end)
			}
		}
	}
}

func TestGridInsertAndQuery(t *testing.T) {
	g := NewGrid()
	assert.Equal(t, 0, g.Width())
	assert.False(t, g.Insert(NewNode("a", 1, nil), 1), "insert past width")

	g.ExpandWidth(2)
	assert.Equal(t, 2, g.Width())
	assert.True(t, g.Insert(NewNode("a", 1, []Unigram{{Value: "A"}}), 1))
	assert.True(t, g.Insert(NewNode("a-b", 2, []Unigram{{Value: "AB"}}), 2))
	assert.True(t, g.Insert(NewNode("b", 1, []Unigram{{Value: "B"}}), 2))
	assert.False(t, g.Insert(NewNode("x", 3, nil), 2), "span starting before 0")

	assert.Len(t, g.NodesEndingAt(2), 2)
	assert.Len(t, g.NodesStartingAt(0), 2)
	assert.Len(t, g.NodesStartingAt(1), 1)

	// Same span length replaces.
	g.Insert(NewNode("b", 1, []Unigram{{Value: "B2"}}), 2)
	assert.Len(t, g.NodesEndingAt(2), 2)
	assert.Equal(t, "B2", g.NodeAt(2, 1).Value())

	g.ShrinkWidth(1)
	assert.Equal(t, 1, g.Width())
	assert.Len(t, g.NodesEndingAt(1), 1)
	assert.Nil(t, g.NodesEndingAt(2))
}

func TestGridShrinkWidthAtShiftsTail(t *testing.T) {
	rg := buildGrid(t, abcModel(), "a", "b", "c")
	g := rg.Grid()
	tail := g.NodeAt(3, 1)
	require.NotNil(t, tail)

	g.ShrinkWidthAt(1, 1)
	assert.Equal(t, 2, g.Width())
	assert.Same(t, tail, g.NodeAt(2, 1), "node after the edit moves, untouched")
	assert.Nil(t, g.NodeAt(2, 2))
}

func TestNodeRankingAndPin(t *testing.T) {
	n := NewNode("k", 1, []Unigram{{Value: "low", Score: -5}, {Value: "high", Score: -1}, {Value: "mid", Score: -3}})
	assert.Equal(t, "high", n.Value())
	assert.InDelta(t, -1.0, n.Score(), 1e-9)
	assert.False(t, n.IsPinned())

	assert.False(t, n.SelectCandidateAt(3))
	assert.True(t, n.SelectCandidateByValue("low"))
	assert.Equal(t, "low", n.Value())
	assert.Equal(t, PinnedScore, n.Score())

	n.ResetCandidate()
	assert.Equal(t, "high", n.Value())
	assert.False(t, n.IsPinned())
}

func TestReadingGridConsistency(t *testing.T) {
	lm := abcModel()
	rg := buildGrid(t, lm, "a", "b", "c")
	assertConsistent(t, rg, lm)

	require.NoError(t, rg.InsertReadingAt(1, "c"))
	assert.Equal(t, []string{"a", "c", "b", "c"}, rg.Readings())
	assertConsistent(t, rg, lm)

	require.NoError(t, rg.DeleteReadingAt(1))
	assert.Equal(t, []string{"a", "b", "c"}, rg.Readings())
	assertConsistent(t, rg, lm)

	assert.ErrorIs(t, rg.InsertReadingAt(5, "a"), ErrLocation)
	assert.ErrorIs(t, rg.DeleteReadingAt(3), ErrLocation)
}

func TestReadingGridRandomEditsStayConsistent(t *testing.T) {
	lm := abcModel()
	r := rand.New(rand.NewSource(3))
	rg := NewReadingGrid(lm, 2)
	alphabet := []string{"a", "b", "c"}

	for step := 0; step < 300; step++ {
		if rg.Width() > 0 && r.Intn(3) == 0 {
			require.NoError(t, rg.DeleteReadingAt(r.Intn(rg.Width())))
		} else {
			require.NoError(t, rg.InsertReadingAt(r.Intn(rg.Width()+1), alphabet[r.Intn(3)]))
		}
		assertConsistent(t, rg, lm)
	}
}

func TestReadingGridEditKeepsDistantNodes(t *testing.T) {
	lm := abcModel()
	rg := NewReadingGrid(lm, 2)
	for i, r := range []string{"a", "b", "c", "a", "b", "c"} {
		require.NoError(t, rg.InsertReadingAt(i, r))
	}
	far := rg.Grid().NodeAt(6, 2)
	require.NotNil(t, far)
	require.True(t, far.SelectCandidateAt(0))

	require.NoError(t, rg.InsertReadingAt(1, "c"))
	assert.Same(t, far, rg.Grid().NodeAt(7, 2))
	assert.True(t, far.IsPinned())
}

func TestReadingGridRebuild(t *testing.T) {
	lm := abcModel()
	rg := buildGrid(t, lm, "a", "b")
	lm["a-b"] = nil
	rg.Rebuild()
	assertConsistent(t, rg, lm)
	assert.Equal(t, []string{"A", "B"}, BestPath(rg.Grid(), 2).Values())

	rg.Clear()
	assert.Equal(t, 0, rg.Width())
	assert.Equal(t, 0, rg.Grid().Width())
}
