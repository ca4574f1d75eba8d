package gramambular_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcbopomofo/internal/gramambular"
	"mcbopomofo/internal/lm"
)

// assertModelConsistent checks the grid against the composite model. Letter
// and space readings only ever form single-reading nodes, and every node's
// value is one the model offers for its key.
func assertModelConsistent(t *testing.T, rg *gramambular.ReadingGrid, m *lm.Model) {
	t.Helper()
	g := rg.Grid()
	readings := rg.Readings()
	for end := 1; end <= rg.Width(); end++ {
		for length := 1; length <= end; length++ {
			key := rg.Key(end-length, end)
			node := g.NodeAt(end, length)
			want := length <= rg.MaxSpan() && m.HasUnigrams(key)
			if !want {
				assert.Nil(t, node, "unexpected node %q ending at %d", key, end)
				continue
			}
			if !assert.NotNil(t, node, "missing node %q ending at %d", key, end) {
				continue
			}
			if length > 1 {
				for _, r := range readings[end-length : end] {
					assert.False(t, r == lm.SpaceReading || strings.HasPrefix(r, lm.LetterPrefix),
						"reading %q joined into node %q", r, key)
				}
			}
			var values []string
			for _, u := range m.Unigrams(key) {
				values = append(values, u.Value)
			}
			assert.Contains(t, values, node.Value())
		}
	}
}

func TestReadingGridConsistencyWithLetters(t *testing.T) {
	m := lm.NewModel(lm.SampleTable())
	rg := gramambular.NewReadingGrid(m, 8)
	for _, r := range []string{lm.LetterPrefix + "A", "ㄋㄧˇ", "ㄏㄠˇ", lm.LetterPrefix + "b"} {
		require.NoError(t, rg.InsertReadingAt(rg.Width(), r))
		assertModelConsistent(t, rg, m)
	}

	path := gramambular.BestPath(rg.Grid(), rg.Width())
	assert.Equal(t, "A你好b", path.Text())

	// A space and a letter dropped between the syllables split the phrase.
	require.NoError(t, rg.InsertReadingAt(2, lm.SpaceReading))
	assertModelConsistent(t, rg, m)
	require.NoError(t, rg.InsertReadingAt(2, lm.LetterPrefix+"c"))
	assertModelConsistent(t, rg, m)
	assert.Equal(t, "A你c 好b", gramambular.BestPath(rg.Grid(), rg.Width()).Text())

	require.NoError(t, rg.DeleteReadingAt(2))
	require.NoError(t, rg.DeleteReadingAt(2))
	assertModelConsistent(t, rg, m)
	assert.Equal(t, "A你好b", gramambular.BestPath(rg.Grid(), rg.Width()).Text())
}
