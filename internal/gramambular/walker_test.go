package gramambular

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapModel is a LanguageModel over a fixed table.
type mapModel map[string][]Unigram

func (m mapModel) Unigrams(key string) []Unigram { return m[key] }
func (m mapModel) HasUnigrams(key string) bool   { return len(m[key]) > 0 }

func scenarioModel() mapModel {
	return mapModel{
		"R1":    {{Value: "一", Score: 3}, {Value: "衣", Score: 1}},
		"R2":    {{Value: "二", Score: 3}},
		"R3":    {{Value: "三", Score: 2}},
		"R1-R2": {{Value: "一二", Score: 10}},
	}
}

func buildGrid(t *testing.T, lm LanguageModel, readings ...string) *ReadingGrid {
	t.Helper()
	rg := NewReadingGrid(lm, 0)
	for i, r := range readings {
		require.NoError(t, rg.InsertReadingAt(i, r))
	}
	return rg
}

func TestBestPathScenarios(t *testing.T) {
	tests := []struct {
		name     string
		readings []string
		values   []string
		score    float64
	}{
		{"multi-reading node wins", []string{"R1", "R2"}, []string{"一二"}, 10},
		{"trailing single node", []string{"R1", "R2", "R3"}, []string{"一二", "三"}, 12},
		{"single reading", []string{"R3"}, []string{"三"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rg := buildGrid(t, scenarioModel(), tt.readings...)
			path := BestPath(rg.Grid(), rg.Width())
			assert.Equal(t, tt.values, path.Values())
			assert.InDelta(t, tt.score, path.Score, 1e-9)
		})
	}
}

func TestBestPathPinnedLowerScore(t *testing.T) {
	rg := buildGrid(t, scenarioModel(), "R1", "R2")
	node := rg.Grid().NodeAt(1, 1)
	require.NotNil(t, node)
	require.True(t, node.SelectCandidateByValue("衣"))

	path := BestPath(rg.Grid(), rg.Width())
	assert.Equal(t, []string{"衣", "二"}, path.Values())
}

func TestBestPathEmpty(t *testing.T) {
	g := NewGrid()
	assert.True(t, BestPath(g, 0).Empty())
	assert.True(t, BestPath(g, 3).Empty())

	// A gap with no covering node has no path.
	g.ExpandWidth(2)
	g.Insert(NewNode("a", 1, []Unigram{{Value: "a", Score: 1}}), 1)
	assert.True(t, BestPath(g, 2).Empty())
	assert.False(t, BestPath(g, 1).Empty())
}

func TestBestPathTieBreakIsFirstFound(t *testing.T) {
	g := NewGrid()
	g.ExpandWidth(2)
	g.Insert(NewNode("a-b", 2, []Unigram{{Value: "AB", Score: 2}}), 2)
	g.Insert(NewNode("a", 1, []Unigram{{Value: "A", Score: 1}}), 1)
	g.Insert(NewNode("b", 1, []Unigram{{Value: "B", Score: 1}}), 2)

	for i := 0; i < 10; i++ {
		assert.Equal(t, []string{"AB"}, BestPath(g, 2).Values())
	}
}

// enumerate lists every path partitioning [0, end).
func enumerate(g *Grid, end int) [][]*Node {
	if end == 0 {
		return [][]*Node{nil}
	}
	var all [][]*Node
	for _, n := range g.NodesEndingAt(end) {
		for _, prefix := range enumerate(g, end-n.SpanLength()) {
			p := append(append([]*Node{}, prefix...), n)
			all = append(all, p)
		}
	}
	return all
}

func randomGrid(r *rand.Rand, width int) *Grid {
	g := NewGrid()
	g.ExpandWidth(width)
	for end := 1; end <= width; end++ {
		for length := 1; length <= min(end, 4); length++ {
			// Keep single readings always present so a path exists.
			if length > 1 && r.Intn(2) == 0 {
				continue
			}
			score := float64(r.Intn(21) - 10)
			g.Insert(NewNode(fmt.Sprintf("%d:%d", end, length), length,
				[]Unigram{{Value: fmt.Sprintf("<%d,%d>", end-length, end), Score: score}}), end)
		}
	}
	return g
}

func TestBestPathOptimalAgainstBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		width := 1 + r.Intn(6)
		g := randomGrid(r, width)
		best := BestPath(g, width)
		require.False(t, best.Empty())

		var covered int
		for _, a := range best.Anchors {
			assert.Equal(t, covered, a.Location)
			covered += a.SpanLength
		}
		assert.Equal(t, width, covered, "path must partition the grid")

		for _, p := range enumerate(g, width) {
			var score float64
			for _, n := range p {
				score += n.Score()
			}
			assert.GreaterOrEqual(t, best.Score, score)
		}
	}
}

func TestBestPathDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	g := randomGrid(r, 6)
	first := BestPath(g, 6)
	for i := 0; i < 20; i++ {
		again := BestPath(g, 6)
		require.Equal(t, len(first.Anchors), len(again.Anchors))
		for j := range first.Anchors {
			assert.Same(t, first.Anchors[j].Node, again.Anchors[j].Node)
		}
	}
}

func TestBestPathLongBuffer(t *testing.T) {
	lm := mapModel{}
	var readings []string
	for i := 0; i < 200; i++ {
		r := fmt.Sprintf("r%d", i%5)
		readings = append(readings, r)
		lm[r] = []Unigram{{Value: strings.ToUpper(r), Score: -1}}
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			lm[fmt.Sprintf("r%d-r%d", i, j)] = []Unigram{{Value: "xx", Score: -1.5}}
		}
	}

	rg := buildGrid(t, lm, readings...)
	path := BestPath(rg.Grid(), rg.Width())
	assert.Len(t, path.Anchors, 100)
	assert.InDelta(t, -150.0, path.Score, 1e-9)
}

func TestPathAnchorAt(t *testing.T) {
	rg := buildGrid(t, scenarioModel(), "R1", "R2", "R3")
	path := BestPath(rg.Grid(), rg.Width())
	assert.Equal(t, 0, path.AnchorAt(0))
	assert.Equal(t, 0, path.AnchorAt(1))
	assert.Equal(t, 1, path.AnchorAt(2))
	assert.Equal(t, -1, path.AnchorAt(3))
	assert.Equal(t, "一二三", path.Text())
}
