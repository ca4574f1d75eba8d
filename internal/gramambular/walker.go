package gramambular

import "strings"

// NodeAnchor places a node on a path.
type NodeAnchor struct {
	Node *Node

	// Location is the reading index where the node starts.
	Location int

	SpanLength int

	// AccumulatedScore is the path score from position 0 through this node.
	AccumulatedScore float64
}

// Path is a sequence of nodes whose spans partition [0, end) without gaps or
// overlaps.
type Path struct {
	Anchors []NodeAnchor
	Score   float64
}

// Empty reports whether the path has no nodes.
func (p Path) Empty() bool { return len(p.Anchors) == 0 }

// Values returns the selected text of every node along the path.
func (p Path) Values() []string {
	values := make([]string, len(p.Anchors))
	for i, a := range p.Anchors {
		values[i] = a.Node.Value()
	}
	return values
}

// Text returns the concatenated text of the path.
func (p Path) Text() string {
	return strings.Join(p.Values(), "")
}

// AnchorAt returns the index of the anchor covering the reading at loc, or
// -1 if none does.
func (p Path) AnchorAt(loc int) int {
	for i, a := range p.Anchors {
		if loc >= a.Location && loc < a.Location+a.SpanLength {
			return i
		}
	}
	return -1
}

type cell struct {
	reachable bool
	score     float64
	node      *Node
	from      int
}

// BestPath returns the path ending at end with the maximum accumulated
// score. When several paths tie, the one found first while visiting
// NodesEndingAt in grid order wins. BestPath does not modify the grid.
//
// The best sub-path is memoized per position, so the work is bounded by the
// number of nodes in [0, end). An empty Path is returned when end is out of
// range or no partition of [0, end) exists.
func BestPath(g *Grid, end int) Path {
	if end <= 0 || end > g.Width() {
		return Path{}
	}

	table := make([]cell, end+1)
	table[0].reachable = true

	for pos := 1; pos <= end; pos++ {
		for _, n := range g.NodesEndingAt(pos) {
			from := pos - n.SpanLength()
			if from < 0 || !table[from].reachable {
				continue
			}
			score := table[from].score + n.Score()
			if !table[pos].reachable || score > table[pos].score {
				table[pos] = cell{reachable: true, score: score, node: n, from: from}
			}
		}
	}

	if !table[end].reachable {
		return Path{}
	}

	var count int
	for pos := end; pos > 0; pos = table[pos].from {
		count++
	}
	anchors := make([]NodeAnchor, count)
	i := count - 1
	for pos := end; pos > 0; pos = table[pos].from {
		c := table[pos]
		anchors[i] = NodeAnchor{
			Node:             c.node,
			Location:         c.from,
			SpanLength:       c.node.SpanLength(),
			AccumulatedScore: c.score,
		}
		i--
	}
	return Path{Anchors: anchors, Score: table[end].score}
}
