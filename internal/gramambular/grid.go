package gramambular

// Grid is the lattice of candidate nodes indexed by end position.
//
// columns[e] holds the nodes ending at e, in insertion order; columns[0] is
// always empty. There is at most one node per span length at an end position.
type Grid struct {
	columns [][]*Node
}

// NewGrid returns an empty grid of width 0.
func NewGrid() *Grid {
	return &Grid{columns: make([][]*Node, 1)}
}

// Width returns the number of readings the grid covers.
func (g *Grid) Width() int {
	return len(g.columns) - 1
}

// Clear removes every node and resets the width to 0.
func (g *Grid) Clear() {
	g.columns = make([][]*Node, 1)
}

// Insert records node as ending at end. A node with the same span length at
// that position is replaced in place. Nodes that would start before 0 or end
// past the width are ignored.
func (g *Grid) Insert(node *Node, end int) bool {
	if node == nil || end < 1 || end > g.Width() {
		return false
	}
	if node.SpanLength() < 1 || end-node.SpanLength() < 0 {
		return false
	}
	col := g.columns[end]
	for i, n := range col {
		if n.SpanLength() == node.SpanLength() {
			col[i] = node
			return true
		}
	}
	g.columns[end] = append(col, node)
	return true
}

// NodesEndingAt returns the nodes whose span ends at end.
func (g *Grid) NodesEndingAt(end int) []*Node {
	if end < 1 || end > g.Width() {
		return nil
	}
	return g.columns[end]
}

// NodeAt returns the node spanning [end-length, end), if any.
func (g *Grid) NodeAt(end, length int) *Node {
	for _, n := range g.NodesEndingAt(end) {
		if n.SpanLength() == length {
			return n
		}
	}
	return nil
}

// NodesStartingAt returns the nodes whose span begins at start, shortest
// span first.
func (g *Grid) NodesStartingAt(start int) []*Node {
	var result []*Node
	for end := start + 1; end <= g.Width(); end++ {
		for _, n := range g.columns[end] {
			if end-n.SpanLength() == start {
				result = append(result, n)
			}
		}
	}
	return result
}

// ExpandWidth appends n empty positions at the end of the grid.
func (g *Grid) ExpandWidth(n int) {
	g.ExpandWidthAt(g.Width(), n)
}

// ShrinkWidth removes the last n positions and every node touching them.
func (g *Grid) ShrinkWidth(n int) {
	if n > g.Width() {
		n = g.Width()
	}
	g.ShrinkWidthAt(g.Width()-n, n)
}

// ExpandWidthAt opens n empty positions at loc. Nodes ending after loc move
// right by n. Callers must first drop nodes crossing loc with
// RemoveNodesCrossing; they would otherwise span the new gap.
func (g *Grid) ExpandWidthAt(loc, n int) {
	if n <= 0 || loc < 0 || loc > g.Width() {
		return
	}
	inserted := make([][]*Node, n)
	tail := append(inserted, g.columns[loc+1:]...)
	g.columns = append(g.columns[:loc+1], tail...)
}

// ShrinkWidthAt removes the n positions [loc, loc+n) and every node that
// overlaps them. Nodes ending after loc+n move left by n.
func (g *Grid) ShrinkWidthAt(loc, n int) {
	if n <= 0 || loc < 0 || loc >= g.Width() {
		return
	}
	if loc+n > g.Width() {
		n = g.Width() - loc
	}
	for end := loc + 1; end <= g.Width(); end++ {
		kept := g.columns[end][:0]
		for _, node := range g.columns[end] {
			if end-node.SpanLength() >= loc+n {
				kept = append(kept, node)
			}
		}
		g.columns[end] = kept
	}
	g.columns = append(g.columns[:loc+1], g.columns[loc+n+1:]...)
}

// RemoveNodesCrossing removes the nodes whose span strictly contains loc,
// that is start < loc < end.
func (g *Grid) RemoveNodesCrossing(loc int) {
	for end := loc + 1; end <= g.Width(); end++ {
		kept := g.columns[end][:0]
		for _, node := range g.columns[end] {
			if end-node.SpanLength() >= loc {
				kept = append(kept, node)
			}
		}
		g.columns[end] = kept
	}
}

// RemoveNodeAt removes the node spanning [end-length, end).
func (g *Grid) RemoveNodeAt(end, length int) {
	if end < 1 || end > g.Width() {
		return
	}
	kept := g.columns[end][:0]
	for _, node := range g.columns[end] {
		if node.SpanLength() != length {
			kept = append(kept, node)
		}
	}
	g.columns[end] = kept
}
