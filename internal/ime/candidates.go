package ime

import (
	"sort"

	"mcbopomofo/internal/gramambular"
)

// candidate is one choice in the candidate window together with the span it
// would pin.
type candidate struct {
	value  string
	start  int
	length int
}

// pin is a user-confirmed choice for the readings [start, start+length).
type pin struct {
	start  int
	length int
	value  string
}

func (p pin) end() int { return p.start + p.length }

func (p pin) overlaps(q pin) bool {
	return p.start < q.end() && q.start < p.end()
}

// pinsAfterInsert adjusts pins for a reading inserted before loc. A pin whose
// span is split by loc is dropped.
func pinsAfterInsert(pins []pin, loc int) []pin {
	kept := pins[:0]
	for _, p := range pins {
		switch {
		case p.start < loc && loc < p.end():
			continue
		case p.start >= loc:
			p.start++
		}
		kept = append(kept, p)
	}
	return kept
}

// pinsAfterDelete adjusts pins for the reading at loc being removed. A pin
// covering loc is dropped.
func pinsAfterDelete(pins []pin, loc int) []pin {
	kept := pins[:0]
	for _, p := range pins {
		switch {
		case p.start <= loc && loc < p.end():
			continue
		case loc < p.start:
			p.start--
		}
		kept = append(kept, p)
	}
	return kept
}

// withPin adds p, replacing every pin it overlaps.
func withPin(pins []pin, p pin) []pin {
	kept := pins[:0]
	for _, q := range pins {
		if !q.overlaps(p) {
			kept = append(kept, q)
		}
	}
	return append(kept, p)
}

// spanNode is a grid node with its start position.
type spanNode struct {
	node  *gramambular.Node
	start int
}

// candidatesAt lists the choices for the cursor position under the select
// phrase policy: the nodes ending at loc, or starting at loc. At the buffer
// edge where the policy finds nothing the other side is used. Longer spans
// come first and each text appears once.
func candidatesAt(g *gramambular.Grid, loc int, policy SelectPhrase) []candidate {
	before := policy != SelectAfterCursor
	switch {
	case before && loc == 0:
		before = false
	case !before && loc == g.Width():
		before = true
	}

	var nodes []spanNode
	if before {
		for _, n := range g.NodesEndingAt(loc) {
			nodes = append(nodes, spanNode{node: n, start: loc - n.SpanLength()})
		}
	} else {
		for _, n := range g.NodesStartingAt(loc) {
			nodes = append(nodes, spanNode{node: n, start: loc})
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].node.SpanLength() > nodes[j].node.SpanLength()
	})

	var result []candidate
	seen := make(map[string]bool)
	for _, sn := range nodes {
		for _, u := range sn.node.Unigrams() {
			if seen[u.Value] {
				continue
			}
			seen[u.Value] = true
			result = append(result, candidate{value: u.Value, start: sn.start, length: sn.node.SpanLength()})
		}
	}
	return result
}

// textLayout maps reading boundaries to rune offsets in the composed text.
// A node whose text has one rune per reading maps boundaries one to one;
// any other node is a block, and a boundary inside it maps to the block
// start (floor) or end (ceil).
type textLayout struct {
	text  []rune
	floor []int
	ceil  []int
}

func layoutPath(p gramambular.Path, width int) textLayout {
	tl := textLayout{
		floor: make([]int, width+1),
		ceil:  make([]int, width+1),
	}
	for _, a := range p.Anchors {
		value := []rune(a.Node.Value())
		base := len(tl.text)
		tl.text = append(tl.text, value...)
		for k := 0; k <= a.SpanLength; k++ {
			i := a.Location + k
			if i > width {
				break
			}
			switch {
			case len(value) == a.SpanLength:
				tl.floor[i], tl.ceil[i] = base+k, base+k
			case k == 0:
				tl.floor[i], tl.ceil[i] = base, base
			case k == a.SpanLength:
				tl.floor[i], tl.ceil[i] = base+len(value), base+len(value)
			default:
				tl.floor[i], tl.ceil[i] = base, base+len(value)
			}
		}
	}
	return tl
}

// slice returns the text for the readings [from, to).
func (tl textLayout) slice(from, to int) string {
	return string(tl.text[tl.floor[from]:tl.ceil[to]])
}
