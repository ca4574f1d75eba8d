package gramambular

import "sort"

// PinnedScore is the score of a node whose candidate was explicitly chosen by
// the user. It is large enough to dominate any path made of model scores.
const PinnedScore = 99.0

// Node is a candidate occupying a span of consecutive readings.
//
// Everything but the selected candidate is fixed at construction.
type Node struct {
	key        string
	spanLength int
	unigrams   []Unigram
	selected   int
	pinned     bool
}

// NewNode creates a node for key spanning spanLength readings. The unigrams
// are copied and ranked by score, highest first; ties keep the model order.
func NewNode(key string, spanLength int, unigrams []Unigram) *Node {
	ranked := make([]Unigram, len(unigrams))
	copy(ranked, unigrams)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return &Node{
		key:        key,
		spanLength: spanLength,
		unigrams:   ranked,
	}
}

// Key returns the reading key of the node.
func (n *Node) Key() string { return n.key }

// SpanLength returns the number of readings the node covers.
func (n *Node) SpanLength() int { return n.spanLength }

// Unigrams returns the ranked candidates of the node.
func (n *Node) Unigrams() []Unigram { return n.unigrams }

// SelectedIndex returns the index of the selected candidate.
func (n *Node) SelectedIndex() int { return n.selected }

// IsPinned reports whether the user has pinned a candidate on this node.
func (n *Node) IsPinned() bool { return n.pinned }

// CurrentUnigram returns the selected candidate, or the zero Unigram for a
// node without candidates.
func (n *Node) CurrentUnigram() Unigram {
	if len(n.unigrams) == 0 {
		return Unigram{}
	}
	return n.unigrams[n.selected]
}

// Value returns the text of the selected candidate.
func (n *Node) Value() string {
	return n.CurrentUnigram().Value
}

// Score returns the node score: the selected candidate's score, or
// PinnedScore once the node is pinned.
func (n *Node) Score() float64 {
	if n.pinned {
		return PinnedScore
	}
	return n.CurrentUnigram().Score
}

// SelectCandidateAt pins the candidate at index i. Out of range indices are
// ignored and reported as false.
func (n *Node) SelectCandidateAt(i int) bool {
	if i < 0 || i >= len(n.unigrams) {
		return false
	}
	n.selected = i
	n.pinned = true
	return true
}

// SelectCandidateByValue pins the first candidate whose text equals value.
func (n *Node) SelectCandidateByValue(value string) bool {
	for i, u := range n.unigrams {
		if u.Value == value {
			return n.SelectCandidateAt(i)
		}
	}
	return false
}

// ResetCandidate drops any pin and selects the highest scoring candidate.
func (n *Node) ResetCandidate() {
	n.selected = 0
	n.pinned = false
}
