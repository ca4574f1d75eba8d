package ime

import (
	"encoding/json"
	"strings"
)

// Style is the rendering style of a composing buffer segment.
type Style string

const (
	StyleNormal      Style = "normal"
	StyleHighlighted Style = "highlighted"
)

// Segment is a run of composed text sharing one style.
type Segment struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// Candidate is one entry of the visible candidate page.
type Candidate struct {
	Candidate string `json:"candidate"`
	Selected  bool   `json:"selected"`
	KeyCap    string `json:"keyCap"`
}

// Snapshot is the render state emitted after every change.
type Snapshot struct {
	ComposingBuffer []Segment   `json:"composingBuffer"`
	CursorIndex     int         `json:"cursorIndex"`
	Candidates      []Candidate `json:"candidates"`
	Tooltip         string      `json:"tooltip"`
}

// EmptySnapshot is the snapshot of an idle controller.
func EmptySnapshot() Snapshot {
	return Snapshot{ComposingBuffer: []Segment{}, Candidates: []Candidate{}}
}

// Text returns the full composed string.
func (s Snapshot) Text() string {
	var b strings.Builder
	for _, seg := range s.ComposingBuffer {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Highlighted returns the rune range [start, end) of the highlighted run.
// ok is false when nothing is highlighted.
func (s Snapshot) Highlighted() (start, end int, ok bool) {
	pos := 0
	for _, seg := range s.ComposingBuffer {
		n := len([]rune(seg.Text))
		if seg.Style == StyleHighlighted {
			if !ok {
				start, ok = pos, true
			}
			end = pos + n
		}
		pos += n
	}
	return start, end, ok
}

// SelectedCandidate returns the highlighted candidate, if the window is open.
func (s Snapshot) SelectedCandidate() (Candidate, bool) {
	for _, c := range s.Candidates {
		if c.Selected {
			return c, true
		}
	}
	return Candidate{}, false
}

// JSON encodes the snapshot in its wire form.
func (s Snapshot) JSON() ([]byte, error) {
	if s.ComposingBuffer == nil {
		s.ComposingBuffer = []Segment{}
	}
	if s.Candidates == nil {
		s.Candidates = []Candidate{}
	}
	return json.Marshal(s)
}

// buildSegments splits text into normal and highlighted runs, dropping empty
// runs. hs and he are rune offsets; hs == he means no highlight.
func buildSegments(text []rune, hs, he int) []Segment {
	segs := []Segment{}
	add := func(from, to int, style Style) {
		if from < to {
			segs = append(segs, Segment{Text: string(text[from:to]), Style: style})
		}
	}
	if hs >= he {
		add(0, len(text), StyleNormal)
		return segs
	}
	add(0, hs, StyleNormal)
	add(hs, he, StyleHighlighted)
	add(he, len(text), StyleNormal)
	return segs
}
