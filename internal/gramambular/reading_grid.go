package gramambular

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins adjacent readings into a multi-syllable key.
const Separator = "-"

// DefaultMaxSpan bounds the number of readings a single node may cover.
const DefaultMaxSpan = 6

// ErrLocation is returned for an edit position outside the reading buffer.
var ErrLocation = errors.New("gramambular: location out of range")

// ReadingGrid keeps a Grid in sync with a sequence of readings, querying the
// language model only for the spans an edit can affect.
type ReadingGrid struct {
	lm       LanguageModel
	maxSpan  int
	readings []string
	grid     *Grid
}

// NewReadingGrid creates an empty reading grid backed by lm. A maxSpan below
// 1 selects DefaultMaxSpan.
func NewReadingGrid(lm LanguageModel, maxSpan int) *ReadingGrid {
	if maxSpan < 1 {
		maxSpan = DefaultMaxSpan
	}
	return &ReadingGrid{
		lm:      lm,
		maxSpan: maxSpan,
		grid:    NewGrid(),
	}
}

// Grid returns the live grid.
func (rg *ReadingGrid) Grid() *Grid { return rg.grid }

// Width returns the number of readings.
func (rg *ReadingGrid) Width() int { return len(rg.readings) }

// MaxSpan returns the longest span the grid will query.
func (rg *ReadingGrid) MaxSpan() int { return rg.maxSpan }

// Readings returns a copy of the reading buffer.
func (rg *ReadingGrid) Readings() []string {
	out := make([]string, len(rg.readings))
	copy(out, rg.readings)
	return out
}

// Key returns the model key for the readings [from, to).
func (rg *ReadingGrid) Key(from, to int) string {
	return strings.Join(rg.readings[from:to], Separator)
}

// SetMaxSpan changes the longest queried span and rebuilds the whole grid.
func (rg *ReadingGrid) SetMaxSpan(maxSpan int) {
	if maxSpan < 1 {
		maxSpan = DefaultMaxSpan
	}
	rg.maxSpan = maxSpan
	rg.Rebuild()
}

// SetLanguageModel swaps the model and rebuilds the whole grid.
func (rg *ReadingGrid) SetLanguageModel(lm LanguageModel) {
	rg.lm = lm
	rg.Rebuild()
}

// InsertReadingAt inserts reading before position loc.
func (rg *ReadingGrid) InsertReadingAt(loc int, reading string) error {
	if loc < 0 || loc > len(rg.readings) {
		return fmt.Errorf("insert reading at %d of %d: %w", loc, len(rg.readings), ErrLocation)
	}
	rg.readings = append(rg.readings, "")
	copy(rg.readings[loc+1:], rg.readings[loc:])
	rg.readings[loc] = reading

	rg.grid.RemoveNodesCrossing(loc)
	rg.grid.ExpandWidthAt(loc, 1)
	rg.build(loc, 1)
	return nil
}

// DeleteReadingAt removes the reading at position loc.
func (rg *ReadingGrid) DeleteReadingAt(loc int) error {
	if loc < 0 || loc >= len(rg.readings) {
		return fmt.Errorf("delete reading at %d of %d: %w", loc, len(rg.readings), ErrLocation)
	}
	rg.readings = append(rg.readings[:loc], rg.readings[loc+1:]...)

	rg.grid.ShrinkWidthAt(loc, 1)
	rg.grid.RemoveNodesCrossing(loc)
	rg.build(loc, 0)
	return nil
}

// Clear removes all readings.
func (rg *ReadingGrid) Clear() {
	rg.readings = nil
	rg.grid.Clear()
}

// Rebuild regenerates every node from the model, dropping all pins.
func (rg *ReadingGrid) Rebuild() {
	rg.grid.Clear()
	rg.grid.ExpandWidth(len(rg.readings))
	for end := 1; end <= len(rg.readings); end++ {
		for start := max(0, end-rg.maxSpan); start < end; start++ {
			rg.insertSpan(start, end)
		}
	}
}

// build regenerates the spans touched by an edit at loc: spans containing
// one of the n inserted readings, or spans crossing loc after a deletion.
func (rg *ReadingGrid) build(loc, n int) {
	width := len(rg.readings)
	first := max(0, loc-rg.maxSpan+1)
	last := min(width, loc+n+rg.maxSpan-1)
	for end := max(1, first+1); end <= last; end++ {
		for start := max(first, end-rg.maxSpan); start < end; start++ {
			touches := start < loc+n && end > loc
			if n == 0 {
				touches = start < loc && end > loc
			}
			if touches {
				rg.insertSpan(start, end)
			}
		}
	}
}

func (rg *ReadingGrid) insertSpan(start, end int) {
	key := rg.Key(start, end)
	if !rg.lm.HasUnigrams(key) {
		return
	}
	unigrams := rg.lm.Unigrams(key)
	if len(unigrams) == 0 {
		return
	}
	rg.grid.Insert(NewNode(key, end-start, unigrams), end)
}
