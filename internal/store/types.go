// Package store provides SQLite-based storage for the user phrase table.
package store

import "time"

// Phrase is one user phrase row.
type Phrase struct {
	// Reading is the reading key, syllables joined by "-".
	Reading string

	// Text is the phrase value.
	Text string

	// Position orders phrases that share a reading.
	Position int

	// Source records how the phrase arrived.
	Source Source

	CreatedAt time.Time
}

// Source defines how a phrase was added.
type Source string

const (
	// SourceMarked is a phrase added by marking readings while typing.
	SourceMarked Source = "marked"
	// SourceImported is a phrase merged from a phrase file.
	SourceImported Source = "imported"
	// SourceManual is a phrase added from the command line.
	SourceManual Source = "manual"
)
