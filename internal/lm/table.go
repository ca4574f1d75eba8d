package lm

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"mcbopomofo/internal/gramambular"
)

//go:embed data/sample.txt
var sampleTable string

// Table is the base statistical model: a map from reading key to unigrams
// ranked by score.
type Table struct {
	entries map[string][]gramambular.Unigram
	maxSpan int
}

// NewTable builds a table from entries. Each list is ranked by score,
// highest first, keeping the given order for ties.
func NewTable(entries map[string][]gramambular.Unigram) *Table {
	t := &Table{entries: make(map[string][]gramambular.Unigram, len(entries))}
	for key, list := range entries {
		t.add(normalizeKey(key), list...)
	}
	t.rank()
	return t
}

// SampleTable returns the small table bundled with the engine.
func SampleTable() *Table {
	t, err := ParseTable(strings.NewReader(sampleTable))
	if err != nil {
		panic(fmt.Sprintf("lm: bundled table: %v", err))
	}
	return t
}

// LoadTableFile reads a table from path. See ParseTable for the format.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// ParseTable reads whitespace separated lines of
//
//	<reading key> <value> <score>
//
// where multi-syllable keys join readings with gramambular.Separator. Blank
// lines and lines starting with # are skipped.
func ParseTable(r io.Reader) (*Table, error) {
	t := &Table{entries: make(map[string][]gramambular.Unigram)}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(fields))
		}
		score, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: score: %w", line, err)
		}
		t.add(normalizeKey(fields[0]), gramambular.Unigram{Value: fields[1], Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	t.rank()
	return t, nil
}

func (t *Table) add(key string, unigrams ...gramambular.Unigram) {
	if key == "" {
		return
	}
	t.entries[key] = append(t.entries[key], unigrams...)
	if span := strings.Count(key, gramambular.Separator) + 1; span > t.maxSpan {
		t.maxSpan = span
	}
}

func (t *Table) rank() {
	for _, list := range t.entries {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Score > list[j].Score
		})
	}
}

// Len returns the number of keys.
func (t *Table) Len() int { return len(t.entries) }

// MaxSpan returns the number of readings in the longest key.
func (t *Table) MaxSpan() int { return t.maxSpan }

// Unigrams implements gramambular.LanguageModel.
func (t *Table) Unigrams(key string) []gramambular.Unigram {
	return t.entries[normalizeKey(key)]
}

// HasUnigrams implements gramambular.LanguageModel.
func (t *Table) HasUnigrams(key string) bool {
	return len(t.entries[normalizeKey(key)]) > 0
}
