package lm

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

//go:embed data/t2s.txt
var bundledConversion string

// ConversionTable maps text between script variants. Entries are matched
// longest first.
type ConversionTable struct {
	entries map[string]string
	longest int
}

// BundledConversionTable returns the traditional to simplified table shipped
// with the engine.
func BundledConversionTable() *ConversionTable {
	t, err := ParseConversionTable(strings.NewReader(bundledConversion))
	if err != nil {
		panic(fmt.Sprintf("lm: bundled conversion table: %v", err))
	}
	return t
}

// LoadConversionTable reads a conversion table from path.
func LoadConversionTable(path string) (*ConversionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open conversion table: %w", err)
	}
	defer f.Close()

	t, err := ParseConversionTable(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// ParseConversionTable reads lines of "<from> <to>". Blank lines and lines
// starting with # are skipped. A later line for the same source wins.
func ParseConversionTable(r io.Reader) (*ConversionTable, error) {
	t := &ConversionTable{entries: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", line, len(fields))
		}
		t.entries[fields[0]] = fields[1]
		t.longest = max(t.longest, utf8.RuneCountInString(fields[0]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conversion table: %w", err)
	}
	return t, nil
}

// Len returns the number of entries.
func (t *ConversionTable) Len() int { return len(t.entries) }

// Convert rewrites s, replacing the longest known source at each position.
// Unknown text is copied through.
func (t *ConversionTable) Convert(s string) string {
	var b strings.Builder
	for len(s) > 0 {
		n, to := t.match(s)
		if n == 0 {
			_, size := utf8.DecodeRuneInString(s)
			b.WriteString(s[:size])
			s = s[size:]
			continue
		}
		b.WriteString(to)
		s = s[n:]
	}
	return b.String()
}

// match returns the byte length and replacement of the longest entry that
// prefixes s, or 0 when none does.
func (t *ConversionTable) match(s string) (int, string) {
	end, runes := 0, 0
	ends := make([]int, 0, t.longest)
	for end < len(s) && runes < t.longest {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
		runes++
		ends = append(ends, end)
	}
	for i := len(ends) - 1; i >= 0; i-- {
		if to, ok := t.entries[s[:ends[i]]]; ok {
			return ends[i], to
		}
	}
	return 0, ""
}

// Converter returns Convert as a Converter.
func (t *ConversionTable) Converter() Converter { return t.Convert }
