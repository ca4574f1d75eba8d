package ime

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mcbopomofo/internal/bopomofo"
	"mcbopomofo/internal/gramambular"
)

// SelectPhrase chooses which nodes the candidate window offers.
type SelectPhrase string

const (
	// SelectBeforeCursor offers the nodes ending at the cursor.
	SelectBeforeCursor SelectPhrase = "before_cursor"
	// SelectAfterCursor offers the nodes starting at the cursor.
	SelectAfterCursor SelectPhrase = "after_cursor"
)

// LetterMode is the casing of Latin letters typed with Shift and of letter
// candidate key labels.
type LetterMode string

const (
	LetterUpper LetterMode = "upper"
	LetterLower LetterMode = "lower"
)

// DefaultCandidateKeys labels the nine candidate slots.
const DefaultCandidateKeys = "123456789"

// IBus registration names.
const (
	IBusEngineName     = "mcbopomofo"
	DefaultIBusBusName = "org.freedesktop.IBus.McBopomofo"
)

// Settings holds the host-configurable behaviour of an InputController.
type Settings struct {
	Layout                   *bopomofo.Layout
	SelectPhrase             SelectPhrase
	CandidateKeys            string
	EscClearEntireBuffer     bool
	MoveCursorAfterSelection bool
	LetterMode               LetterMode
	MaxSpan                  int
}

// DefaultSettings returns the settings a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		Layout:                   bopomofo.Standard,
		SelectPhrase:             SelectBeforeCursor,
		CandidateKeys:            DefaultCandidateKeys,
		EscClearEntireBuffer:     false,
		MoveCursorAfterSelection: true,
		LetterMode:               LetterUpper,
		MaxSpan:                  gramambular.DefaultMaxSpan,
	}
}

// Validate checks the settings for values the controller cannot use.
func (s Settings) Validate() error {
	var errs []error
	if s.Layout == nil {
		errs = append(errs, errors.New("layout is required"))
	}
	switch s.SelectPhrase {
	case SelectBeforeCursor, SelectAfterCursor:
	default:
		errs = append(errs, fmt.Errorf("select phrase %q: must be %s or %s", s.SelectPhrase, SelectBeforeCursor, SelectAfterCursor))
	}
	if err := ValidateCandidateKeys(s.CandidateKeys); err != nil {
		errs = append(errs, err)
	}
	switch s.LetterMode {
	case LetterUpper, LetterLower:
	default:
		errs = append(errs, fmt.Errorf("letter mode %q: must be %s or %s", s.LetterMode, LetterUpper, LetterLower))
	}
	if s.MaxSpan < 1 {
		errs = append(errs, fmt.Errorf("max span %d: must be positive", s.MaxSpan))
	}
	return errors.Join(errs...)
}

// ValidateCandidateKeys checks that keys is a non-empty run of distinct
// printable characters, none of them a space.
func ValidateCandidateKeys(keys string) error {
	if keys == "" {
		return errors.New("candidate keys must not be empty")
	}
	seen := make(map[rune]bool)
	for _, r := range keys {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("candidate keys %q: invalid key %q", keys, r)
		}
		r = unicode.ToLower(r)
		if seen[r] {
			return fmt.Errorf("candidate keys %q: duplicate key %q", keys, r)
		}
		seen[r] = true
	}
	return nil
}

func (m LetterMode) caser() cases.Caser {
	if m == LetterLower {
		return cases.Lower(language.Und)
	}
	return cases.Upper(language.Und)
}

// apply returns s in the letter mode's casing.
func (m LetterMode) apply(s string) string {
	return m.caser().String(s)
}

// keyCaps returns the on-screen labels of the candidate keys.
func (s Settings) keyCaps() []string {
	caps := make([]string, 0, len(s.CandidateKeys))
	for _, r := range s.CandidateKeys {
		caps = append(caps, s.LetterMode.apply(string(r)))
	}
	return caps
}

// candidateSlot returns the slot labelled by r, or -1.
func (s Settings) candidateSlot(r rune) int {
	i := 0
	for _, k := range s.CandidateKeys {
		if unicode.ToLower(k) == unicode.ToLower(r) {
			return i
		}
		i++
	}
	return -1
}

func (s Settings) pageSize() int {
	return max(1, len([]rune(s.CandidateKeys)))
}

// ParseSelectPhrase converts a configuration value into a SelectPhrase.
func ParseSelectPhrase(v string) (SelectPhrase, error) {
	switch p := SelectPhrase(strings.ToLower(v)); p {
	case SelectBeforeCursor, SelectAfterCursor:
		return p, nil
	}
	return "", fmt.Errorf("unknown select phrase %q", v)
}

// ParseLetterMode converts a configuration value into a LetterMode.
func ParseLetterMode(v string) (LetterMode, error) {
	switch m := LetterMode(strings.ToLower(v)); m {
	case LetterUpper, LetterLower:
		return m, nil
	}
	return "", fmt.Errorf("unknown letter mode %q", v)
}
