// Package lm provides the language models behind the decoder: the base
// statistical table, the user phrase overlay and the composite Model that
// layers one over the other.
package lm

import (
	"strings"
	"sync"
	"unicode/utf8"

	"mcbopomofo/internal/gramambular"
)

// SpaceReading is the reading of a literal space.
const SpaceReading = " "

// LetterPrefix marks a reading that stands for a literal Latin letter.
const LetterPrefix = "_letter_"

// PunctuationPrefix marks a reading produced by a punctuation key.
const PunctuationPrefix = "_punctuation_"

// letterOf returns the letter a single _letter_ reading stands for. Keys
// spanning several readings are left to the tables.
func letterOf(key string) (string, bool) {
	letter, ok := strings.CutPrefix(key, LetterPrefix)
	if !ok || utf8.RuneCountInString(letter) != 1 {
		return "", false
	}
	return letter, true
}

// Converter rewrites candidate text, for example between script variants.
// It returns its input when it has nothing to convert.
type Converter func(string) string

// Model is the composite language model: user phrases first, in insertion
// order, then the base table in its own ranking. A candidate whose converted
// text was already produced is dropped.
type Model struct {
	base gramambular.LanguageModel
	user *UserPhrases

	mu                 sync.RWMutex
	converter          Converter
	addPhraseConverter Converter
}

// NewModel layers a fresh user phrase table over base. A nil base behaves as
// an empty table.
func NewModel(base gramambular.LanguageModel) *Model {
	if base == nil {
		base = NewTable(nil)
	}
	return &Model{base: base, user: NewUserPhrases()}
}

// UserPhrases returns the user phrase overlay.
func (m *Model) UserPhrases() *UserPhrases { return m.user }

// SetConverter sets the converter applied to every candidate. nil disables
// conversion.
func (m *Model) SetConverter(c Converter) {
	m.mu.Lock()
	m.converter = c
	m.mu.Unlock()
}

// SetAddPhraseConverter sets the converter applied to a phrase before it is
// stored by AddUserPhrase.
func (m *Model) SetAddPhraseConverter(c Converter) {
	m.mu.Lock()
	m.addPhraseConverter = c
	m.mu.Unlock()
}

// SetUserPhrases replaces the user phrase table.
func (m *Model) SetUserPhrases(phrases map[string][]string) {
	m.user.SetUserPhrases(phrases)
}

// SetOnPhraseChange registers the callback fired when a user phrase is added.
func (m *Model) SetOnPhraseChange(cb PhraseChangeFunc) {
	m.user.SetOnPhraseChange(cb)
}

// AddUserPhrase stores phrase for key after applying the add-phrase
// converter. It reports whether the table changed.
func (m *Model) AddUserPhrase(key, phrase string) (bool, error) {
	m.mu.RLock()
	conv := m.addPhraseConverter
	m.mu.RUnlock()
	if conv != nil {
		phrase = conv(phrase)
	}
	return m.user.AddUserPhrase(key, phrase)
}

// HasUserPhrase reports whether phrase, after the add-phrase converter, is
// already stored for key.
func (m *Model) HasUserPhrase(key, phrase string) bool {
	m.mu.RLock()
	conv := m.addPhraseConverter
	m.mu.RUnlock()
	if conv != nil {
		phrase = conv(phrase)
	}
	return m.user.Contains(key, phrase)
}

// Unigrams implements gramambular.LanguageModel.
func (m *Model) Unigrams(key string) []gramambular.Unigram {
	if key == SpaceReading {
		return []gramambular.Unigram{{Value: " "}}
	}
	if letter, ok := letterOf(key); ok {
		return []gramambular.Unigram{{Value: letter}}
	}

	m.mu.RLock()
	conv := m.converter
	m.mu.RUnlock()

	var result []gramambular.Unigram
	seen := make(map[string]struct{})
	add := func(list []gramambular.Unigram) {
		for _, u := range list {
			if conv != nil {
				u.Value = conv(u.Value)
			}
			if _, dup := seen[u.Value]; dup {
				continue
			}
			seen[u.Value] = struct{}{}
			result = append(result, u)
		}
	}
	base := m.base.Unigrams(key)
	user := m.user.Unigrams(key)
	// User phrases score at least as high as the best base entry, so they
	// stay ahead of it once a node ranks its unigrams.
	var top float64
	for _, u := range base {
		top = max(top, u.Score)
	}
	for i := range user {
		user[i].Score = max(user[i].Score, top)
	}
	add(user)
	add(base)
	return result
}

// HasUnigrams implements gramambular.LanguageModel.
func (m *Model) HasUnigrams(key string) bool {
	if key == SpaceReading {
		return true
	}
	if _, ok := letterOf(key); ok {
		return true
	}
	return m.user.HasUnigrams(key) || m.base.HasUnigrams(key)
}
