package lm

import (
	"errors"
	"sync"

	"golang.org/x/text/unicode/norm"

	"mcbopomofo/internal/gramambular"
)

var (
	// ErrEmptyKey is returned when a phrase is added without a reading key.
	ErrEmptyKey = errors.New("lm: empty reading key")
	// ErrEmptyPhrase is returned when an empty phrase is added.
	ErrEmptyPhrase = errors.New("lm: empty phrase")
)

// PhraseChangeFunc receives the full user phrase table after a change.
type PhraseChangeFunc func(phrases map[string][]string)

// UserPhrases is the language model of phrases added by the user. Every
// phrase scores 0.
type UserPhrases struct {
	mu       sync.RWMutex
	phrases  map[string][]string
	onChange PhraseChangeFunc
}

// NewUserPhrases returns an empty user phrase table.
func NewUserPhrases() *UserPhrases {
	return &UserPhrases{phrases: make(map[string][]string)}
}

// SetUserPhrases replaces the table. A nil map is ignored.
func (u *UserPhrases) SetUserPhrases(phrases map[string][]string) {
	if phrases == nil {
		return
	}
	table := make(map[string][]string, len(phrases))
	for key, list := range phrases {
		key = normalizeKey(key)
		for _, p := range list {
			if p != "" && !contains(table[key], p) {
				table[key] = append(table[key], p)
			}
		}
	}

	u.mu.Lock()
	u.phrases = table
	u.mu.Unlock()
}

// SetOnPhraseChange registers the callback fired after AddUserPhrase changes
// the table. Only the most recently registered callback fires.
func (u *UserPhrases) SetOnPhraseChange(cb PhraseChangeFunc) {
	u.mu.Lock()
	u.onChange = cb
	u.mu.Unlock()
}

// AddUserPhrase appends phrase to the list for key. It reports whether the
// table changed; a duplicate is a no-op and fires no callback.
func (u *UserPhrases) AddUserPhrase(key, phrase string) (bool, error) {
	key = normalizeKey(key)
	if key == "" {
		return false, ErrEmptyKey
	}
	if phrase == "" {
		return false, ErrEmptyPhrase
	}

	u.mu.Lock()
	if contains(u.phrases[key], phrase) {
		u.mu.Unlock()
		return false, nil
	}
	u.phrases[key] = append(u.phrases[key], phrase)
	cb := u.onChange
	snapshot := u.snapshotLocked()
	u.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return true, nil
}

// Snapshot returns a deep copy of the table.
func (u *UserPhrases) Snapshot() map[string][]string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.snapshotLocked()
}

func (u *UserPhrases) snapshotLocked() map[string][]string {
	out := make(map[string][]string, len(u.phrases))
	for k, v := range u.phrases {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Contains reports whether phrase is stored for key.
func (u *UserPhrases) Contains(key, phrase string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return contains(u.phrases[normalizeKey(key)], phrase)
}

// Unigrams implements gramambular.LanguageModel.
func (u *UserPhrases) Unigrams(key string) []gramambular.Unigram {
	u.mu.RLock()
	defer u.mu.RUnlock()

	list := u.phrases[normalizeKey(key)]
	result := make([]gramambular.Unigram, 0, len(list))
	for _, p := range list {
		result = append(result, gramambular.Unigram{Value: p, Score: 0})
	}
	return result
}

// HasUnigrams implements gramambular.LanguageModel.
func (u *UserPhrases) HasUnigrams(key string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.phrases[normalizeKey(key)]) > 0
}

func normalizeKey(key string) string {
	return norm.NFC.String(key)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
