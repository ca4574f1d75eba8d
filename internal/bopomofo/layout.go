// Package bopomofo assembles Bopomofo syllables from keyboard input.
//
// A syllable has up to four slots: consonant, medial, vowel and tone. Each
// key of a layout fills one slot, replacing what was there; a tone key
// completes the syllable. The completed syllable, written without a mark for
// the first tone, is the reading handed to the decoder.
package bopomofo

import "strings"

// Component classes.
const (
	consonants = "ㄅㄆㄇㄈㄉㄊㄋㄌㄍㄎㄏㄐㄑㄒㄓㄔㄕㄖㄗㄘㄙ"
	medials    = "ㄧㄨㄩ"
	vowels     = "ㄚㄛㄜㄝㄞㄟㄠㄡㄢㄣㄤㄥㄦ"
	tones      = "ˊˇˋ˙"
)

// Tone1 is the placeholder for the unmarked first tone.
const Tone1 = ' '

// Layout maps keys to Bopomofo components.
type Layout struct {
	Name string
	keys map[rune]rune
}

// Standard is the Dachen layout printed on most Taiwanese keyboards.
var Standard = newLayout("standard", map[rune]rune{
	'1': 'ㄅ', 'q': 'ㄆ', 'a': 'ㄇ', 'z': 'ㄈ',
	'2': 'ㄉ', 'w': 'ㄊ', 's': 'ㄋ', 'x': 'ㄌ',
	'e': 'ㄍ', 'd': 'ㄎ', 'c': 'ㄏ',
	'r': 'ㄐ', 'f': 'ㄑ', 'v': 'ㄒ',
	'5': 'ㄓ', 't': 'ㄔ', 'g': 'ㄕ', 'b': 'ㄖ',
	'y': 'ㄗ', 'h': 'ㄘ', 'n': 'ㄙ',
	'u': 'ㄧ', 'j': 'ㄨ', 'm': 'ㄩ',
	'8': 'ㄚ', 'i': 'ㄛ', 'k': 'ㄜ', ',': 'ㄝ',
	'9': 'ㄞ', 'o': 'ㄟ', 'l': 'ㄠ', '.': 'ㄡ',
	'0': 'ㄢ', 'p': 'ㄣ', ';': 'ㄤ', '/': 'ㄥ', '-': 'ㄦ',
	'6': 'ˊ', '3': 'ˇ', '4': 'ˋ', '7': '˙',
})

// ETen is the layout of the ETen Chinese system.
var ETen = newLayout("eten", map[rune]rune{
	'b': 'ㄅ', 'p': 'ㄆ', 'm': 'ㄇ', 'f': 'ㄈ',
	'd': 'ㄉ', 't': 'ㄊ', 'n': 'ㄋ', 'l': 'ㄌ',
	'v': 'ㄍ', 'k': 'ㄎ', 'h': 'ㄏ',
	'g': 'ㄐ', '7': 'ㄑ', 'c': 'ㄒ',
	',': 'ㄓ', '.': 'ㄔ', '/': 'ㄕ', 'j': 'ㄖ',
	';': 'ㄗ', '\'': 'ㄘ', 's': 'ㄙ',
	'e': 'ㄧ', 'x': 'ㄨ', 'u': 'ㄩ',
	'a': 'ㄚ', 'o': 'ㄛ', 'r': 'ㄜ', 'w': 'ㄝ',
	'i': 'ㄞ', 'q': 'ㄟ', 'z': 'ㄠ', 'y': 'ㄡ',
	'8': 'ㄢ', '9': 'ㄣ', '0': 'ㄤ', '-': 'ㄥ', '=': 'ㄦ',
	'2': 'ˊ', '3': 'ˇ', '4': 'ˋ', '1': '˙',
})

var layouts = map[string]*Layout{
	Standard.Name: Standard,
	ETen.Name:     ETen,
}

func newLayout(name string, keys map[rune]rune) *Layout {
	return &Layout{Name: name, keys: keys}
}

// LayoutByName returns the layout registered under name.
func LayoutByName(name string) (*Layout, bool) {
	l, ok := layouts[strings.ToLower(name)]
	return l, ok
}

// LayoutNames returns the names of the supported layouts.
func LayoutNames() []string {
	return []string{Standard.Name, ETen.Name}
}

// Component returns the Bopomofo component for key.
func (l *Layout) Component(key rune) (rune, bool) {
	c, ok := l.keys[key]
	return c, ok
}

// IsToneKey reports whether key produces a tone mark.
func (l *Layout) IsToneKey(key rune) bool {
	c, ok := l.keys[key]
	return ok && strings.ContainsRune(tones, c)
}
