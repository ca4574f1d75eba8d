package bopomofo

import "strings"

// Composer assembles one syllable at a time.
type Composer struct {
	layout    *Layout
	consonant rune
	medial    rune
	vowel     rune
	tone      rune
}

// NewComposer returns a composer for layout, defaulting to Standard.
func NewComposer(layout *Layout) *Composer {
	if layout == nil {
		layout = Standard
	}
	return &Composer{layout: layout}
}

// Layout returns the active layout.
func (c *Composer) Layout() *Layout { return c.layout }

// SetLayout switches layouts and clears the syllable in progress.
func (c *Composer) SetLayout(layout *Layout) {
	if layout == nil {
		layout = Standard
	}
	c.layout = layout
	c.Clear()
}

// IsValidKey reports whether key would be accepted by Input in the current
// state. A tone key is only valid once the syllable has a component.
func (c *Composer) IsValidKey(key rune) bool {
	comp, ok := c.layout.Component(key)
	if !ok {
		return false
	}
	if strings.ContainsRune(tones, comp) {
		return !c.isBare()
	}
	return true
}

// Input feeds a key. It reports whether the key was consumed.
func (c *Composer) Input(key rune) bool {
	if !c.IsValidKey(key) {
		return false
	}
	comp, _ := c.layout.Component(key)
	switch {
	case strings.ContainsRune(consonants, comp):
		c.consonant = comp
	case strings.ContainsRune(medials, comp):
		c.medial = comp
	case strings.ContainsRune(vowels, comp):
		c.vowel = comp
	case strings.ContainsRune(tones, comp):
		c.tone = comp
	}
	return true
}

// CompleteWithFirstTone marks the syllable as finished with the first tone.
// It reports false for an empty syllable.
func (c *Composer) CompleteWithFirstTone() bool {
	if c.isBare() {
		return false
	}
	c.tone = Tone1
	return true
}

// HasToneMarker reports whether the syllable is complete.
func (c *Composer) HasToneMarker() bool { return c.tone != 0 }

// IsEmpty reports whether nothing has been typed.
func (c *Composer) IsEmpty() bool { return c.isBare() && c.tone == 0 }

func (c *Composer) isBare() bool {
	return c.consonant == 0 && c.medial == 0 && c.vowel == 0
}

// Backspace removes the last component, tone first.
func (c *Composer) Backspace() {
	switch {
	case c.tone != 0:
		c.tone = 0
	case c.vowel != 0:
		c.vowel = 0
	case c.medial != 0:
		c.medial = 0
	default:
		c.consonant = 0
	}
}

// Clear discards the syllable in progress.
func (c *Composer) Clear() {
	c.consonant, c.medial, c.vowel, c.tone = 0, 0, 0, 0
}

// Composition returns the syllable for display.
func (c *Composer) Composition() string {
	var b strings.Builder
	for _, r := range []rune{c.consonant, c.medial, c.vowel} {
		if r != 0 {
			b.WriteRune(r)
		}
	}
	if c.tone != 0 && c.tone != Tone1 {
		b.WriteRune(c.tone)
	}
	return b.String()
}

// Reading returns the syllable as a decoder reading.
func (c *Composer) Reading() string {
	return c.Composition()
}
