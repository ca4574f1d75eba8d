package bopomofo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeKeys(c *Composer, keys string) {
	for _, k := range keys {
		c.Input(k)
	}
}

func TestStandardSyllables(t *testing.T) {
	tests := []struct {
		keys string
		want string
	}{
		{"su3", "ㄋㄧˇ"},
		{"cl3", "ㄏㄠˇ"},
		{"wu06", "ㄊㄧㄢˊ"},
		{"fu/", "ㄑㄧㄥ"},
		{"2k7", "ㄉㄜ˙"},
		{"5p4", "ㄓㄣˋ"},
	}
	for _, tt := range tests {
		t.Run(tt.keys, func(t *testing.T) {
			c := NewComposer(Standard)
			typeKeys(c, tt.keys)
			assert.Equal(t, tt.want, c.Reading())
		})
	}
}

func TestETenSyllables(t *testing.T) {
	c := NewComposer(ETen)
	typeKeys(c, "ne3")
	assert.Equal(t, "ㄋㄧˇ", c.Reading())
	assert.True(t, c.HasToneMarker())

	c.Clear()
	typeKeys(c, "hz3")
	assert.Equal(t, "ㄏㄠˇ", c.Reading())
}

func TestLaterKeyReplacesSlot(t *testing.T) {
	c := NewComposer(Standard)
	typeKeys(c, "1q")
	assert.Equal(t, "ㄆ", c.Composition())

	typeKeys(c, "8i")
	assert.Equal(t, "ㄆㄛ", c.Composition())
}

func TestToneNeedsComponent(t *testing.T) {
	c := NewComposer(Standard)
	assert.False(t, c.IsValidKey('3'))
	assert.False(t, c.Input('3'))
	assert.True(t, c.IsEmpty())

	require.True(t, c.Input('u'))
	assert.True(t, c.IsValidKey('3'))
	assert.False(t, c.IsValidKey('!'))
}

func TestFirstTone(t *testing.T) {
	c := NewComposer(Standard)
	assert.False(t, c.CompleteWithFirstTone())

	typeKeys(c, "wu0")
	require.True(t, c.CompleteWithFirstTone())
	assert.True(t, c.HasToneMarker())
	assert.Equal(t, "ㄊㄧㄢ", c.Reading())
}

func TestBackspace(t *testing.T) {
	c := NewComposer(Standard)
	typeKeys(c, "wu06")

	c.Backspace()
	assert.Equal(t, "ㄊㄧㄢ", c.Composition())
	assert.False(t, c.HasToneMarker())
	c.Backspace()
	assert.Equal(t, "ㄊㄧ", c.Composition())
	c.Backspace()
	c.Backspace()
	assert.True(t, c.IsEmpty())
	c.Backspace()
	assert.True(t, c.IsEmpty())
}

func TestSetLayoutClears(t *testing.T) {
	c := NewComposer(nil)
	assert.Equal(t, Standard, c.Layout())
	typeKeys(c, "su")
	c.SetLayout(ETen)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, ETen, c.Layout())
}

func TestLayoutByName(t *testing.T) {
	l, ok := LayoutByName("ETen")
	require.True(t, ok)
	assert.Equal(t, ETen, l)

	_, ok = LayoutByName("hsu")
	assert.False(t, ok)
	assert.Equal(t, []string{"standard", "eten"}, LayoutNames())
	assert.True(t, Standard.IsToneKey('7'))
	assert.False(t, ETen.IsToneKey('7'))
}
