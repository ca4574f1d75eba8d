package ime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   KeyEvent
		want Key
		ok   bool
	}{
		{"letter", KeyEvent{Key: "a"}, CharKey('a'), true},
		{"shifted letter", KeyEvent{Key: "A", Modifiers: ModShift}, CharKey('A').WithShift(), true},
		{"digit", KeyEvent{Key: "3"}, CharKey('3'), true},
		{"punctuation", KeyEvent{Key: "<", Modifiers: ModShift}, CharKey('<').WithShift(), true},
		{"non-ascii", KeyEvent{Key: "ㄅ"}, CharKey('ㄅ'), true},
		{"space", KeyEvent{Key: " "}, NamedKey(KeySpace), true},
		{"enter", KeyEvent{Key: "Enter"}, NamedKey(KeyEnter), true},
		{"return alias", KeyEvent{Key: "Return"}, NamedKey(KeyEnter), true},
		{"esc alias", KeyEvent{Key: "Esc"}, NamedKey(KeyEscape), true},
		{"arrow", KeyEvent{Key: "ArrowLeft", Modifiers: ModShift}, NamedKey(KeyLeft).WithShift(), true},
		{"short arrow", KeyEvent{Key: "Down"}, NamedKey(KeyDown), true},
		{"release", KeyEvent{Key: "a", Release: true}, Key{}, false},
		{"control", KeyEvent{Key: "c", Modifiers: ModControl}, Key{}, false},
		{"alt", KeyEvent{Key: "c", Modifiers: ModAlt | ModShift}, Key{}, false},
		{"altgraph", KeyEvent{Key: "c", Modifiers: ModAltGraph}, Key{}, false},
		{"caps lock", KeyEvent{Key: "c", Modifiers: ModCapsLock}, Key{}, false},
		{"meta", KeyEvent{Key: "Enter", Modifiers: ModMeta}, Key{}, false},
		{"unknown name", KeyEvent{Key: "F1"}, Key{}, false},
		{"empty", KeyEvent{}, Key{}, false},
		{"control char", KeyEvent{Key: "\t"}, Key{}, false},
		{"del char", KeyEvent{Key: "\x7f"}, Key{}, false},
		{"invalid utf8", KeyEvent{Key: "\xff"}, Key{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeKeyEvent(tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "a", CharKey('a').String())
	assert.Equal(t, "Shift+Left", NamedKey(KeyLeft).WithShift().String())
	assert.Equal(t, "PageDown", NamedKey(KeyPageDown).String())
	assert.Equal(t, "Unknown", KeyName(99).String())
	assert.False(t, NamedKey(KeyEnter).IsChar())
	assert.True(t, CharKey('x').IsChar())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", EmptyState.String())
	assert.Equal(t, "choosing_candidate", ChoosingCandidateState.String())
	assert.Equal(t, "committing", CommittingState.String())
}
