package ime

import "unicode/utf8"

// KeyName identifies a non-printable key. KeyChar marks a printable key whose
// character is carried in Key.Char.
type KeyName int

const (
	KeyChar KeyName = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyTab
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

var keyNames = map[KeyName]string{
	KeyChar:      "Char",
	KeySpace:     "Space",
	KeyEnter:     "Enter",
	KeyEscape:    "Escape",
	KeyBackspace: "Backspace",
	KeyDelete:    "Delete",
	KeyTab:       "Tab",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
}

func (k KeyName) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Key is a normalized key press as the controller sees it.
type Key struct {
	Name  KeyName
	Char  rune
	Shift bool
}

// CharKey returns the key press for a printable character.
func CharKey(r rune) Key {
	return Key{Name: KeyChar, Char: r}
}

// NamedKey returns the key press for a named key.
func NamedKey(name KeyName) Key {
	return Key{Name: name}
}

// WithShift returns k with Shift held.
func (k Key) WithShift() Key {
	k.Shift = true
	return k
}

// IsChar reports whether k carries a printable character.
func (k Key) IsChar() bool { return k.Name == KeyChar && k.Char != 0 }

func (k Key) String() string {
	s := k.Name.String()
	if k.IsChar() {
		s = string(k.Char)
	}
	if k.Shift {
		s = "Shift+" + s
	}
	return s
}

// Modifiers is the modifier state of a host key event.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModAltGraph
	ModCapsLock
	ModMeta
)

// unhandled are the modifiers the engine leaves to the host.
const unhandled = ModControl | ModAlt | ModAltGraph | ModCapsLock | ModMeta

// KeyEvent is a host key event in a host-neutral shape. Key is either a
// single character or a key name such as "Enter" or "ArrowLeft".
type KeyEvent struct {
	Key       string
	Modifiers Modifiers
	Release   bool
}

var namedKeys = map[string]KeyName{
	" ":          KeySpace,
	"Spacebar":   KeySpace,
	"Enter":      KeyEnter,
	"Return":     KeyEnter,
	"Escape":     KeyEscape,
	"Esc":        KeyEscape,
	"Backspace":  KeyBackspace,
	"Delete":     KeyDelete,
	"Del":        KeyDelete,
	"Tab":        KeyTab,
	"ArrowLeft":  KeyLeft,
	"Left":       KeyLeft,
	"ArrowRight": KeyRight,
	"Right":      KeyRight,
	"ArrowUp":    KeyUp,
	"Up":         KeyUp,
	"ArrowDown":  KeyDown,
	"Down":       KeyDown,
	"Home":       KeyHome,
	"End":        KeyEnd,
	"PageUp":     KeyPageUp,
	"PageDown":   KeyPageDown,
}

// NormalizeKeyEvent converts a host event into a Key. It reports false for
// key releases, for events carrying Control, Alt, AltGraph, CapsLock or Meta,
// and for keys the engine does not know; the host should pass those through.
func NormalizeKeyEvent(ev KeyEvent) (Key, bool) {
	if ev.Release || ev.Modifiers&unhandled != 0 {
		return Key{}, false
	}
	shift := ev.Modifiers&ModShift != 0
	if name, ok := namedKeys[ev.Key]; ok {
		return Key{Name: name, Shift: shift}, true
	}
	r, size := utf8.DecodeRuneInString(ev.Key)
	if r == utf8.RuneError || size != len(ev.Key) || r < 0x20 || r == 0x7f {
		return Key{}, false
	}
	return Key{Name: KeyChar, Char: r, Shift: shift}, true
}
