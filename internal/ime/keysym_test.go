package ime

import "testing"

// TestKeyvalToRune tests the X11 keysym to rune conversion.
func TestKeyvalToRune(t *testing.T) {
	tests := []struct {
		name   string
		keyval uint32
		want   rune
	}{
		// ASCII printable characters
		{"space", 0x20, ' '},
		{"letter A", 0x41, 'A'},
		{"letter a", 0x61, 'a'},
		{"digit 3", 0x33, '3'},
		{"comma", 0x2c, ','},
		{"tilde", 0x7e, '~'},

		// Extended Latin
		{"nbsp", 0xa0, ' '},
		{"pound", 0xa3, '£'},

		// Unicode keysyms
		{"unicode bopomofo", 0x01003105, 'ㄅ'},
		{"unicode fullwidth comma", 0x0100ff0c, '，'},

		// Non-character keys
		{"backspace", GDKBackSpace, 0},
		{"return", GDKReturn, 0},
		{"escape", GDKEscape, 0},
		{"function key", 0xffbe, 0}, // F1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyvalToRune(tt.keyval)
			if got != tt.want {
				t.Errorf("keyvalToRune(0x%x) = %q, want %q", tt.keyval, got, tt.want)
			}
		})
	}
}

func TestKeyFromKeysym(t *testing.T) {
	tests := []struct {
		name   string
		keyval uint32
		state  uint32
		want   Key
		ok     bool
	}{
		{"letter", 0x73, 0, CharKey('s'), true},
		{"shifted letter", 0x41, IBusShiftMask, CharKey('A').WithShift(), true},
		{"tone key", 0x33, 0, CharKey('3'), true},
		{"space", GDKSpace, 0, NamedKey(KeySpace), true},
		{"shift space", GDKSpace, IBusShiftMask, NamedKey(KeySpace).WithShift(), true},
		{"return", GDKReturn, 0, NamedKey(KeyEnter), true},
		{"keypad enter", GDKKPEnter, 0, NamedKey(KeyEnter), true},
		{"shift left", GDKLeft, IBusShiftMask, NamedKey(KeyLeft).WithShift(), true},
		{"page down", GDKPageDown, 0, NamedKey(KeyPageDown), true},
		{"delete", GDKDelete, 0, NamedKey(KeyDelete), true},
		{"release", 0x73, IBusReleaseMask, Key{}, false},
		{"control", 0x63, IBusControlMask, Key{}, false},
		{"alt", 0x63, IBusMod1Mask, Key{}, false},
		{"caps lock", 0x63, IBusLockMask, Key{}, false},
		{"super", 0x63, IBusMod4Mask, Key{}, false},
		{"function key", 0xffbe, 0, Key{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyFromKeysym(tt.keyval, tt.state)
			if ok != tt.ok || got != tt.want {
				t.Errorf("KeyFromKeysym(0x%x, 0x%x) = %v, %v; want %v, %v", tt.keyval, tt.state, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestIBusModifierMasks tests modifier mask constants.
func TestIBusModifierMasks(t *testing.T) {
	if IBusShiftMask != 1 {
		t.Errorf("Expected IBusShiftMask = 1, got %d", IBusShiftMask)
	}
	if IBusControlMask != 4 {
		t.Errorf("Expected IBusControlMask = 4, got %d", IBusControlMask)
	}
	if IBusMod1Mask != 8 {
		t.Errorf("Expected IBusMod1Mask (Alt) = 8, got %d", IBusMod1Mask)
	}
	if IBusReleaseMask != 1<<30 {
		t.Errorf("Expected IBusReleaseMask = 1<<30, got %d", IBusReleaseMask)
	}
}

func BenchmarkKeyFromKeysym(b *testing.B) {
	keyvals := []uint32{0x61, 0x41, 0x20, GDKBackSpace, 0x01003105}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, kv := range keyvals {
			KeyFromKeysym(kv, 0)
		}
	}
}
