package ime

// IBus key event state masks
const (
	IBusShiftMask   uint32 = 1 << 0
	IBusLockMask    uint32 = 1 << 1
	IBusControlMask uint32 = 1 << 2
	IBusMod1Mask    uint32 = 1 << 3 // Alt
	IBusMod4Mask    uint32 = 1 << 6 // Super/Meta
	IBusMod5Mask    uint32 = 1 << 7 // AltGr
	IBusReleaseMask uint32 = 1 << 30
)

// Common GDK key symbols
const (
	GDKBackSpace = 0xff08
	GDKTab       = 0xff09
	GDKReturn    = 0xff0d
	GDKEscape    = 0xff1b
	GDKHome      = 0xff50
	GDKLeft      = 0xff51
	GDKUp        = 0xff52
	GDKRight     = 0xff53
	GDKDown      = 0xff54
	GDKPageUp    = 0xff55
	GDKPageDown  = 0xff56
	GDKEnd       = 0xff57
	GDKKPEnter   = 0xff8d
	GDKDelete    = 0xffff
	GDKSpace     = 0x0020
)

var keysymNames = map[uint32]string{
	GDKBackSpace: "Backspace",
	GDKTab:       "Tab",
	GDKReturn:    "Enter",
	GDKKPEnter:   "Enter",
	GDKEscape:    "Escape",
	GDKHome:      "Home",
	GDKLeft:      "ArrowLeft",
	GDKUp:        "ArrowUp",
	GDKRight:     "ArrowRight",
	GDKDown:      "ArrowDown",
	GDKPageUp:    "PageUp",
	GDKPageDown:  "PageDown",
	GDKEnd:       "End",
	GDKDelete:    "Delete",
}

// KeyEventFromKeysym converts an X11 keysym and IBus modifier state into a
// host-neutral KeyEvent. ok is false for keysyms with no meaning here, such
// as bare modifier or function keys.
func KeyEventFromKeysym(keyval, state uint32) (ev KeyEvent, ok bool) {
	ev.Release = state&IBusReleaseMask != 0
	if state&IBusShiftMask != 0 {
		ev.Modifiers |= ModShift
	}
	if state&IBusLockMask != 0 {
		ev.Modifiers |= ModCapsLock
	}
	if state&IBusControlMask != 0 {
		ev.Modifiers |= ModControl
	}
	if state&IBusMod1Mask != 0 {
		ev.Modifiers |= ModAlt
	}
	if state&IBusMod4Mask != 0 {
		ev.Modifiers |= ModMeta
	}
	if state&IBusMod5Mask != 0 {
		ev.Modifiers |= ModAltGraph
	}

	if name, found := keysymNames[keyval]; found {
		ev.Key = name
		return ev, true
	}
	if r := keyvalToRune(keyval); r != 0 {
		ev.Key = string(r)
		return ev, true
	}
	return ev, false
}

// KeyFromKeysym normalizes an IBus key event in one step.
func KeyFromKeysym(keyval, state uint32) (Key, bool) {
	ev, ok := KeyEventFromKeysym(keyval, state)
	if !ok {
		return Key{}, false
	}
	return NormalizeKeyEvent(ev)
}

// keyvalToRune converts X11 keysym to Unicode rune.
func keyvalToRune(keyval uint32) rune {
	// Direct Unicode mapping for Latin-1 range
	if keyval >= 0x20 && keyval <= 0x7e {
		return rune(keyval)
	}

	// Extended Latin (ISO 8859-1)
	if keyval >= 0xa0 && keyval <= 0xff {
		return rune(keyval)
	}

	// Unicode keysyms (0x01000000 + codepoint)
	if keyval >= 0x01000000 {
		return rune(keyval - 0x01000000)
	}

	return 0
}
