package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"mcbopomofo/internal/ime"
)

var namedKeys = map[tea.KeyType]ime.Key{
	tea.KeySpace:      ime.NamedKey(ime.KeySpace),
	tea.KeyEnter:      ime.NamedKey(ime.KeyEnter),
	tea.KeyEsc:        ime.NamedKey(ime.KeyEscape),
	tea.KeyBackspace:  ime.NamedKey(ime.KeyBackspace),
	tea.KeyDelete:     ime.NamedKey(ime.KeyDelete),
	tea.KeyTab:        ime.NamedKey(ime.KeyTab),
	tea.KeyShiftTab:   ime.NamedKey(ime.KeyTab).WithShift(),
	tea.KeyLeft:       ime.NamedKey(ime.KeyLeft),
	tea.KeyRight:      ime.NamedKey(ime.KeyRight),
	tea.KeyUp:         ime.NamedKey(ime.KeyUp),
	tea.KeyDown:       ime.NamedKey(ime.KeyDown),
	tea.KeyShiftLeft:  ime.NamedKey(ime.KeyLeft).WithShift(),
	tea.KeyShiftRight: ime.NamedKey(ime.KeyRight).WithShift(),
	tea.KeyHome:       ime.NamedKey(ime.KeyHome),
	tea.KeyEnd:        ime.NamedKey(ime.KeyEnd),
	tea.KeyPgUp:       ime.NamedKey(ime.KeyPageUp),
	tea.KeyPgDown:     ime.NamedKey(ime.KeyPageDown),
}

// keysFromMsg converts a terminal key message into controller key presses.
// Pasted text yields one press per rune. Alt combinations and control keys
// other than the named ones yield nothing.
func keysFromMsg(msg tea.KeyMsg) []ime.Key {
	if msg.Alt {
		return nil
	}
	if k, ok := namedKeys[msg.Type]; ok {
		return []ime.Key{k}
	}
	if msg.Type != tea.KeyRunes {
		return nil
	}

	keys := make([]ime.Key, 0, len(msg.Runes))
	for _, r := range msg.Runes {
		if k, ok := ime.NormalizeKeyEvent(ime.KeyEvent{Key: string(r)}); ok {
			keys = append(keys, k)
		}
	}
	return keys
}
