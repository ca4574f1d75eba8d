// Package ime implements the Bopomofo composition session and its host
// adapters.
//
// # Architecture Overview
//
// A host (IBus, the terminal playground, a test) normalizes its native key
// events into a Key and hands them to an InputController. The controller
// owns the reading buffer, the cursor, the pinned choices and the live grid,
// and reports back through the UI interface:
//
//	Key Event → NormalizeKeyEvent → InputController.HandleKey
//	                                    ↓
//	                     reading buffer / cursor / pins
//	                                    ↓
//	                   ReadingGrid rebuild → BestPath
//	                                    ↓
//	                  UI.Update(Snapshot) / UI.CommitString
//
// # States
//
//	┌────────────────────┬──────────────────────────────────────────────┐
//	│ State              │ Meaning                                      │
//	├────────────────────┼──────────────────────────────────────────────┤
//	│ Empty              │ nothing typed                                │
//	│ Inputting          │ best path shown, candidate window closed     │
//	│ ChoosingCandidate  │ candidate window open for a span             │
//	│ Marking            │ a reading range is marked for a user phrase  │
//	│ Committing         │ transient, while the commit text is sent     │
//	└────────────────────┴──────────────────────────────────────────────┘
//
// # Pins
//
// Confirming a candidate pins it to its span. A pin moves with the readings
// when edits happen elsewhere and is dropped when an edit lands inside it or
// a later pin overlaps it.
//
// # Snapshots
//
// Every change emits a Snapshot. Its JSON form is the wire format shared
// with hosts:
//
//	{
//	  "composingBuffer": [{"text": "你", "style": "highlighted"}, {"text": "好", "style": "normal"}],
//	  "cursorIndex": 1,
//	  "candidates": [{"candidate": "你", "selected": true, "keyCap": "1"}],
//	  "tooltip": ""
//	}
//
// The cursor index counts runes of the composed text.
//
// # Storage
//
// The controller never persists anything. Hosts register a phrase change
// callback and save the table through a PhraseStore, either the JSON
// PhraseFile here or the SQLite store.
package ime
