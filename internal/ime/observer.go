package ime

import "time"

// Observer is told about controller activity. Methods are called on the
// goroutine driving the controller and must not block.
type Observer interface {
	KeyHandled(consumed bool, elapsed time.Duration)
	Committed(runes int)
	CandidateChosen()
	PhraseAdded(changed bool)
}

type nopObserver struct{}

func (nopObserver) KeyHandled(bool, time.Duration) {}
func (nopObserver) Committed(int)                  {}
func (nopObserver) CandidateChosen()               {}
func (nopObserver) PhraseAdded(bool)               {}

// WithObserver reports controller activity to o.
func WithObserver(o Observer) Option {
	return func(c *InputController) {
		if o != nil {
			c.observer = o
		}
	}
}
