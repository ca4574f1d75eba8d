package metrics

import (
	"time"

	"mcbopomofo/internal/ime"
)

// EngineMetrics counts input controller activity. It implements
// ime.Observer and may be shared by every controller of a process.
type EngineMetrics struct {
	registry *Registry

	KeysConsumed     *Counter
	KeysPassed       *Counter
	Commits          *Counter
	CommittedRunes   *Counter
	CandidatesChosen *Counter
	PhrasesAdded     *Counter
	PhraseReloads    *Counter

	UserPhrases *Gauge

	KeyLatency *Histogram
}

var _ ime.Observer = (*EngineMetrics)(nil)

// NewEngineMetrics registers the engine metrics in registry.
func NewEngineMetrics(registry *Registry) *EngineMetrics {
	if registry == nil {
		registry = NewRegistry("mcbopomofo")
	}
	return &EngineMetrics{
		registry: registry,

		KeysConsumed: registry.Counter("keys_consumed_total",
			"Key presses consumed by the engine", nil),
		KeysPassed: registry.Counter("keys_passed_total",
			"Key presses passed through to the application", nil),
		Commits: registry.Counter("commits_total",
			"Composing buffers committed", nil),
		CommittedRunes: registry.Counter("committed_runes_total",
			"Characters committed", nil),
		CandidatesChosen: registry.Counter("candidates_chosen_total",
			"Candidates chosen from the candidate window", nil),
		PhrasesAdded: registry.Counter("user_phrases_added_total",
			"User phrases added by marking", nil),
		PhraseReloads: registry.Counter("user_phrase_reloads_total",
			"Reloads of the user phrase table from disk", nil),

		UserPhrases: registry.Gauge("user_phrases",
			"Entries in the user phrase table", nil),

		KeyLatency: registry.Histogram("key_handling_seconds",
			"Time spent handling one key press", nil, LatencyBuckets),
	}
}

// Registry returns the registry holding the metrics.
func (m *EngineMetrics) Registry() *Registry { return m.registry }

// KeyHandled implements ime.Observer.
func (m *EngineMetrics) KeyHandled(consumed bool, elapsed time.Duration) {
	if consumed {
		m.KeysConsumed.Inc()
	} else {
		m.KeysPassed.Inc()
	}
	m.KeyLatency.ObserveDuration(elapsed)
}

// Committed implements ime.Observer.
func (m *EngineMetrics) Committed(runes int) {
	m.Commits.Inc()
	m.CommittedRunes.Add(uint64(runes))
}

// CandidateChosen implements ime.Observer.
func (m *EngineMetrics) CandidateChosen() { m.CandidatesChosen.Inc() }

// PhraseAdded implements ime.Observer.
func (m *EngineMetrics) PhraseAdded(changed bool) {
	if changed {
		m.PhrasesAdded.Inc()
	}
}

// SetUserPhraseTable records the size of the user phrase table.
func (m *EngineMetrics) SetUserPhraseTable(phrases map[string][]string) {
	n := 0
	for _, list := range phrases {
		n += len(list)
	}
	m.UserPhrases.Set(int64(n))
}
