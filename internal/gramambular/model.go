package gramambular

// Unigram is a candidate phrase and its score for one reading key.
type Unigram struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// LanguageModel supplies scored candidates for a reading key. A key is a
// single reading or several adjacent readings joined with Separator.
//
// A conforming model returns at least one unigram for every single reading
// it accepts so that a full path through the grid always exists.
type LanguageModel interface {
	// Unigrams returns the candidates for key, best first. It returns an
	// empty slice for unknown keys.
	Unigrams(key string) []Unigram

	// HasUnigrams reports whether Unigrams would return anything for key.
	HasUnigrams(key string) bool
}
