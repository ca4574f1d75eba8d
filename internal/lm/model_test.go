package lm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcbopomofo/internal/gramambular"
)

func testTable() *Table {
	return NewTable(map[string][]gramambular.Unigram{
		"ㄋㄧˇ":      {{Value: "你", Score: -3}, {Value: "妳", Score: -4}},
		"ㄏㄠˇ":      {{Value: "好", Score: -3}},
		"ㄋㄧˇ-ㄏㄠˇ": {{Value: "你好", Score: -4}},
		"ㄏㄨㄚˋ":     {{Value: "话", Score: -3}, {Value: "話", Score: -3.5}},
	})
}

func values(list []gramambular.Unigram) []string {
	out := make([]string, len(list))
	for i, u := range list {
		out[i] = u.Value
	}
	return out
}

func TestModelUserPhrasesFirst(t *testing.T) {
	m := NewModel(testTable())
	m.SetUserPhrases(map[string][]string{"ㄋㄧˇ": {"尼", "妳"}})

	got := m.Unigrams("ㄋㄧˇ")
	assert.Equal(t, []string{"尼", "妳", "你"}, values(got))
	assert.Equal(t, 0.0, got[0].Score)
	assert.True(t, m.HasUnigrams("ㄋㄧˇ"))
	assert.False(t, m.HasUnigrams("ㄅㄚ"))
	assert.Empty(t, m.Unigrams("ㄅㄚ"))
}

func TestModelConverterDedup(t *testing.T) {
	m := NewModel(testTable())
	m.SetConverter(func(s string) string {
		return strings.ReplaceAll(s, "话", "話")
	})

	got := m.Unigrams("ㄏㄨㄚˋ")
	assert.Equal(t, []string{"話"}, values(got))
	assert.InDelta(t, -3.0, got[0].Score, 1e-9, "first occurrence is kept")

	m.SetConverter(nil)
	assert.Equal(t, []string{"话", "話"}, values(m.Unigrams("ㄏㄨㄚˋ")))
}

func TestModelNeverReturnsDuplicateText(t *testing.T) {
	m := NewModel(testTable())
	m.SetUserPhrases(map[string][]string{"ㄋㄧˇ": {"你", "你", "妳"}})
	m.SetConverter(func(s string) string {
		if s == "妳" {
			return "你"
		}
		return s
	})

	seen := map[string]bool{}
	for _, u := range m.Unigrams("ㄋㄧˇ") {
		assert.False(t, seen[u.Value], "duplicate %q", u.Value)
		seen[u.Value] = true
	}
}

func TestModelSpaceAndLetter(t *testing.T) {
	m := NewModel(nil)
	assert.Equal(t, []gramambular.Unigram{{Value: " "}}, m.Unigrams(SpaceReading))
	assert.True(t, m.HasUnigrams(SpaceReading))

	m.SetUserPhrases(map[string][]string{" ": {"X"}})
	assert.Equal(t, []string{" "}, values(m.Unigrams(" ")), "space ignores table contents")

	assert.Equal(t, []string{"Q"}, values(m.Unigrams(LetterPrefix+"Q")))
	assert.False(t, m.HasUnigrams(LetterPrefix))
}

func TestUserPhrasesOutrankPositiveBaseScores(t *testing.T) {
	m := NewModel(NewTable(map[string][]gramambular.Unigram{
		"ㄋㄧˇ": {{Value: "你", Score: 2.5}, {Value: "擬", Score: 1}},
	}))
	m.SetUserPhrases(map[string][]string{"ㄋㄧˇ": {"妳"}})

	unigrams := m.Unigrams("ㄋㄧˇ")
	assert.Equal(t, []string{"妳", "你", "擬"}, values(unigrams))

	node := gramambular.NewNode("ㄋㄧˇ", 1, unigrams)
	assert.Equal(t, "妳", node.Value(), "a ranked node keeps the user phrase first")

	// Negative base scores leave user phrases at zero.
	m = NewModel(testTable())
	m.SetUserPhrases(map[string][]string{"ㄋㄧˇ": {"妳"}})
	assert.Equal(t, 0.0, m.Unigrams("ㄋㄧˇ")[0].Score)
}

func TestLetterSpansHaveNoUnigrams(t *testing.T) {
	m := NewModel(testTable())
	for _, key := range []string{
		LetterPrefix + "A" + gramambular.Separator + "ㄋㄧˇ",
		LetterPrefix + "A" + gramambular.Separator + LetterPrefix + "b",
		"ㄋㄧˇ" + gramambular.Separator + LetterPrefix + "A",
		LetterPrefix + "AB",
	} {
		assert.False(t, m.HasUnigrams(key), key)
		assert.Empty(t, m.Unigrams(key), key)
	}

	rg := gramambular.NewReadingGrid(m, 8)
	for _, r := range []string{LetterPrefix + "A", "ㄋㄧˇ", "ㄏㄠˇ"} {
		require.NoError(t, rg.InsertReadingAt(rg.Width(), r))
	}
	assert.Nil(t, rg.Grid().NodeAt(2, 2), "letter and syllable never share a node")
	assert.Nil(t, rg.Grid().NodeAt(3, 3))
	assert.Equal(t, []string{"A", "你好"}, gramambular.BestPath(rg.Grid(), rg.Width()).Values())
}

func TestAddUserPhrase(t *testing.T) {
	m := NewModel(testTable())

	var calls int
	var last map[string][]string
	m.SetOnPhraseChange(func(p map[string][]string) {
		calls++
		last = p
	})

	changed, err := m.AddUserPhrase("ㄋㄧˇ-ㄏㄠˇ", "妳好")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string][]string{"ㄋㄧˇ-ㄏㄠˇ": {"妳好"}}, last)

	// Duplicate: no change, no callback.
	changed, err = m.AddUserPhrase("ㄋㄧˇ-ㄏㄠˇ", "妳好")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string][]string{"ㄋㄧˇ-ㄏㄠˇ": {"妳好"}}, m.UserPhrases().Snapshot())

	// The callback slot is replaced, not appended.
	var second int
	m.SetOnPhraseChange(func(map[string][]string) { second++ })
	_, err = m.AddUserPhrase("ㄋㄧˇ-ㄏㄠˇ", "你好嗎")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, second)

	assert.Equal(t, []string{"妳好", "你好嗎", "你好"}, values(m.Unigrams("ㄋㄧˇ-ㄏㄠˇ")))

	_, err = m.AddUserPhrase("", "x")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = m.AddUserPhrase("ㄋㄧˇ", "")
	assert.ErrorIs(t, err, ErrEmptyPhrase)
}

func TestAddUserPhraseConverter(t *testing.T) {
	m := NewModel(testTable())
	m.SetAddPhraseConverter(func(s string) string { return strings.ReplaceAll(s, "话", "話") })

	changed, err := m.AddUserPhrase("ㄏㄨㄚˋ", "话")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.HasUserPhrase("ㄏㄨㄚˋ", "话"))
	assert.Equal(t, map[string][]string{"ㄏㄨㄚˋ": {"話"}}, m.UserPhrases().Snapshot())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	u := NewUserPhrases()
	_, err := u.AddUserPhrase("k", "a")
	require.NoError(t, err)

	snap := u.Snapshot()
	snap["k"][0] = "mutated"
	assert.Equal(t, []string{"a"}, u.Snapshot()["k"])
}

func TestKeysAreNormalized(t *testing.T) {
	u := NewUserPhrases()
	_, err := u.AddUserPhrase("e\u0301", "x")
	require.NoError(t, err)
	assert.True(t, u.HasUnigrams("\u00e9"))
	assert.Equal(t, map[string][]string{"\u00e9": {"x"}}, u.Snapshot())
}
