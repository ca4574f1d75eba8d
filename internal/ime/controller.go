package ime

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"mcbopomofo/internal/bopomofo"
	"mcbopomofo/internal/gramambular"
	"mcbopomofo/internal/lm"
)

// Marked ranges shorter or longer than these cannot become user phrases.
const (
	minMarkLength = 2
	maxMarkLength = 6
)

// UI is the host side of a controller: it renders snapshots and receives
// committed text.
type UI interface {
	Reset()
	CommitString(text string)
	Update(s Snapshot)
}

type nopUI struct{}

func (nopUI) Reset()              {}
func (nopUI) CommitString(string) {}
func (nopUI) Update(Snapshot)     {}

// Option configures an InputController.
type Option func(*InputController)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *InputController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSettings sets the initial settings. An unset layout, select phrase,
// candidate key string, letter mode or max span keeps its default.
func WithSettings(s Settings) Option {
	return func(c *InputController) {
		c.settings = mergeSettings(DefaultSettings(), s)
	}
}

// InputController is the composition state machine for one input focus.
// It is not safe for concurrent use.
type InputController struct {
	model    *lm.Model
	ui       UI
	logger   *slog.Logger
	observer Observer
	session  string
	settings Settings

	grid     *gramambular.ReadingGrid
	composer *bopomofo.Composer
	path     gramambular.Path

	state  State
	cursor int
	pins   []pin

	candidates []candidate
	highlight  int

	// mark is the moving end of the marked range; cursor is the fixed end.
	mark int
}

// NewInputController returns an empty controller decoding with model and
// reporting to ui. A nil model decodes nothing but spaces and letters.
func NewInputController(model *lm.Model, ui UI, opts ...Option) *InputController {
	if model == nil {
		model = lm.NewModel(nil)
	}
	if ui == nil {
		ui = nopUI{}
	}
	c := &InputController{
		model:    model,
		ui:       ui,
		logger:   slog.Default(),
		observer: nopObserver{},
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.grid = gramambular.NewReadingGrid(model, c.settings.MaxSpan)
	c.composer = bopomofo.NewComposer(c.settings.Layout)
	c.session = uuid.NewString()
	return c
}

// State returns the current state.
func (c *InputController) State() State { return c.state }

// Cursor returns the cursor position in readings.
func (c *InputController) Cursor() int { return c.cursor }

// Readings returns a copy of the reading buffer.
func (c *InputController) Readings() []string { return c.grid.Readings() }

// Settings returns the current settings.
func (c *InputController) Settings() Settings { return c.settings }

// Model returns the language model.
func (c *InputController) Model() *lm.Model { return c.model }

// HandleKey processes one key press and reports whether it was consumed.
// Unconsumed keys belong to the host.
func (c *InputController) HandleKey(key Key) bool {
	start := time.Now()
	consumed := c.dispatch(key)
	c.observer.KeyHandled(consumed, time.Since(start))
	return consumed
}

func (c *InputController) dispatch(key Key) bool {
	switch c.state {
	case ChoosingCandidateState:
		return c.handleCandidateKey(key)
	case MarkingState:
		return c.handleMarkingKey(key)
	default:
		return c.handleInputKey(key)
	}
}

// Reset discards the session without committing.
func (c *InputController) Reset() {
	c.clearSession()
	c.ui.Reset()
}

func (c *InputController) handleInputKey(key Key) bool {
	switch key.Name {
	case KeyChar:
		return c.handleChar(key)
	case KeySpace:
		return c.handleSpace(key)
	case KeyEnter:
		return c.commit()
	case KeyEscape:
		return c.handleEscape()
	case KeyBackspace:
		return c.handleBackspace()
	case KeyDelete:
		return c.handleDelete()
	case KeyLeft, KeyRight, KeyHome, KeyEnd:
		return c.handleCursorKey(key)
	case KeyDown:
		if c.isEmpty() {
			return false
		}
		if c.composer.IsEmpty() {
			return c.openCandidates()
		}
		return true
	}
	return !c.isEmpty()
}

func (c *InputController) handleChar(key Key) bool {
	r := key.Char
	if isLatinLetter(r) && (key.Shift || unicode.IsUpper(r)) {
		if !c.composer.IsEmpty() {
			return true
		}
		c.insert(lm.LetterPrefix + c.settings.LetterMode.apply(string(r)))
		c.emit()
		return true
	}
	if c.composer.IsValidKey(r) {
		c.composer.Input(r)
		if c.composer.HasToneMarker() {
			c.completeSyllable()
		}
		c.emit()
		return true
	}
	if c.composer.IsEmpty() {
		if reading := lm.PunctuationPrefix + string(r); c.model.HasUnigrams(reading) {
			c.insert(reading)
			c.emit()
			return true
		}
	}
	return !c.isEmpty()
}

func (c *InputController) handleSpace(key Key) bool {
	if !c.composer.IsEmpty() {
		c.composer.CompleteWithFirstTone()
		c.completeSyllable()
		c.emit()
		return true
	}
	if key.Shift {
		c.insert(lm.SpaceReading)
		c.emit()
		return true
	}
	if c.grid.Width() == 0 {
		return false
	}
	return c.openCandidates()
}

func (c *InputController) handleEscape() bool {
	if c.isEmpty() {
		return false
	}
	if c.settings.EscClearEntireBuffer {
		c.clearSession()
		c.emit()
		return true
	}
	if !c.composer.IsEmpty() {
		c.composer.Clear()
		c.emit()
	}
	return true
}

func (c *InputController) handleBackspace() bool {
	if !c.composer.IsEmpty() {
		c.composer.Backspace()
		c.emit()
		return true
	}
	if c.grid.Width() == 0 {
		return false
	}
	if c.cursor > 0 {
		c.cursor--
		c.delete(c.cursor)
		c.emit()
	}
	return true
}

func (c *InputController) handleDelete() bool {
	if c.isEmpty() {
		return false
	}
	if c.composer.IsEmpty() && c.cursor < c.grid.Width() {
		c.delete(c.cursor)
		c.emit()
	}
	return true
}

func (c *InputController) handleCursorKey(key Key) bool {
	if c.isEmpty() {
		return false
	}
	if !c.composer.IsEmpty() {
		return true
	}
	if key.Shift && (key.Name == KeyLeft || key.Name == KeyRight) {
		return c.beginMarking(key.Name)
	}
	cursor := c.cursor
	switch key.Name {
	case KeyLeft:
		cursor = max(0, cursor-1)
	case KeyRight:
		cursor = min(c.grid.Width(), cursor+1)
	case KeyHome:
		cursor = 0
	case KeyEnd:
		cursor = c.grid.Width()
	}
	if cursor != c.cursor {
		c.cursor = cursor
		c.emit()
	}
	return true
}

// completeSyllable moves the finished syllable into the reading buffer. A
// reading the model does not know is discarded.
func (c *InputController) completeSyllable() {
	reading := c.composer.Reading()
	c.composer.Clear()
	if !c.model.HasUnigrams(reading) {
		c.logger.Debug("unknown reading discarded", "session", c.session, "reading", reading)
		return
	}
	c.insert(reading)
}

func (c *InputController) commit() bool {
	if c.isEmpty() {
		return false
	}
	text := c.Snapshot().Text()
	c.setState(CommittingState)
	c.ui.CommitString(text)
	c.observer.Committed(utf8.RuneCountInString(text))
	c.logger.Debug("committed", "session", c.session, "runes", utf8.RuneCountInString(text))
	c.clearSession()
	c.ui.Reset()
	return true
}

// Candidate window.

func (c *InputController) openCandidates() bool {
	cands := candidatesAt(c.grid.Grid(), c.cursor, c.settings.SelectPhrase)
	if len(cands) == 0 {
		return true
	}
	c.candidates = cands
	c.highlight = 0
	c.setState(ChoosingCandidateState)
	c.emit()
	return true
}

func (c *InputController) closeCandidates() {
	c.candidates = nil
	c.highlight = 0
	c.setState(InputtingState)
}

func (c *InputController) handleCandidateKey(key Key) bool {
	last := len(c.candidates) - 1
	page := c.settings.pageSize()
	switch key.Name {
	case KeyEscape, KeyBackspace:
		c.closeCandidates()
	case KeyEnter:
		c.confirm(c.highlight)
		return true
	case KeySpace:
		c.highlight = (c.highlight + 1) % len(c.candidates)
	case KeyUp:
		c.highlight = max(0, c.highlight-1)
	case KeyDown:
		c.highlight = min(last, c.highlight+1)
	case KeyPageUp:
		c.highlight = max(0, c.highlight-page)
	case KeyPageDown:
		c.highlight = min(last, c.highlight+page)
	case KeyChar:
		if slot := c.settings.candidateSlot(key.Char); slot >= 0 {
			c.ChooseCandidate(slot)
		}
		return true
	default:
		return true
	}
	c.emit()
	return true
}

// ChooseCandidate confirms the candidate in slot i of the visible page. It
// reports false when no candidate window is open or the slot is empty.
func (c *InputController) ChooseCandidate(i int) bool {
	if c.state != ChoosingCandidateState || i < 0 || i >= c.settings.pageSize() {
		return false
	}
	idx := c.pageStart() + i
	if idx >= len(c.candidates) {
		return false
	}
	c.confirm(idx)
	return true
}

func (c *InputController) pageStart() int {
	size := c.settings.pageSize()
	return c.highlight / size * size
}

func (c *InputController) confirm(idx int) {
	cand := c.candidates[idx]
	p := pin{start: cand.start, length: cand.length, value: cand.value}
	c.pins = withPin(c.pins, p)
	c.applyPins()
	c.walk()
	c.logger.Debug("candidate pinned", "session", c.session, "start", p.start, "length", p.length)
	if c.settings.MoveCursorAfterSelection && c.cursor < p.end() {
		c.cursor = p.end()
	}
	c.closeCandidates()
	c.observer.CandidateChosen()
	c.emit()
}

func (c *InputController) candidatePage() []Candidate {
	caps := c.settings.keyCaps()
	start := c.pageStart()
	end := min(len(c.candidates), start+len(caps))
	page := make([]Candidate, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, Candidate{
			Candidate: c.candidates[i].value,
			Selected:  i == c.highlight,
			KeyCap:    caps[i-start],
		})
	}
	return page
}

// Marking.

func (c *InputController) beginMarking(dir KeyName) bool {
	mark := c.cursor + 1
	if dir == KeyLeft {
		mark = c.cursor - 1
	}
	if mark < 0 || mark > c.grid.Width() {
		return true
	}
	c.mark = mark
	c.setState(MarkingState)
	c.emit()
	return true
}

func (c *InputController) handleMarkingKey(key Key) bool {
	switch {
	case key.Shift && (key.Name == KeyLeft || key.Name == KeyRight):
		mark := c.mark + 1
		if key.Name == KeyLeft {
			mark = c.mark - 1
		}
		if mark >= 0 && mark <= c.grid.Width() {
			c.mark = mark
		}
		if c.mark == c.cursor {
			c.setState(InputtingState)
		}
		c.emit()
		return true
	case key.Name == KeyEnter:
		c.addMarkedPhrase()
		return true
	case key.Name == KeyEscape:
		c.setState(InputtingState)
		c.emit()
		return true
	}
	c.setState(InputtingState)
	c.emit()
	return c.handleInputKey(key)
}

func (c *InputController) markedRange() (from, to int) {
	return min(c.cursor, c.mark), max(c.cursor, c.mark)
}

// markingStatus describes the marked range and reports whether it can be
// added as a user phrase.
func (c *InputController) markingStatus() (string, bool) {
	from, to := c.markedRange()
	text := layoutPath(c.path, c.grid.Width()).slice(from, to)
	limit := min(maxMarkLength, c.grid.MaxSpan())
	switch n := to - from; {
	case n < minMarkLength:
		return fmt.Sprintf("Marked %q. Select at least %d syllables.", text, minMarkLength), false
	case n > limit:
		return fmt.Sprintf("Marked text is too long. Select at most %d syllables.", limit), false
	case c.phraseExists(c.grid.Key(from, to), text):
		return fmt.Sprintf("%q already exists.", text), false
	default:
		return fmt.Sprintf("Marked %q. Press Enter to add it as a user phrase.", text), true
	}
}

func (c *InputController) phraseExists(key, text string) bool {
	if c.model.HasUserPhrase(key, text) {
		return true
	}
	for _, u := range c.model.Unigrams(key) {
		if u.Value == text {
			return true
		}
	}
	return false
}

func (c *InputController) addMarkedPhrase() {
	if _, ok := c.markingStatus(); !ok {
		return
	}
	from, to := c.markedRange()
	key := c.grid.Key(from, to)
	text := layoutPath(c.path, c.grid.Width()).slice(from, to)
	changed, err := c.model.AddUserPhrase(key, text)
	if err != nil {
		c.logger.Warn("add user phrase failed", "session", c.session, "error", err)
		return
	}
	c.logger.Debug("user phrase added", "session", c.session, "reading_key", key, "changed", changed)
	c.observer.PhraseAdded(changed)
	c.rebuild()
	c.setState(InputtingState)
	c.emit()
}

// Host configuration.

// ApplySettings replaces every setting at once.
func (c *InputController) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	if s.Layout != c.settings.Layout {
		c.composer.SetLayout(s.Layout)
	}
	resize := s.MaxSpan != c.settings.MaxSpan
	c.settings = s
	if resize {
		c.refresh(func() { c.grid.SetMaxSpan(s.MaxSpan) })
		return nil
	}
	c.redraw()
	return nil
}

// SetKeyboardLayout switches the keyboard layout, dropping any syllable in
// progress.
func (c *InputController) SetKeyboardLayout(layout *bopomofo.Layout) {
	if layout == nil {
		layout = bopomofo.Standard
	}
	c.settings.Layout = layout
	c.composer.SetLayout(layout)
	c.redraw()
}

// SetSelectPhrase sets which nodes the candidate window offers.
func (c *InputController) SetSelectPhrase(p SelectPhrase) {
	c.settings.SelectPhrase = p
}

// SetCandidateKeys sets the keys labelling the candidate slots.
func (c *InputController) SetCandidateKeys(keys string) error {
	if err := ValidateCandidateKeys(keys); err != nil {
		return err
	}
	c.settings.CandidateKeys = keys
	c.redraw()
	return nil
}

// SetEscClearEntireBuffer sets whether Escape clears the whole buffer rather
// than only the syllable in progress.
func (c *InputController) SetEscClearEntireBuffer(v bool) {
	c.settings.EscClearEntireBuffer = v
}

// SetMoveCursorAfterSelection sets whether confirming a candidate moves the
// cursor past it.
func (c *InputController) SetMoveCursorAfterSelection(v bool) {
	c.settings.MoveCursorAfterSelection = v
}

// SetLetterMode sets the casing of typed letters and letter key labels.
func (c *InputController) SetLetterMode(m LetterMode) {
	c.settings.LetterMode = m
	c.redraw()
}

// SetUserPhrases replaces the user phrase table and re-decodes the buffer.
func (c *InputController) SetUserPhrases(phrases map[string][]string) {
	c.refresh(func() { c.model.SetUserPhrases(phrases) })
}

// SetOnPhraseChange registers the callback fired when a user phrase is
// added. Only the last registered callback fires.
func (c *InputController) SetOnPhraseChange(cb lm.PhraseChangeFunc) {
	c.model.SetOnPhraseChange(cb)
}

// SetConverter sets the converter applied to every candidate.
func (c *InputController) SetConverter(conv lm.Converter) {
	c.refresh(func() { c.model.SetConverter(conv) })
}

// SetAddPhraseConverter sets the converter applied to new user phrases.
func (c *InputController) SetAddPhraseConverter(conv lm.Converter) {
	c.model.SetAddPhraseConverter(conv)
}

// refresh runs change, which alters what the grid decodes to, and then
// rebuilds. An open candidate window is closed since its list is stale.
func (c *InputController) refresh(change func()) {
	change()
	if c.state == ChoosingCandidateState {
		c.closeCandidates()
	}
	c.rebuild()
	c.redraw()
}

// redraw emits a snapshot unless the controller is already idle.
func (c *InputController) redraw() {
	if !c.isEmpty() || c.state != EmptyState {
		c.emit()
	}
}

// Session internals.

func (c *InputController) isEmpty() bool {
	return c.grid.Width() == 0 && c.composer.IsEmpty()
}

func (c *InputController) insert(reading string) {
	if err := c.grid.InsertReadingAt(c.cursor, reading); err != nil {
		c.logger.Error("insert reading", "session", c.session, "error", err)
		return
	}
	c.pins = pinsAfterInsert(c.pins, c.cursor)
	c.cursor++
	c.applyPins()
	c.walk()
}

func (c *InputController) delete(loc int) {
	if err := c.grid.DeleteReadingAt(loc); err != nil {
		c.logger.Error("delete reading", "session", c.session, "error", err)
		return
	}
	c.pins = pinsAfterDelete(c.pins, loc)
	c.applyPins()
	c.walk()
}

func (c *InputController) rebuild() {
	c.grid.Rebuild()
	c.applyPins()
	c.walk()
}

// applyPins makes the grid's pinned nodes match c.pins. A pin whose node or
// text no longer exists is dropped.
func (c *InputController) applyPins() {
	g := c.grid.Grid()
	for end := 1; end <= g.Width(); end++ {
		for _, n := range g.NodesEndingAt(end) {
			if n.IsPinned() {
				n.ResetCandidate()
			}
		}
	}
	kept := c.pins[:0]
	for _, p := range c.pins {
		n := g.NodeAt(p.end(), p.length)
		if n == nil || !n.SelectCandidateByValue(p.value) {
			c.logger.Debug("pin dropped", "session", c.session, "start", p.start, "length", p.length)
			continue
		}
		kept = append(kept, p)
	}
	c.pins = kept
}

func (c *InputController) walk() {
	c.path = gramambular.BestPath(c.grid.Grid(), c.grid.Width())
}

func (c *InputController) clearSession() {
	c.grid.Clear()
	c.composer.Clear()
	c.path = gramambular.Path{}
	c.pins = nil
	c.cursor = 0
	c.mark = 0
	c.candidates = nil
	c.highlight = 0
	c.setState(EmptyState)
	c.session = uuid.NewString()
}

func (c *InputController) setState(s State) {
	if s == c.state {
		return
	}
	c.logger.Debug("state changed", "session", c.session, "from", c.state.String(), "to", s.String())
	c.state = s
}

// emit settles the idle/inputting state and sends a snapshot.
func (c *InputController) emit() {
	if c.state == EmptyState || c.state == InputtingState {
		if c.isEmpty() {
			c.setState(EmptyState)
		} else {
			c.setState(InputtingState)
		}
	}
	c.ui.Update(c.Snapshot())
}

// Snapshot renders the current state.
func (c *InputController) Snapshot() Snapshot {
	snap := EmptySnapshot()
	tl := layoutPath(c.path, c.grid.Width())
	text := tl.text
	cursor := tl.ceil[c.cursor]
	hs, he := 0, 0

	switch c.state {
	case ChoosingCandidateState:
		cand := c.candidates[c.highlight]
		hs, he = tl.floor[cand.start], tl.ceil[cand.start+cand.length]
		snap.Candidates = c.candidatePage()
	case MarkingState:
		from, to := c.markedRange()
		hs, he = tl.floor[from], tl.ceil[to]
		cursor = tl.ceil[c.mark]
		snap.Tooltip, _ = c.markingStatus()
	}

	if comp := []rune(c.composer.Composition()); len(comp) > 0 {
		text = slices.Insert(text, cursor, comp...)
		cursor += len(comp)
	}
	snap.ComposingBuffer = buildSegments(text, hs, he)
	snap.CursorIndex = cursor
	return snap
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// mergeSettings fills the unset fields of s from base. Flags are taken
// from s as they are.
func mergeSettings(base, s Settings) Settings {
	if s.Layout != nil {
		base.Layout = s.Layout
	}
	if s.SelectPhrase != "" {
		base.SelectPhrase = s.SelectPhrase
	}
	if s.CandidateKeys != "" {
		base.CandidateKeys = s.CandidateKeys
	}
	if s.LetterMode != "" {
		base.LetterMode = s.LetterMode
	}
	if s.MaxSpan > 0 {
		base.MaxSpan = s.MaxSpan
	}
	base.EscClearEntireBuffer = s.EscClearEntireBuffer
	base.MoveCursorAfterSelection = s.MoveCursorAfterSelection
	return base
}
