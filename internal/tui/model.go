// Package tui is a terminal playground for the input controller. It plays
// the part of the host application: keys the controller leaves alone edit a
// plain text buffer, and committed text is appended to it.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/lm"
	"mcbopomofo/internal/metrics"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1)
	paperStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	composingStyle   = lipgloss.NewStyle().Underline(true)
	highlightedStyle = lipgloss.NewStyle().Reverse(true)
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	keyCapStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle    = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F0F0F0")).
				Background(lipgloss.Color("#C89A3A"))
	tooltipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")).Italic(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// recorder is the controller's UI. The controller calls it synchronously
// from HandleKey, so the model reads it right after each key.
type recorder struct {
	commits  []string
	snapshot ime.Snapshot
}

func (r *recorder) Reset()                   { r.snapshot = ime.EmptySnapshot() }
func (r *recorder) CommitString(text string) { r.commits = append(r.commits, text) }
func (r *recorder) Update(s ime.Snapshot)    { r.snapshot = s }

// Model implements tea.Model.
type Model struct {
	controller *ime.InputController
	ui         *recorder
	logger     *slog.Logger
	stats      *metrics.EngineMetrics

	text  []rune
	width int
}

// NewModel returns a playground running a controller over model. Activity
// is counted in stats; a nil stats gets a private set.
func NewModel(model *lm.Model, settings ime.Settings, stats *metrics.EngineMetrics, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = metrics.NewEngineMetrics(nil)
	}
	ui := &recorder{snapshot: ime.EmptySnapshot()}
	return &Model{
		controller: ime.NewInputController(model, ui,
			ime.WithSettings(settings),
			ime.WithLogger(logger),
			ime.WithObserver(stats)),
		ui:     ui,
		logger: logger,
		stats:  stats,
	}
}

// Controller returns the controller driven by the playground.
func (m *Model) Controller() *ime.InputController { return m.controller }

// Text returns the host text buffer.
func (m *Model) Text() string { return string(m.text) }

// Snapshot returns the latest controller snapshot.
func (m *Model) Snapshot() ime.Snapshot { return m.ui.snapshot }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.controller.Reset()
			m.text = m.text[:0]
			return m, nil
		}
		for _, k := range keysFromMsg(msg) {
			m.handleKey(k)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(k ime.Key) {
	handled := m.controller.HandleKey(k)
	for _, text := range m.ui.commits {
		m.text = append(m.text, []rune(text)...)
	}
	m.ui.commits = m.ui.commits[:0]
	if handled {
		return
	}

	// The host's own editing for keys the controller passed through.
	switch {
	case k.IsChar():
		m.text = append(m.text, k.Char)
	case k.Name == ime.KeySpace:
		m.text = append(m.text, ' ')
	case k.Name == ime.KeyEnter:
		m.text = append(m.text, '\n')
	case k.Name == ime.KeyBackspace && len(m.text) > 0:
		m.text = m.text[:len(m.text)-1]
	default:
		m.logger.Debug("key passed through", "key_name", k.Name.String())
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("McBopomofo"))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  layout: %s  state: %s",
		m.controller.Settings().Layout.Name, m.controller.State())))
	b.WriteString("\n")

	paper := paperStyle
	if m.width > 4 {
		paper = paper.Width(m.width - 2)
	}
	b.WriteString(paper.Render(string(m.text) + renderComposing(m.ui.snapshot)))
	b.WriteString("\n")

	if line := renderCandidates(m.ui.snapshot.Candidates); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if tip := m.ui.snapshot.Tooltip; tip != "" {
		b.WriteString(tooltipStyle.Render(tip))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(fmt.Sprintf("keys %d · commits %d · chosen %d · phrases added %d",
		m.stats.KeysConsumed.Value()+m.stats.KeysPassed.Value(),
		m.stats.Commits.Value(),
		m.stats.CandidatesChosen.Value(),
		m.stats.PhrasesAdded.Value())))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space: candidates · shift+←/→: mark phrase · ctrl+l: clear · ctrl+c: quit"))
	b.WriteString("\n")
	return b.String()
}

// renderComposing draws the composing buffer with the cursor at its rune
// index. Highlighted runs are shown reversed; the rest is underlined.
func renderComposing(s ime.Snapshot) string {
	var b strings.Builder
	pos := 0
	cursorDrawn := false
	for _, seg := range s.ComposingBuffer {
		style := composingStyle
		if seg.Style == ime.StyleHighlighted {
			style = highlightedStyle
		}
		text := seg.Text
		if !cursorDrawn && s.CursorIndex >= pos && s.CursorIndex < pos+utf8.RuneCountInString(text) {
			runes := []rune(text)
			split := s.CursorIndex - pos
			if split > 0 {
				b.WriteString(style.Render(string(runes[:split])))
			}
			b.WriteString(cursorStyle.Render("▏"))
			cursorDrawn = true
			text = string(runes[split:])
		}
		b.WriteString(style.Render(text))
		pos += utf8.RuneCountInString(seg.Text)
	}
	if !cursorDrawn && pos > 0 {
		b.WriteString(cursorStyle.Render("▏"))
	}
	return b.String()
}

func renderCandidates(cands []ime.Candidate) string {
	if len(cands) == 0 {
		return ""
	}
	parts := make([]string, len(cands))
	for i, c := range cands {
		text := c.Candidate
		if c.Selected {
			text = selectedStyle.Render(text)
		}
		parts[i] = keyCapStyle.Render(c.KeyCap+".") + text
	}
	return strings.Join(parts, "  ")
}
