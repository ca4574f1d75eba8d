package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"unicode/utf8"

	"mcbopomofo/internal/gramambular"
	"mcbopomofo/internal/ime"
)

type decodedNode struct {
	Reading string  `json:"reading"`
	Value   string  `json:"value"`
	Score   float64 `json:"score"`
}

type decodeResult struct {
	Text  string        `json:"text"`
	Score float64       `json:"score"`
	Nodes []decodedNode `json:"nodes"`
}

// decode walks the best path over readings using the environment's model.
func (a *app) decode(readings []string) (decodeResult, error) {
	rg := gramambular.NewReadingGrid(a.env.Model, a.env.Settings().MaxSpan)
	for _, r := range readings {
		for _, syllable := range strings.Split(r, gramambular.Separator) {
			if syllable == "" {
				continue
			}
			if err := rg.InsertReadingAt(rg.Width(), syllable); err != nil {
				return decodeResult{}, err
			}
		}
	}
	if rg.Width() == 0 {
		return decodeResult{}, errors.New("no readings given")
	}

	path := gramambular.BestPath(rg.Grid(), rg.Width())
	if path.Empty() {
		return decodeResult{}, fmt.Errorf("no phrase covers %s", strings.Join(rg.Readings(), gramambular.Separator))
	}

	result := decodeResult{Text: path.Text(), Score: path.Score}
	for _, anchor := range path.Anchors {
		result.Nodes = append(result.Nodes, decodedNode{
			Reading: anchor.Node.Key(),
			Value:   anchor.Node.Value(),
			Score:   anchor.Node.Score(),
		})
	}
	return result, nil
}

func (a *app) cmdDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the path as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.decode(fs.Args())
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(a.out, result.Text)
	for _, n := range result.Nodes {
		fmt.Fprintf(a.out, "  %-16s %s\t%.2f\n", n.Reading, n.Value, n.Score)
	}
	return nil
}

// parseKeys turns a keystroke script into key presses. Every character is a
// key; a brace group names a key such as {Enter} or {Shift+Left}.
func parseKeys(script string) ([]ime.Key, error) {
	var keys []ime.Key
	for i := 0; i < len(script); {
		if script[i] == '{' {
			end := strings.IndexByte(script[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated key name at offset %d", i)
			}
			name := script[i+1 : i+end]
			i += end + 1

			ev := ime.KeyEvent{Key: name}
			if rest, ok := strings.CutPrefix(name, "Shift+"); ok {
				ev = ime.KeyEvent{Key: rest, Modifiers: ime.ModShift}
			}
			key, ok := ime.NormalizeKeyEvent(ev)
			if !ok {
				return nil, fmt.Errorf("unknown key {%s}", name)
			}
			keys = append(keys, key)
			continue
		}

		r, size := utf8.DecodeRuneInString(script[i:])
		i += size
		key, ok := ime.NormalizeKeyEvent(ime.KeyEvent{Key: string(r)})
		if !ok {
			return nil, fmt.Errorf("unsupported character %q", r)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// captureUI keeps the commits and the latest snapshot of a controller.
type captureUI struct {
	commits []string
	last    ime.Snapshot
}

func (u *captureUI) Reset()                   { u.last = ime.EmptySnapshot() }
func (u *captureUI) CommitString(text string) { u.commits = append(u.commits, text) }
func (u *captureUI) Update(s ime.Snapshot)    { u.last = s }

type typeResult struct {
	Commits  []string     `json:"commits"`
	Snapshot ime.Snapshot `json:"snapshot"`
}

func (a *app) typeKeys(script string) (typeResult, error) {
	keys, err := parseKeys(script)
	if err != nil {
		return typeResult{}, err
	}

	ui := &captureUI{last: ime.EmptySnapshot()}
	c := ime.NewInputController(a.env.Model, ui,
		ime.WithSettings(a.env.Settings()),
		ime.WithLogger(a.env.Logger.Logger))
	for _, k := range keys {
		c.HandleKey(k)
	}

	commits := ui.commits
	if commits == nil {
		commits = []string{}
	}
	return typeResult{Commits: commits, Snapshot: ui.last}, nil
}

func (a *app) cmdType(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: mcbopomofoctl type <keys>")
	}
	result, err := a.typeKeys(strings.Join(args, " "))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
