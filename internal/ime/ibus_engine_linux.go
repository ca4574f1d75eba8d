//go:build linux

package ime

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"

	"mcbopomofo/internal/lm"
)

// IBus D-Bus constants
const (
	IBusFactoryInterface = "org.freedesktop.IBus.Factory"
	IBusEngineInterface  = "org.freedesktop.IBus.Engine"
	IBusServiceInterface = "org.freedesktop.IBus.Service"
	IBusFactoryPath      = "/org/freedesktop/IBus/Factory"
)

// IBus attribute and preedit constants.
const (
	ibusAttrUnderline       uint32 = 1
	ibusAttrBackground      uint32 = 3
	ibusAttrUnderlineSingle uint32 = 1
	ibusHighlightColor      uint32 = 0xa0c8ff
	ibusPreeditClear        uint32 = 0
	ibusOrientationSystem   int32  = 2
)

// Serialized IBus objects. Each is sent inside a variant.
type ibusText struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	Attrs       dbus.Variant
}

type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attrs       []dbus.Variant
}

type ibusAttribute struct {
	Name        string
	Attachments map[string]dbus.Variant
	Type        uint32
	Value       uint32
	Start       uint32
	End         uint32
}

type ibusLookupTable struct {
	Name          string
	Attachments   map[string]dbus.Variant
	PageSize      uint32
	CursorPos     uint32
	CursorVisible bool
	Round         bool
	Orientation   int32
	Candidates    []dbus.Variant
	Labels        []dbus.Variant
}

func newIBusText(text string, attrs ...ibusAttribute) dbus.Variant {
	list := ibusAttrList{Name: "IBusAttrList", Attachments: map[string]dbus.Variant{}, Attrs: []dbus.Variant{}}
	for _, a := range attrs {
		a.Name = "IBusAttribute"
		a.Attachments = map[string]dbus.Variant{}
		list.Attrs = append(list.Attrs, dbus.MakeVariant(a))
	}
	return dbus.MakeVariant(ibusText{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        text,
		Attrs:       dbus.MakeVariant(list),
	})
}

// IBusEngine exposes one InputController as an IBus engine object.
type IBusEngine struct {
	conn   *dbus.Conn
	path   dbus.ObjectPath
	logger *slog.Logger

	mu   sync.Mutex
	ctrl *InputController

	// onDestroy is set by the factory that tracks the engine.
	onDestroy func(*IBusEngine)
}

// NewIBusEngine creates an engine at path decoding with model.
// Extra options are applied to the engine's controller.
func NewIBusEngine(conn *dbus.Conn, path dbus.ObjectPath, model *lm.Model, settings Settings, logger *slog.Logger, opts ...Option) *IBusEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &IBusEngine{conn: conn, path: path, logger: logger.With("engine", string(path))}
	opts = append([]Option{WithSettings(settings), WithLogger(e.logger)}, opts...)
	e.ctrl = NewInputController(model, ibusUI{e}, opts...)
	return e
}

// Path returns the engine's object path.
func (e *IBusEngine) Path() dbus.ObjectPath { return e.path }

// Do runs fn with exclusive access to the controller.
func (e *IBusEngine) Do(fn func(*InputController)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ctrl)
}

// ProcessKeyEvent handles key press/release events from IBus.
// Returns true if the key was consumed, false to pass through.
func (e *IBusEngine) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	key, ok := KeyFromKeysym(keyval, state)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.HandleKey(key), nil
}

// FocusIn is called when the engine gains input focus.
func (e *IBusEngine) FocusIn() *dbus.Error {
	e.logger.Debug("focus in")
	return nil
}

// FocusOut is called when the engine loses input focus.
func (e *IBusEngine) FocusOut() *dbus.Error {
	e.logger.Debug("focus out")
	e.Do(func(c *InputController) { c.Reset() })
	return nil
}

// Enable is called when the engine is enabled.
func (e *IBusEngine) Enable() *dbus.Error {
	e.logger.Info("engine enabled")
	return nil
}

// Disable is called when the engine is disabled.
func (e *IBusEngine) Disable() *dbus.Error {
	e.Do(func(c *InputController) { c.Reset() })
	e.logger.Info("engine disabled")
	return nil
}

// Reset resets the engine state.
func (e *IBusEngine) Reset() *dbus.Error {
	e.Do(func(c *InputController) { c.Reset() })
	return nil
}

// Destroy is called when IBus drops the input context. The engine is reset,
// leaves the bus and is forgotten by its factory.
func (e *IBusEngine) Destroy() *dbus.Error {
	e.Do(func(c *InputController) { c.Reset() })
	if e.conn != nil {
		for _, iface := range []string{IBusEngineInterface, IBusServiceInterface} {
			if err := e.conn.Export(nil, e.path, iface); err != nil {
				e.logger.Warn("unexport engine failed", "interface", iface, "error", err)
			}
		}
	}
	if e.onDestroy != nil {
		e.onDestroy(e)
	}
	e.logger.Info("engine destroyed")
	return nil
}

// SetCapabilities informs about client capabilities.
func (e *IBusEngine) SetCapabilities(caps uint32) *dbus.Error {
	e.logger.Debug("set capabilities", "caps", caps)
	return nil
}

// SetContentType informs about the type of content being edited.
func (e *IBusEngine) SetContentType(purpose, hints uint32) *dbus.Error {
	e.logger.Debug("set content type", "purpose", purpose, "hints", hints)
	return nil
}

// SetCursorLocation informs about cursor position.
func (e *IBusEngine) SetCursorLocation(x, y, w, h int32) *dbus.Error {
	return nil
}

// SetSurroundingText provides context around the cursor.
func (e *IBusEngine) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	return nil
}

// PropertyActivate handles property activations.
func (e *IBusEngine) PropertyActivate(propName string, state uint32) *dbus.Error {
	e.logger.Debug("property activate", "name", propName, "state", state)
	return nil
}

// PageUp handles page up in candidate list.
func (e *IBusEngine) PageUp() *dbus.Error { return e.forward(KeyPageUp) }

// PageDown handles page down in candidate list.
func (e *IBusEngine) PageDown() *dbus.Error { return e.forward(KeyPageDown) }

// CursorUp handles cursor up in candidate list.
func (e *IBusEngine) CursorUp() *dbus.Error { return e.forward(KeyUp) }

// CursorDown handles cursor down in candidate list.
func (e *IBusEngine) CursorDown() *dbus.Error { return e.forward(KeyDown) }

// CandidateClicked handles candidate selection.
func (e *IBusEngine) CandidateClicked(index, button, state uint32) *dbus.Error {
	e.Do(func(c *InputController) { c.ChooseCandidate(int(index)) })
	return nil
}

func (e *IBusEngine) forward(name KeyName) *dbus.Error {
	e.Do(func(c *InputController) {
		if c.State() == ChoosingCandidateState {
			c.HandleKey(NamedKey(name))
		}
	})
	return nil
}

func (e *IBusEngine) emit(signal string, args ...any) {
	if e.conn == nil {
		return
	}
	if err := e.conn.Emit(e.path, IBusEngineInterface+"."+signal, args...); err != nil {
		e.logger.Warn("emit signal failed", "signal", signal, "error", err)
	}
}

// ibusUI renders controller output through the engine's signals.
type ibusUI struct {
	e *IBusEngine
}

func (u ibusUI) Reset() {
	u.e.emit("HidePreeditText")
	u.e.emit("HideLookupTable")
	u.e.emit("HideAuxiliaryText")
}

func (u ibusUI) CommitString(text string) {
	u.e.emit("CommitText", newIBusText(text))
}

// Update maps the snapshot onto the preedit, the lookup table and the
// auxiliary text.
func (u ibusUI) Update(s Snapshot) {
	text := s.Text()
	n := uint32(len([]rune(text)))
	attrs := []ibusAttribute{{Type: ibusAttrUnderline, Value: ibusAttrUnderlineSingle, Start: 0, End: n}}
	if hs, he, ok := s.Highlighted(); ok {
		attrs = append(attrs, ibusAttribute{Type: ibusAttrBackground, Value: ibusHighlightColor, Start: uint32(hs), End: uint32(he)})
	}
	u.e.emit("UpdatePreeditTextWithMode", newIBusText(text, attrs...), uint32(s.CursorIndex), text != "", ibusPreeditClear)

	if len(s.Candidates) > 0 {
		table := ibusLookupTable{
			Name:          "IBusLookupTable",
			Attachments:   map[string]dbus.Variant{},
			PageSize:      uint32(len(s.Candidates)),
			CursorVisible: true,
			Orientation:   ibusOrientationSystem,
		}
		for i, c := range s.Candidates {
			table.Candidates = append(table.Candidates, newIBusText(c.Candidate))
			table.Labels = append(table.Labels, newIBusText(c.KeyCap))
			if c.Selected {
				table.CursorPos = uint32(i)
			}
		}
		u.e.emit("UpdateLookupTable", dbus.MakeVariant(table), true)
	} else {
		u.e.emit("HideLookupTable")
	}

	if s.Tooltip != "" {
		u.e.emit("UpdateAuxiliaryText", newIBusText(s.Tooltip), true)
	} else {
		u.e.emit("HideAuxiliaryText")
	}
}

// IBusFactory implements the IBus Factory D-Bus interface.
type IBusFactory struct {
	conn     *dbus.Conn
	model    *lm.Model
	settings func() Settings
	logger   *slog.Logger

	mu       sync.Mutex
	engineID uint32
	engines  []*IBusEngine
	observer Observer
}

// NewIBusFactory returns a factory creating engines that share model.
// settings is consulted for every new engine.
func NewIBusFactory(conn *dbus.Conn, model *lm.Model, settings func() Settings, logger *slog.Logger) *IBusFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &IBusFactory{conn: conn, model: model, settings: settings, logger: logger}
}

// CreateEngine creates a new engine instance for IBus.
func (f *IBusFactory) CreateEngine(engineName string) (dbus.ObjectPath, *dbus.Error) {
	f.logger.Info("create engine", "name", engineName)

	if engineName != IBusEngineName {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine",
			[]interface{}{"Unknown engine: " + engineName})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.engineID++
	path := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/IBus/Engine/%d", f.engineID))
	engine := f.newEngine(path)
	for _, iface := range []string{IBusEngineInterface, IBusServiceInterface} {
		if err := f.conn.Export(engine, path, iface); err != nil {
			return "", dbus.MakeFailedError(err)
		}
	}
	f.engines = append(f.engines, engine)
	return path, nil
}

// newEngine is called with f.mu held.
func (f *IBusFactory) newEngine(path dbus.ObjectPath) *IBusEngine {
	var opts []Option
	if f.observer != nil {
		opts = append(opts, WithObserver(f.observer))
	}
	engine := NewIBusEngine(f.conn, path, f.model, f.settings(), f.logger, opts...)
	engine.onDestroy = f.remove
	return engine
}

func (f *IBusFactory) remove(e *IBusEngine) {
	f.mu.Lock()
	f.engines = slices.DeleteFunc(f.engines, func(x *IBusEngine) bool { return x == e })
	f.mu.Unlock()
}

// SetObserver makes engines created from now on report to o.
func (f *IBusFactory) SetObserver(o Observer) {
	f.mu.Lock()
	f.observer = o
	f.mu.Unlock()
}

// Each runs fn on every live engine, one at a time.
func (f *IBusFactory) Each(fn func(*InputController)) {
	f.mu.Lock()
	engines := slices.Clone(f.engines)
	f.mu.Unlock()
	for _, e := range engines {
		e.Do(fn)
	}
}

// Export registers the factory on its connection.
func (f *IBusFactory) Export() error {
	return f.conn.Export(f, IBusFactoryPath, IBusFactoryInterface)
}
