package ime

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wlchewing/internal/clock"
)

// fakeEngine is a toy phonetic engine. Printable characters collect as
// phonetic symbols; a tone key ('3', '4', '6', '7' or space) converts
// them into one buffer character.
type fakeEngine struct {
	buffer   []rune
	phonetic []rune
	cursor   int

	lists   [][]string
	listIdx int
	open    bool
	chosen  []string

	commit        string
	pendingCommit bool

	resets int
	calls  []string
	closed bool
}

var toneKeys = "3467 "

func (e *fakeEngine) Reset() {
	e.resets++
	e.buffer, e.phonetic, e.cursor = nil, nil, 0
	e.open = false
	e.pendingCommit = false
	e.calls = append(e.calls, "reset")
}

func (e *fakeEngine) Handle(op EditOp) {
	e.calls = append(e.calls, op.String())
	e.pendingCommit = false
	switch op {
	case EditBackspace:
		if len(e.phonetic) > 0 {
			e.phonetic = e.phonetic[:len(e.phonetic)-1]
		} else if e.cursor > 0 {
			e.buffer = slices.Delete(e.buffer, e.cursor-1, e.cursor)
			e.cursor--
		}
	case EditDelete:
		if e.cursor < len(e.buffer) {
			e.buffer = slices.Delete(e.buffer, e.cursor, e.cursor+1)
		}
	case EditEnter:
		if len(e.buffer) > 0 {
			e.commit = string(e.buffer)
			e.pendingCommit = true
			e.buffer, e.cursor = nil, 0
		}
	case EditLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case EditRight:
		if e.cursor < len(e.buffer) {
			e.cursor++
		}
	}
}

func (e *fakeEngine) HandleDefault(r rune) {
	e.calls = append(e.calls, fmt.Sprintf("default:%c", r))
	e.pendingCommit = false
	if strings.ContainsRune(toneKeys, r) && len(e.phonetic) > 0 {
		e.buffer = slices.Insert(e.buffer, e.cursor, '字')
		e.cursor++
		e.phonetic = nil
		return
	}
	e.phonetic = append(e.phonetic, r)
}

func (e *fakeEngine) OpenCandidates() {
	e.calls = append(e.calls, "open")
	e.open = len(e.lists) > 0 && len(e.buffer) > 0
	e.listIdx = 0
}

func (e *fakeEngine) CloseCandidates() {
	e.calls = append(e.calls, "close")
	e.open = false
}

func (e *fakeEngine) CandidateTotal() int {
	if !e.open {
		return 0
	}
	return len(e.lists[e.listIdx])
}

func (e *fakeEngine) CandidatesPerPage() int { return 2 }

func (e *fakeEngine) CandidateHasNext() bool { return e.open && e.listIdx < len(e.lists)-1 }

func (e *fakeEngine) CandidateNext() { e.listIdx++ }

func (e *fakeEngine) CandidateFirst() { e.listIdx = 0 }

func (e *fakeEngine) ChooseCandidate(index int) {
	choice := e.lists[e.listIdx][index]
	e.chosen = append(e.chosen, choice)
	e.buffer = []rune(choice)
	e.cursor = len(e.buffer)
}

func (e *fakeEngine) CandidateString(index int) string { return e.lists[e.listIdx][index] }

func (e *fakeEngine) BufferString() string   { return string(e.buffer) }
func (e *fakeEngine) PhoneticString() string { return string(e.phonetic) }
func (e *fakeEngine) Cursor() int            { return e.cursor }

func (e *fakeEngine) HasPendingCommit() bool { return e.pendingCommit }

func (e *fakeEngine) PendingCommit() string {
	e.pendingCommit = false
	return e.commit
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func (e *fakeEngine) setBuffer(s string) {
	e.buffer = []rune(s)
	e.cursor = len(e.buffer)
}

// fakeKeymap maps evdev codes straight to keysyms. ASCII keysyms are
// printable.
type fakeKeymap struct {
	syms   map[uint32]Keysym
	mods   map[string]bool
	loaded int
}

func (k *fakeKeymap) Load(uint32, int, uint32) error {
	k.loaded++
	return nil
}

func (k *fakeKeymap) UpdateModifiers(depressed, _, _, _ uint32) {
	k.mods[ModControl] = depressed&0x4 != 0
}

func (k *fakeKeymap) Keysym(code uint32) Keysym { return k.syms[code] }

func (k *fakeKeymap) ModifierActive(name string) bool { return k.mods[name] }

func (k *fakeKeymap) Rune(sym Keysym) rune {
	if sym >= 0x20 && sym < 0x7f {
		return rune(sym)
	}
	return 0
}

func (k *fakeKeymap) KeysymFromName(name string) (Keysym, bool) {
	if name == "space" {
		return KeySpace, true
	}
	return 0, false
}

func (k *fakeKeymap) Close() {}

type fakeGrab struct {
	released bool
}

func (g *fakeGrab) Release() error {
	g.released = true
	return nil
}

// fakeTransport records protocol requests as strings.
type fakeTransport struct {
	ops     []string
	grabs   []*fakeGrab
	grabErr error
}

func (t *fakeTransport) SetPreedit(text string, begin, end int) error {
	t.ops = append(t.ops, fmt.Sprintf("preedit %q %d %d", text, begin, end))
	return nil
}

func (t *fakeTransport) CommitString(text string) error {
	t.ops = append(t.ops, fmt.Sprintf("commit-string %q", text))
	return nil
}

func (t *fakeTransport) Commit(serial uint32) error {
	t.ops = append(t.ops, fmt.Sprintf("commit %d", serial))
	return nil
}

func (t *fakeTransport) GrabKeyboard() (Grab, error) {
	if t.grabErr != nil {
		return nil, t.grabErr
	}
	g := &fakeGrab{}
	t.grabs = append(t.grabs, g)
	return g, nil
}

func (t *fakeTransport) Roundtrip() error {
	t.ops = append(t.ops, "roundtrip")
	return nil
}

func (t *fakeTransport) reset() { t.ops = nil }

type fakeForwarder struct {
	ops []string
}

func (f *fakeForwarder) ForwardKeymap(format uint32, _ int, size uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("keymap %d %d", format, size))
	return nil
}

func (f *fakeForwarder) ForwardKey(_ uint32, code uint32, state KeyState) error {
	f.ops = append(f.ops, fmt.Sprintf("key %d %s", code, state))
	return nil
}

func (f *fakeForwarder) ForwardModifiers(depressed, latched, locked, group uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("mods %d %d %d %d", depressed, latched, locked, group))
	return nil
}

type fakeRenderer struct {
	views []PanelView
	hides int
}

func (r *fakeRenderer) Render(view PanelView) error {
	r.views = append(r.views, view)
	return nil
}

func (r *fakeRenderer) Hide() error {
	r.hides++
	return nil
}

func (r *fakeRenderer) last() PanelView { return r.views[len(r.views)-1] }

type fakeRecorder struct {
	sessions []Stats
	err      error
}

func (r *fakeRecorder) RecordSession(s Stats) error {
	r.sessions = append(r.sessions, s)
	return r.err
}

// Evdev codes used by the tests.
const (
	codeA         = 30
	codeB         = 48
	codeThree     = 4
	codeSpace     = 57
	codeEnter     = 28
	codeBackSpace = 14
	codeDelete    = 111
	codeLeft      = 105
	codeRight     = 106
	codeUp        = 103
	codeDown      = 108
	codeF1        = 59
	codeCtrl      = 29
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	session   *Session
	engine    *fakeEngine
	keymap    *fakeKeymap
	transport *fakeTransport
	forwarder *fakeForwarder
	renderer  *fakeRenderer
	recorder  *fakeRecorder
	clock     *clock.FakeClock
	modes     []Mode
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		engine: &fakeEngine{},
		keymap: &fakeKeymap{
			syms: map[uint32]Keysym{
				codeA:         'a',
				codeB:         'b',
				codeThree:     '3',
				codeSpace:     KeySpace,
				codeEnter:     KeyReturn,
				codeBackSpace: KeyBackSpace,
				codeDelete:    KeyDelete,
				codeLeft:      KeyLeft,
				codeRight:     KeyRight,
				codeUp:        KeyUp,
				codeDown:      KeyDown,
				codeF1:        0xffbe,
				codeCtrl:      0xffe3,
			},
			mods: map[string]bool{},
		},
		transport: &fakeTransport{},
		forwarder: &fakeForwarder{},
		renderer:  &fakeRenderer{},
		recorder:  &fakeRecorder{},
		clock:     clock.Fake(testEpoch),
	}
	opts := Options{
		Engine:       h.engine,
		Keymap:       h.keymap,
		Transport:    h.transport,
		Forwarder:    h.forwarder,
		Renderer:     h.renderer,
		Recorder:     h.recorder,
		Clock:        h.clock,
		Keys:         DefaultKeyBindings(),
		OnModeChange: func(m Mode) { h.modes = append(h.modes, m) },
	}
	for _, fn := range configure {
		fn(&opts)
	}
	s, err := NewSession(opts)
	require.NoError(t, err)
	h.session = s
	return h
}

func (h *harness) handle(t *testing.T, n Notification) {
	t.Helper()
	require.NoError(t, h.session.Handle(n))
}

func (h *harness) activate(t *testing.T) {
	t.Helper()
	h.handle(t, Activate{})
	h.handle(t, Done{})
	require.True(t, h.session.Active())
}

func (h *harness) deactivate(t *testing.T) {
	t.Helper()
	h.handle(t, Deactivate{})
	h.handle(t, Done{})
	require.False(t, h.session.Active())
}

func (h *harness) press(t *testing.T, code uint32) {
	t.Helper()
	h.handle(t, KeyInput{Code: code, State: KeyPressed})
}

func (h *harness) release(t *testing.T, code uint32) {
	t.Helper()
	h.handle(t, KeyInput{Code: code, State: KeyReleased})
}

func (h *harness) tap(t *testing.T, code uint32) {
	t.Helper()
	h.press(t, code)
	h.release(t, code)
}

// drain handles every notification the timers posted.
func (h *harness) drain(t *testing.T) int {
	t.Helper()
	ns := h.session.Mailbox().Drain()
	for _, n := range ns {
		h.handle(t, n)
	}
	return len(ns)
}

func (h *harness) holdControl() { h.keymap.mods[ModControl] = true }

func (h *harness) releaseControl() { h.keymap.mods[ModControl] = false }

var errNoSeat = errors.New("no seat")
