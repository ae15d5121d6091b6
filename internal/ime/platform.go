package ime

import "time"

// Keymap translates keycodes into keysyms under the current modifier
// state.
type Keymap interface {
	// Load compiles the keymap the compositor sent. fd is owned by the
	// caller and only read during the call.
	Load(format uint32, fd int, size uint32) error

	// UpdateModifiers applies a modifiers event.
	UpdateModifiers(depressed, latched, locked, group uint32)

	// Keysym returns the keysym for an evdev keycode, or 0 when no
	// keymap is loaded.
	Keysym(code uint32) Keysym

	// ModifierActive reports whether the named modifier is effective.
	ModifierActive(name string) bool

	// Rune returns the character a keysym produces, or 0.
	Rune(sym Keysym) rune

	// KeysymFromName resolves a keysym name such as "space".
	KeysymFromName(name string) (Keysym, bool)

	// Close releases the keymap.
	Close()
}

// Transport is the input-method side of the compositor protocol.
// Requests are buffered until Commit.
type Transport interface {
	SetPreedit(text string, cursorBegin, cursorEnd int) error
	CommitString(text string) error

	// Commit applies the pending preedit and commit string atomically.
	// serial is the number of done events received so far.
	Commit(serial uint32) error

	// GrabKeyboard acquires exclusive access to keyboard input. Key
	// events are delivered as notifications until the Grab is released.
	GrabKeyboard() (Grab, error)

	// Roundtrip blocks until the compositor has processed every request
	// sent so far.
	Roundtrip() error
}

// Grab is an acquired keyboard grab.
type Grab interface {
	Release() error
}

// Forwarder injects keyboard input into the focused application
// through a virtual keyboard.
type Forwarder interface {
	ForwardKeymap(format uint32, fd int, size uint32) error
	ForwardKey(time, code uint32, state KeyState) error
	ForwardModifiers(depressed, latched, locked, group uint32) error
}

// PanelRenderer displays the candidate panel.
type PanelRenderer interface {
	Render(view PanelView) error
	Hide() error
}

// Recorder persists per-activation statistics.
type Recorder interface {
	RecordSession(stats Stats) error
}

// Stats summarizes one activation, from grab to deactivation.
type Stats struct {
	Started time.Time
	Ended   time.Time

	KeysHandled   uint64
	KeysForwarded uint64
	Repeats       uint64
	Commits       uint64
	CommitRunes   uint64
	Selections    uint64
	Toggles       uint64
}
