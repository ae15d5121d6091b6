package ime

import "os"

// Notification is an input to the session loop. Protocol events, timer
// expirations, control requests and configuration reloads all arrive
// as notifications so that session state has a single writer.
type Notification interface {
	notification()
}

// Activate records that a text input gained focus. It takes effect at
// the next Done.
type Activate struct{}

// Deactivate records that the text input lost focus. It takes effect at
// the next Done.
type Deactivate struct{}

// Done ends a batch of input method events.
type Done struct{}

// Unavailable reports that the compositor will not serve this input
// method.
type Unavailable struct{}

// SurroundingText describes the text around the cursor.
type SurroundingText struct {
	Text   string
	Cursor uint32
	Anchor uint32
}

// TextChangeCause reports what caused the last surrounding text change.
type TextChangeCause struct {
	Cause uint32
}

// ContentType carries the focused field's content hint and purpose.
type ContentType struct {
	Hint    uint32
	Purpose uint32
}

// KeymapChanged carries the keyboard grab's keymap. The session closes
// File once the keymap has been consumed.
type KeymapChanged struct {
	Format uint32
	File   *os.File
	Size   uint32
}

// KeyInput is a key event from the keyboard grab.
type KeyInput struct {
	Serial uint32
	Time   uint32
	Code   uint32
	State  KeyState
}

// ModifiersChanged is a modifiers event from the keyboard grab.
type ModifiersChanged struct {
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// RepeatInfo carries the compositor's repeat rate (per second) and
// delay (milliseconds).
type RepeatInfo struct {
	Rate  int32
	Delay int32
}

// RepeatFired is posted when the repeat timer armed at generation Gen
// expires.
type RepeatFired struct {
	Gen uint64
}

// ConfigChanged applies reloaded key and repeat settings.
type ConfigChanged struct {
	Keys   KeyBindings
	Repeat RepeatOverride
}

// TransportClosed reports that the compositor connection failed.
type TransportClosed struct {
	Err error
}

// TransportReadable reports that compositor events are queued. Dispatch
// must be called on the loop goroutine; it hands the events to their
// protocol objects, which post the resulting notifications.
type TransportReadable struct {
	Dispatch func()
}

// ControlOp is an operation requested over the control interface.
type ControlOp int

const (
	ControlQuery ControlOp = iota
	ControlSetMode
	ControlToggle
)

// ControlRequest asks the loop to query or change the mode. The reply
// is sent on Reply, which must be buffered.
type ControlRequest struct {
	Op    ControlOp
	Mode  Mode
	Reply chan<- Status
}

func (Activate) notification()          {}
func (Deactivate) notification()        {}
func (Done) notification()              {}
func (Unavailable) notification()       {}
func (SurroundingText) notification()   {}
func (TextChangeCause) notification()   {}
func (ContentType) notification()       {}
func (KeymapChanged) notification()     {}
func (KeyInput) notification()          {}
func (ModifiersChanged) notification()  {}
func (RepeatInfo) notification()        {}
func (RepeatFired) notification()       {}
func (ConfigChanged) notification()     {}
func (TransportClosed) notification()   {}
func (TransportReadable) notification() {}
func (ControlRequest) notification()    {}
