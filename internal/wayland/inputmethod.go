package wayland

import (
	"log/slog"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"wlchewing/internal/ime"
)

// Protocol interface names.
const (
	inputMethodManagerInterface     = "zwp_input_method_manager_v2"
	virtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
	seatInterface                   = "wl_seat"
)

// zwp_input_method_manager_v2 requests.
const (
	imManagerGetInputMethod = 0
	imManagerDestroy        = 1
)

// zwp_input_method_v2 requests.
const (
	imCommitString = 0
	imSetPreedit   = 1
	imCommit       = 3
	imGrabKeyboard = 5
	imDestroy      = 6
)

// zwp_input_method_v2 events.
const (
	imEventActivate        = 0
	imEventDeactivate      = 1
	imEventSurroundingText = 2
	imEventTextChangeCause = 3
	imEventContentType     = 4
	imEventDone            = 5
	imEventUnavailable     = 6
)

// zwp_input_method_keyboard_grab_v2.
const (
	grabRelease = 0

	grabEventKeymap     = 0
	grabEventKey        = 1
	grabEventModifiers  = 2
	grabEventRepeatInfo = 3
)

func send(p client.Proxy, r *request) error {
	return p.Context().WriteMsg(r.bytes(), r.oob)
}

type inputMethodManager struct {
	client.BaseProxy
}

func (m *inputMethodManager) Dispatch(uint32, int, []byte) {}

func (m *inputMethodManager) getInputMethod(seat *client.Seat, im *inputMethod) error {
	return send(m, newRequest(m.ID(), imManagerGetInputMethod).uint32(seat.ID()).uint32(im.ID()))
}

func (m *inputMethodManager) destroy() error {
	return send(m, newRequest(m.ID(), imManagerDestroy))
}

// inputMethod translates zwp_input_method_v2 events into session
// notifications. Dispatch runs on the session loop.
type inputMethod struct {
	client.BaseProxy
	post   func(ime.Notification)
	logger *slog.Logger
}

func (im *inputMethod) Dispatch(opcode uint32, _ int, data []byte) {
	d := decoder{data: data}
	var n ime.Notification
	switch opcode {
	case imEventActivate:
		n = ime.Activate{}
	case imEventDeactivate:
		n = ime.Deactivate{}
	case imEventSurroundingText:
		n = ime.SurroundingText{Text: d.string(), Cursor: d.uint32(), Anchor: d.uint32()}
	case imEventTextChangeCause:
		n = ime.TextChangeCause{Cause: d.uint32()}
	case imEventContentType:
		n = ime.ContentType{Hint: d.uint32(), Purpose: d.uint32()}
	case imEventDone:
		n = ime.Done{}
	case imEventUnavailable:
		n = ime.Unavailable{}
	default:
		im.logger.Debug("unknown input method event", "opcode", opcode)
		return
	}
	if d.err != nil {
		im.logger.Warn("decode input method event", "opcode", opcode, "error", d.err)
		return
	}
	im.post(n)
}

func (im *inputMethod) commitString(text string) error {
	return send(im, newRequest(im.ID(), imCommitString).string(text))
}

func (im *inputMethod) setPreeditString(text string, begin, end int32) error {
	return send(im, newRequest(im.ID(), imSetPreedit).string(text).int32(begin).int32(end))
}

func (im *inputMethod) commit(serial uint32) error {
	return send(im, newRequest(im.ID(), imCommit).uint32(serial))
}

func (im *inputMethod) grabKeyboard(grab *keyboardGrab) error {
	return send(im, newRequest(im.ID(), imGrabKeyboard).uint32(grab.ID()))
}

func (im *inputMethod) destroy() error {
	return send(im, newRequest(im.ID(), imDestroy))
}

// keyboardGrab translates grab events into session notifications. It
// implements ime.Grab. After Release, late events still in flight are
// dropped.
type keyboardGrab struct {
	client.BaseProxy
	post      func(ime.Notification)
	logger    *slog.Logger
	afterSync func(func()) error
	released  bool
}

func (g *keyboardGrab) Dispatch(opcode uint32, fd int, data []byte) {
	if g.released {
		if fd >= 0 {
			os.NewFile(uintptr(fd), "keymap").Close()
		}
		return
	}
	d := decoder{data: data}
	var n ime.Notification
	switch opcode {
	case grabEventKeymap:
		format, size := d.uint32(), d.uint32()
		if fd < 0 {
			g.logger.Warn("keymap event without fd")
			return
		}
		n = ime.KeymapChanged{Format: format, File: os.NewFile(uintptr(fd), "keymap"), Size: size}
	case grabEventKey:
		n = ime.KeyInput{Serial: d.uint32(), Time: d.uint32(), Code: d.uint32(), State: ime.KeyState(d.uint32())}
	case grabEventModifiers:
		n = ime.ModifiersChanged{
			Serial:    d.uint32(),
			Depressed: d.uint32(),
			Latched:   d.uint32(),
			Locked:    d.uint32(),
			Group:     d.uint32(),
		}
	case grabEventRepeatInfo:
		n = ime.RepeatInfo{Rate: d.int32(), Delay: d.int32()}
	default:
		g.logger.Debug("unknown keyboard grab event", "opcode", opcode)
		return
	}
	if d.err != nil {
		g.logger.Warn("decode keyboard grab event", "opcode", opcode, "error", d.err)
		return
	}
	g.post(n)
}

// Release ends the grab. The proxy stays registered until the
// compositor has processed the release, so events it sent before that
// are still read and dropped.
func (g *keyboardGrab) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	if err := send(g, newRequest(g.ID(), grabRelease)); err != nil {
		return err
	}
	if g.afterSync == nil {
		return nil
	}
	return g.afterSync(func() { g.Context().Unregister(g) })
}
