package xkb

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"wlchewing/internal/ime"
)

// formatXKBV1 is wl_keyboard_keymap_format.xkb_v1.
const formatXKBV1 = 1

// evdevOffset converts evdev keycodes to XKB keycodes.
const evdevOffset = 8

// Keymap tracks the compositor keymap and modifier state. It implements
// ime.Keymap and is used only from the session loop.
type Keymap struct {
	ctx    uintptr
	keymap uintptr
	state  uintptr
}

var _ ime.Keymap = (*Keymap)(nil)

// NewKeymap loads libxkbcommon and creates an empty keymap.
func NewKeymap() (*Keymap, error) {
	if err := Load(); err != nil {
		return nil, err
	}
	ctx := xkbContextNew(contextNoFlags)
	if ctx == 0 {
		return nil, errors.New("xkb_context_new failed")
	}
	return &Keymap{ctx: ctx}, nil
}

// Load maps the keymap fd and compiles it, replacing the previous
// keymap and resetting modifier state.
func (k *Keymap) Load(format uint32, fd int, size uint32) error {
	if format != formatXKBV1 {
		return fmt.Errorf("unsupported keymap format %d", format)
	}
	if size == 0 {
		return errors.New("empty keymap")
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("mmap keymap: %w", err)
	}
	text := data
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	source := string(text)
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap keymap: %w", err)
	}

	keymap := xkbKeymapNewFromString(k.ctx, source, keymapFormatTextV1, keymapCompileFlags)
	if keymap == 0 {
		return errors.New("compile keymap failed")
	}
	state := xkbStateNew(keymap)
	if state == 0 {
		xkbKeymapUnref(keymap)
		return errors.New("xkb_state_new failed")
	}

	k.release()
	k.keymap, k.state = keymap, state
	return nil
}

// UpdateModifiers applies a modifiers event.
func (k *Keymap) UpdateModifiers(depressed, latched, locked, group uint32) {
	if k.state == 0 {
		return
	}
	xkbStateUpdateMask(k.state, depressed, latched, locked, 0, 0, group)
}

// Keysym returns the keysym for an evdev keycode.
func (k *Keymap) Keysym(code uint32) ime.Keysym {
	if k.state == 0 {
		return 0
	}
	return ime.Keysym(xkbStateKeyGetOneSym(k.state, code+evdevOffset))
}

// ModifierActive reports whether the named modifier is effective.
func (k *Keymap) ModifierActive(name string) bool {
	if k.state == 0 {
		return false
	}
	return xkbStateModNameIsActive(k.state, name, stateModsEffective) > 0
}

// Rune returns the character a keysym produces, or 0 for keysyms with
// no character or a control character.
func (k *Keymap) Rune(sym ime.Keysym) rune {
	r := rune(xkbKeysymToUTF32(uint32(sym)))
	if r < 0x20 || r == 0x7f {
		return 0
	}
	return r
}

// KeysymFromName resolves a keysym name such as "space" or "F12".
func (k *Keymap) KeysymFromName(name string) (ime.Keysym, bool) {
	return KeysymFromName(name)
}

// Close releases the keymap and the xkb context.
func (k *Keymap) Close() {
	k.release()
	if k.ctx != 0 {
		xkbContextUnref(k.ctx)
		k.ctx = 0
	}
}

func (k *Keymap) release() {
	if k.state != 0 {
		xkbStateUnref(k.state)
		k.state = 0
	}
	if k.keymap != 0 {
		xkbKeymapUnref(k.keymap)
		k.keymap = 0
	}
}

// KeysymFromName resolves a keysym name, case-insensitively. Load must
// have succeeded.
func KeysymFromName(name string) (ime.Keysym, bool) {
	if name == "" || Load() != nil {
		return 0, false
	}
	sym := xkbKeysymFromName(name, keysymCaseInsensitive)
	return ime.Keysym(sym), sym != 0
}
