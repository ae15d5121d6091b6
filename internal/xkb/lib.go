// Package xkb binds the parts of libxkbcommon the input method needs,
// loading the library at runtime with purego.
package xkb

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

const (
	contextNoFlags     = 0
	keymapFormatTextV1 = 1
	keymapCompileFlags = 0

	// xkb_state_component
	stateModsEffective = 1 << 3

	keysymCaseInsensitive = 1 << 0
)

var libNames = []string{"libxkbcommon.so.0", "libxkbcommon.so"}

var (
	loadOnce sync.Once
	loadErr  error

	xkbContextNew           func(flags uint32) uintptr
	xkbContextUnref         func(ctx uintptr)
	xkbKeymapNewFromString  func(ctx uintptr, s string, format, flags uint32) uintptr
	xkbKeymapUnref          func(keymap uintptr)
	xkbStateNew             func(keymap uintptr) uintptr
	xkbStateUnref           func(state uintptr)
	xkbStateUpdateMask      func(state uintptr, depMods, latMods, lockMods, depLayout, latLayout, lockLayout uint32) uint32
	xkbStateKeyGetOneSym    func(state uintptr, key uint32) uint32
	xkbStateModNameIsActive func(state uintptr, name string, typ uint32) int32
	xkbKeysymToUTF32        func(sym uint32) uint32
	xkbKeysymFromName       func(name string, flags uint32) uint32
)

// Load opens libxkbcommon. It is safe to call repeatedly; the result of
// the first call is cached.
func Load() error {
	loadOnce.Do(func() {
		var lib uintptr
		for _, name := range libNames {
			lib, loadErr = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if loadErr == nil {
				break
			}
		}
		if loadErr != nil {
			loadErr = fmt.Errorf("load libxkbcommon: %w", loadErr)
			return
		}

		purego.RegisterLibFunc(&xkbContextNew, lib, "xkb_context_new")
		purego.RegisterLibFunc(&xkbContextUnref, lib, "xkb_context_unref")
		purego.RegisterLibFunc(&xkbKeymapNewFromString, lib, "xkb_keymap_new_from_string")
		purego.RegisterLibFunc(&xkbKeymapUnref, lib, "xkb_keymap_unref")
		purego.RegisterLibFunc(&xkbStateNew, lib, "xkb_state_new")
		purego.RegisterLibFunc(&xkbStateUnref, lib, "xkb_state_unref")
		purego.RegisterLibFunc(&xkbStateUpdateMask, lib, "xkb_state_update_mask")
		purego.RegisterLibFunc(&xkbStateKeyGetOneSym, lib, "xkb_state_key_get_one_sym")
		purego.RegisterLibFunc(&xkbStateModNameIsActive, lib, "xkb_state_mod_name_is_active")
		purego.RegisterLibFunc(&xkbKeysymToUTF32, lib, "xkb_keysym_to_utf32")
		purego.RegisterLibFunc(&xkbKeysymFromName, lib, "xkb_keysym_from_name")
	})
	return loadErr
}
