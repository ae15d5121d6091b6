// Package chewing binds libchewing, the Zhuyin phonetic conversion
// engine, loading it at runtime with purego.
package chewing

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// DefaultLibrary is tried first, then the unversioned name.
const DefaultLibrary = "libchewing.so.3"

var (
	loadMu  sync.Mutex
	loaded  bool
	loadErr error

	chewingNew                 func() uintptr
	chewingNew2                func(syspath, userpath *byte, logger, loggerData uintptr) uintptr
	chewingDelete              func(ctx uintptr)
	chewingReset               func(ctx uintptr) int32
	chewingHandleBackspace     func(ctx uintptr) int32
	chewingHandleDel           func(ctx uintptr) int32
	chewingHandleEnter         func(ctx uintptr) int32
	chewingHandleLeft          func(ctx uintptr) int32
	chewingHandleRight         func(ctx uintptr) int32
	chewingHandleDefault       func(ctx uintptr, key int32) int32
	chewingCandOpen            func(ctx uintptr) int32
	chewingCandClose           func(ctx uintptr) int32
	chewingCandTotalChoice     func(ctx uintptr) int32
	chewingCandChoicePerPage   func(ctx uintptr) int32
	chewingCandListHasNext     func(ctx uintptr) int32
	chewingCandListNext        func(ctx uintptr) int32
	chewingCandListFirst       func(ctx uintptr) int32
	chewingCandChooseByIndex   func(ctx uintptr, index int32) int32
	chewingCandStringByIndex   func(ctx uintptr, index int32) string
	chewingBufferString        func(ctx uintptr) string
	chewingBopomofoString      func(ctx uintptr) string
	chewingCursorCurrent       func(ctx uintptr) int32
	chewingCommitCheck         func(ctx uintptr) int32
	chewingCommitString        func(ctx uintptr) string
	chewingSetCandPerPage      func(ctx uintptr, n int32)
	chewingSetMaxChiSymbolLen  func(ctx uintptr, n int32)
	chewingSetSpaceAsSelection func(ctx uintptr, mode int32)
	chewingSetKBType           func(ctx uintptr, kb int32) int32
	chewingKBStr2Num           func(name string) int32
)

// Load opens libchewing. An empty path tries DefaultLibrary and then
// "libchewing.so". Once a load succeeds later calls are no-ops.
func Load(path string) error {
	loadMu.Lock()
	defer loadMu.Unlock()
	if loaded {
		return nil
	}

	names := []string{path}
	if path == "" {
		names = []string{DefaultLibrary, "libchewing.so"}
	}

	var lib uintptr
	var err error
	for _, name := range names {
		lib, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
	}
	if err != nil {
		loadErr = fmt.Errorf("load libchewing: %w", err)
		return loadErr
	}

	purego.RegisterLibFunc(&chewingNew, lib, "chewing_new")
	purego.RegisterLibFunc(&chewingNew2, lib, "chewing_new2")
	purego.RegisterLibFunc(&chewingDelete, lib, "chewing_delete")
	purego.RegisterLibFunc(&chewingReset, lib, "chewing_Reset")
	purego.RegisterLibFunc(&chewingHandleBackspace, lib, "chewing_handle_Backspace")
	purego.RegisterLibFunc(&chewingHandleDel, lib, "chewing_handle_Del")
	purego.RegisterLibFunc(&chewingHandleEnter, lib, "chewing_handle_Enter")
	purego.RegisterLibFunc(&chewingHandleLeft, lib, "chewing_handle_Left")
	purego.RegisterLibFunc(&chewingHandleRight, lib, "chewing_handle_Right")
	purego.RegisterLibFunc(&chewingHandleDefault, lib, "chewing_handle_Default")
	purego.RegisterLibFunc(&chewingCandOpen, lib, "chewing_cand_open")
	purego.RegisterLibFunc(&chewingCandClose, lib, "chewing_cand_close")
	purego.RegisterLibFunc(&chewingCandTotalChoice, lib, "chewing_cand_TotalChoice")
	purego.RegisterLibFunc(&chewingCandChoicePerPage, lib, "chewing_cand_ChoicePerPage")
	purego.RegisterLibFunc(&chewingCandListHasNext, lib, "chewing_cand_list_has_next")
	purego.RegisterLibFunc(&chewingCandListNext, lib, "chewing_cand_list_next")
	purego.RegisterLibFunc(&chewingCandListFirst, lib, "chewing_cand_list_first")
	purego.RegisterLibFunc(&chewingCandChooseByIndex, lib, "chewing_cand_choose_by_index")
	purego.RegisterLibFunc(&chewingCandStringByIndex, lib, "chewing_cand_string_by_index_static")
	purego.RegisterLibFunc(&chewingBufferString, lib, "chewing_buffer_String_static")
	purego.RegisterLibFunc(&chewingBopomofoString, lib, "chewing_bopomofo_String_static")
	purego.RegisterLibFunc(&chewingCursorCurrent, lib, "chewing_cursor_Current")
	purego.RegisterLibFunc(&chewingCommitCheck, lib, "chewing_commit_Check")
	purego.RegisterLibFunc(&chewingCommitString, lib, "chewing_commit_String_static")
	purego.RegisterLibFunc(&chewingSetCandPerPage, lib, "chewing_set_candPerPage")
	purego.RegisterLibFunc(&chewingSetMaxChiSymbolLen, lib, "chewing_set_maxChiSymbolLen")
	purego.RegisterLibFunc(&chewingSetSpaceAsSelection, lib, "chewing_set_spaceAsSelection")
	purego.RegisterLibFunc(&chewingSetKBType, lib, "chewing_set_KBType")
	purego.RegisterLibFunc(&chewingKBStr2Num, lib, "chewing_KBStr2Num")

	loaded = true
	loadErr = nil
	return nil
}

// cstring returns a NUL-terminated copy of s, or nil for "".
func cstring(s string) *byte {
	if s == "" {
		return nil
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}
