package chewing

import (
	"errors"
	"fmt"
	"runtime"

	"wlchewing/internal/ime"
)

// Options configures a new Engine.
type Options struct {
	// SystemPath and UserPath override libchewing's dictionary and user
	// phrase locations. Empty means the library default.
	SystemPath string
	UserPath   string

	// KeyboardLayout is a libchewing layout name such as "KB_DEFAULT"
	// or "KB_HSU".
	KeyboardLayout    string
	CandidatesPerPage int
	MaxChiSymbolLen   int
	SpaceAsSelection  bool
}

// DefaultOptions returns the settings used when no configuration is
// given.
func DefaultOptions() Options {
	return Options{
		KeyboardLayout:    "KB_DEFAULT",
		CandidatesPerPage: 10,
		MaxChiSymbolLen:   18,
	}
}

// Engine wraps a libchewing context. It implements ime.Engine and is
// used only from the session loop.
type Engine struct {
	ctx uintptr

	// pending is set when an editing call produced commit text that the
	// session has not taken. libchewing keeps its commit flag until the
	// next keystroke, so it is latched here instead.
	pending bool
}

var _ ime.Engine = (*Engine)(nil)

// New creates a libchewing context. Load must have succeeded.
func New(opts Options) (*Engine, error) {
	if !loaded {
		return nil, errors.New("libchewing is not loaded")
	}

	var ctx uintptr
	if opts.SystemPath == "" && opts.UserPath == "" {
		ctx = chewingNew()
	} else {
		sys, user := cstring(opts.SystemPath), cstring(opts.UserPath)
		ctx = chewingNew2(sys, user, 0, 0)
		runtime.KeepAlive(sys)
		runtime.KeepAlive(user)
	}
	if ctx == 0 {
		return nil, errors.New("chewing_new failed; check the dictionary path")
	}

	e := &Engine{ctx: ctx}
	if err := e.configure(opts); err != nil {
		chewingDelete(ctx)
		return nil, err
	}
	return e, nil
}

func (e *Engine) configure(opts Options) error {
	if opts.KeyboardLayout != "" {
		kb := chewingKBStr2Num(opts.KeyboardLayout)
		if chewingSetKBType(e.ctx, kb) != 0 {
			return fmt.Errorf("unknown keyboard layout %q", opts.KeyboardLayout)
		}
	}
	if opts.CandidatesPerPage > 0 {
		chewingSetCandPerPage(e.ctx, int32(opts.CandidatesPerPage))
	}
	if opts.MaxChiSymbolLen > 0 {
		chewingSetMaxChiSymbolLen(e.ctx, int32(opts.MaxChiSymbolLen))
	}
	space := int32(0)
	if opts.SpaceAsSelection {
		space = 1
	}
	chewingSetSpaceAsSelection(e.ctx, space)
	return nil
}

func (e *Engine) Reset() {
	chewingReset(e.ctx)
	e.pending = false
}

func (e *Engine) Handle(op ime.EditOp) {
	switch op {
	case ime.EditBackspace:
		chewingHandleBackspace(e.ctx)
	case ime.EditDelete:
		chewingHandleDel(e.ctx)
	case ime.EditEnter:
		chewingHandleEnter(e.ctx)
	case ime.EditLeft:
		chewingHandleLeft(e.ctx)
	case ime.EditRight:
		chewingHandleRight(e.ctx)
	}
	e.latchCommit()
}

// HandleDefault feeds r as a keystroke. The full code point is passed
// through; libchewing ignores keys it has no mapping for.
func (e *Engine) HandleDefault(r rune) {
	chewingHandleDefault(e.ctx, int32(r))
	e.latchCommit()
}

func (e *Engine) latchCommit() {
	e.pending = chewingCommitCheck(e.ctx) == 1
}

func (e *Engine) OpenCandidates()  { chewingCandOpen(e.ctx) }
func (e *Engine) CloseCandidates() { chewingCandClose(e.ctx) }

func (e *Engine) CandidateTotal() int    { return int(chewingCandTotalChoice(e.ctx)) }
func (e *Engine) CandidatesPerPage() int { return int(chewingCandChoicePerPage(e.ctx)) }
func (e *Engine) CandidateHasNext() bool { return chewingCandListHasNext(e.ctx) == 1 }
func (e *Engine) CandidateNext()         { chewingCandListNext(e.ctx) }
func (e *Engine) CandidateFirst()        { chewingCandListFirst(e.ctx) }

func (e *Engine) ChooseCandidate(index int) {
	chewingCandChooseByIndex(e.ctx, int32(index))
}

func (e *Engine) CandidateString(index int) string {
	return chewingCandStringByIndex(e.ctx, int32(index))
}

func (e *Engine) BufferString() string   { return chewingBufferString(e.ctx) }
func (e *Engine) PhoneticString() string { return chewingBopomofoString(e.ctx) }
func (e *Engine) Cursor() int            { return int(chewingCursorCurrent(e.ctx)) }

func (e *Engine) HasPendingCommit() bool { return e.pending }

func (e *Engine) PendingCommit() string {
	e.pending = false
	return chewingCommitString(e.ctx)
}

// Close deletes the libchewing context.
func (e *Engine) Close() error {
	if e.ctx == 0 {
		return nil
	}
	chewingDelete(e.ctx)
	e.ctx = 0
	return nil
}
