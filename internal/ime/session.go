package ime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"wlchewing/internal/clock"
	"wlchewing/internal/repeat"
)

// KeyBindings configures the toggle chord and idle passthrough.
type KeyBindings struct {
	// ToggleModifier is an xkb modifier name, e.g. "Control".
	ToggleModifier string
	ToggleKey      Keysym

	// PassthroughWhenIdle forwards editing keys to the application
	// when nothing is being composed.
	PassthroughWhenIdle bool
}

// DefaultKeyBindings returns Control+space with passthrough disabled.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		ToggleModifier: ModControl,
		ToggleKey:      KeySpace,
	}
}

// RepeatOverride adjusts the repeat parameters announced by the
// compositor. Zero fields keep the compositor's values.
type RepeatOverride struct {
	Disabled bool
	Rate     int32
	Delay    int32
}

// Status is a snapshot of session state for the control interface.
type Status struct {
	Mode    Mode
	Active  bool
	Serial  uint32
	Preedit string
	Stats   Stats
}

// Options configures a Session. Engine, Keymap, Transport and
// Forwarder are required.
type Options struct {
	Engine    Engine
	Keymap    Keymap
	Transport Transport
	Forwarder Forwarder

	// Renderer defaults to a LogRenderer.
	Renderer PanelRenderer
	// Recorder is optional.
	Recorder Recorder
	// Scheduler defaults to a repeat.ClockScheduler on Clock.
	Scheduler repeat.Scheduler
	Clock     clock.Clock
	Mailbox   *Mailbox
	Logger    *slog.Logger

	Keys      KeyBindings
	Repeat    RepeatOverride
	StartMode Mode

	// OnModeChange is called from the loop whenever the mode changes.
	OnModeChange func(Mode)
}

// Session is the input method state machine. All methods except Post
// must be called from the loop goroutine.
type Session struct {
	engine    Engine
	keymap    Keymap
	transport Transport
	forwarder Forwarder
	renderer  PanelRenderer
	recorder  Recorder
	repeater  *repeat.Repeater
	clock     clock.Clock
	mailbox   *Mailbox
	logger    *slog.Logger

	onModeChange func(Mode)
	lastMode     Mode

	keys           KeyBindings
	repeatOverride RepeatOverride
	serverRate     int32
	serverDelay    int32

	pendingActivate bool
	activated       bool
	grab            Grab

	forwarding bool
	panel      *CandidatePanel
	preedit    PreeditView

	// serial advances once per done event and once per emitted update.
	serial uint32
	// syncs counts done events; it is what the commit request carries.
	syncs uint32

	// held tracks forwarded presses that still need a release.
	held        map[uint32]struct{}
	lastKeyTime uint32

	surrounding SurroundingText
	content     ContentType
	stats       Stats
}

// NewSession creates a session in the given start mode. The engine is
// owned by the session from here on and is closed by Close.
func NewSession(opts Options) (*Session, error) {
	switch {
	case opts.Engine == nil:
		return nil, errors.New("ime: engine is required")
	case opts.Keymap == nil:
		return nil, errors.New("ime: keymap is required")
	case opts.Transport == nil:
		return nil, errors.New("ime: transport is required")
	case opts.Forwarder == nil:
		return nil, errors.New("ime: forwarder is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	s := &Session{
		engine:       opts.Engine,
		keymap:       opts.Keymap,
		transport:    opts.Transport,
		forwarder:    opts.Forwarder,
		renderer:     opts.Renderer,
		recorder:     opts.Recorder,
		clock:        opts.Clock,
		mailbox:      opts.Mailbox,
		logger:       logger,
		onModeChange: opts.OnModeChange,
		keys:         opts.Keys,
		held:         make(map[uint32]struct{}),
	}
	if s.renderer == nil {
		s.renderer = LogRenderer{Logger: logger}
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.mailbox == nil {
		s.mailbox = NewMailbox()
	}
	if s.keys.ToggleModifier == "" {
		s.keys.ToggleModifier = ModControl
	}
	if s.keys.ToggleKey == 0 {
		s.keys.ToggleKey = KeySpace
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = repeat.NewClockScheduler(s.clock)
	}
	mailbox := s.mailbox
	s.repeater = repeat.New(sched, func(gen uint64) {
		mailbox.Post(RepeatFired{Gen: gen})
	}, logger)
	s.repeatOverride = opts.Repeat
	s.applyRepeat()

	s.forwarding = opts.StartMode == Forwarding
	s.lastMode = s.Mode()
	return s, nil
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	switch {
	case s.forwarding:
		return Forwarding
	case s.panel != nil:
		return CandidateSelect
	default:
		return Composing
	}
}

// Serial returns the batch counter.
func (s *Session) Serial() uint32 { return s.serial }

// Active reports whether the session holds the keyboard grab.
func (s *Session) Active() bool { return s.activated }

// Mailbox returns the mailbox the loop consumes.
func (s *Session) Mailbox() *Mailbox { return s.mailbox }

// Post queues a notification for the loop. Safe for concurrent use.
func (s *Session) Post(n Notification) { s.mailbox.Post(n) }

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	return Status{
		Mode:    s.Mode(),
		Active:  s.activated,
		Serial:  s.serial,
		Preedit: s.preedit.Text,
		Stats:   s.stats,
	}
}

// Run consumes the mailbox until ctx is cancelled or a fatal condition
// occurs. Cancellation is a normal shutdown and returns nil.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.mailbox.Ready():
			for _, n := range s.mailbox.Drain() {
				if err := s.Handle(n); err != nil {
					return err
				}
			}
		}
	}
}

// Handle applies one notification. A non-nil error is fatal.
func (s *Session) Handle(n Notification) error {
	defer s.notifyMode()

	switch n := n.(type) {
	case Activate:
		s.pendingActivate = true
	case Deactivate:
		s.pendingActivate = false
	case Done:
		return s.sync()
	case Unavailable:
		return ErrUnavailable
	case TransportClosed:
		return fmt.Errorf("%w: %v", ErrUnavailable, n.Err)
	case TransportReadable:
		n.Dispatch()
	case SurroundingText:
		s.surrounding = n
	case TextChangeCause:
		s.logger.Debug("text change cause", "cause", n.Cause)
	case ContentType:
		s.content = n
		s.logger.Debug("content type", "hint", n.Hint, "purpose", n.Purpose)
	case KeymapChanged:
		s.loadKeymap(n)
	case ModifiersChanged:
		s.updateModifiers(n)
	case KeyInput:
		s.handleKey(n)
	case RepeatInfo:
		s.serverRate, s.serverDelay = n.Rate, n.Delay
		s.applyRepeat()
	case RepeatFired:
		s.handleRepeat(n.Gen)
	case ConfigChanged:
		s.keys = n.Keys
		s.repeatOverride = n.Repeat
		s.applyRepeat()
		s.logger.Info("configuration applied")
	case ControlRequest:
		s.handleControl(n)
	default:
		s.logger.Warn("unhandled notification", "type", fmt.Sprintf("%T", n))
	}
	return nil
}

// Close releases everything the session holds. It is safe to call after
// a fatal error.
func (s *Session) Close() error {
	var errs []error
	if s.activated {
		s.deactivate()
	}
	if err := s.repeater.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repeat timer: %w", err))
	}
	if err := s.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close engine: %w", err))
	}
	return errors.Join(errs...)
}

// sync applies the activation state recorded since the last done
// event.
func (s *Session) sync() error {
	s.syncs++
	s.serial++

	switch {
	case s.pendingActivate && !s.activated:
		grab, err := s.transport.GrabKeyboard()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGrabFailed, err)
		}
		s.grab = grab
		s.activated = true
		s.stats = Stats{Started: s.clock.Now()}
		s.logger.Info("activated", "mode", s.Mode())
	case !s.pendingActivate && s.activated:
		s.deactivate()
		s.logger.Info("deactivated")
	}
	return nil
}

func (s *Session) deactivate() {
	s.repeater.Stop()
	s.releaseHeld()
	if s.grab != nil {
		if err := s.grab.Release(); err != nil {
			s.logger.Warn("release keyboard grab", "error", err)
		}
		s.grab = nil
	}
	s.closePanel()
	s.engine.Reset()
	s.preedit = PreeditView{}
	s.activated = false
	s.recordStats()
}

// releaseHeld sends releases for forwarded presses the application has
// not seen released, so no key stays stuck down after focus moves.
func (s *Session) releaseHeld() {
	for _, code := range slices.Sorted(maps.Keys(s.held)) {
		if err := s.forwarder.ForwardKey(s.lastKeyTime, code, KeyReleased); err != nil {
			s.logger.Warn("forward release", "code", code, "error", err)
		}
		delete(s.held, code)
	}
}

func (s *Session) recordStats() {
	if s.recorder == nil || s.stats.Started.IsZero() {
		return
	}
	s.stats.Ended = s.clock.Now()
	if err := s.recorder.RecordSession(s.stats); err != nil {
		s.logger.Warn("record session stats", "error", err)
	}
}

func (s *Session) loadKeymap(n KeymapChanged) {
	if n.File == nil {
		return
	}
	defer n.File.Close()
	if s.grab == nil {
		return
	}

	fd := int(n.File.Fd())
	if err := s.keymap.Load(n.Format, fd, n.Size); err != nil {
		s.logger.Error("load keymap", "error", err)
		return
	}
	if err := s.forwarder.ForwardKeymap(n.Format, fd, n.Size); err != nil {
		s.logger.Warn("forward keymap", "error", err)
	}
}

func (s *Session) updateModifiers(n ModifiersChanged) {
	if s.grab == nil {
		return
	}
	s.keymap.UpdateModifiers(n.Depressed, n.Latched, n.Locked, n.Group)
	if err := s.forwarder.ForwardModifiers(n.Depressed, n.Latched, n.Locked, n.Group); err != nil {
		s.logger.Warn("forward modifiers", "error", err)
	}
}

// applyRepeat combines the compositor's repeat parameters with the
// configured override.
func (s *Session) applyRepeat() {
	rate, delay := s.serverRate, s.serverDelay
	if s.repeatOverride.Rate > 0 {
		rate = s.repeatOverride.Rate
	}
	if s.repeatOverride.Delay > 0 {
		delay = s.repeatOverride.Delay
	}
	if s.repeatOverride.Disabled {
		rate = 0
	}
	s.repeater.SetInfo(rate, delay)
	if rate <= 0 {
		s.repeater.Stop()
	}
}

func (s *Session) handleControl(req ControlRequest) {
	switch req.Op {
	case ControlSetMode:
		if (req.Mode == Forwarding) != s.forwarding {
			s.toggle()
		}
	case ControlToggle:
		s.toggle()
	}
	if req.Reply != nil {
		select {
		case req.Reply <- s.Status():
		default:
			s.logger.Warn("control reply dropped")
		}
	}
}

func (s *Session) notifyMode() {
	mode := s.Mode()
	if mode == s.lastMode {
		return
	}
	s.logger.Debug("mode changed", "from", s.lastMode, "to", mode)
	s.lastMode = mode
	if s.onModeChange != nil {
		s.onModeChange(mode)
	}
}
