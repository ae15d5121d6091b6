package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wlchewing/internal/chewing"
	"wlchewing/internal/clock"
	"wlchewing/internal/config"
	"wlchewing/internal/control"
	"wlchewing/internal/ime"
	"wlchewing/internal/logging"
	"wlchewing/internal/repeat"
	"wlchewing/internal/store"
	"wlchewing/internal/wayland"
	"wlchewing/internal/xkb"
)

// app owns every long-lived component. Components are closed in reverse
// order of creation.
type app struct {
	log     *logging.Logger
	logger  *slog.Logger
	crash   *logging.CrashHandler
	session *ime.Session
	closers []func() error
	done    chan struct{}
}

func newApp(cfg *config.Config, loader *config.Loader) (a *app, err error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lcfg, err := loggingConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetDefault(log)

	a = &app{
		done:   make(chan struct{}),
		log:    log,
		logger: log.WithComponent("main"),
		crash: logging.NewCrashHandler(&logging.CrashHandlerConfig{
			CrashDir: cfg.Logging.CrashDir,
			Version:  version,
		}),
	}
	a.onClose(log.Close)
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	for _, w := range config.Check(cfg).Warnings() {
		a.logger.Warn("configuration warning", "field", w.Field, "message", w.Message)
	}

	keys, err := keyBindings(cfg.Keys)
	if err != nil {
		return nil, err
	}
	mode, err := startMode(cfg.Keys.StartMode)
	if err != nil {
		return nil, err
	}

	mailbox := ime.NewMailbox()

	keymap, err := xkb.NewKeymap()
	if err != nil {
		return nil, fmt.Errorf("xkbcommon: %w", err)
	}
	a.onClose(func() error { keymap.Close(); return nil })

	if err := chewing.Load(cfg.Engine.Library); err != nil {
		return nil, err
	}
	engine, err := chewing.New(engineOptions(cfg.Engine))
	if err != nil {
		return nil, fmt.Errorf("chewing: %w", err)
	}

	client, err := wayland.Connect(mailbox.Post, a.crash.Guard, log.WithComponent("wayland"))
	if err != nil {
		engine.Close()
		return nil, err
	}
	a.onClose(client.Close)

	renderers := ime.MultiRenderer{ime.LogRenderer{Logger: log.WithComponent("panel")}}
	var onModeChange func(ime.Mode)
	if cfg.Control.Enabled {
		svc, err := control.Start(cfg.Control.BusName, mailbox, log.WithComponent("control"))
		if err != nil {
			a.logger.Warn("control interface disabled", "error", err)
		} else {
			a.onClose(svc.Close)
			renderers = append(renderers, svc)
			onModeChange = svc.ModeChanged
		}
	}

	var recorder ime.Recorder
	if cfg.Stats.Enabled {
		st, err := openStats(cfg.Stats, a.logger)
		if err != nil {
			a.logger.Warn("usage statistics disabled", "error", err)
		} else {
			a.onClose(st.Close)
			recorder = st
		}
	}

	var sched repeat.Scheduler
	if tfd, err := repeat.NewTimerfdScheduler(log.WithComponent("repeat")); err != nil {
		a.logger.Warn("timerfd unavailable, using runtime timers", "error", err)
		sched = repeat.NewClockScheduler(clock.Real())
	} else {
		sched = tfd
	}

	session, err := ime.NewSession(ime.Options{
		Engine:       engine,
		Keymap:       keymap,
		Transport:    client,
		Forwarder:    client,
		Renderer:     renderers,
		Recorder:     recorder,
		Scheduler:    sched,
		Clock:        clock.Real(),
		Mailbox:      mailbox,
		Logger:       log.Logger,
		Keys:         keys,
		Repeat:       repeatOverride(cfg.Repeat),
		StartMode:    mode,
		OnModeChange: onModeChange,
	})
	if err != nil {
		sched.Close()
		engine.Close()
		return nil, err
	}
	a.session = session
	// Registered last so it runs first: the grab is released before the
	// connection goes away.
	a.onClose(session.Close)

	a.watchConfig(loader, mailbox)
	a.logger.Info("started", "version", version, "mode", mode, "config", loader.Path())
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run processes events until ctx is cancelled or a fatal error occurs.
// A panic in the loop writes a crash report before the process dies.
func (a *app) Run(ctx context.Context) error {
	defer a.crash.Guard("event loop")
	return a.session.Run(ctx)
}

// Close releases everything in reverse order.
func (a *app) Close() error {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// watchConfig delivers reloaded settings into the event loop. The log
// level is applied directly.
func (a *app) watchConfig(loader *config.Loader, mailbox *ime.Mailbox) {
	loader.OnChange(func(cfg *config.Config) {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			a.log.SetLevel(level)
		}
		keys, err := keyBindings(cfg.Keys)
		if err != nil {
			a.logger.Warn("ignoring reloaded key bindings", "error", err)
			return
		}
		mailbox.Post(ime.ConfigChanged{Keys: keys, Repeat: repeatOverride(cfg.Repeat)})
	})

	if err := loader.Watch(); err != nil {
		a.logger.Warn("configuration reload disabled", "error", err)
		return
	}

	go func() {
		defer a.crash.Guard("config errors")
		for {
			select {
			case err := <-loader.Errors():
				a.logger.Warn("configuration reload failed", "error", err)
			case <-a.done:
				return
			}
		}
	}()
}

func openStats(cfg config.StatsConfig, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		if n, err := st.Prune(cutoff); err != nil {
			logger.Warn("prune usage statistics", "error", err)
		} else if n > 0 {
			logger.Info("pruned usage statistics", "rows", n)
		}
	}
	return st, nil
}

func loggingConfig(c config.LoggingConfig) (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    int64(c.MaxSizeMB),
		MaxAge:     c.MaxAgeDays,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
		Component:  "wlchewing",
	}, nil
}

// keyBindings resolves the toggle key name through xkbcommon.
func keyBindings(c config.KeysConfig) (ime.KeyBindings, error) {
	sym, ok := xkb.KeysymFromName(c.ToggleKey)
	if !ok {
		return ime.KeyBindings{}, fmt.Errorf("keys.toggle_key: unknown keysym %q", c.ToggleKey)
	}
	return ime.KeyBindings{
		ToggleModifier:      c.ToggleModifier,
		ToggleKey:           sym,
		PassthroughWhenIdle: c.PassthroughWhenIdle,
	}, nil
}

func startMode(name string) (ime.Mode, error) {
	if name == "" {
		return ime.Composing, nil
	}
	mode, err := ime.ParseMode(strings.ToLower(name))
	if err != nil || mode == ime.CandidateSelect {
		return 0, fmt.Errorf("keys.start_mode: invalid mode %q", name)
	}
	return mode, nil
}

func repeatOverride(c config.RepeatConfig) ime.RepeatOverride {
	return ime.RepeatOverride{
		Disabled: !c.Enabled,
		Rate:     int32(c.Rate),
		Delay:    int32(c.DelayMs),
	}
}

func engineOptions(c config.EngineConfig) chewing.Options {
	opts := chewing.DefaultOptions()
	opts.SystemPath = c.SystemPath
	opts.UserPath = c.UserPath
	if c.KeyboardLayout != "" {
		opts.KeyboardLayout = c.KeyboardLayout
	}
	if c.CandidatesPerPage > 0 {
		opts.CandidatesPerPage = c.CandidatesPerPage
	}
	if c.MaxChiSymbolLen > 0 {
		opts.MaxChiSymbolLen = c.MaxChiSymbolLen
	}
	opts.SpaceAsSelection = c.SpaceAsSelection
	return opts
}
