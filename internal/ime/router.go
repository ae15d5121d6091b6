package ime

// editOps maps editing keysyms to engine operations while composing.
var editOps = map[Keysym]EditOp{
	KeyBackSpace: EditBackspace,
	KeyDelete:    EditDelete,
	KeyReturn:    EditEnter,
	KeyKPEnter:   EditEnter,
	KeyLeft:      EditLeft,
	KeyRight:     EditRight,
}

// handleKey routes one key event from the grab.
func (s *Session) handleKey(ev KeyInput) {
	if s.grab == nil {
		return
	}
	s.lastKeyTime = ev.Time
	sym := s.keymap.Keysym(ev.Code)

	if ev.State == KeyPressed {
		s.repeater.Stop()

		handled, repeatable := s.pressKey(sym)
		if !handled {
			s.forward(ev)
			s.held[ev.Code] = struct{}{}
			s.stats.KeysForwarded++
			return
		}
		s.stats.KeysHandled++
		if repeatable {
			s.repeater.Start(uint32(sym), ev.Code)
		}
		return
	}

	if s.repeater.Matches(uint32(sym), ev.Code) {
		s.repeater.Stop()
	}
	if _, ok := s.held[ev.Code]; ok {
		delete(s.held, ev.Code)
		s.forward(ev)
	}
}

func (s *Session) forward(ev KeyInput) {
	if err := s.forwarder.ForwardKey(ev.Time, ev.Code, ev.State); err != nil {
		s.logger.Warn("forward key", "code", ev.Code, "state", ev.State, "error", err)
	}
}

// handleRepeat replays the repeating key if the fire is still current.
func (s *Session) handleRepeat(gen uint64) {
	sym, ok := s.repeater.Current(gen)
	if !ok || s.grab == nil {
		return
	}
	if handled, _ := s.pressKey(Keysym(sym)); !handled {
		s.repeater.Stop()
		return
	}
	s.stats.Repeats++
}

// pressKey decides what a press of sym does. handled=false means the
// press belongs to the application. repeatable reports whether holding
// the key should repeat the action.
func (s *Session) pressKey(sym Keysym) (handled, repeatable bool) {
	if s.keymap.ModifierActive(s.keys.ToggleModifier) {
		if sym == s.keys.ToggleKey {
			s.toggle()
			return true, false
		}
		return false, false
	}
	if s.forwarding {
		return false, false
	}

	if s.panel != nil {
		s.navigate(sym)
	} else {
		handled, edited := s.compose(sym)
		if !handled {
			return false, false
		}
		if !edited {
			return true, false
		}
	}
	s.flush()
	return true, true
}

// toggle switches between composing and forwarding, discarding any
// composition in progress.
func (s *Session) toggle() {
	s.forwarding = !s.forwarding
	s.engine.Reset()
	s.closePanel()

	if err := s.transport.SetPreedit("", 0, 0); err != nil {
		s.logger.Warn("clear preedit", "error", err)
	}
	if err := s.transport.Commit(s.syncs); err != nil {
		s.logger.Warn("commit", "error", err)
	}
	s.serial++
	s.preedit = PreeditView{}
	s.stats.Toggles++
	s.logger.Info("input mode toggled", "mode", s.Mode())
}

// compose handles a press in Composing mode. handled=false means the key
// belongs to the application. Keys with no character and no editing
// meaning are swallowed without touching the engine (edited=false),
// unless passthrough is on and nothing is being composed.
func (s *Session) compose(sym Keysym) (handled, edited bool) {
	passthrough := s.keys.PassthroughWhenIdle && s.idle()

	if op, ok := editOps[sym]; ok {
		if passthrough {
			return false, false
		}
		s.engine.Handle(op)
		return true, true
	}

	if sym == KeyDown {
		if passthrough {
			return false, false
		}
		s.openPanel()
		return true, true
	}

	r := s.keymap.Rune(sym)
	if r == 0 {
		return !passthrough, false
	}
	s.engine.HandleDefault(r)
	return true, true
}

// navigate handles a press while the candidate panel is open. Every key
// is consumed.
func (s *Session) navigate(sym Keysym) {
	total := s.engine.CandidateTotal()
	if total == 0 {
		s.closePanel()
		return
	}
	if s.panel.Selected >= total {
		s.panel.Selected = total - 1
	}

	switch sym {
	case KeyReturn, KeyKPEnter:
		s.engine.ChooseCandidate(s.panel.Selected)
		s.engine.CloseCandidates()
		s.closePanel()
		s.stats.Selections++
	case KeyLeft:
		if s.panel.Selected > 0 {
			s.panel.Selected--
			s.renderPanel()
		}
	case KeyRight:
		if s.panel.Selected < total-1 {
			s.panel.Selected++
			s.renderPanel()
		}
	case KeyUp:
		s.engine.CloseCandidates()
		s.closePanel()
	case KeyDown:
		if s.engine.CandidateHasNext() {
			s.engine.CandidateNext()
		} else {
			s.engine.CandidateFirst()
		}
		s.panel.Selected = 0
		if s.engine.CandidateTotal() == 0 {
			s.closePanel()
			return
		}
		s.renderPanel()
	}
}

func (s *Session) idle() bool {
	return s.engine.BufferString() == "" && s.engine.PhoneticString() == ""
}

func (s *Session) openPanel() {
	s.engine.OpenCandidates()
	if s.engine.CandidateTotal() == 0 {
		return
	}
	s.panel = &CandidatePanel{}
	s.renderPanel()
}

func (s *Session) renderPanel() {
	if err := s.renderer.Render(buildPanelView(s.engine, s.panel.Selected)); err != nil {
		s.logger.Warn("render candidate panel", "error", err)
	}
	if err := s.transport.Roundtrip(); err != nil {
		s.logger.Warn("roundtrip", "error", err)
	}
}

func (s *Session) closePanel() {
	if s.panel == nil {
		return
	}
	s.panel = nil
	if err := s.renderer.Hide(); err != nil {
		s.logger.Warn("hide candidate panel", "error", err)
	}
}

// flush publishes pending commit text and the preedit as one update.
func (s *Session) flush() {
	if s.engine.HasPendingCommit() {
		if text := s.engine.PendingCommit(); text != "" {
			if err := s.transport.CommitString(text); err != nil {
				s.logger.Warn("commit string", "error", err)
			}
			s.stats.Commits++
			s.stats.CommitRunes += uint64(len([]rune(text)))
		}
	}

	view := ComposePreedit(s.engine.BufferString(), s.engine.PhoneticString(), s.engine.Cursor())
	if err := s.transport.SetPreedit(view.Text, view.Cursor, view.Cursor); err != nil {
		s.logger.Warn("set preedit", "error", err)
	}
	if err := s.transport.Commit(s.syncs); err != nil {
		s.logger.Warn("commit", "error", err)
	}
	s.serial++
	s.preedit = view
}
