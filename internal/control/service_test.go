package control

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlchewing/internal/ime"
)

// loopPoster answers control requests the way the session loop does.
type loopPoster struct {
	mode ime.Mode
	ops  []ime.ControlOp
}

func (p *loopPoster) Post(n ime.Notification) {
	req, ok := n.(ime.ControlRequest)
	if !ok {
		return
	}
	p.ops = append(p.ops, req.Op)
	switch req.Op {
	case ime.ControlSetMode:
		p.mode = req.Mode
	case ime.ControlToggle:
		if p.mode == ime.Forwarding {
			p.mode = ime.Composing
		} else {
			p.mode = ime.Forwarding
		}
	}
	req.Reply <- ime.Status{Mode: p.mode, Active: true, Serial: 7}
}

// deadPoster never answers.
type deadPoster struct{}

func (deadPoster) Post(ime.Notification) {}

func nopLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(p Poster) *Service {
	return &Service{poster: p, timeout: 50 * time.Millisecond, logger: nopLogger()}
}

func TestMethods(t *testing.T) {
	p := &loopPoster{}
	m := methods{newTestService(p)}

	mode, derr := m.GetMode()
	require.Nil(t, derr)
	assert.Equal(t, "composing", mode)

	mode, derr = m.Toggle()
	require.Nil(t, derr)
	assert.Equal(t, "forwarding", mode)

	require.Nil(t, m.SetMode("chinese"))
	assert.Equal(t, ime.Composing, p.mode)

	assert.NotNil(t, m.SetMode("klingon"))
	assert.Equal(t, []ime.ControlOp{ime.ControlQuery, ime.ControlToggle, ime.ControlSetMode}, p.ops)
}

func TestStatus(t *testing.T) {
	m := methods{newTestService(&loopPoster{mode: ime.Forwarding})}

	st, derr := m.Status()
	require.Nil(t, derr)
	assert.Equal(t, "forwarding", st["mode"].Value())
	assert.Equal(t, true, st["active"].Value())
	assert.Equal(t, uint32(7), st["serial"].Value())
}

func TestStatusOmitsComposedText(t *testing.T) {
	st := statusVariants(ime.Status{Mode: ime.Composing, Preedit: "你好ㄇ"})

	assert.NotContains(t, st, "preedit")
	for key, v := range st {
		assert.NotEqual(t, "你好ㄇ", v.Value(), key)
	}
	assert.Equal(t, true, st["composing"].Value())
	assert.Equal(t, uint32(3), st["preedit_length"].Value())
}

func TestRequestTimeout(t *testing.T) {
	m := methods{newTestService(deadPoster{})}

	_, derr := m.GetMode()
	require.NotNil(t, derr)
	assert.Contains(t, derr.Error(), "did not respond")
}

func TestRendererWithoutConnection(t *testing.T) {
	s := newTestService(deadPoster{})
	assert.NoError(t, s.Render(ime.PanelView{Candidates: []string{"一"}}))
	assert.NoError(t, s.Hide())
	assert.NoError(t, s.Close())
}
