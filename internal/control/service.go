// Package control exposes the input method on the D-Bus session bus so
// panels, status bars and scripts can query and switch the mode, and
// receive candidate panel updates as signals.
package control

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"wlchewing/internal/ime"
)

const (
	DefaultBusName                 = "org.wlchewing.InputMethod"
	ObjectPath     dbus.ObjectPath = "/org/wlchewing/InputMethod"
	Interface                      = "org.wlchewing.InputMethod"

	requestTimeout = 2 * time.Second
)

const introspectXML = `
<node>
	<interface name="` + Interface + `">
		<method name="GetMode">
			<arg direction="out" type="s"/>
		</method>
		<method name="SetMode">
			<arg direction="in" type="s"/>
		</method>
		<method name="Toggle">
			<arg direction="out" type="s"/>
		</method>
		<method name="Status">
			<arg direction="out" type="a{sv}"/>
		</method>
		<signal name="ModeChanged">
			<arg type="s"/>
		</signal>
		<signal name="CandidatesChanged">
			<arg type="as"/>
			<arg type="i"/>
			<arg type="i"/>
			<arg type="i"/>
		</signal>
		<signal name="CandidatesClosed"/>
	</interface>` + introspect.IntrospectDataString + `</node>`

// Poster queues a notification for the session loop.
type Poster interface {
	Post(n ime.Notification)
}

// Service is the exported control object. It also implements
// ime.PanelRenderer by emitting candidate signals.
type Service struct {
	conn    *dbus.Conn
	poster  Poster
	logger  *slog.Logger
	timeout time.Duration
}

var _ ime.PanelRenderer = (*Service)(nil)

// Start connects to the session bus, exports the control object and
// claims busName.
func Start(busName string, poster Poster, logger *slog.Logger) (*Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	s, err := newService(conn, busName, poster, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newService(conn *dbus.Conn, busName string, poster Poster, logger *slog.Logger) (*Service, error) {
	if busName == "" {
		busName = DefaultBusName
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		conn:    conn,
		poster:  poster,
		logger:  logger.With("component", "control"),
		timeout: requestTimeout,
	}

	if err := conn.Export(methods{s}, ObjectPath, Interface); err != nil {
		return nil, fmt.Errorf("export control object: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already taken", busName)
	}

	s.logger.Info("control service started", "bus_name", busName)
	return s, nil
}

// request hands an operation to the session loop and waits for the
// resulting status.
func (s *Service) request(op ime.ControlOp, mode ime.Mode) (ime.Status, error) {
	reply := make(chan ime.Status, 1)
	s.poster.Post(ime.ControlRequest{Op: op, Mode: mode, Reply: reply})

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case st := <-reply:
		return st, nil
	case <-timer.C:
		return ime.Status{}, errors.New("input method did not respond")
	}
}

// ModeChanged emits the ModeChanged signal. It is wired as the
// session's mode change callback.
func (s *Service) ModeChanged(mode ime.Mode) {
	if err := s.emit("ModeChanged", modeName(mode)); err != nil {
		s.logger.Warn("emit mode change", "error", err)
	}
}

// Render emits CandidatesChanged.
func (s *Service) Render(view ime.PanelView) error {
	return s.emit("CandidatesChanged", view.Candidates, int32(view.Selected), int32(view.Page), int32(view.Pages))
}

// Hide emits CandidatesClosed.
func (s *Service) Hide() error {
	return s.emit("CandidatesClosed")
}

func (s *Service) emit(name string, values ...interface{}) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Emit(ObjectPath, Interface+"."+name, values...)
}

// Close releases the bus connection.
func (s *Service) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// methods holds the D-Bus visible methods.
type methods struct {
	s *Service
}

func (m methods) GetMode() (string, *dbus.Error) {
	st, err := m.s.request(ime.ControlQuery, 0)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return modeName(st.Mode), nil
}

func (m methods) SetMode(name string) *dbus.Error {
	mode, err := ime.ParseMode(name)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	if _, err := m.s.request(ime.ControlSetMode, mode); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m methods) Toggle() (string, *dbus.Error) {
	st, err := m.s.request(ime.ControlToggle, 0)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return modeName(st.Mode), nil
}

func (m methods) Status() (map[string]dbus.Variant, *dbus.Error) {
	st, err := m.s.request(ime.ControlQuery, 0)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	return statusVariants(st), nil
}

func modeName(m ime.Mode) string { return m.String() }

// statusVariants never carries the composed text itself; any session
// bus client can call Status.
func statusVariants(st ime.Status) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mode":           dbus.MakeVariant(modeName(st.Mode)),
		"active":         dbus.MakeVariant(st.Active),
		"serial":         dbus.MakeVariant(st.Serial),
		"composing":      dbus.MakeVariant(st.Preedit != ""),
		"preedit_length": dbus.MakeVariant(uint32(utf8.RuneCountInString(st.Preedit))),
		"keys_handled":   dbus.MakeVariant(st.Stats.KeysHandled),
		"keys_forwarded": dbus.MakeVariant(st.Stats.KeysForwarded),
		"commits":        dbus.MakeVariant(st.Stats.Commits),
		"toggles":        dbus.MakeVariant(st.Stats.Toggles),
	}
}
