package control

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Remote calls a running input method's control object.
type Remote struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to the session bus and addresses busName.
func Dial(busName string) (*Remote, error) {
	if busName == "" {
		busName = DefaultBusName
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &Remote{conn: conn, obj: conn.Object(busName, ObjectPath)}, nil
}

// Mode returns the current mode name.
func (r *Remote) Mode() (string, error) {
	var mode string
	if err := r.obj.Call(Interface+".GetMode", 0).Store(&mode); err != nil {
		return "", err
	}
	return mode, nil
}

// SetMode switches to the named mode.
func (r *Remote) SetMode(mode string) error {
	return r.obj.Call(Interface+".SetMode", 0, mode).Err
}

// Toggle switches mode and returns the new mode name.
func (r *Remote) Toggle() (string, error) {
	var mode string
	if err := r.obj.Call(Interface+".Toggle", 0).Store(&mode); err != nil {
		return "", err
	}
	return mode, nil
}

// Close releases the bus connection.
func (r *Remote) Close() error { return r.conn.Close() }
