// Package wayland connects the input method to the compositor through
// the input-method-v2 and virtual-keyboard-v1 protocols.
//
// A pump goroutine only reads raw events off the socket. Looking up and
// dispatching to protocol objects, and creating or destroying them,
// happens on the session loop: the go-wayland object table is not safe
// for concurrent use.
package wayland

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"wlchewing/internal/ime"
)

// ErrClosed is returned by Roundtrip after the client was closed.
var ErrClosed = errors.New("wayland: connection closed")

const (
	// wl_display.sync
	displaySync = 0

	maxSeatVersion = 7
)

type global struct {
	name    uint32
	iface   string
	version uint32
}

// Client owns the compositor connection and the protocol objects. It
// implements ime.Transport and ime.Forwarder.
type Client struct {
	display  *client.Display
	ctx      *client.Context
	registry *client.Registry
	seat     *client.Seat

	imManager *inputMethodManager
	vkManager *virtualKeyboardManager
	im        *inputMethod
	vk        *virtualKeyboard

	post   func(ime.Notification)
	guard  func(where string)
	logger *slog.Logger
	events *queue

	pumping   atomic.Bool
	closing   atomic.Bool
	done      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

var (
	_ ime.Transport = (*Client)(nil)
	_ ime.Forwarder = (*Client)(nil)
)

// Connect opens the display named by WAYLAND_DISPLAY, binds the seat
// and both protocol managers, creates the input method and virtual
// keyboard, and starts the pump. Notifications are handed to post. If
// guard is not nil it is deferred at the top of the pump goroutine.
func Connect(post func(ime.Notification), guard func(where string), logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "wayland")

	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}
	c := newClient(display, post, guard, logger)

	if err := c.setup(); err != nil {
		c.ctx.Close()
		return nil, err
	}

	c.start()
	return c, nil
}

func newClient(display *client.Display, post func(ime.Notification), guard func(where string), logger *slog.Logger) *Client {
	c := &Client{
		display: display,
		ctx:     display.Context(),
		post:    post,
		guard:   guard,
		logger:  logger,
		events:  newQueue(),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		c.logger.Error("protocol error", "code", e.Code, "message", e.Message)
	})
	return c
}

func (c *Client) start() {
	c.pumping.Store(true)
	go c.pump()
}

func (c *Client) setup() error {
	registry, err := c.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	c.registry = registry

	var globals []global
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		globals = append(globals, global{name: e.Name, iface: e.Interface, version: e.Version})
	})
	if err := c.Roundtrip(); err != nil {
		return fmt.Errorf("registry roundtrip: %w", err)
	}

	for _, g := range globals {
		switch g.iface {
		case seatInterface:
			if c.seat != nil {
				continue
			}
			c.seat = client.NewSeat(c.ctx)
			if err := registry.Bind(g.name, g.iface, min(g.version, maxSeatVersion), c.seat); err != nil {
				return fmt.Errorf("bind %s: %w", g.iface, err)
			}
		case inputMethodManagerInterface:
			c.imManager = &inputMethodManager{}
			c.ctx.Register(c.imManager)
			if err := registry.Bind(g.name, g.iface, 1, c.imManager); err != nil {
				return fmt.Errorf("bind %s: %w", g.iface, err)
			}
		case virtualKeyboardManagerInterface:
			c.vkManager = &virtualKeyboardManager{}
			c.ctx.Register(c.vkManager)
			if err := registry.Bind(g.name, g.iface, 1, c.vkManager); err != nil {
				return fmt.Errorf("bind %s: %w", g.iface, err)
			}
		}
	}

	switch {
	case c.seat == nil:
		return errors.New("compositor advertises no seat")
	case c.imManager == nil:
		return fmt.Errorf("compositor does not support %s", inputMethodManagerInterface)
	case c.vkManager == nil:
		return fmt.Errorf("compositor does not support %s", virtualKeyboardManagerInterface)
	}

	c.im = &inputMethod{post: c.post, logger: c.logger}
	c.ctx.Register(c.im)
	if err := c.imManager.getInputMethod(c.seat, c.im); err != nil {
		return fmt.Errorf("get input method: %w", err)
	}

	c.vk = &virtualKeyboard{}
	c.ctx.Register(c.vk)
	if err := c.vkManager.createVirtualKeyboard(c.seat, c.vk); err != nil {
		return fmt.Errorf("create virtual keyboard: %w", err)
	}

	return c.Roundtrip()
}

// pump reads events until the connection fails or is closed. The first
// event of each batch wakes the loop with a TransportReadable.
func (c *Client) pump() {
	defer close(c.done)
	if c.guard != nil {
		defer c.guard("wayland pump")
	}
	for {
		m, err := c.read()
		if err != nil {
			if !c.closing.Load() {
				c.post(ime.TransportClosed{Err: err})
			}
			return
		}
		if c.events.push(m) {
			c.post(ime.TransportReadable{Dispatch: c.Dispatch})
		}
	}
}

func (c *Client) read() (message, error) {
	sender, opcode, fd, data, err := c.ctx.ReadMsg()
	if err != nil {
		return message{}, err
	}
	return message{sender: sender, opcode: opcode, fd: fd, data: data}, nil
}

// Dispatch delivers every queued event to its protocol object. It must
// run on the session loop.
func (c *Client) Dispatch() {
	for _, m := range c.events.drain() {
		c.dispatch(m)
	}
}

// dispatch delivers one event. Events for objects that are already gone
// are dropped.
func (c *Client) dispatch(m message) {
	p, ok := c.ctx.GetProxy(m.sender).(client.Dispatcher)
	if !ok {
		c.logger.Debug("event for unknown object", "id", m.sender, "opcode", m.opcode)
		if m.fd >= 0 {
			os.NewFile(uintptr(m.fd), "event").Close()
		}
		return
	}
	p.Dispatch(m.opcode, m.fd, m.data)
}

// afterSync runs fn once the compositor has processed every request sent
// so far. fn runs on the goroutine that dispatches events.
func (c *Client) afterSync(fn func()) error {
	cb := client.NewCallback(c.ctx)
	cb.SetDoneHandler(func(client.CallbackDoneEvent) {
		c.ctx.Unregister(cb)
		fn()
	})
	if err := send(c.display, newRequest(c.display.ID(), displaySync).uint32(cb.ID())); err != nil {
		c.ctx.Unregister(cb)
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Roundtrip blocks until the compositor has processed all requests sent
// so far. Events that arrive in the meantime are dispatched inline, so it
// must be called from the session loop (or before the pump starts).
func (c *Client) Roundtrip() error {
	synced := false
	if err := c.afterSync(func() { synced = true }); err != nil {
		return err
	}

	if !c.pumping.Load() {
		for !synced {
			m, err := c.read()
			if err != nil {
				return err
			}
			c.dispatch(m)
		}
		return nil
	}

	for !synced {
		msgs := c.events.drain()
		if len(msgs) == 0 {
			select {
			case <-c.events.ready:
				continue
			case <-c.done:
				return ErrClosed
			case <-c.closed:
				return ErrClosed
			}
		}
		for _, m := range msgs {
			c.dispatch(m)
		}
	}
	return nil
}

func (c *Client) SetPreedit(text string, cursorBegin, cursorEnd int) error {
	return c.im.setPreeditString(text, int32(cursorBegin), int32(cursorEnd))
}

func (c *Client) CommitString(text string) error {
	return c.im.commitString(text)
}

func (c *Client) Commit(serial uint32) error {
	return c.im.commit(serial)
}

// GrabKeyboard requests a keyboard grab. Its events are posted as
// notifications once the compositor answers.
func (c *Client) GrabKeyboard() (ime.Grab, error) {
	grab := &keyboardGrab{post: c.post, logger: c.logger, afterSync: c.afterSync}
	c.ctx.Register(grab)
	if err := c.im.grabKeyboard(grab); err != nil {
		c.ctx.Unregister(grab)
		return nil, err
	}
	return grab, nil
}

func (c *Client) ForwardKeymap(format uint32, fd int, size uint32) error {
	return c.vk.keymap(format, fd, size)
}

func (c *Client) ForwardKey(time, code uint32, state ime.KeyState) error {
	return c.vk.key(time, code, state)
}

func (c *Client) ForwardModifiers(depressed, latched, locked, group uint32) error {
	return c.vk.modifiers(depressed, latched, locked, group)
}

// Close destroys the protocol objects and closes the connection.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.closed)

		if c.vk != nil {
			errs = append(errs, c.vk.destroy())
		}
		if c.im != nil {
			errs = append(errs, c.im.destroy())
		}
		if c.imManager != nil {
			errs = append(errs, c.imManager.destroy())
		}
		errs = append(errs, c.ctx.Close())
		if c.pumping.Load() {
			<-c.done
		}
	})
	return errors.Join(errs...)
}
