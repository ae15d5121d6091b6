package wayland

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"

	"wlchewing/internal/ime"
)

// zwp_virtual_keyboard_manager_v1 and zwp_virtual_keyboard_v1 requests.
const (
	vkManagerCreate = 0

	vkKeymap    = 0
	vkKey       = 1
	vkModifiers = 2
	vkDestroy   = 3
)

type virtualKeyboardManager struct {
	client.BaseProxy
}

func (m *virtualKeyboardManager) Dispatch(uint32, int, []byte) {}

func (m *virtualKeyboardManager) createVirtualKeyboard(seat *client.Seat, vk *virtualKeyboard) error {
	return send(m, newRequest(m.ID(), vkManagerCreate).uint32(seat.ID()).uint32(vk.ID()))
}

// virtualKeyboard injects key events into the focused client. It has
// no events.
type virtualKeyboard struct {
	client.BaseProxy
}

func (vk *virtualKeyboard) Dispatch(uint32, int, []byte) {}

func (vk *virtualKeyboard) keymap(format uint32, fd int, size uint32) error {
	return send(vk, newRequest(vk.ID(), vkKeymap).uint32(format).fd(fd).uint32(size))
}

func (vk *virtualKeyboard) key(time, code uint32, state ime.KeyState) error {
	return send(vk, newRequest(vk.ID(), vkKey).uint32(time).uint32(code).uint32(uint32(state)))
}

func (vk *virtualKeyboard) modifiers(depressed, latched, locked, group uint32) error {
	return send(vk, newRequest(vk.ID(), vkModifiers).
		uint32(depressed).uint32(latched).uint32(locked).uint32(group))
}

func (vk *virtualKeyboard) destroy() error {
	return send(vk, newRequest(vk.ID(), vkDestroy))
}
