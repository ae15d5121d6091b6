package ime

// Keysym is an XKB keysym value.
type Keysym uint32

// Keysyms the router treats specially.
const (
	KeySpace     Keysym = 0x0020
	KeyBackSpace Keysym = 0xff08
	KeyTab       Keysym = 0xff09
	KeyReturn    Keysym = 0xff0d
	KeyEscape    Keysym = 0xff1b
	KeyLeft      Keysym = 0xff51
	KeyUp        Keysym = 0xff52
	KeyRight     Keysym = 0xff53
	KeyDown      Keysym = 0xff54
	KeyKPEnter   Keysym = 0xff8d
	KeyDelete    Keysym = 0xffff
)

// KeyState is the pressed/released state of a physical key, using the
// wl_keyboard encoding.
type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "pressed"
	}
	return "released"
}

// Modifier names as understood by xkbcommon.
const (
	ModControl = "Control"
	ModShift   = "Shift"
	ModAlt     = "Mod1"
	ModSuper   = "Mod4"
)
