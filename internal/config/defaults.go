package config

import (
	"os"
	"path/filepath"
)

const appName = "wlchewing"

// ConfigDir returns $XDG_CONFIG_HOME/wlchewing, falling back to
// ~/.config/wlchewing.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/wlchewing, falling back to
// ~/.local/share/wlchewing.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns $XDG_STATE_HOME/wlchewing, falling back to
// ~/.local/state/wlchewing.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}

// SupportedConfigFormats returns the supported config file extensions.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"yaml",
		"yml",
		"json",
	}
}

// FindConfigFile returns the first config.<ext> found in ConfigDir, or
// ConfigPath if there is none.
func FindConfigFile() string {
	dir := ConfigDir()
	for _, ext := range SupportedConfigFormats() {
		path := filepath.Join(dir, "config."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ConfigPath()
}

// KeyboardLayouts lists the layout names libchewing understands.
func KeyboardLayouts() []string {
	return []string{
		"KB_DEFAULT",
		"KB_HSU",
		"KB_IBM",
		"KB_GIN_YIEH",
		"KB_ET",
		"KB_ET26",
		"KB_DVORAK",
		"KB_DVORAK_HSU",
		"KB_DACHEN_CP26",
		"KB_HANYU_PINYIN",
		"KB_THL_PINYIN",
		"KB_MPS2_PINYIN",
		"KB_CARPALX",
		"KB_COLEMAK_DH_ANSI",
		"KB_COLEMAK_DH_ORTH",
		"KB_WORKMAN",
		"KB_COLEMAK",
	}
}

// ModifierNames lists the XKB modifier names accepted for the toggle
// chord without a warning.
func ModifierNames() []string {
	return []string{
		"Shift", "Lock", "Control",
		"Mod1", "Mod2", "Mod3", "Mod4", "Mod5",
		"Alt", "Super", "Meta", "Hyper",
	}
}
