package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// replaceFile swaps content in with a rename so watchers never see a
// half-written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, "Control", cfg.Keys.ToggleModifier)
	assert.Equal(t, "space", cfg.Keys.ToggleKey)
	assert.Equal(t, "composing", cfg.Keys.StartMode)
	assert.True(t, cfg.Repeat.Enabled)
	assert.Equal(t, 10, cfg.Engine.CandidatesPerPage)
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, Check(cfg))
}

func TestXDGDirectories(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_STATE_HOME", "relative/ignored")
	t.Setenv("HOME", "/home/tester")

	assert.Equal(t, "/xdg/config/wlchewing/config.toml", ConfigPath())
	assert.Equal(t, "/xdg/data/wlchewing/stats.db", DefaultConfig().Stats.Path)
	assert.Equal(t, "/home/tester/.local/state/wlchewing", StateDir())
}

func TestFindConfigFilePrefersExisting(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "wlchewing", "config.toml"), FindConfigFile())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "wlchewing"), 0o700))
	yml := filepath.Join(dir, "wlchewing", "config.yml")
	require.NoError(t, os.WriteFile(yml, []byte("version: 1\n"), 0o600))
	assert.Equal(t, yml, FindConfigFile())
}

func TestLoadNonexistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Keys, cfg.Keys)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
version = 1

[keys]
toggle_modifier = "Shift"
passthrough_when_idle = true
start_mode = "forwarding"

[repeat]
rate = 30
delay_ms = 250

[engine]
keyboard_layout = "KB_HSU"
candidates_per_page = 9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Shift", cfg.Keys.ToggleModifier)
	assert.Equal(t, "space", cfg.Keys.ToggleKey, "unset keys keep defaults")
	assert.True(t, cfg.Keys.PassthroughWhenIdle)
	assert.Equal(t, "forwarding", cfg.Keys.StartMode)
	assert.Equal(t, 30, cfg.Repeat.Rate)
	assert.Equal(t, 250, cfg.Repeat.DelayMs)
	assert.True(t, cfg.Repeat.Enabled)
	assert.Equal(t, "KB_HSU", cfg.Engine.KeyboardLayout)
	assert.Equal(t, 9, cfg.Engine.CandidatesPerPage)
}

func TestLoadYAMLAndJSON(t *testing.T) {
	yml := writeFile(t, "config.yaml", `
keys:
  toggle_key: Shift_L
control:
  enabled: false
`)
	cfg, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "Shift_L", cfg.Keys.ToggleKey)
	assert.False(t, cfg.Control.Enabled)

	js := writeFile(t, "config.json", `{"stats": {"enabled": true, "retention_days": 7}}`)
	cfg, err = Load(js)
	require.NoError(t, err)
	assert.True(t, cfg.Stats.Enabled)
	assert.Equal(t, 7, cfg.Stats.RetentionDays)
}

func TestLoadAutoDetectsFormat(t *testing.T) {
	path := writeFile(t, "wlchewingrc", `{"keys": {"start_mode": "english"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "english", cfg.Keys.StartMode)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", `
[keys]
toggle_modfier = "Shift"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadRejectsWrongTypes(t *testing.T) {
	path := writeFile(t, "config.yaml", "repeat:\n  rate: fast\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "config.toml", `
[keys]
start_mode = "pinyin"

[engine]
keyboard_layout = "KB_NOPE"
candidates_per_page = 20
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"keys.start_mode",
		"engine.keyboard_layout",
		"engine.candidates_per_page",
	}, fields)
}

func TestWarningsDoNotFailValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keys.ToggleModifier = "LevelThree"
	cfg.Repeat.Enabled = false
	cfg.Repeat.Rate = 20

	findings := Check(cfg)
	assert.Len(t, findings.Warnings(), 2)
	assert.False(t, findings.HasErrors())
	assert.NoError(t, cfg.Validate())
}

func TestValidateControlAndLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Control.BusName = "not a bus name"
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""
	cfg.Logging.Level = "verbose"

	findings := Check(cfg).Errors()
	require.Len(t, findings, 3)
	assert.Equal(t, "control.bus_name", findings[0].Field)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WLCHEWING_START_MODE", "forwarding")
	t.Setenv("WLCHEWING_REPEAT_RATE", "40")
	t.Setenv("WLCHEWING_REPEAT_DELAY_MS", "soon")
	t.Setenv("WLCHEWING_CONTROL_ENABLED", "false")
	t.Setenv("WLCHEWING_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "forwarding", cfg.Keys.StartMode)
	assert.Equal(t, 40, cfg.Repeat.Rate)
	assert.Zero(t, cfg.Repeat.DelayMs, "malformed numbers are ignored")
	assert.False(t, cfg.Control.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Keys.ToggleKey = "Tab"

	assert.Equal(t, "space", cfg.Keys.ToggleKey)
	assert.Equal(t, cfg.Engine, clone.Engine)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			cfg := DefaultConfig()
			cfg.Keys.ToggleModifier = "Mod4"
			cfg.Engine.SpaceAsSelection = true

			require.NoError(t, SaveConfig(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "Mod4", loaded.Keys.ToggleModifier)
			assert.True(t, loaded.Engine.SpaceAsSelection)
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg.Keys, again.Keys)
}

func TestSchemaIsExported(t *testing.T) {
	assert.Contains(t, string(Schema()), `"additionalProperties": false`)
	_, err := configSchema()
	assert.NoError(t, err)
}

func TestLoaderHotReload(t *testing.T) {
	path := writeFile(t, "config.toml", "[keys]\ntoggle_key = \"space\"\n")

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) { changed <- c })
	require.NoError(t, l.Watch())
	defer l.Close()

	replaceFile(t, path, "[keys]\ntoggle_key = \"Tab\"\n")

	select {
	case cfg := <-changed:
		assert.Equal(t, "Tab", cfg.Keys.ToggleKey)
		assert.Equal(t, "Tab", l.Config().Keys.ToggleKey)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestLoaderKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeFile(t, "config.toml", "[repeat]\nrate = 20\n")

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	replaceFile(t, path, "[repeat]\nrate = 500\n")

	select {
	case err := <-l.Errors():
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error reported")
	}
	assert.Equal(t, 20, l.Config().Repeat.Rate)
}
