package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	return e.Warning
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig && e.HasErrors()
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// Check runs every validator and returns all findings, warnings
// included.
func Check(c *Config) ValidationErrors {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateKeys(&c.Keys)...)
	errs = append(errs, validateRepeat(&c.Repeat)...)
	errs = append(errs, validateEngine(&c.Engine)...)
	errs = append(errs, validateControl(&c.Control)...)
	errs = append(errs, validateStats(&c.Stats)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	return errs
}

// ValidateConfig returns the error-level findings of Check, or nil.
// Warnings do not fail validation.
func ValidateConfig(c *Config) error {
	if errs := Check(c).Errors(); len(errs) > 0 {
		return errs
	}
	return nil
}

func validateKeys(k *KeysConfig) ValidationErrors {
	var errs ValidationErrors

	if k.ToggleModifier == "" {
		errs = append(errs, *RequiredFieldError("keys.toggle_modifier"))
	} else if !slices.Contains(ModifierNames(), k.ToggleModifier) {
		errs = append(errs, ValidationError{
			Field:   "keys.toggle_modifier",
			Message: fmt.Sprintf("unknown modifier %q; the keymap may not define it", k.ToggleModifier),
			Warning: true,
		})
	}

	if k.ToggleKey == "" {
		errs = append(errs, *RequiredFieldError("keys.toggle_key"))
	}

	switch strings.ToLower(k.StartMode) {
	case "", "composing", "chinese", "forwarding", "english":
	default:
		errs = append(errs, ValidationError{
			Field:   "keys.start_mode",
			Message: fmt.Sprintf("invalid start mode: %s (valid: composing, forwarding)", k.StartMode),
		})
	}

	return errs
}

func validateRepeat(r *RepeatConfig) ValidationErrors {
	var errs ValidationErrors

	if r.Rate < 0 || r.Rate > 100 {
		errs = append(errs, *RangeError("repeat.rate", 0, 100))
	}
	if r.DelayMs < 0 || r.DelayMs > 5000 {
		errs = append(errs, *RangeError("repeat.delay_ms", 0, 5000))
	}
	if !r.Enabled && (r.Rate != 0 || r.DelayMs != 0) {
		errs = append(errs, ValidationError{
			Field:   "repeat.enabled",
			Message: "repeat is disabled; rate and delay_ms are ignored",
			Warning: true,
		})
	}

	return errs
}

func validateEngine(e *EngineConfig) ValidationErrors {
	var errs ValidationErrors

	if e.KeyboardLayout == "" {
		errs = append(errs, *RequiredFieldError("engine.keyboard_layout"))
	} else if !slices.Contains(KeyboardLayouts(), e.KeyboardLayout) {
		errs = append(errs, ValidationError{
			Field:   "engine.keyboard_layout",
			Message: fmt.Sprintf("unknown keyboard layout: %s", e.KeyboardLayout),
		})
	}

	if e.CandidatesPerPage < 1 || e.CandidatesPerPage > 10 {
		errs = append(errs, *RangeError("engine.candidates_per_page", 1, 10))
	}
	if e.MaxChiSymbolLen < 0 || e.MaxChiSymbolLen > 39 {
		errs = append(errs, *RangeError("engine.max_chi_symbol_len", 0, 39))
	}
	if (e.SystemPath == "") != (e.UserPath == "") {
		errs = append(errs, ValidationError{
			Field:   "engine.system_path",
			Message: "system_path and user_path are used together; the missing one falls back to the library default",
			Warning: true,
		})
	}

	return errs
}

// busNamePattern matches a well-known D-Bus name.
var busNamePattern = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*(\.[A-Za-z_-][A-Za-z0-9_-]*)+$`)

func validateControl(c *ControlConfig) ValidationErrors {
	var errs ValidationErrors

	if c.Enabled && c.BusName != "" {
		if len(c.BusName) > 255 || !busNamePattern.MatchString(c.BusName) {
			errs = append(errs, ValidationError{
				Field:   "control.bus_name",
				Message: fmt.Sprintf("invalid D-Bus name: %s", c.BusName),
			})
		}
	}

	return errs
}

func validateStats(s *StatsConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Enabled && s.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "stats.path",
			Message: "path is required when stats are enabled",
		})
	}
	if s.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "stats.retention_days",
			Message: "retention cannot be negative",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is %q", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
