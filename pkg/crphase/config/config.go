package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Settings configures a coordinator and its driver.
type Settings struct {
	// Phase is the checkpoint phase name. Unrecognized names select INACTIVE.
	Phase string `config:"phase"`

	// Debug enables diagnostic logging of every hook event.
	Debug bool `config:"debug"`

	// LogLevel applies when Debug is off.
	LogLevel string `config:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogFormat selects the slog handler.
	LogFormat string `config:"log_format" validate:"omitempty,oneof=text json"`

	// JournalPath is the SQLite journal file. Empty keeps the journal in memory.
	JournalPath string `config:"journal_path"`

	// Metrics enables OpenTelemetry metrics.
	Metrics bool `config:"metrics"`

	// Tracing enables OpenTelemetry tracing.
	Tracing bool `config:"tracing"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// BindError reports which stage of Bind failed: "decode" or "validate".
type BindError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying mapstructure or validator error.
func (e *BindError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// Bind decodes source over Defaults() and validates the result.
//
// Decoding is weakly typed, so "true" binds to a bool and "1" to an int.
// Unknown keys are rejected.
func Bind(source map[string]any) (Settings, error) {
	s := Defaults()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "config",
	})
	if err != nil {
		return Settings{}, &BindError{Stage: "decode", Err: err}
	}
	if err := decoder.Decode(source); err != nil {
		return Settings{}, &BindError{Stage: "decode", Err: err}
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks field values, returning a *BindError with Stage
// "validate" on failure. Use it after changing settings in code or through
// BindFlags.
func Validate(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return &BindError{Stage: "validate", Err: err}
	}
	return nil
}

// Merge combines maps left to right; later maps win on key conflicts.
// Nil maps are skipped.
func Merge(sources ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}
