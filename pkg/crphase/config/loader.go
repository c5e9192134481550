package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by FromEnv.
const EnvPrefix = "CRPHASE_"

// envKeys are the Settings keys FromEnv picks up. Other CRPHASE_* variables
// are ignored rather than rejected by Bind.
var envKeys = map[string]bool{
	"phase":        true,
	"debug":        true,
	"log_level":    true,
	"log_format":   true,
	"journal_path": true,
	"metrics":      true,
	"tracing":      true,
}

// FromFile loads a raw configuration map, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a raw configuration map.
func FromYAML(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return m, nil
}

// FromJSON parses JSON data into a raw configuration map.
func FromJSON(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return m, nil
}

// FromEnv extracts CRPHASE_* variables from environ (os.Environ() format).
// CRPHASE_JOURNAL_PATH=/tmp/j.db becomes {"journal_path": "/tmp/j.db"}.
//
// CRPHASE_DEBUG is a presence flag: any value, even "" or "false", enables
// it, matching observability.DebugEnabled.
func FromEnv(environ []string) map[string]any {
	m := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if !envKeys[name] {
			continue
		}
		if name == "debug" {
			m[name] = true
			continue
		}
		m[name] = value
	}
	return m
}

// Load builds settings from an optional file and the process environment.
// Environment variables override file values.
func Load(path string) (Settings, error) {
	var file map[string]any
	if path != "" {
		var err error
		file, err = FromFile(path)
		if err != nil {
			return Settings{}, err
		}
	}
	return Bind(Merge(file, FromEnv(os.Environ())))
}

// BindFlags registers flags for every setting on fs, writing into s.
// Current values of s become the flag defaults.
func BindFlags(fs *pflag.FlagSet, s *Settings) {
	fs.StringVar(&s.Phase, "phase", s.Phase, "checkpoint phase (BEFORE_APP_START, AFTER_APP_START, INACTIVE)")
	fs.BoolVar(&s.Debug, "debug", s.Debug, "log every hook event to stderr")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&s.LogFormat, "log-format", s.LogFormat, "log format: text or json")
	fs.StringVar(&s.JournalPath, "journal", s.JournalPath, "SQLite journal path; empty keeps it in memory")
	fs.BoolVar(&s.Metrics, "metrics", s.Metrics, "record OpenTelemetry metrics")
	fs.BoolVar(&s.Tracing, "tracing", s.Tracing, "record OpenTelemetry spans")
}
