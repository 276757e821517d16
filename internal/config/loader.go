package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSTTProviders lists the known STT provider names. Used by [Validate]
// to reject unrecognised names early instead of failing at wiring time.
var ValidSTTProviders = []string{"whisper", "mock"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if name := cfg.Providers.STT.Name; name != "" && !slices.Contains(ValidSTTProviders, name) {
		errs = append(errs, fmt.Errorf("providers.stt.name %q is unknown; valid values: %v", name, ValidSTTProviders))
	}

	if cfg.Speech.SilenceThresholdMs < 0 {
		errs = append(errs, errors.New("speech.silence_threshold_ms must not be negative"))
	}

	if t := cfg.Interpreter.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("interpreter.phonetic_threshold %v is outside [0, 1]", t))
	}
	if t := cfg.Interpreter.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("interpreter.fuzzy_threshold %v is outside [0, 1]", t))
	}

	return errors.Join(errs...)
}

// OptString extracts a string value from a provider Options map. Returns ""
// when the map is nil, the key is absent, or the value is not a string.
func OptString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
