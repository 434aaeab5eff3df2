package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is configured"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is configured"))
		}
	}

	// Analysis thresholds
	if t := cfg.Analysis.MatchThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("analysis.match_threshold %.2f is out of range [0, 1]", t))
	}
	if f := cfg.Analysis.SuggestionFloor; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("analysis.suggestion_floor %.2f is out of range [0, 1]", f))
	}
	if cfg.Analysis.MatchThreshold != 0 && cfg.Analysis.SuggestionFloor > cfg.Analysis.MatchThreshold {
		errs = append(errs, fmt.Errorf("analysis.suggestion_floor %.2f must not exceed analysis.match_threshold %.2f",
			cfg.Analysis.SuggestionFloor, cfg.Analysis.MatchThreshold))
	}

	// STT gateway
	if cfg.STT.PollIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("stt.poll_interval_ms %d must not be negative", cfg.STT.PollIntervalMs))
	}
	if cfg.STT.BaseURL == "" && (cfg.STT.APIKey != "" || cfg.STT.Model != "") {
		slog.Warn("stt.base_url is empty; api_key/model are ignored and the audio endpoint stays disabled")
	}

	// History availability
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; practice history will be kept in memory only")
	}

	return errors.Join(errs...)
}
