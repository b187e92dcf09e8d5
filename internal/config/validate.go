// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
)

const maxPollTimeoutMs = 1000

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are legal here; Normalize replaces them with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE TIMING
	// ------------------------------------------------------------

	d := cfg.Device
	if d.CommandTimeoutMs < 0 {
		return fmt.Errorf("device: command_timeout_ms must be >= 0, got %d", d.CommandTimeoutMs)
	}
	if d.PollTimeoutMs < 0 || d.PollTimeoutMs > maxPollTimeoutMs {
		return fmt.Errorf("device: poll_timeout_ms must be in [0,%d], got %d", maxPollTimeoutMs, d.PollTimeoutMs)
	}
	if d.PollBackoffMs != nil && *d.PollBackoffMs < 0 {
		return fmt.Errorf("device: poll_backoff_ms must be >= 0, got %d", *d.PollBackoffMs)
	}

	// ------------------------------------------------------------
	// LISTENERS (must not collide)
	// ------------------------------------------------------------

	owner := make(map[string]string)
	claim := func(name, addr string) error {
		if addr == "" {
			return nil
		}
		if prev, exists := owner[addr]; exists {
			return fmt.Errorf("listen address collision: %s used by %s and %s", addr, prev, name)
		}
		owner[addr] = name
		return nil
	}

	scpi := cfg.Bridge.SCPIListen
	if scpi == "" {
		scpi = DefaultSCPIListen
	}
	wave := cfg.Bridge.WaveformListen
	if wave == "" {
		wave = DefaultWaveformListen
	}
	if err := claim("bridge.scpi_listen", scpi); err != nil {
		return err
	}
	if err := claim("bridge.waveform_listen", wave); err != nil {
		return err
	}

	if cfg.HTTP != nil {
		if cfg.HTTP.Listen == "" {
			return errors.New("http: listen is required when http is set")
		}
		if err := claim("http.listen", cfg.HTTP.Listen); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if s := cfg.Status; s != nil {
		if s.Endpoint == "" {
			return errors.New("status: endpoint is required when status is set")
		}
		for i := 0; i < len(s.DeviceName); i++ {
			if s.DeviceName[i] > 0x7F {
				return errors.New("status: device_name must contain ASCII characters only")
			}
		}
		if s.TimeoutMs < 0 {
			return fmt.Errorf("status: timeout_ms must be >= 0, got %d", s.TimeoutMs)
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}

	return nil
}
