// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultVendorID         = 0x5345
	DefaultProductID        = 0x1234
	DefaultCommandTimeoutMs = 1000
	DefaultPollTimeoutMs    = 20
	DefaultPollBackoffMs    = 5
	DefaultSCPIListen       = ":5025"
	DefaultWaveformListen   = ":5026"
	DefaultStatusTimeoutMs  = 1000
	DefaultLogLevel         = "info"

	maxDeviceNameLen = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := &cfg.Device
	if d.VendorID == 0 {
		d.VendorID = DefaultVendorID
	}
	if d.ProductID == 0 {
		d.ProductID = DefaultProductID
	}
	if d.CommandTimeoutMs == 0 {
		d.CommandTimeoutMs = DefaultCommandTimeoutMs
	}
	if d.PollTimeoutMs == 0 {
		d.PollTimeoutMs = DefaultPollTimeoutMs
	}
	if d.PollBackoffMs == nil {
		ms := DefaultPollBackoffMs
		d.PollBackoffMs = &ms
	}

	// ------------------------------------------------------------
	// LISTENERS
	// ------------------------------------------------------------

	if cfg.Bridge.SCPIListen == "" {
		cfg.Bridge.SCPIListen = DefaultSCPIListen
	}
	if cfg.Bridge.WaveformListen == "" {
		cfg.Bridge.WaveformListen = DefaultWaveformListen
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if s := cfg.Status; s != nil {
		// ASCII already validated; truncate to the block's 16 characters.
		if len(s.DeviceName) > maxDeviceNameLen {
			s.DeviceName = s.DeviceName[:maxDeviceNameLen]
		}
		if s.TimeoutMs == 0 {
			s.TimeoutMs = DefaultStatusTimeoutMs
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
