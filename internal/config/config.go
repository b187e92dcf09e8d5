// internal/config/config.go
package config

type Config struct {
	Device DeviceConfig  `yaml:"device"`
	Bridge BridgeConfig  `yaml:"bridge"`
	HTTP   *HTTPConfig   `yaml:"http"`   // optional
	Status *StatusConfig `yaml:"status"` // optional
	Log    LogConfig     `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	VendorID         uint16 `yaml:"vendor_id"`
	ProductID        uint16 `yaml:"product_id"`
	CommandTimeoutMs int    `yaml:"command_timeout_ms"`
	PollTimeoutMs    int    `yaml:"poll_timeout_ms"`
	PollBackoffMs    *int   `yaml:"poll_backoff_ms"` // nil: default; 0 is allowed
}

// PollBackoff returns the configured backoff in ms, or the default when unset.
func (d DeviceConfig) PollBackoff() int {
	if d.PollBackoffMs == nil {
		return DefaultPollBackoffMs
	}
	return *d.PollBackoffMs
}

// ---- BRIDGE ----

type BridgeConfig struct {
	SCPIListen     string `yaml:"scpi_listen"`
	WaveformListen string `yaml:"waveform_listen"`
}

// ---- HTTP STATUS API ----

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// ---- DEVICE STATUS BLOCK ----

type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}
