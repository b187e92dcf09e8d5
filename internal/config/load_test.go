// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

const sample = `
device:
  vendor_id: 0x5345
  product_id: 0x1234
  poll_timeout_ms: 30
bridge:
  scpi_listen: ":6000"
  waveform_listen: ":6001"
http:
  listen: ":8080"
status:
  endpoint: "127.0.0.1:502"
  unit_id: 3
  slot: 2
  device_name: "VDS1022-bench-scope-A"
log:
  level: debug
`

func TestLoad_FileAndNormalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.NilError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, cfg.Device.VendorID, uint16(0x5345))
	assert.Equal(t, cfg.Device.PollTimeoutMs, 30)
	assert.Equal(t, cfg.Device.CommandTimeoutMs, DefaultCommandTimeoutMs)
	assert.Equal(t, *cfg.Device.PollBackoffMs, DefaultPollBackoffMs)
	assert.Equal(t, cfg.Bridge.SCPIListen, ":6000")
	assert.Equal(t, cfg.HTTP.Listen, ":8080")
	assert.Equal(t, cfg.Status.UnitID, uint8(3))
	assert.Equal(t, cfg.Status.Slot, uint16(2))
	assert.Equal(t, cfg.Status.DeviceName, "VDS1022-bench-sc")
	assert.Equal(t, cfg.Status.TimeoutMs, DefaultStatusTimeoutMs)
	assert.Equal(t, cfg.Log.Level, "debug")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	assert.NilError(t, err)
	assert.NilError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, cfg.Device.ProductID, uint16(DefaultProductID))
	assert.Equal(t, cfg.Bridge.WaveformListen, DefaultWaveformListen)
	assert.Assert(t, cfg.HTTP == nil)
	assert.Assert(t, cfg.Status == nil)
	assert.Equal(t, cfg.Log.Level, DefaultLogLevel)
}

func TestParse_ZeroBackoffKept(t *testing.T) {
	cfg, err := Parse([]byte("device:\n  poll_backoff_ms: 0\n"))
	assert.NilError(t, err)
	assert.NilError(t, Validate(cfg))
	Normalize(cfg)

	assert.Assert(t, cfg.Device.PollBackoffMs != nil)
	assert.Equal(t, *cfg.Device.PollBackoffMs, 0)
	assert.Equal(t, cfg.Device.PollBackoff(), 0)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("device:\n  poll_ms: 3\n"))
	assert.ErrorContains(t, err, "poll_ms")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config: read")
}
