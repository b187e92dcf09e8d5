// internal/webservice/webservice_test.go
package webservice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/status"
)

type fakeDevice struct {
	state scope.State
	info  *flash.Info
}

func (f *fakeDevice) Identity() scope.Identity {
	id := scope.Identity{Make: scope.Make, Model: scope.Model}
	if f.info != nil {
		id.Serial = f.info.Serial
		id.Firmware = f.info.DeviceVersion
	}
	return id
}

func (f *fakeDevice) State() scope.State { return f.state }
func (f *fakeDevice) Info() *flash.Info  { return f.info }

func configuredDevice() *fakeDevice {
	info := &flash.Info{
		DeviceVersion: "V2.5.0",
		Serial:        "VDS1022I0002",
		Legacy:        true,
	}
	info.Locales[2] = true // en
	info.Calibration[1].Gain[flash.Range1V] = 0x021b
	return &fakeDevice{state: scope.Configured, info: info}
}

func get(t *testing.T, app *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com"+path, nil)
	app.Router().ServeHTTP(w, r)
	return w
}

func TestDeviceGet(t *testing.T) {
	app := &App{Device: configuredDevice()}

	w := get(t, app, "/device")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))

	var got DeviceStatus
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.DeepEqual(t, got, DeviceStatus{
		Make:     "OWON",
		Model:    "VDS1022",
		Serial:   "VDS1022I0002",
		Firmware: "V2.5.0",
		Legacy:   true,
		Locales:  []string{"en"},
		State:    "configured",
	})
}

func TestDeviceGetBeforeCalibration(t *testing.T) {
	app := &App{Device: &fakeDevice{state: scope.Disconnected}}

	w := get(t, app, "/device")
	assert.Equal(t, http.StatusOK, w.Code)

	var got DeviceStatus
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, got.State, "disconnected")
	assert.Equal(t, got.Serial, "")

	w = get(t, app, "/device/calibration")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCalibrationGet(t *testing.T) {
	app := &App{Device: configuredDevice()}

	w := get(t, app, "/device/calibration")
	assert.Equal(t, http.StatusOK, w.Code)

	var got Calibration
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, len(got.Ranges), flash.Ranges)
	assert.Equal(t, got.Ranges[0], "5mV")
	assert.Equal(t, got.Ranges[flash.Range1V], "1V")
	assert.Equal(t, len(got.Channels), flash.Channels)
	assert.Equal(t, got.Channels[1].Gain[flash.Range1V], uint16(0x021b))
}

func TestStatusGet(t *testing.T) {
	tr := status.NewTracker()
	tr.Observe(scope.CodeTransport)
	tr.Tick()

	app := &App{Device: configuredDevice(), Tracker: tr}

	w := get(t, app, "/status")
	assert.Equal(t, http.StatusOK, w.Code)

	var got BridgeStatus
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, got.Health, status.HealthError)
	assert.Equal(t, got.HealthName, "error")
	assert.Equal(t, got.LastErrorCode, scope.CodeTransport)
	assert.Equal(t, got.SecondsInError, uint16(1))
}

func TestStatusDisabled(t *testing.T) {
	app := &App{Device: configuredDevice()}
	w := get(t, app, "/status")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	app := &App{Device: configuredDevice()}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "http://example.com/device", nil)
	app.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
