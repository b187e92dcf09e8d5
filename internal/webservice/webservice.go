// internal/webservice/webservice.go
package webservice

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/flash"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/status"
)

const contentType = "application/json; charset=UTF-8"

// Device is the read-only view of the session the API serves.
type Device interface {
	Identity() scope.Identity
	State() scope.State
	Info() *flash.Info
}

// App serves the HTTP status API. Tracker may be nil.
type App struct {
	Device  Device
	Tracker *status.Tracker
	Log     zerolog.Logger
}

// DeviceStatus is the GET /device body.
type DeviceStatus struct {
	Make     string   `json:"make"`
	Model    string   `json:"model"`
	Serial   string   `json:"serial"`
	Firmware string   `json:"firmware"`
	Legacy   bool     `json:"legacy"`
	OEM      bool     `json:"oem"`
	Locales  []string `json:"locales"`
	State    string   `json:"state"`
}

// Calibration is the GET /device/calibration body.
type Calibration struct {
	Ranges   []string            `json:"ranges"`
	Channels []flash.Calibration `json:"channels"`
}

// BridgeStatus is the GET /status body.
type BridgeStatus struct {
	status.Snapshot
	HealthName string `json:"health_name"`
}

func (app *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/device", app.DeviceHandler).Methods("GET")
	r.HandleFunc("/device/calibration", app.CalibrationHandler).Methods("GET")
	r.HandleFunc("/status", app.StatusHandler).Methods("GET")
	return r
}

func (app *App) DeviceHandler(w http.ResponseWriter, r *http.Request) {
	id := app.Device.Identity()
	resp := DeviceStatus{
		Make:     id.Make,
		Model:    id.Model,
		Serial:   id.Serial,
		Firmware: id.Firmware,
		Locales:  []string{},
		State:    app.Device.State().String(),
	}
	if info := app.Device.Info(); info != nil {
		resp.Legacy = info.Legacy
		resp.OEM = info.OEM
		for i, on := range info.Locales {
			if on {
				resp.Locales = append(resp.Locales, flash.Locales[i])
			}
		}
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *App) CalibrationHandler(w http.ResponseWriter, r *http.Request) {
	info := app.Device.Info()
	if info == nil {
		app.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "calibration not loaded"})
		return
	}

	resp := Calibration{Channels: info.Calibration[:]}
	for i := 0; i < flash.Ranges; i++ {
		resp.Ranges = append(resp.Ranges, flash.Range(i).String())
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *App) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if app.Tracker == nil {
		app.writeJSON(w, http.StatusNotFound, map[string]string{"error": "status tracking disabled"})
		return
	}
	snap := app.Tracker.Snapshot()
	app.writeJSON(w, http.StatusOK, BridgeStatus{Snapshot: snap, HealthName: status.HealthName(snap.Health)})
}

func (app *App) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.Log.Error().Err(err).Msg("webservice: malformed JSON")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		app.Log.Debug().Err(err).Msg("webservice: write failed")
	}
}
