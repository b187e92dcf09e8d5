// internal/scope/identity.go
package scope

const (
	Make  = "OWON"
	Model = "VDS1022"
)

// Identity is what the instrument reports about itself.
type Identity struct {
	Make     string
	Model    string
	Serial   string
	Firmware string
}

// Identity returns make/model and, once calibration is loaded, the serial
// number and firmware version read from flash.
func (s *Session) Identity() Identity {
	id := Identity{Make: Make, Model: Model}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info != nil {
		id.Serial = s.info.Serial
		id.Firmware = s.info.DeviceVersion
	}
	return id
}
