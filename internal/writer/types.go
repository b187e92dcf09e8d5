// internal/writer/types.go
package writer

import "github.com/tamzrod/vds-bridge/internal/poller"

// StatusPlan is where the device status block lives.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Writer delivers poll results somewhere.
type Writer interface {
	Write(res poller.PollResult) error
}
