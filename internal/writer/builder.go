// internal/writer/builder.go
package writer

import (
	"time"

	cfg "github.com/tamzrod/vds-bridge/internal/config"
	wmodbus "github.com/tamzrod/vds-bridge/internal/writer/modbus"
)

// BuildStatusPlan converts the optional status config into a StatusPlan.
// Returns nil when the status block is disabled.
func BuildStatusPlan(s *cfg.StatusConfig) *StatusPlan {
	if s == nil {
		return nil
	}
	return &StatusPlan{
		Endpoint:   s.Endpoint,
		UnitID:     s.UnitID,
		BaseSlot:   s.Slot,
		DeviceName: s.DeviceName,
	}
}

// BuildStatusWriter connects the status memory client and wraps it.
// The returned closer releases the connection.
func BuildStatusWriter(s *cfg.StatusConfig) (StatusWriter, func() error, error) {
	plan := BuildStatusPlan(s)
	if plan == nil {
		return nil, func() error { return nil }, nil
	}

	cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	sw, _ := NewDeviceStatusWriter(plan, cli)
	return sw, cli.Close, nil
}
