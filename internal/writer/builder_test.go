// internal/writer/builder_test.go
package writer

import (
	"testing"

	cfg "github.com/tamzrod/vds-bridge/internal/config"
)

func TestBuildStatusPlan_Disabled(t *testing.T) {
	if p := BuildStatusPlan(nil); p != nil {
		t.Fatalf("expected nil plan, got %+v", p)
	}

	sw, closeFn, err := BuildStatusWriter(nil)
	if err != nil || sw != nil {
		t.Fatalf("disabled status: sw=%v err=%v", sw, err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

func TestBuildStatusPlan(t *testing.T) {
	p := BuildStatusPlan(&cfg.StatusConfig{
		Endpoint:   "127.0.0.1:502",
		UnitID:     3,
		Slot:       4,
		DeviceName: "BENCH-A",
	})
	if p == nil {
		t.Fatalf("expected plan")
	}
	if p.Endpoint != "127.0.0.1:502" || p.UnitID != 3 || p.BaseSlot != 4 || p.DeviceName != "BENCH-A" {
		t.Fatalf("unexpected plan: %+v", *p)
	}
}
