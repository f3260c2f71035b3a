package tokens

import (
	"strings"
	"sync"
	"testing"
)

func TestNewTracker_Defaults(t *testing.T) {
	tr := NewTracker("glm-4.6", 0, 0, 0)
	if tr.ContextWindow() != 128000 {
		t.Errorf("ContextWindow = %d, want 128000 default", tr.ContextWindow())
	}
	if tr.Status() != StatusNormal {
		t.Errorf("fresh tracker status = %s", tr.Status())
	}
	if tr.Consumed() != 0 {
		t.Errorf("fresh tracker consumed = %d", tr.Consumed())
	}
}

func TestTracker_AddConsumed(t *testing.T) {
	tr := NewTracker("m", 1000, 0.80, 0.95)
	tr.AddConsumed(300, 0.01)
	tr.AddConsumed(200, 0.02)

	if tr.Consumed() != 500 {
		t.Errorf("Consumed = %d, want 500", tr.Consumed())
	}
	if tr.Remaining() != 500 {
		t.Errorf("Remaining = %d, want 500", tr.Remaining())
	}
	if got := tr.UsageRatio(); got != 0.5 {
		t.Errorf("UsageRatio = %v, want 0.5", got)
	}
	if got := tr.EstimatedCost(); got < 0.029 || got > 0.031 {
		t.Errorf("EstimatedCost = %v, want ~0.03", got)
	}
}

func TestTracker_RemainingFloorsAtZero(t *testing.T) {
	tr := NewTracker("m", 1000, 0.80, 0.95)
	tr.AddConsumed(1500, 0)
	if tr.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", tr.Remaining())
	}
	if tr.UsageRatio() != 1.5 {
		t.Errorf("UsageRatio = %v, want 1.5 (ratio is not clamped)", tr.UsageRatio())
	}
}

func TestTracker_StatusThresholds(t *testing.T) {
	cases := []struct {
		consumed int
		want     Status
	}{
		{0, StatusNormal},
		{799, StatusNormal},
		{800, StatusWarning}, // thresholds are inclusive
		{949, StatusWarning},
		{950, StatusCritical},
		{1200, StatusCritical},
	}
	for _, tc := range cases {
		tr := NewTracker("m", 1000, 0.80, 0.95)
		tr.AddConsumed(tc.consumed, 0)
		if got := tr.Status(); got != tc.want {
			t.Errorf("consumed %d: status = %s, want %s", tc.consumed, got, tc.want)
		}
	}
}

func TestTracker_CheckThresholds(t *testing.T) {
	tr := NewTracker("m", 1000, 0.80, 0.95)

	if msg, ok := tr.CheckThresholds(); ok {
		t.Errorf("fresh tracker warned: %q", msg)
	}

	tr.AddConsumed(850, 0)
	msg, ok := tr.CheckThresholds()
	if !ok {
		t.Fatal("expected warning at 85%")
	}
	if msg != "Context usage at 85%. Approaching limit." {
		t.Errorf("warning message = %q", msg)
	}

	tr.AddConsumed(110, 0)
	msg, ok = tr.CheckThresholds()
	if !ok {
		t.Fatal("expected critical message at 96%")
	}
	if !strings.Contains(msg, "Consider /clear or /compact") {
		t.Errorf("critical message = %q", msg)
	}
}

func TestTracker_SubtractConsumedClamps(t *testing.T) {
	tr := NewTracker("m", 1000, 0.80, 0.95)
	tr.AddConsumed(100, 0.05)
	tr.SubtractConsumed(250, 0.10)

	if tr.Consumed() != 0 {
		t.Errorf("Consumed = %d, want 0 after over-subtraction", tr.Consumed())
	}
	if tr.EstimatedCost() != 0 {
		t.Errorf("EstimatedCost = %v, want 0", tr.EstimatedCost())
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker("m", 1000, 0.80, 0.95)
	tr.AddConsumed(900, 1.5)
	tr.Reset()

	if tr.Consumed() != 0 || tr.EstimatedCost() != 0 {
		t.Errorf("after reset: consumed=%d cost=%v", tr.Consumed(), tr.EstimatedCost())
	}
	if tr.ContextWindow() != 1000 {
		t.Errorf("reset changed context window to %d", tr.ContextWindow())
	}
}

func TestTracker_SetModel(t *testing.T) {
	tr := NewTracker("small", 1000, 0.80, 0.95)
	tr.AddConsumed(900, 0)
	if tr.Status() != StatusWarning {
		t.Fatalf("status = %s, want warning", tr.Status())
	}

	tr.SetModel("big", 200000)
	if tr.Status() != StatusNormal {
		t.Errorf("status after window growth = %s, want normal", tr.Status())
	}
	if tr.Consumed() != 900 {
		t.Errorf("SetModel changed consumed to %d", tr.Consumed())
	}
}

func TestTracker_SnapshotRestore(t *testing.T) {
	tr := NewTracker("glm-4.6", 128000, 0.80, 0.95)
	tr.AddConsumed(4242, 0.12)

	snap := tr.Snapshot()
	if snap.Consumed != 4242 || snap.ModelName != "glm-4.6" || snap.ContextWindow != 128000 {
		t.Errorf("snapshot = %+v", snap)
	}

	restored := Restore(snap, 0.80, 0.95)
	if restored.Consumed() != 4242 {
		t.Errorf("restored consumed = %d", restored.Consumed())
	}
	if restored.Snapshot() != snap {
		t.Errorf("restore round trip: %+v != %+v", restored.Snapshot(), snap)
	}
}

func TestTracker_ConcurrentAdds(t *testing.T) {
	tr := NewTracker("m", 1_000_000, 0.80, 0.95)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.AddConsumed(1, 0)
				_ = tr.Status()
			}
		}()
	}
	wg.Wait()

	if tr.Consumed() != 5000 {
		t.Errorf("Consumed = %d, want 5000", tr.Consumed())
	}
}
