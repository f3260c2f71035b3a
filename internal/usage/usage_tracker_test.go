package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	// Avoid background autosave during the test (debounce uses AfterFunc).
	tracker.dirty = true

	ctx := WithSession(context.Background(), "sess_1")
	tracker.Track(ctx, "glm-4.6", "zai", 10, 5, "chat")
	tracker.Track(ctx, "glm-4.6", "zai", 2, 3, "chat")

	stats := tracker.Stats()
	if stats.TotalProject.Input != 12 || stats.TotalProject.Output != 8 || stats.TotalProject.Total != 20 {
		t.Fatalf("TotalProject=%+v, want input=12 output=8 total=20", stats.TotalProject)
	}
	if got := stats.ByProvider["zai"]; got.Total != 20 {
		t.Fatalf("ByProvider[zai]=%+v, want total=20", got)
	}
	if got := stats.ByModel["glm-4.6"]; got.Total != 20 {
		t.Fatalf("ByModel[glm-4.6]=%+v, want total=20", got)
	}
	if got := stats.ByOperation["chat"]; got.Total != 20 {
		t.Fatalf("ByOperation[chat]=%+v, want total=20", got)
	}
	if got := stats.BySession["sess_1"]; got.Total != 20 {
		t.Fatalf("BySession[sess_1]=%+v, want total=20", got)
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, ".graft", "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.TotalProject.Total != 20 {
		t.Fatalf("persisted total=%d, want 20", persisted.Aggregate.TotalProject.Total)
	}
}

func TestTracker_UntaggedContextFallsBackToUnknown(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.dirty = true

	tracker.Track(context.Background(), "gpt-4o", "openai", 7, 1, "completion")

	stats := tracker.Stats()
	if got := stats.BySession["unknown"]; got.Total != 8 {
		t.Fatalf("BySession[unknown]=%+v, want total=8", got)
	}
}

func TestTracker_LoadRestoresExistingAggregates(t *testing.T) {
	ws := t.TempDir()

	first, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	first.dirty = true
	first.Track(WithSession(context.Background(), "sess_a"), "claude-sonnet-4", "anthropic", 100, 50, "chat")
	if err := first.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker (reload): %v", err)
	}
	stats := second.Stats()
	if stats.TotalProject.Total != 150 {
		t.Fatalf("reloaded total=%d, want 150", stats.TotalProject.Total)
	}
	if got := stats.ByProvider["anthropic"]; got.Input != 100 {
		t.Fatalf("ByProvider[anthropic]=%+v, want input=100", got)
	}
}

func TestTracker_ContextHelpers(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := NewContext(context.Background(), tracker)
	if got := FromContext(ctx); got == nil {
		t.Fatalf("FromContext returned nil")
	}
	if got := FromContext(ctx); got != tracker {
		t.Fatalf("FromContext mismatch")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext on bare context = %v, want nil", got)
	}

	ctx = WithSession(ctx, "sess_9")
	if got := SessionFromContext(ctx); got != "sess_9" {
		t.Fatalf("SessionFromContext = %q, want sess_9", got)
	}
}
