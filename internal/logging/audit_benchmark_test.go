package logging

import (
	"encoding/json"
	"strings"
	"testing"
)

func BenchmarkAuditEventMarshal(b *testing.B) {
	event := AuditEvent{
		Timestamp: 1700000000000,
		EventType: AuditApplyEdit,
		SessionID: "bench-session",
		Target:    "src/app/handlers.go",
		Success:   true,
		Message:   strings.Repeat("Edited src/app/handlers.go ", 10),
		Fields:    map[string]interface{}{"lines": 42},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(event)
	}
}
