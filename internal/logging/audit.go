// Audit logging for graft: structured JSON-line events recording every file
// mutation, model call, and round boundary so a run can be reconstructed
// after the fact.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// File application events
	AuditApplyCreate    AuditEventType = "apply_create"
	AuditApplyEdit      AuditEventType = "apply_edit"
	AuditApplyDelete    AuditEventType = "apply_delete"
	AuditApplyFullWrite AuditEventType = "apply_full_write"
	AuditApplyDiff      AuditEventType = "apply_diff"
	AuditApplySkip      AuditEventType = "apply_skip"
	AuditApplyError     AuditEventType = "apply_error"
	AuditPathBlocked    AuditEventType = "path_blocked"
	AuditBackupWritten  AuditEventType = "backup_written"

	// LLM API events
	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"

	// Round/run events
	AuditRunStart   AuditEventType = "run_start"
	AuditRunEnd     AuditEventType = "run_end"
	AuditRoundStart AuditEventType = "round_start"
	AuditRoundEnd   AuditEventType = "round_end"

	// Session events
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"
)

// AuditEvent represents a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat,omitempty"`
	SessionID  string                 `json:"session,omitempty"`
	RunID      string                 `json:"run,omitempty"`
	Target     string                 `json:"target,omitempty"` // Path or model name
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging
type AuditLogger struct {
	sessionID string
	runID     string
	category  Category
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithSession creates an audit logger scoped to a session
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// AuditWithRun creates an audit logger scoped to a session and run
func AuditWithRun(sessionID, runID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, runID: runID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" && a.sessionID != "" {
		event.SessionID = a.sessionID
	}
	if event.RunID == "" && a.runID != "" {
		event.RunID = a.runID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// FileOp logs a file application event
func (a *AuditLogger) FileOp(op AuditEventType, path string, linesAffected int, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    path,
		Success:   success,
		Error:     errMsg,
		Fields:    map[string]interface{}{"lines": linesAffected},
		Message:   fmt.Sprintf("File %s: %s (%d lines, success=%v)", op, path, linesAffected, success),
	})
}

// PathBlocked logs a rejected write path
func (a *AuditLogger) PathBlocked(path, reason string) {
	a.Log(AuditEvent{
		EventType: AuditPathBlocked,
		Target:    path,
		Success:   false,
		Fields:    map[string]interface{}{"reason": reason},
		Message:   fmt.Sprintf("Path blocked: %s (%s)", path, reason),
	})
}

// BackupWritten logs a backup file creation
func (a *AuditLogger) BackupWritten(path, backupPath string) {
	a.Log(AuditEvent{
		EventType: AuditBackupWritten,
		Target:    path,
		Success:   true,
		Fields:    map[string]interface{}{"backup": backupPath},
		Message:   fmt.Sprintf("Backup written: %s -> %s", path, backupPath),
	})
}

// LLMCall logs an LLM API call
func (a *AuditLogger) LLMCall(model string, tokens int, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditLLMResponse,
		Target:     model,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"tokens": tokens},
		Message:    fmt.Sprintf("LLM call: %s -> %d tokens (%dms, success=%v)", model, tokens, durationMs, success),
	})
}

// RoundEnd logs a completed round
func (a *AuditLogger) RoundEnd(round, applied, failed, tokens int) {
	a.Log(AuditEvent{
		EventType: AuditRoundEnd,
		Success:   failed == 0,
		Fields: map[string]interface{}{
			"round":   round,
			"applied": applied,
			"failed":  failed,
			"tokens":  tokens,
		},
		Message: fmt.Sprintf("Round %d: %d applied, %d failed, %d tokens", round, applied, failed, tokens),
	})
}

// RunEnd logs a completed run with its stop reason
func (a *AuditLogger) RunEnd(rounds int, stopReason string, totalTokens int) {
	a.Log(AuditEvent{
		EventType: AuditRunEnd,
		Success:   true,
		Fields: map[string]interface{}{
			"rounds": rounds,
			"stop":   stopReason,
			"tokens": totalTokens,
		},
		Message: fmt.Sprintf("Run finished: %d rounds, stop=%s, %d tokens", rounds, stopReason, totalTokens),
	})
}

// SessionEvent logs a session lifecycle event
func (a *AuditLogger) SessionEvent(event AuditEventType, sessionID string) {
	a.Log(AuditEvent{
		EventType: event,
		SessionID: sessionID,
		Success:   true,
		Message:   fmt.Sprintf("Session %s: %s", event, sessionID),
	})
}
