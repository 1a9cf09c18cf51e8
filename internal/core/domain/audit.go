package domain

import (
	"errors"
	"time"
)

// AuditAction represents a type-safe action identifier for the audit log.
type AuditAction string

// System Audit Actions
const (
	ActionScan           AuditAction = "SCAN_INITIATED"
	ActionCaptureStart   AuditAction = "CAPTURE_STARTED"
	ActionCaptureFinish  AuditAction = "CAPTURE_FINISHED"
	ActionDeauthStart    AuditAction = "DEAUTH_STARTED"
	ActionDeauthFinish   AuditAction = "DEAUTH_FINISHED"
	ActionCrackStart     AuditAction = "CRACK_STARTED"
	ActionCrackFinish    AuditAction = "CRACK_FINISHED"
	ActionCycleCancelled AuditAction = "CYCLE_CANCELLED"
	ActionInfo           AuditAction = "INFO"
)

// Domain Errors
var (
	ErrInvalidAction = errors.New("invalid audit action")
)

// AuditLog represents a record of a security-sensitive action. This is a
// pure domain entity; persistence metadata lives in the storage adapter.
type AuditLog struct {
	ID        uint        `json:"id"`
	Actor     string      `json:"actor"`
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"` // The resource affected (e.g. BSSID, file path)
	Details   string      `json:"details"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog is the designated factory for creating valid AuditLog entities.
func NewAuditLog(actor string, action AuditAction, target, details string) (*AuditLog, error) {
	if actor == "" {
		actor = "operator"
	}
	if !isValidAction(action) {
		return nil, ErrInvalidAction
	}
	return &AuditLog{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, nil
}

// isValidAction encapsulates the validation logic for audit actions.
func isValidAction(action AuditAction) bool {
	switch action {
	case ActionScan, ActionCaptureStart, ActionCaptureFinish,
		ActionDeauthStart, ActionDeauthFinish, ActionCrackStart,
		ActionCrackFinish, ActionCycleCancelled, ActionInfo:
		return true
	}
	return false
}
