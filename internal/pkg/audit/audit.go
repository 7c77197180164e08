// Package audit provides audit logging for security- and retention-relevant
// operations: logins and the retention job's periodic drops.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Event represents one audit event (structured for compliance and retention).
type Event struct {
	Time      string `json:"time"` // ISO8601
	Action    string `json:"action"` // "login" | "retention_drop"
	RequestID string `json:"request_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Outcome   string `json:"outcome"` // "success" | "unknown_user" | "wrong_password"
	Message   string `json:"message,omitempty"`
}

var auditLog = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// LogLogin records a login attempt. Call from the auth handler after
// Login returns (success or failure); never logs the submitted password.
func LogLogin(requestID, username, outcome, message string) {
	e := Event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Action:    "login",
		RequestID: requestID,
		Username:  username,
		Outcome:   outcome,
		Message:   message,
	}
	auditLog.Info("audit", "event", mustMarshal(e))
}

// RetentionEvent is the audit payload for a retention job run.
type RetentionEvent struct {
	Time         string `json:"time"`
	Action       string `json:"action"`
	CutoffBefore string `json:"cutoff_before"`
	RowsDropped  int64  `json:"rows_dropped"`
	Outcome      string `json:"outcome"`
	Message      string `json:"message,omitempty"`
}

// LogRetentionDrop records a single retention job run (Store.DropBefore call).
func LogRetentionDrop(cutoff time.Time, rowsDropped int64, outcome, message string) {
	e := RetentionEvent{
		Time:         time.Now().UTC().Format(time.RFC3339Nano),
		Action:       "retention_drop",
		CutoffBefore: cutoff.UTC().Format(time.RFC3339),
		RowsDropped:  rowsDropped,
		Outcome:      outcome,
		Message:      message,
	}
	auditLog.Info("audit", "event", mustMarshal(e))
}

func mustMarshal(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
