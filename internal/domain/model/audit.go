package model

import "time"

// Исход действия в журнале аудита.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// AuditEntry — запись журнала аудита.
// Хранится в таблице audit_log.
type AuditEntry struct {
	ID      int64
	At      time.Time
	Actor   string
	Action  string
	Target  string
	Outcome string
	Detail  string
}

// AuditFilters — фильтры журнала аудита.
type AuditFilters struct {
	Actor   *string
	Action  *string
	Target  *string
	Outcome *string
}
