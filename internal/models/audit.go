package models

import (
	"encoding/json"
	"time"
)

// AuditAction labels recorded administrative actions.
type AuditAction string

const (
	AuditActionLogin            AuditAction = "auth.login"
	AuditActionLogout           AuditAction = "auth.logout"
	AuditActionPasswordChange   AuditAction = "auth.password_change"
	AuditActionUserCreate       AuditAction = "user.create"
	AuditActionUserUpdate       AuditAction = "user.update"
	AuditActionCourseCreate     AuditAction = "course.create"
	AuditActionCourseAssign     AuditAction = "course.assign_instructor"
	AuditActionEnrollmentCreate AuditAction = "enrollment.create"
	AuditActionEnrollmentDelete AuditAction = "enrollment.delete"
)

// AuditLog records who changed what. Writes are best-effort: a failed audit
// insert is logged, never surfaced to the caller.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction     `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  json.RawMessage `db:"old_values" json:"old_values,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
