package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionGroupCreate      = "GROUP_CREATE"
	AuditActionGroupDelete      = "GROUP_DELETE"
	AuditActionSectionCreate    = "SECTION_CREATE"
	AuditActionAssignmentCreate = "ASSIGNMENT_CREATE"
	AuditActionAssignmentBatch  = "ASSIGNMENT_BATCH"
	AuditActionAssignmentRemove = "ASSIGNMENT_REMOVE"
	AuditActionDecisionCommit   = "OVERCAPACITY_DECISION"
	AuditActionResolutionCancel = "RESOLUTION_CANCEL"
	AuditActionRosterExport     = "ROSTER_EXPORT"
)

// AuditLog represents an audit trail record. Records are written
// asynchronously; a failed write never fails the action that produced it.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Payload    []byte    `db:"payload" json:"payload,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
