package model

import (
	"time"
)

const (
	RequirementStatusNew       = "new"
	RequirementStatusPending   = "pending"
	RequirementStatusCompleted = "completed"
	RequirementStatusRejected  = "rejected"
)

// Requirement is a customer request for a custom manufacturing quote.
type Requirement struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Description string    `db:"description"`
	FilePath    string    `db:"file_path"`
	FileName    string    `db:"file_name"`
	Status      string    `db:"status"`
	Email       string    `db:"email"`
	CreatedAt   time.Time `db:"created_at"`
}

// IsValidRequirementStatus reports whether status may be set by an admin.
func IsValidRequirementStatus(status string) bool {
	switch status {
	case RequirementStatusPending, RequirementStatusCompleted, RequirementStatusRejected:
		return true
	}
	return false
}
