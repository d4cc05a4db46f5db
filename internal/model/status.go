package model

// Backup execution status constants, shared by all backup kinds.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Storage configuration status constants.
const (
	StorageStatusActive   = "active"
	StorageStatusTesting  = "testing"
	StorageStatusInactive = "inactive"
)

// StatusColor returns the UI color for a backup execution status.
func StatusColor(status string) string {
	switch status {
	case StatusCompleted:
		return "green"
	case StatusRunning:
		return "blue"
	case StatusFailed:
		return "red"
	default:
		return "yellow"
	}
}

// StatusLabel returns the display label for a backup execution status.
func StatusLabel(status string) string {
	switch status {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return status
	}
}
