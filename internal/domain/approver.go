package domain

import "time"

type ApproverStatus string

const (
	ApproverActive   ApproverStatus = "active"
	ApproverInactive ApproverStatus = "inactive"
)

// Approver is one entry of the active user directory. ID is the identity
// that threshold tables and rule actions reference.
type Approver struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Role    string         `json:"role"`
	Status  ApproverStatus `json:"status"`
	AddedAt time.Time      `json:"added_at"`
}
