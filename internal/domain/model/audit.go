package model

import "time"

// AuditEntry is one append-only row of the moderation trail. Exactly one
// entry is written per status transition, in the same transaction as the
// transition itself; entries are never mutated or deleted.
type AuditEntry struct {
	ID             int64     `json:"id"`
	EntityID       int64     `json:"entityId"`
	Action         string    `json:"action"`
	AdminID        int64     `json:"adminId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"createdAt"`
}
