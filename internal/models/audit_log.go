package models

import "time"

const (
	AuditInitiated = "initiated"
	AuditCreated   = "created_from_callback"
	AuditApplied   = "callback_applied"
	AuditReplayed  = "callback_replayed"
	AuditConflict  = "callback_conflict"
)

type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
