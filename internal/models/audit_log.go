package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ActorID string `gorm:"size:36" json:"actorId"`

	Entity   string         `gorm:"size:50;not null;index:idx_audit_entity" json:"entity"` // "project", "selection", ...
	EntityID string         `gorm:"size:36;index:idx_audit_entity" json:"entityId"`
	Action   string         `gorm:"size:50;not null" json:"action"` // "create", "status_change", ...
	Details  datatypes.JSON `json:"details,omitempty"`
}
