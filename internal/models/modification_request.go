package models

import (
	"time"

	"gorm.io/datatypes"
)

type RequestType string

const (
	RequestEdit   RequestType = "edit"
	RequestDelete RequestType = "delete"
)

// ModificationRequest asks an admin to edit or delete a locked project.
// PendingKey equals ProjectID while pending; its unique index keeps one
// pending request per project.
type ModificationRequest struct {
	ID              string                           `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time                        `json:"createdAt"`
	UpdatedAt       time.Time                        `json:"updatedAt"`
	ProjectID       string                           `gorm:"size:36;not null;index" json:"projectId"`
	RequestType     RequestType                      `gorm:"type:varchar(20);not null" json:"requestType"`
	RequestedBy     string                           `gorm:"size:36;not null" json:"requestedBy"`
	Status          RequestStatus                    `gorm:"type:varchar(20);not null;index" json:"status"`
	Reason          string                           `gorm:"type:text" json:"reason"`
	ProposedChanges datatypes.JSONType[ProjectPatch] `json:"proposedChanges"`
	PendingKey      *string                          `gorm:"size:36;uniqueIndex" json:"-"`
	ActionedBy      string                           `gorm:"size:36" json:"actionedBy,omitempty"`
	ActionedAt      *time.Time                       `json:"actionedAt,omitempty"`
}
