package models

import "time"

type NotificationKind string

const (
	NotifyApproval     NotificationKind = "approval"
	NotifySupervision  NotificationKind = "supervision"
	NotifyCompletion   NotificationKind = "completion"
	NotifyModification NotificationKind = "modification"
	NotifyExtension    NotificationKind = "extension"
)

type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time        `json:"createdAt"`
	RecipientID string           `gorm:"size:36;not null;index" json:"recipientId"`
	Kind        NotificationKind `gorm:"type:varchar(30);not null" json:"kind"`
	Subject     string           `gorm:"size:255" json:"subject"`
	Body        string           `gorm:"type:text" json:"body"`
	EntityID    string           `gorm:"size:36" json:"entityId"`
	Read        bool             `gorm:"not null;default:false" json:"read"`
}
