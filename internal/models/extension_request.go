package models

import "time"

type ExtensionRequest struct {
	Model
	ProjectID        string        `gorm:"size:36;not null;index" json:"projectId"`
	RequestedBy      string        `gorm:"size:36;not null;index" json:"requestedBy"`
	RecipientID      string        `gorm:"size:36;not null;index" json:"recipientId"`
	RequestedEndDate time.Time     `json:"requestedEndDate"`
	FinalEndDate     *time.Time    `json:"finalEndDate,omitempty"`
	Reason           string        `gorm:"type:text" json:"reason"`
	Decision         RequestStatus `gorm:"type:varchar(20);not null" json:"decision"`
	OpenKey          *string       `gorm:"size:80;uniqueIndex" json:"-"`
	SubmittedAt      time.Time     `json:"submittedAt"`
	DecidedAt        *time.Time    `json:"decidedAt,omitempty"`
}

func ExtensionOpenKey(projectID, studentID string) string {
	return projectID + "|" + studentID
}
