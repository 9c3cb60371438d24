package models

import (
	"time"

	"gorm.io/datatypes"
)

type Submission struct {
	Model
	SelectionID string                          `gorm:"size:36;not null;index" json:"selectionId"`
	ProjectID   string                          `gorm:"size:36;not null;index" json:"projectId"`
	SubmittedBy string                          `gorm:"size:36;not null" json:"submittedBy"`
	Files       datatypes.JSONSlice[Attachment] `json:"files"`
	Comments    string                          `gorm:"type:text" json:"comments"`
	SubmittedAt time.Time                       `gorm:"index" json:"submittedAt"`
}
