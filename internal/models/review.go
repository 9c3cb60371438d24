package models

import "time"

type ReviewerRole string

const (
	ReviewerTeacher  ReviewerRole = "teacher"
	ReviewerIndustry ReviewerRole = "industry"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is keyed by (SelectionID, ReviewerID); re-submission updates the row.
type Review struct {
	Model
	SelectionID  string       `gorm:"size:36;not null;uniqueIndex:idx_review_reviewer" json:"selectionId"`
	ReviewerID   string       `gorm:"size:36;not null;uniqueIndex:idx_review_reviewer" json:"reviewerId"`
	ReviewerRole ReviewerRole `gorm:"type:varchar(20);not null" json:"reviewerRole"`
	Rating       int          `gorm:"not null" json:"rating"`
	Comments     string       `gorm:"type:text" json:"comments"`
	ReviewedAt   time.Time    `json:"reviewedAt"`
}
