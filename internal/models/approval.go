package models

import "time"

// ApprovalState is the per-university decision on a project. Pending is a
// state of its own, not the absence of one.
type ApprovalState string

const (
	ApprovalPending      ApprovalState = "pending"
	ApprovalApproved     ApprovalState = "approved"
	ApprovalRejected     ApprovalState = "rejected"
	ApprovalNeedMoreInfo ApprovalState = "needMoreInfo"
)

func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalNeedMoreInfo:
		return true
	}
	return false
}

type UniversityApproval struct {
	Model
	ProjectID  string        `gorm:"size:36;not null;uniqueIndex:idx_approval_project_university" json:"projectId"`
	University string        `gorm:"size:255;not null;uniqueIndex:idx_approval_project_university" json:"university"`
	TeacherID  string        `gorm:"size:36" json:"teacherId"`
	Status     ApprovalState `gorm:"type:varchar(20);not null" json:"status"`
	Comments   string        `gorm:"type:text" json:"comments"`
	DecisionAt *time.Time    `json:"decisionAt,omitempty"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// SupervisionRequest is a teacher's claim to supervise a project for
// their university. HolderKey is set only while approved, so the unique
// index admits one approved teacher per (project, university).
type SupervisionRequest struct {
	Model
	ProjectID  string        `gorm:"size:36;not null;uniqueIndex:idx_supervision_request" json:"projectId"`
	TeacherID  string        `gorm:"size:36;not null;uniqueIndex:idx_supervision_request" json:"teacherId"`
	University string        `gorm:"size:255;not null;uniqueIndex:idx_supervision_request" json:"university"`
	Status     RequestStatus `gorm:"type:varchar(20);not null" json:"status"`
	Comments   string        `gorm:"type:text" json:"comments"`
	HolderKey  *string       `gorm:"size:300;uniqueIndex" json:"-"`
}

func ProjectUniversityKey(projectID, university string) string {
	return projectID + "|" + university
}
