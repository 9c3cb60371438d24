package models

import "time"

type SelectionStatus struct {
	IndustryCompleted bool `gorm:"not null;default:false" json:"industryCompleted"`
	TeacherCompleted  bool `gorm:"not null;default:false" json:"teacherCompleted"`
	IsCompleted       bool `gorm:"not null;default:false;index" json:"isCompleted"`
}

// Selection is a group of students from one university that claimed a
// project.
type Selection struct {
	Model
	ProjectID   string          `gorm:"size:36;not null;index" json:"projectId"`
	University  string          `gorm:"size:255;not null" json:"university"`
	GroupLeader string          `gorm:"size:36;not null" json:"groupLeader"`
	JoinedAt    time.Time       `json:"joinedAt"`
	Status      SelectionStatus `gorm:"embedded;embeddedPrefix:status_" json:"status"`

	// ActiveClaim holds ProjectUniversityKey while the group is open and is
	// cleared on completion. Its unique index is the claim itself.
	ActiveClaim *string `gorm:"size:300;uniqueIndex" json:"-"`
	// Version is bumped on every membership change.
	Version int `gorm:"not null;default:0" json:"-"`

	GroupMembers []string `gorm:"-" json:"groupMembers"`
}

type SelectionMember struct {
	Model
	SelectionID string    `gorm:"size:36;not null;uniqueIndex:idx_selection_member" json:"selectionId"`
	StudentID   string    `gorm:"size:36;not null;uniqueIndex:idx_selection_member;index" json:"studentId"`
	JoinedAt    time.Time `json:"joinedAt"`
}
