package models

import (
	"time"

	"gorm.io/datatypes"
)

type EditStatus string

const (
	EditUnlocked EditStatus = "unlocked"
	EditLocked   EditStatus = "locked"
)

type Duration struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Attachment struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

type Project struct {
	Model
	Title               string                          `gorm:"size:255;not null" json:"title"`
	Description         string                          `gorm:"type:text" json:"description"`
	RequiredSkills      datatypes.JSONSlice[string]     `json:"requiredSkills"`
	Duration            Duration                        `gorm:"embedded;embeddedPrefix:duration_" json:"duration"`
	MaxGroups           int                             `gorm:"not null" json:"maxGroups"`
	MaxStudentsPerGroup int                             `gorm:"not null" json:"maxStudentsPerGroup"`
	EditStatus          EditStatus                      `gorm:"type:varchar(20);not null;index" json:"editStatus"`
	OwnerID             string                          `gorm:"size:36;not null;index" json:"ownerId"`
	Attachments         datatypes.JSONSlice[Attachment] `json:"attachments"`
}

func (p Project) Locked() bool { return p.EditStatus == EditLocked }

func (p Project) IsExpired(now time.Time) bool {
	return !p.Duration.End.IsZero() && p.Duration.End.Before(now)
}

// ProjectPatch is a partial update; nil fields are left alone.
type ProjectPatch struct {
	Title               *string       `json:"title,omitempty"`
	Description         *string       `json:"description,omitempty"`
	RequiredSkills      *[]string     `json:"requiredSkills,omitempty"`
	StartDate           *time.Time    `json:"startDate,omitempty"`
	EndDate             *time.Time    `json:"endDate,omitempty"`
	MaxGroups           *int          `json:"maxGroups,omitempty"`
	MaxStudentsPerGroup *int          `json:"maxStudentsPerGroup,omitempty"`
	Attachments         *[]Attachment `json:"attachments,omitempty"`
}

func (p ProjectPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.RequiredSkills == nil &&
		p.StartDate == nil && p.EndDate == nil && p.MaxGroups == nil &&
		p.MaxStudentsPerGroup == nil && p.Attachments == nil
}

// Apply merges the patch into p and returns the values it replaced.
func (p *Project) Apply(patch ProjectPatch) ProjectPatch {
	var prior ProjectPatch
	if patch.Title != nil {
		old := p.Title
		prior.Title = &old
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		old := p.Description
		prior.Description = &old
		p.Description = *patch.Description
	}
	if patch.RequiredSkills != nil {
		old := []string(p.RequiredSkills)
		prior.RequiredSkills = &old
		p.RequiredSkills = datatypes.JSONSlice[string](*patch.RequiredSkills)
	}
	if patch.StartDate != nil {
		old := p.Duration.Start
		prior.StartDate = &old
		p.Duration.Start = *patch.StartDate
	}
	if patch.EndDate != nil {
		old := p.Duration.End
		prior.EndDate = &old
		p.Duration.End = *patch.EndDate
	}
	if patch.MaxGroups != nil {
		old := p.MaxGroups
		prior.MaxGroups = &old
		p.MaxGroups = *patch.MaxGroups
	}
	if patch.MaxStudentsPerGroup != nil {
		old := p.MaxStudentsPerGroup
		prior.MaxStudentsPerGroup = &old
		p.MaxStudentsPerGroup = *patch.MaxStudentsPerGroup
	}
	if patch.Attachments != nil {
		old := []Attachment(p.Attachments)
		prior.Attachments = &old
		p.Attachments = datatypes.JSONSlice[Attachment](*patch.Attachments)
	}
	return prior
}
