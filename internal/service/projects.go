package service

import (
	"context"
	"strings"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// projectContentColumns are the columns an owner edit may touch.
var projectContentColumns = []string{
	"title", "description", "required_skills", "duration_start", "duration_end",
	"max_groups", "max_students_per_group", "attachments", "updated_at",
}

// ProjectRegistry owns Project records and their edit lock.
type ProjectRegistry struct {
	db *gorm.DB
}

func NewProjectRegistry(db *gorm.DB) *ProjectRegistry {
	return &ProjectRegistry{db: db}
}

type CreateProjectInput struct {
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	RequiredSkills      []string            `json:"requiredSkills"`
	Start               time.Time           `json:"start"`
	End                 time.Time           `json:"end"`
	MaxGroups           int                 `json:"maxGroups"`
	MaxStudentsPerGroup int                 `json:"maxStudentsPerGroup"`
	Attachments         []models.Attachment `json:"attachments"`
}

type ProjectFilter struct {
	OwnerID    string
	EditStatus models.EditStatus
	// ApprovedFor lists only projects approved by this university.
	ApprovedFor string
}

func (r *ProjectRegistry) Create(ctx context.Context, actor models.Actor, in CreateProjectInput) (*models.Project, error) {
	if err := requireRole(actor, models.RoleIndustry); err != nil {
		return nil, err
	}

	skills := make([]string, 0, len(in.RequiredSkills))
	for _, s := range in.RequiredSkills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	project := models.Project{
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		RequiredSkills:      datatypes.JSONSlice[string](skills),
		Duration:            models.Duration{Start: in.Start, End: in.End},
		MaxGroups:           in.MaxGroups,
		MaxStudentsPerGroup: in.MaxStudentsPerGroup,
		EditStatus:          models.EditUnlocked,
		OwnerID:             actor.ID,
		Attachments:         datatypes.JSONSlice[models.Attachment](in.Attachments),
	}
	if project.Attachments == nil {
		project.Attachments = datatypes.JSONSlice[models.Attachment]{}
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return apperr.Wrap(err, "failed to create project")
		}
		return database.CreateAuditLog(tx, actor.ID, "project", project.ID, "create", map[string]string{"title": project.Title})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to create project")
	}

	logutils.Log.WithFields(logutils.Fields{"project": project.ID, "owner": actor.ID}).Info("project created")
	return &project, nil
}

func (r *ProjectRegistry) Get(ctx context.Context, id string) (*models.Project, error) {
	return loadProject(r.db.WithContext(ctx), id)
}

func (r *ProjectRegistry) List(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.EditStatus != "" {
		q = q.Where("edit_status = ?", f.EditStatus)
	}
	if f.ApprovedFor != "" {
		approved := r.db.Model(&models.UniversityApproval{}).
			Select("project_id").
			Where("university = ? AND status = ?", f.ApprovedFor, models.ApprovalApproved)
		q = q.Where("id IN (?)", approved)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, apperr.Wrap(err, "failed to list projects")
	}
	return projects, nil
}

// Update applies patch directly. Only the owner may do so, and only while
// the project is unlocked; locked projects change through a modification
// request.
func (r *ProjectRegistry) Update(ctx context.Context, actor models.Actor, id string, patch models.ProjectPatch) (*models.Project, error) {
	var project *models.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, id)
		if err != nil {
			return err
		}
		if p.OwnerID != actor.ID {
			return apperr.Forbidden("only the project owner can edit the project")
		}
		if p.Locked() {
			return apperr.Conflict("project is locked; submit a modification request")
		}
		if patch.IsEmpty() {
			project = p
			return nil
		}

		prior := p.Apply(patch)
		if err := validateProject(*p); err != nil {
			return err
		}
		// an admin may have unlocked a project that already has groups
		if err := checkShrink(tx, p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now()
		res := tx.Model(p).
			Where("edit_status = ?", models.EditUnlocked).
			Select(projectContentColumns).
			Updates(p)
		if res.Error != nil {
			return apperr.Wrap(res.Error, "failed to update project")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project is locked; submit a modification request")
		}
		if err := database.CreateAuditLog(tx, actor.ID, "project", p.ID, "update", map[string]any{"prior": prior, "applied": patch}); err != nil {
			return apperr.Wrap(err, "failed to write audit log")
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes an unlocked project and its dependents.
func (r *ProjectRegistry) Delete(ctx context.Context, actor models.Actor, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, id)
		if err != nil {
			return err
		}
		if p.OwnerID != actor.ID {
			return apperr.Forbidden("only the project owner can delete the project")
		}
		// edit status is re-checked by the delete statement itself
		res := tx.Where("id = ? AND edit_status = ?", id, models.EditUnlocked).Delete(&models.Project{})
		if res.Error != nil {
			return apperr.Wrap(res.Error, "failed to delete project")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("project is locked; submit a delete request")
		}
		if err := softDeleteProject(tx, id); err != nil {
			return err
		}
		return database.CreateAuditLog(tx, actor.ID, "project", id, "delete", map[string]string{"title": p.Title})
	})
}

// Lock freezes direct edits. Locking a locked project is a no-op.
func (r *ProjectRegistry) Lock(ctx context.Context, id string) (*models.Project, error) {
	return r.setStatus(ctx, id, models.EditLocked)
}

// Unlock re-opens direct edits. Unlocking an unlocked project is a no-op.
func (r *ProjectRegistry) Unlock(ctx context.Context, id string) (*models.Project, error) {
	return r.setStatus(ctx, id, models.EditUnlocked)
}

func (r *ProjectRegistry) setStatus(ctx context.Context, id string, status models.EditStatus) (*models.Project, error) {
	db := r.db.WithContext(ctx)
	if _, err := loadProject(db, id); err != nil {
		return nil, err
	}
	changed, err := setEditStatus(db, id, status)
	if err != nil {
		return nil, err
	}
	if changed {
		logutils.Log.WithFields(logutils.Fields{"project": id, "editStatus": status}).Info("project edit status changed")
	}
	return loadProject(db, id)
}

func validateProject(p models.Project) error {
	fields := map[string]string{}
	if len([]rune(p.Title)) < 3 {
		fields["title"] = "title must be at least 3 characters"
	}
	if p.MaxGroups < 1 {
		fields["maxGroups"] = "maxGroups must be at least 1"
	}
	if p.MaxStudentsPerGroup < 1 {
		fields["maxStudentsPerGroup"] = "maxStudentsPerGroup must be at least 1"
	}
	if p.Duration.Start.IsZero() || p.Duration.End.IsZero() {
		fields["duration"] = "start and end dates are required"
	} else if !p.Duration.End.After(p.Duration.Start) {
		fields["duration"] = "end date must be after start date"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid project", fields)
	}
	return nil
}
