package service

import (
	"context"
	"strings"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"

	"gorm.io/gorm"
)

// GroupSelectionService forms student groups on approved projects.
//
// A university holds at most one open group per project. The claim is the
// unique Selection.ActiveClaim key, so two students racing to create a
// group cannot both succeed; other students join the existing group by
// its id.
type GroupSelectionService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGroupSelectionService(db *gorm.DB) *GroupSelectionService {
	return &GroupSelectionService{db: db, now: time.Now}
}

func (g *GroupSelectionService) CreateNewGroup(ctx context.Context, actor models.Actor, projectID, university string) (*models.Selection, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	university = strings.TrimSpace(university)
	if university == "" {
		university = actor.University
	}
	if university == "" || university != actor.University {
		return nil, apperr.Forbidden("students can only form groups for their own university")
	}

	db := g.db.WithContext(ctx)
	project, err := loadProject(db, projectID)
	if err != nil {
		return nil, err
	}
	approved, err := isApprovedFor(db, projectID, university)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, apperr.Forbidden("project is not approved for your university")
	}
	open, err := g.HasOpenCommitment(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperr.Conflict("you already belong to an open group")
	}
	sel, err := g.claim(ctx, project, actor.ID, university)
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"project":    projectID,
		"university": university,
		"selection":  sel.ID,
	}).Info("group created")
	return sel, nil
}

// claim writes the selection, its leader membership and the project lock
// in one transaction. The active-claim unique index decides races within a
// university; the maxGroups count is taken under the project row lock so
// universities racing for the last slot cannot overshoot it.
func (g *GroupSelectionService) claim(ctx context.Context, project *models.Project, studentID, university string) (*models.Selection, error) {
	now := g.now()
	key := models.ProjectUniversityKey(project.ID, university)
	sel := models.Selection{
		ProjectID:   project.ID,
		University:  university,
		GroupLeader: studentID,
		JoinedAt:    now,
		ActiveClaim: &key,
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, project.ID); err != nil {
			return err
		}
		var groups int64
		if err := tx.Model(&models.Selection{}).Where("project_id = ?", project.ID).Count(&groups).Error; err != nil {
			return apperr.Wrap(err, "failed to count groups")
		}
		if groups >= int64(project.MaxGroups) {
			return apperr.New(apperr.CodeCapacity, "project has no free group slots", nil)
		}

		if err := tx.Create(&sel).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("a group from your university already claimed this project; ask to join it")
			}
			return apperr.Wrap(err, "failed to create group")
		}
		member := models.SelectionMember{SelectionID: sel.ID, StudentID: studentID, JoinedAt: now}
		if err := tx.Create(&member).Error; err != nil {
			return apperr.Wrap(err, "failed to add group leader")
		}
		if _, err := setEditStatus(tx, project.ID, models.EditLocked); err != nil {
			return err
		}
		return database.CreateAuditLog(tx, studentID, "selection", sel.ID, "create",
			map[string]string{"project": project.ID, "university": university})
	})
	if err != nil {
		return nil, err
	}
	sel.GroupMembers = []string{studentID}
	return &sel, nil
}

func (g *GroupSelectionService) JoinExistingGroup(ctx context.Context, actor models.Actor, projectID, selectionID string) (*models.Selection, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	db := g.db.WithContext(ctx)
	sel, err := loadSelection(db, selectionID)
	if err != nil {
		return nil, err
	}
	if sel.ProjectID != projectID {
		return nil, apperr.NotFound("group not found for this project")
	}
	if sel.University != actor.University {
		return nil, apperr.Forbidden("group belongs to another university")
	}
	if contains(sel.GroupMembers, actor.ID) {
		return nil, apperr.New(apperr.CodeAlreadyMember, "you are already a member of this group", nil)
	}
	if sel.Status.IsCompleted {
		return nil, apperr.Conflict("group is completed")
	}
	project, err := loadProject(db, projectID)
	if err != nil {
		return nil, err
	}
	if len(sel.GroupMembers)+1 > project.MaxStudentsPerGroup {
		return nil, apperr.New(apperr.CodeCapacity, "group is full", nil)
	}
	open, err := g.HasOpenCommitment(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperr.Conflict("you already belong to an open group")
	}

	now := g.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		// The version check fails if anyone joined since sel was read, so
		// the capacity decision above still holds when the insert lands.
		res := tx.Model(&models.Selection{}).
			Where("id = ? AND version = ?", sel.ID, sel.Version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return apperr.Wrap(res.Error, "failed to update group")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("group changed while joining; retry")
		}
		member := models.SelectionMember{SelectionID: sel.ID, StudentID: actor.ID, JoinedAt: now}
		if err := tx.Create(&member).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.New(apperr.CodeAlreadyMember, "you are already a member of this group", nil)
			}
			return apperr.Wrap(err, "failed to join group")
		}
		return database.CreateAuditLog(tx, actor.ID, "selection", sel.ID, "join", nil)
	})
	if err != nil {
		return nil, err
	}

	sel.Version++
	sel.GroupMembers = append(sel.GroupMembers, actor.ID)
	logutils.Log.WithFields(logutils.Fields{"selection": sel.ID, "student": actor.ID}).Info("student joined group")
	return sel, nil
}

// HasOpenCommitment reports whether the student is in any group that has
// not been completed yet.
func (g *GroupSelectionService) HasOpenCommitment(ctx context.Context, studentID string) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).
		Table("selection_members AS m").
		Joins("JOIN selections AS s ON s.id = m.selection_id").
		Where("m.student_id = ? AND m.deleted_at IS NULL AND s.deleted_at IS NULL AND s.status_is_completed = ?", studentID, false).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(err, "failed to check open groups")
	}
	return n > 0, nil
}

// ClaimedByUniversity is advisory; CreateNewGroup re-checks at write time.
func (g *GroupSelectionService) ClaimedByUniversity(ctx context.Context, projectID, university string) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.Selection{}).
		Where("active_claim = ?", models.ProjectUniversityKey(projectID, university)).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(err, "failed to check claim")
	}
	return n > 0, nil
}

// AuthorizeView lets the group's members, the project owner, the
// university's supervising teacher and admins read a group's submissions
// and reviews.
func (g *GroupSelectionService) AuthorizeView(ctx context.Context, actor models.Actor, selectionID string) error {
	db := g.db.WithContext(ctx)
	sel, err := loadSelection(db, selectionID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin || contains(sel.GroupMembers, actor.ID) {
		return nil
	}
	switch actor.Role {
	case models.RoleIndustry:
		project, err := loadProject(db, sel.ProjectID)
		if err != nil {
			return err
		}
		if project.OwnerID == actor.ID {
			return nil
		}
	case models.RoleTeacher:
		supervisor, err := supervisorOf(db, sel.ProjectID, sel.University)
		if err != nil {
			return err
		}
		if supervisor != "" && supervisor == actor.ID {
			return nil
		}
	}
	return apperr.Forbidden("you are not involved with this group")
}

func (g *GroupSelectionService) Get(ctx context.Context, selectionID string) (*models.Selection, error) {
	return loadSelection(g.db.WithContext(ctx), selectionID)
}

// ListGroups returns every group on the project with its members.
func (g *GroupSelectionService) ListGroups(ctx context.Context, projectID string) ([]models.Selection, error) {
	db := g.db.WithContext(ctx)
	var selections []models.Selection
	if err := db.Where("project_id = ?", projectID).Order("joined_at asc").Find(&selections).Error; err != nil {
		return nil, apperr.Wrap(err, "failed to list groups")
	}
	if err := attachMembers(db, selections); err != nil {
		return nil, err
	}
	return selections, nil
}

func (g *GroupSelectionService) StudentSelections(ctx context.Context, studentID string) ([]models.Selection, error) {
	db := g.db.WithContext(ctx)
	ids := db.Model(&models.SelectionMember{}).Select("selection_id").Where("student_id = ?", studentID)
	var selections []models.Selection
	if err := db.Where("id IN (?)", ids).Order("joined_at desc").Find(&selections).Error; err != nil {
		return nil, apperr.Wrap(err, "failed to list groups")
	}
	if err := attachMembers(db, selections); err != nil {
		return nil, err
	}
	return selections, nil
}

func (g *GroupSelectionService) CompletionStatus(ctx context.Context, selectionID string) (models.SelectionStatus, error) {
	var sel models.Selection
	err := g.db.WithContext(ctx).Where("id = ?", selectionID).First(&sel).Error
	if err != nil {
		if database.IsNotFound(err) {
			return models.SelectionStatus{}, apperr.NotFound("group not found")
		}
		return models.SelectionStatus{}, apperr.Wrap(err, "failed to load group")
	}
	return sel.Status, nil
}
