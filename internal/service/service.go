// Package service implements the project workflow: registry and edit
// lock, per-university approvals, group selection, submissions,
// evaluation, modification requests and deadline extensions.
//
// Services hold no state of their own beyond their collaborators; every
// call reads and writes the database it was built with.
package service

import (
	"context"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"
	"fyp-portal/internal/notify"
	"fyp-portal/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Services bundles the workflow components wired to one database.
type Services struct {
	Projects      *ProjectRegistry
	Approvals     *ApprovalLedger
	Groups        *GroupSelectionService
	Submissions   *SubmissionStore
	Evaluations   *EvaluationAggregator
	Modifications *ModificationRequestQueue
	Extensions    *ExtensionNegotiator
}

type Options struct {
	AllowReviewEditAfterCompletion bool
	ExtensionWindow                time.Duration
}

func New(db *gorm.DB, blobs storage.BlobStore, notifier notify.Dispatcher, opts Options) *Services {
	return &Services{
		Projects:      NewProjectRegistry(db),
		Approvals:     NewApprovalLedger(db, notifier),
		Groups:        NewGroupSelectionService(db),
		Submissions:   NewSubmissionStore(db, blobs),
		Evaluations:   NewEvaluationAggregator(db, notifier, opts.AllowReviewEditAfterCompletion),
		Modifications: NewModificationRequestQueue(db, notifier),
		Extensions:    NewExtensionNegotiator(db, notifier, opts.ExtensionWindow),
	}
}

func requireRole(actor models.Actor, roles ...models.UserRole) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("insufficient role")
}

func loadProject(tx *gorm.DB, id string) (*models.Project, error) {
	if id == "" {
		return nil, apperr.Validation("project id is required", map[string]string{"projectId": "required"})
	}
	var p models.Project
	if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Wrap(err, "failed to load project")
	}
	return &p, nil
}

func loadSelection(tx *gorm.DB, id string) (*models.Selection, error) {
	if id == "" {
		return nil, apperr.Validation("selection id is required", map[string]string{"selectionId": "required"})
	}
	var sel models.Selection
	if err := tx.Where("id = ?", id).First(&sel).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, apperr.Wrap(err, "failed to load group")
	}
	members, err := loadMembers(tx, sel.ID)
	if err != nil {
		return nil, err
	}
	sel.GroupMembers = members
	return &sel, nil
}

func loadMembers(tx *gorm.DB, selectionID string) ([]string, error) {
	var rows []models.SelectionMember
	if err := tx.Where("selection_id = ?", selectionID).
		Order("joined_at asc, created_at asc").
		Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "failed to load group members")
	}
	members := make([]string, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.StudentID)
	}
	return members, nil
}

// attachMembers fills GroupMembers for a batch of selections with one query.
func attachMembers(tx *gorm.DB, selections []models.Selection) error {
	if len(selections) == 0 {
		return nil
	}
	ids := make([]string, 0, len(selections))
	for _, s := range selections {
		ids = append(ids, s.ID)
	}
	var rows []models.SelectionMember
	if err := tx.Where("selection_id IN ?", ids).
		Order("joined_at asc, created_at asc").
		Find(&rows).Error; err != nil {
		return apperr.Wrap(err, "failed to load group members")
	}
	bySelection := make(map[string][]string, len(selections))
	for _, r := range rows {
		bySelection[r.SelectionID] = append(bySelection[r.SelectionID], r.StudentID)
	}
	for i := range selections {
		members := bySelection[selections[i].ID]
		if members == nil {
			members = []string{}
		}
		selections[i].GroupMembers = members
	}
	return nil
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// setEditStatus moves a project to status and reports whether anything
// changed. Already being in the target state is not an error.
func setEditStatus(tx *gorm.DB, id string, status models.EditStatus) (bool, error) {
	res := tx.Model(&models.Project{}).
		Where("id = ? AND edit_status <> ?", id, status).
		Update("edit_status", status)
	if res.Error != nil {
		return false, apperr.Wrap(res.Error, "failed to change edit status")
	}
	return res.RowsAffected > 0, nil
}

// isApprovedFor reports whether the university has approved the project.
func isApprovedFor(tx *gorm.DB, projectID, university string) (bool, error) {
	var n int64
	err := tx.Model(&models.UniversityApproval{}).
		Where("project_id = ? AND university = ? AND status = ?", projectID, university, models.ApprovalApproved).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(err, "failed to check approval")
	}
	return n > 0, nil
}

// supervisorOf returns the teacher holding the approved supervision of
// (project, university), or "".
func supervisorOf(tx *gorm.DB, projectID, university string) (string, error) {
	var req models.SupervisionRequest
	err := tx.Where("holder_key = ?", models.ProjectUniversityKey(projectID, university)).
		Limit(1).Find(&req).Error
	if err != nil {
		return "", apperr.Wrap(err, "failed to load supervisor")
	}
	return req.TeacherID, nil
}

// softDeleteProject removes a project and everything hanging off it. Rows
// are soft-deleted so the academic record survives; unique claim keys are
// released first.
func softDeleteProject(tx *gorm.DB, projectID string) error {
	var selectionIDs []string
	if err := tx.Model(&models.Selection{}).
		Where("project_id = ?", projectID).
		Pluck("id", &selectionIDs).Error; err != nil {
		return apperr.Wrap(err, "failed to list project groups")
	}

	steps := []func() error{
		func() error {
			return tx.Model(&models.Selection{}).Where("project_id = ?", projectID).
				Update("active_claim", nil).Error
		},
		func() error {
			return tx.Model(&models.SupervisionRequest{}).Where("project_id = ?", projectID).
				Update("holder_key", nil).Error
		},
		func() error {
			return tx.Model(&models.ExtensionRequest{}).Where("project_id = ?", projectID).
				Update("open_key", nil).Error
		},
		func() error {
			if len(selectionIDs) == 0 {
				return nil
			}
			if err := tx.Where("selection_id IN ?", selectionIDs).Delete(&models.SelectionMember{}).Error; err != nil {
				return err
			}
			return tx.Where("selection_id IN ?", selectionIDs).Delete(&models.Review{}).Error
		},
		func() error { return tx.Where("project_id = ?", projectID).Delete(&models.Submission{}).Error },
		func() error { return tx.Where("project_id = ?", projectID).Delete(&models.Selection{}).Error },
		func() error { return tx.Where("project_id = ?", projectID).Delete(&models.UniversityApproval{}).Error },
		func() error { return tx.Where("project_id = ?", projectID).Delete(&models.SupervisionRequest{}).Error },
		func() error { return tx.Where("project_id = ?", projectID).Delete(&models.ExtensionRequest{}).Error },
		func() error { return tx.Where("id = ?", projectID).Delete(&models.Project{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return apperr.Wrap(err, "failed to delete project")
		}
	}
	return nil
}

// adminIDs lists the admin accounts to notify. A failed lookup is logged
// and yields no recipients.
func adminIDs(ctx context.Context, db *gorm.DB) []string {
	var ids []string
	err := db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &ids).Error
	if err != nil {
		logutils.Log.Warnf("admin lookup for notification failed: %v", err)
		return nil
	}
	return ids
}

// lockProject takes the project row lock for the rest of the transaction.
// SQLite has no row locks; its single writer serialises instead.
func lockProject(tx *gorm.DB, id string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var p models.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", id).Take(&p).Error
	if err != nil {
		if database.IsNotFound(err) {
			return apperr.NotFound("project not found")
		}
		return apperr.Wrap(err, "failed to lock project")
	}
	return nil
}
