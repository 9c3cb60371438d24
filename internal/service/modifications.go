package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"
	"fyp-portal/internal/notify"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ModificationRequestQueue mediates edits and deletes of locked projects.
// Owners file requests; admins resolve them.
type ModificationRequestQueue struct {
	db       *gorm.DB
	notifier notify.Dispatcher
	now      func() time.Time
}

func NewModificationRequestQueue(db *gorm.DB, notifier notify.Dispatcher) *ModificationRequestQueue {
	return &ModificationRequestQueue{db: db, notifier: notifier, now: time.Now}
}

type ModificationInput struct {
	ProjectID       string               `json:"projectId"`
	RequestType     models.RequestType   `json:"requestType"`
	Reason          string               `json:"reason"`
	ProposedChanges *models.ProjectPatch `json:"proposedChanges,omitempty"`
}

func (q *ModificationRequestQueue) CreateRequest(ctx context.Context, actor models.Actor, in ModificationInput) (*models.ModificationRequest, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	fields := map[string]string{}
	switch in.RequestType {
	case models.RequestEdit:
		if in.ProposedChanges == nil || in.ProposedChanges.IsEmpty() {
			fields["proposedChanges"] = "an edit request needs proposed changes"
		}
	case models.RequestDelete:
		if in.ProposedChanges != nil && !in.ProposedChanges.IsEmpty() {
			fields["proposedChanges"] = "a delete request cannot carry changes"
		}
	default:
		fields["requestType"] = "requestType must be edit or delete"
	}
	if in.Reason == "" {
		fields["reason"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid modification request", fields)
	}

	db := q.db.WithContext(ctx)
	project, err := loadProject(db, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actor.ID {
		return nil, apperr.Forbidden("only the project owner can request changes")
	}
	if !project.Locked() {
		return nil, apperr.Conflict("project is unlocked; change it directly")
	}
	if in.RequestType == models.RequestEdit {
		preview := *project
		preview.Apply(*in.ProposedChanges)
		if err := validateProject(preview); err != nil {
			return nil, err
		}
	}

	pendingKey := project.ID
	req := models.ModificationRequest{
		ID:          models.NewID(),
		ProjectID:   project.ID,
		RequestType: in.RequestType,
		RequestedBy: actor.ID,
		Status:      models.RequestPending,
		Reason:      in.Reason,
		PendingKey:  &pendingKey,
	}
	if in.ProposedChanges != nil {
		req.ProposedChanges = datatypes.NewJSONType(*in.ProposedChanges)
	}
	if err := db.Create(&req).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("duplicate pending request: this project already has a pending modification request")
		}
		return nil, apperr.Wrap(err, "failed to create modification request")
	}

	logutils.Log.WithFields(logutils.Fields{
		"project": project.ID,
		"request": req.ID,
		"type":    req.RequestType,
	}).Info("modification requested")
	for _, admin := range adminIDs(ctx, q.db) {
		notify.Send(ctx, q.notifier, notify.Message{
			RecipientID: admin,
			Kind:        models.NotifyModification,
			Subject:     fmt.Sprintf("%s request for %q", req.RequestType, project.Title),
			Body:        req.Reason,
			EntityID:    req.ID,
		})
	}
	return &req, nil
}

// Resolve approves or rejects a pending request. Resolving a request that
// is already resolved returns it unchanged.
func (q *ModificationRequestQueue) Resolve(ctx context.Context, actor models.Actor, requestID string, decision models.RequestStatus) (*models.ModificationRequest, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if decision != models.RequestApproved && decision != models.RequestRejected {
		return nil, apperr.Validation("invalid decision", map[string]string{"decision": "decision must be approved or rejected"})
	}

	var (
		req      models.ModificationRequest
		resolved bool
	)
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("modification request not found")
			}
			return apperr.Wrap(err, "failed to load modification request")
		}
		if req.Status != models.RequestPending {
			return nil
		}

		now := q.now()
		res := tx.Model(&models.ModificationRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestPending).
			Updates(map[string]any{
				"status":      decision,
				"actioned_by": actor.ID,
				"actioned_at": now,
				"pending_key": nil,
			})
		if res.Error != nil {
			return apperr.Wrap(res.Error, "failed to resolve modification request")
		}
		if res.RowsAffected == 0 {
			// resolved by someone else in the meantime
			return tx.Where("id = ?", req.ID).First(&req).Error
		}
		req.Status = decision
		req.ActionedBy = actor.ID
		req.ActionedAt = &now
		req.PendingKey = nil
		resolved = true

		if decision == models.RequestApproved {
			switch req.RequestType {
			case models.RequestEdit:
				if err := applyChanges(tx, actor.ID, req); err != nil {
					return err
				}
			case models.RequestDelete:
				if _, err := loadProject(tx, req.ProjectID); err != nil {
					return err
				}
				if err := softDeleteProject(tx, req.ProjectID); err != nil {
					return err
				}
				if err := database.CreateAuditLog(tx, actor.ID, "project", req.ProjectID, "delete",
					map[string]string{"request": req.ID, "reason": req.Reason}); err != nil {
					return apperr.Wrap(err, "failed to write audit log")
				}
			}
		}
		return database.CreateAuditLog(tx, actor.ID, "modification_request", req.ID, "resolve",
			map[string]string{"decision": string(decision)})
	})
	if err != nil {
		return nil, err
	}

	if resolved {
		logutils.Log.WithFields(logutils.Fields{
			"request":  req.ID,
			"project":  req.ProjectID,
			"decision": decision,
		}).Info("modification request resolved")
		notify.Send(ctx, q.notifier, notify.Message{
			RecipientID: req.RequestedBy,
			Kind:        models.NotifyModification,
			Subject:     fmt.Sprintf("Your %s request was %s", req.RequestType, decision),
			EntityID:    req.ID,
		})
	}
	return &req, nil
}

// applyChanges merges an approved edit into the project and records the
// replaced values so the edit can be rolled back by hand.
func applyChanges(tx *gorm.DB, actorID string, req models.ModificationRequest) error {
	project, err := loadProject(tx, req.ProjectID)
	if err != nil {
		return err
	}
	patch := req.ProposedChanges.Data()
	prior := project.Apply(patch)
	if err := validateProject(*project); err != nil {
		return err
	}
	if err := checkShrink(tx, project); err != nil {
		return err
	}
	project.UpdatedAt = time.Now()
	if err := tx.Model(project).Select(projectContentColumns).Updates(project).Error; err != nil {
		return apperr.Wrap(err, "failed to apply changes")
	}
	if err := database.CreateAuditLog(tx, actorID, "project", project.ID, "modification_applied",
		map[string]any{"request": req.ID, "prior": prior, "applied": patch}); err != nil {
		return apperr.Wrap(err, "failed to write audit log")
	}
	return nil
}

// checkShrink keeps capacity edits from invalidating existing groups.
func checkShrink(tx *gorm.DB, project *models.Project) error {
	var groups int64
	if err := tx.Model(&models.Selection{}).Where("project_id = ?", project.ID).Count(&groups).Error; err != nil {
		return apperr.Wrap(err, "failed to count groups")
	}
	if groups > int64(project.MaxGroups) {
		return apperr.Conflict(fmt.Sprintf("project already has %d groups", groups))
	}

	var largest struct{ N int64 }
	err := tx.Table("selection_members AS m").
		Select("COUNT(*) AS n").
		Joins("JOIN selections AS s ON s.id = m.selection_id").
		Where("s.project_id = ? AND s.deleted_at IS NULL AND m.deleted_at IS NULL", project.ID).
		Group("m.selection_id").
		Order("n desc").
		Limit(1).
		Scan(&largest).Error
	if err != nil {
		return apperr.Wrap(err, "failed to measure groups")
	}
	if largest.N > int64(project.MaxStudentsPerGroup) {
		return apperr.Conflict(fmt.Sprintf("a group already has %d members", largest.N))
	}
	return nil
}

func (q *ModificationRequestQueue) Get(ctx context.Context, id string) (*models.ModificationRequest, error) {
	var req models.ModificationRequest
	if err := q.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("modification request not found")
		}
		return nil, apperr.Wrap(err, "failed to load modification request")
	}
	return &req, nil
}

func (q *ModificationRequestQueue) List(ctx context.Context, projectID string) ([]models.ModificationRequest, error) {
	var reqs []models.ModificationRequest
	err := q.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at desc").Find(&reqs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list modification requests")
	}
	return reqs, nil
}

// ListPending is the admin work queue, oldest first.
func (q *ModificationRequestQueue) ListPending(ctx context.Context) ([]models.ModificationRequest, error) {
	var reqs []models.ModificationRequest
	err := q.db.WithContext(ctx).Where("status = ?", models.RequestPending).Order("created_at asc").Find(&reqs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list modification requests")
	}
	return reqs, nil
}
