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

	"gorm.io/gorm"
)

const defaultExtensionWindow = 7 * 24 * time.Hour

// ExtensionNegotiator lets a student ask the project owner to move the
// project end date once the deadline has passed or is close.
type ExtensionNegotiator struct {
	db       *gorm.DB
	notifier notify.Dispatcher
	now      func() time.Time
	window   time.Duration
}

func NewExtensionNegotiator(db *gorm.DB, notifier notify.Dispatcher, window time.Duration) *ExtensionNegotiator {
	if window <= 0 {
		window = defaultExtensionWindow
	}
	return &ExtensionNegotiator{db: db, notifier: notifier, now: time.Now, window: window}
}

type ExtensionInput struct {
	ProjectID        string    `json:"projectId"`
	RequestedEndDate time.Time `json:"requestedEndDate"`
	Reason           string    `json:"reason"`
}

func (x *ExtensionNegotiator) RequestExtension(ctx context.Context, actor models.Actor, in ExtensionInput) (*models.ExtensionRequest, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	fields := map[string]string{}
	if in.RequestedEndDate.IsZero() {
		fields["requestedEndDate"] = "required"
	}
	if in.Reason == "" {
		fields["reason"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid extension request", fields)
	}

	db := x.db.WithContext(ctx)
	project, err := loadProject(db, in.ProjectID)
	if err != nil {
		return nil, err
	}
	member, err := openMemberOf(db, project.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("only members of an open group on this project can ask for an extension")
	}
	now := x.now()
	if !project.IsExpired(now) && project.Duration.End.Sub(now) > x.window {
		return nil, apperr.Conflict("the project deadline is not close enough to ask for an extension")
	}
	if !in.RequestedEndDate.After(project.Duration.End) {
		return nil, apperr.Validation("invalid extension request",
			map[string]string{"requestedEndDate": "must be after the current end date"})
	}

	key := models.ExtensionOpenKey(project.ID, actor.ID)
	req := models.ExtensionRequest{
		ProjectID:        project.ID,
		RequestedBy:      actor.ID,
		RecipientID:      project.OwnerID,
		RequestedEndDate: in.RequestedEndDate,
		Reason:           in.Reason,
		Decision:         models.RequestPending,
		OpenKey:          &key,
		SubmittedAt:      now,
	}
	if err := db.Create(&req).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("you already have an open extension request for this project")
		}
		return nil, apperr.Wrap(err, "failed to create extension request")
	}

	logutils.Log.WithFields(logutils.Fields{
		"project": project.ID,
		"student": actor.ID,
		"request": req.ID,
	}).Info("extension requested")
	notify.Send(ctx, x.notifier, notify.Message{
		RecipientID: project.OwnerID,
		Kind:        models.NotifyExtension,
		Subject:     fmt.Sprintf("Extension requested for %q until %s", project.Title, in.RequestedEndDate.Format("2006-01-02")),
		Body:        in.Reason,
		EntityID:    req.ID,
	})
	return &req, nil
}

// Respond records the owner's decision. On approval the project end date
// moves to finalEndDate when given, otherwise to the requested date.
func (x *ExtensionNegotiator) Respond(ctx context.Context, actor models.Actor, requestID string, decision models.RequestStatus, finalEndDate *time.Time) (*models.ExtensionRequest, error) {
	if decision != models.RequestApproved && decision != models.RequestRejected {
		return nil, apperr.Validation("invalid decision", map[string]string{"decision": "decision must be approved or rejected"})
	}

	var (
		req     models.ExtensionRequest
		project *models.Project
	)
	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("extension request not found")
			}
			return apperr.Wrap(err, "failed to load extension request")
		}
		var err error
		project, err = loadProject(tx, req.ProjectID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.ID {
			return apperr.Forbidden("only the project owner can answer an extension request")
		}
		if req.Decision != models.RequestPending {
			return apperr.Conflict("extension request was already " + string(req.Decision))
		}

		now := x.now()
		updates := map[string]any{
			"decision":   decision,
			"decided_at": now,
			"open_key":   nil,
		}
		var end time.Time
		if decision == models.RequestApproved {
			end = req.RequestedEndDate
			if finalEndDate != nil {
				end = *finalEndDate
			}
			if !end.After(project.Duration.Start) {
				return apperr.Validation("invalid end date",
					map[string]string{"finalEndDate": "must be after the project start date"})
			}
			updates["final_end_date"] = end
		}

		res := tx.Model(&models.ExtensionRequest{}).
			Where("id = ? AND decision = ?", req.ID, models.RequestPending).
			Updates(updates)
		if res.Error != nil {
			return apperr.Wrap(res.Error, "failed to record decision")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("extension request was decided concurrently")
		}
		if decision == models.RequestApproved {
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
				Update("duration_end", end).Error; err != nil {
				return apperr.Wrap(err, "failed to move project end date")
			}
			project.Duration.End = end
			req.FinalEndDate = &end
		}
		req.Decision = decision
		req.DecidedAt = &now
		req.OpenKey = nil
		return database.CreateAuditLog(tx, actor.ID, "extension_request", req.ID, string(decision),
			map[string]any{"project": project.ID, "endDate": project.Duration.End})
	})
	if err != nil {
		return nil, err
	}

	logutils.Log.WithFields(logutils.Fields{
		"request":  req.ID,
		"project":  req.ProjectID,
		"decision": decision,
	}).Info("extension decided")
	subject := fmt.Sprintf("Your extension request for %q was %s", project.Title, decision)
	if req.FinalEndDate != nil {
		subject += "; new end date " + req.FinalEndDate.Format("2006-01-02")
	}
	notify.Send(ctx, x.notifier, notify.Message{
		RecipientID: req.RequestedBy,
		Kind:        models.NotifyExtension,
		Subject:     subject,
		EntityID:    req.ID,
	})
	return &req, nil
}

func (x *ExtensionNegotiator) ListForOwner(ctx context.Context, ownerID string) ([]models.ExtensionRequest, error) {
	return x.list(ctx, "recipient_id = ?", ownerID)
}

func (x *ExtensionNegotiator) ListForStudent(ctx context.Context, studentID string) ([]models.ExtensionRequest, error) {
	return x.list(ctx, "requested_by = ?", studentID)
}

func (x *ExtensionNegotiator) list(ctx context.Context, cond string, arg string) ([]models.ExtensionRequest, error) {
	var reqs []models.ExtensionRequest
	err := x.db.WithContext(ctx).Where(cond, arg).Order("submitted_at desc").Find(&reqs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list extension requests")
	}
	return reqs, nil
}

// openMemberOf reports whether the student belongs to a group on the
// project that is still being evaluated.
func openMemberOf(tx *gorm.DB, projectID, studentID string) (bool, error) {
	var n int64
	err := tx.Table("selection_members AS m").
		Joins("JOIN selections AS s ON s.id = m.selection_id").
		Where("s.project_id = ? AND m.student_id = ? AND m.deleted_at IS NULL AND s.deleted_at IS NULL AND s.status_is_completed = ?",
			projectID, studentID, false).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(err, "failed to check group membership")
	}
	return n > 0, nil
}
