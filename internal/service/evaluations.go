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
	"gorm.io/gorm/clause"
)

// EvaluationAggregator merges teacher and industry reviews into a group's
// completion state. Completion is terminal.
type EvaluationAggregator struct {
	db       *gorm.DB
	notifier notify.Dispatcher
	now      func() time.Time
	// allowEditAfterCompletion keeps re-submission open once a group is
	// complete. Flags never revert either way.
	allowEditAfterCompletion bool
}

func NewEvaluationAggregator(db *gorm.DB, notifier notify.Dispatcher, allowEditAfterCompletion bool) *EvaluationAggregator {
	return &EvaluationAggregator{
		db:                       db,
		notifier:                 notifier,
		now:                      time.Now,
		allowEditAfterCompletion: allowEditAfterCompletion,
	}
}

type ReviewInput struct {
	SelectionID  string              `json:"selectionId"`
	ReviewerRole models.ReviewerRole `json:"reviewerRole"`
	Rating       int                 `json:"rating"`
	Comments     string              `json:"comments"`
}

type ReviewResult struct {
	Review models.Review          `json:"review"`
	Status models.SelectionStatus `json:"status"`
}

func (e *EvaluationAggregator) SubmitReview(ctx context.Context, actor models.Actor, in ReviewInput) (*ReviewResult, error) {
	fields := map[string]string{}
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		fields["rating"] = fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	var wantRole models.UserRole
	switch in.ReviewerRole {
	case models.ReviewerTeacher:
		wantRole = models.RoleTeacher
	case models.ReviewerIndustry:
		wantRole = models.RoleIndustry
	default:
		fields["reviewerRole"] = "reviewerRole must be teacher or industry"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid review", fields)
	}
	if actor.Role != wantRole {
		return nil, apperr.Forbidden("reviewer role does not match your account")
	}

	var (
		result    ReviewResult
		sel       *models.Selection
		completed bool
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sel, err = loadSelection(tx, in.SelectionID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, sel.ProjectID)
		if err != nil {
			return err
		}
		if err := e.authorize(tx, actor, in.ReviewerRole, project, sel); err != nil {
			return err
		}
		if sel.Status.IsCompleted && !e.allowEditAfterCompletion {
			return apperr.Conflict("group evaluation is complete; reviews are closed")
		}

		now := e.now()
		review := models.Review{
			SelectionID:  sel.ID,
			ReviewerID:   actor.ID,
			ReviewerRole: in.ReviewerRole,
			Rating:       in.Rating,
			Comments:     strings.TrimSpace(in.Comments),
			ReviewedAt:   now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "selection_id"}, {Name: "reviewer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reviewer_role", "rating", "comments", "reviewed_at", "updated_at"}),
		}).Create(&review).Error
		if err != nil {
			return apperr.Wrap(err, "failed to save review")
		}
		if err := tx.Where("selection_id = ? AND reviewer_id = ?", sel.ID, actor.ID).First(&result.Review).Error; err != nil {
			return apperr.Wrap(err, "failed to reload review")
		}

		status, err := aggregate(tx, sel)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status_industry_completed": status.IndustryCompleted,
			"status_teacher_completed":  status.TeacherCompleted,
			"status_is_completed":       status.IsCompleted,
		}
		if status.IsCompleted {
			updates["active_claim"] = nil
		}
		if err := tx.Model(&models.Selection{}).Where("id = ?", sel.ID).Updates(updates).Error; err != nil {
			return apperr.Wrap(err, "failed to update group status")
		}
		completed = status.IsCompleted && !sel.Status.IsCompleted
		if completed {
			if err := database.CreateAuditLog(tx, actor.ID, "selection", sel.ID, "completed", nil); err != nil {
				return apperr.Wrap(err, "failed to write audit log")
			}
		}
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	logutils.Log.WithFields(logutils.Fields{
		"selection": in.SelectionID,
		"reviewer":  actor.ID,
		"role":      in.ReviewerRole,
		"completed": result.Status.IsCompleted,
	}).Info("review recorded")

	if completed {
		for _, member := range sel.GroupMembers {
			notify.Send(ctx, e.notifier, notify.Message{
				RecipientID: member,
				Kind:        models.NotifyCompletion,
				Subject:     "Your group has been evaluated by both reviewers",
				EntityID:    sel.ID,
			})
		}
	}
	return &result, nil
}

func (e *EvaluationAggregator) authorize(tx *gorm.DB, actor models.Actor, role models.ReviewerRole, project *models.Project, sel *models.Selection) error {
	switch role {
	case models.ReviewerIndustry:
		if project.OwnerID != actor.ID {
			return apperr.Forbidden("only the project owner can give the industry review")
		}
	case models.ReviewerTeacher:
		supervisor, err := supervisorOf(tx, project.ID, sel.University)
		if err != nil {
			return err
		}
		if supervisor != actor.ID {
			return apperr.Forbidden("only the supervising teacher can give the teacher review")
		}
	}
	return nil
}

// aggregate derives the completion flags from the stored reviews. A flag
// set earlier stays set.
func aggregate(tx *gorm.DB, sel *models.Selection) (models.SelectionStatus, error) {
	var rows []struct {
		ReviewerRole models.ReviewerRole
		N            int64
	}
	err := tx.Model(&models.Review{}).
		Select("reviewer_role, COUNT(*) AS n").
		Where("selection_id = ?", sel.ID).
		Group("reviewer_role").
		Scan(&rows).Error
	if err != nil {
		return models.SelectionStatus{}, apperr.Wrap(err, "failed to count reviews")
	}

	status := sel.Status
	for _, r := range rows {
		if r.N == 0 {
			continue
		}
		switch r.ReviewerRole {
		case models.ReviewerTeacher:
			status.TeacherCompleted = true
		case models.ReviewerIndustry:
			status.IndustryCompleted = true
		}
	}
	status.IsCompleted = status.IndustryCompleted && status.TeacherCompleted
	return status, nil
}

func (e *EvaluationAggregator) ListReviews(ctx context.Context, selectionID string) ([]models.Review, error) {
	var reviews []models.Review
	err := e.db.WithContext(ctx).
		Where("selection_id = ?", selectionID).
		Order("reviewed_at desc").
		Find(&reviews).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list reviews")
	}
	return reviews, nil
}
