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

// ApprovalLedger records per-university decisions on projects and the
// supervision claims teachers make on behalf of their university.
type ApprovalLedger struct {
	db       *gorm.DB
	notifier notify.Dispatcher
	now      func() time.Time
}

func NewApprovalLedger(db *gorm.DB, notifier notify.Dispatcher) *ApprovalLedger {
	return &ApprovalLedger{db: db, notifier: notifier, now: time.Now}
}

type ApprovalInput struct {
	ProjectID  string               `json:"projectId"`
	University string               `json:"university"`
	TeacherID  string               `json:"teacherId"`
	Status     models.ApprovalState `json:"status"`
	Comments   string               `json:"comments"`
}

// ApprovalSummary partitions a project's universities by state. Every
// university with an approval row is in exactly one of the four lists.
type ApprovalSummary struct {
	ProjectID    string   `json:"projectId"`
	Approved     []string `json:"approved"`
	Rejected     []string `json:"rejected"`
	NeedMoreInfo []string `json:"needMoreInfo"`
	Pending      []string `json:"pending"`
}

// ApplyForSupervision files a teacher's request to supervise the project
// for their university. The university's approval row is opened as
// pending if it does not exist yet.
func (l *ApprovalLedger) ApplyForSupervision(ctx context.Context, actor models.Actor, projectID, university string) (*models.SupervisionRequest, error) {
	if err := requireRole(actor, models.RoleTeacher); err != nil {
		return nil, err
	}
	university = strings.TrimSpace(university)
	if university == "" {
		university = actor.University
	}
	if university == "" {
		return nil, apperr.Validation("university is required", map[string]string{"university": "required"})
	}
	if university != actor.University {
		return nil, apperr.Forbidden("teachers can only apply on behalf of their own university")
	}

	var (
		req     models.SupervisionRequest
		project *models.Project
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = loadProject(tx, projectID)
		if err != nil {
			return err
		}

		holder, err := supervisorOf(tx, projectID, university)
		if err != nil {
			return err
		}
		switch {
		case holder == actor.ID:
			return apperr.Conflict("you already supervise this project")
		case holder != "":
			return apperr.Conflict("another teacher already supervises this project for your university")
		}

		err = tx.Where("project_id = ? AND teacher_id = ? AND university = ?", projectID, actor.ID, university).
			Limit(1).Find(&req).Error
		if err != nil {
			return apperr.Wrap(err, "failed to load supervision request")
		}
		switch {
		case req.ID == "":
			req = models.SupervisionRequest{
				ProjectID:  projectID,
				TeacherID:  actor.ID,
				University: university,
				Status:     models.RequestPending,
			}
			if err := tx.Create(&req).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return apperr.Conflict("supervision request already exists")
				}
				return apperr.Wrap(err, "failed to create supervision request")
			}
		case req.Status == models.RequestPending:
			return apperr.Conflict("supervision request already pending")
		default:
			req.Status = models.RequestPending
			req.HolderKey = nil
			if err := tx.Save(&req).Error; err != nil {
				return apperr.Wrap(err, "failed to reopen supervision request")
			}
		}

		var approval models.UniversityApproval
		err = tx.Where("project_id = ? AND university = ?", projectID, university).
			Limit(1).Find(&approval).Error
		if err != nil {
			return apperr.Wrap(err, "failed to load approval")
		}
		if approval.ID == "" {
			approval = models.UniversityApproval{
				ProjectID:  projectID,
				University: university,
				TeacherID:  actor.ID,
				Status:     models.ApprovalPending,
			}
			if err := tx.Create(&approval).Error; err != nil && !database.IsUniqueViolation(err) {
				return apperr.Wrap(err, "failed to open approval")
			}
		} else if approval.TeacherID == "" {
			if err := tx.Model(&approval).Update("teacher_id", actor.ID).Error; err != nil {
				return apperr.Wrap(err, "failed to update approval")
			}
		}

		return database.CreateAuditLog(tx, actor.ID, "supervision", req.ID, "apply",
			map[string]string{"project": projectID, "university": university})
	})
	if err != nil {
		return nil, err
	}

	notify.Send(ctx, l.notifier, notify.Message{
		RecipientID: project.OwnerID,
		Kind:        models.NotifySupervision,
		Subject:     fmt.Sprintf("Supervision request for %q from %s", project.Title, university),
		EntityID:    req.ID,
	})
	return &req, nil
}

// UpsertApproval records the owner's decision for one university. The
// named teacher's supervision request follows the decision; the first
// approval locks the project.
func (l *ApprovalLedger) UpsertApproval(ctx context.Context, actor models.Actor, in ApprovalInput) (*models.UniversityApproval, error) {
	in.University = strings.TrimSpace(in.University)
	fields := map[string]string{}
	if in.University == "" {
		fields["university"] = "required"
	}
	if !in.Status.Valid() {
		fields["status"] = "status must be pending, approved, rejected or needMoreInfo"
	}
	if in.Status == models.ApprovalApproved && in.TeacherID == "" {
		fields["teacherId"] = "an approval needs a supervising teacher"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid approval", fields)
	}

	var (
		approval models.UniversityApproval
		project  *models.Project
		locked   bool
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = loadProject(tx, in.ProjectID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.ID {
			return apperr.Forbidden("only the project owner can decide approvals")
		}
		if in.TeacherID != "" {
			if err := checkTeacher(tx, in.TeacherID, in.University); err != nil {
				return err
			}
		}

		err = tx.Where("project_id = ? AND university = ?", in.ProjectID, in.University).
			Limit(1).Find(&approval).Error
		if err != nil {
			return apperr.Wrap(err, "failed to load approval")
		}
		prevStatus, prevTeacher := approval.Status, approval.TeacherID

		if prevStatus == models.ApprovalApproved && prevTeacher != "" && prevTeacher != in.TeacherID {
			if in.Status == models.ApprovalApproved {
				return apperr.Conflict("another teacher already supervises this project for the university; change that decision first")
			}
			if err := syncSupervision(tx, in.ProjectID, prevTeacher, in.University, in.Status, ""); err != nil {
				return err
			}
		}
		if in.TeacherID != "" {
			if err := syncSupervision(tx, in.ProjectID, in.TeacherID, in.University, in.Status, in.Comments); err != nil {
				return err
			}
		}

		approval.ProjectID = in.ProjectID
		approval.University = in.University
		if in.TeacherID != "" {
			approval.TeacherID = in.TeacherID
		}
		approval.Status = in.Status
		approval.Comments = in.Comments
		approval.DecisionAt = nil
		if in.Status != models.ApprovalPending {
			now := l.now()
			approval.DecisionAt = &now
		}
		if err := tx.Save(&approval).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("approval was changed concurrently; retry")
			}
			return apperr.Wrap(err, "failed to save approval")
		}

		if in.Status == models.ApprovalApproved {
			if locked, err = setEditStatus(tx, in.ProjectID, models.EditLocked); err != nil {
				return err
			}
		}

		return database.CreateAuditLog(tx, actor.ID, "approval", approval.ID, "status_change", map[string]string{
			"project":    in.ProjectID,
			"university": in.University,
			"from":       string(prevStatus),
			"to":         string(in.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	entry := logutils.Log.WithFields(logutils.Fields{
		"project":    in.ProjectID,
		"university": in.University,
		"status":     in.Status,
	})
	entry.Info("approval recorded")
	if locked {
		entry.Info("project locked by first approval")
	}

	notify.Send(ctx, l.notifier, notify.Message{
		RecipientID: approval.TeacherID,
		Kind:        models.NotifyApproval,
		Subject:     fmt.Sprintf("%q is now %s for %s", project.Title, in.Status, in.University),
		Body:        in.Comments,
		EntityID:    approval.ID,
	})
	return &approval, nil
}

// syncSupervision mirrors an approval decision onto a teacher's request.
func syncSupervision(tx *gorm.DB, projectID, teacherID, university string, state models.ApprovalState, comments string) error {
	var req models.SupervisionRequest
	err := tx.Where("project_id = ? AND teacher_id = ? AND university = ?", projectID, teacherID, university).
		Limit(1).Find(&req).Error
	if err != nil {
		return apperr.Wrap(err, "failed to load supervision request")
	}
	if req.ID == "" {
		req = models.SupervisionRequest{ProjectID: projectID, TeacherID: teacherID, University: university}
	}

	switch state {
	case models.ApprovalApproved:
		holder, err := supervisorOf(tx, projectID, university)
		if err != nil {
			return err
		}
		if holder != "" && holder != teacherID {
			return apperr.Conflict("another teacher already supervises this project for the university")
		}
		key := models.ProjectUniversityKey(projectID, university)
		req.Status = models.RequestApproved
		req.HolderKey = &key
	case models.ApprovalRejected:
		req.Status = models.RequestRejected
		req.HolderKey = nil
	case models.ApprovalPending, models.ApprovalNeedMoreInfo:
		req.Status = models.RequestPending
		req.HolderKey = nil
	default:
		return apperr.Validation("unknown approval state", map[string]string{"status": string(state)})
	}
	if comments != "" {
		req.Comments = comments
	}

	if err := tx.Save(&req).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("another teacher already supervises this project for the university")
		}
		return apperr.Wrap(err, "failed to save supervision request")
	}
	return nil
}

func checkTeacher(tx *gorm.DB, teacherID, university string) error {
	var teacher models.User
	err := tx.Where("id = ? AND role = ?", teacherID, models.RoleTeacher).Limit(1).Find(&teacher).Error
	if err != nil {
		return apperr.Wrap(err, "failed to load teacher")
	}
	if teacher.ID == "" {
		return apperr.Validation("teacher not found", map[string]string{"teacherId": "unknown teacher"})
	}
	if teacher.University != university {
		return apperr.Validation("teacher belongs to another university", map[string]string{"teacherId": "university mismatch"})
	}
	return nil
}

// Summarize groups the project's universities by approval state.
func (l *ApprovalLedger) Summarize(ctx context.Context, projectID string) (*ApprovalSummary, error) {
	db := l.db.WithContext(ctx)
	if _, err := loadProject(db, projectID); err != nil {
		return nil, err
	}
	approvals, err := l.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	summary := &ApprovalSummary{
		ProjectID:    projectID,
		Approved:     []string{},
		Rejected:     []string{},
		NeedMoreInfo: []string{},
		Pending:      []string{},
	}
	for _, a := range approvals {
		switch a.Status {
		case models.ApprovalApproved:
			summary.Approved = append(summary.Approved, a.University)
		case models.ApprovalRejected:
			summary.Rejected = append(summary.Rejected, a.University)
		case models.ApprovalNeedMoreInfo:
			summary.NeedMoreInfo = append(summary.NeedMoreInfo, a.University)
		case models.ApprovalPending:
			summary.Pending = append(summary.Pending, a.University)
		default:
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("approval %s has unknown state %q", a.ID, a.Status), nil)
		}
	}
	return summary, nil
}

func (l *ApprovalLedger) List(ctx context.Context, projectID string) ([]models.UniversityApproval, error) {
	var approvals []models.UniversityApproval
	err := l.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("university asc").
		Find(&approvals).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list approvals")
	}
	return approvals, nil
}

func (l *ApprovalLedger) ListSupervisionRequests(ctx context.Context, projectID string) ([]models.SupervisionRequest, error) {
	var reqs []models.SupervisionRequest
	err := l.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&reqs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list supervision requests")
	}
	return reqs, nil
}
