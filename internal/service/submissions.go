package service

import (
	"context"
	"io"
	"strings"
	"time"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/database"
	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"
	"fyp-portal/internal/storage"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FileUpload struct {
	Name    string
	Content io.Reader
}

// SubmissionStore keeps the append-only timeline of group deliverables.
// Blob writes and record writes are separate effects; a failure between
// them is logged and left for an operator.
type SubmissionStore struct {
	db    *gorm.DB
	blobs storage.BlobStore
	now   func() time.Time
}

func NewSubmissionStore(db *gorm.DB, blobs storage.BlobStore) *SubmissionStore {
	return &SubmissionStore{db: db, blobs: blobs, now: time.Now}
}

func (s *SubmissionStore) Append(ctx context.Context, actor models.Actor, selectionID string, files []FileUpload, comments string) (*models.Submission, error) {
	comments = strings.TrimSpace(comments)
	if len(files) == 0 && comments == "" {
		return nil, apperr.Validation("a submission needs files or comments", map[string]string{"files": "required"})
	}
	db := s.db.WithContext(ctx)
	sel, err := loadSelection(db, selectionID)
	if err != nil {
		return nil, err
	}
	if !contains(sel.GroupMembers, actor.ID) {
		return nil, apperr.Forbidden("only group members can submit")
	}
	if sel.Status.IsCompleted {
		return nil, apperr.Conflict("group evaluation is complete; submissions are closed")
	}

	stored := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		att, err := s.blobs.Store(ctx, f.Name, f.Content)
		if err != nil {
			logOrphans(selectionID, stored, "file upload failed")
			return nil, apperr.Wrap(err, "failed to store file "+f.Name)
		}
		stored = append(stored, att)
	}

	sub := models.Submission{
		SelectionID: sel.ID,
		ProjectID:   sel.ProjectID,
		SubmittedBy: actor.ID,
		Files:       datatypes.JSONSlice[models.Attachment](stored),
		Comments:    comments,
		SubmittedAt: s.now(),
	}
	if err := db.Create(&sub).Error; err != nil {
		logOrphans(selectionID, stored, "submission record not written")
		return nil, apperr.Wrap(err, "failed to save submission")
	}

	logutils.Log.WithFields(logutils.Fields{
		"selection":  sel.ID,
		"submission": sub.ID,
		"files":      len(stored),
	}).Info("submission appended")
	return &sub, nil
}

// List returns the group's submissions, most recent first.
func (s *SubmissionStore) List(ctx context.Context, selectionID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Where("selection_id = ?", selectionID).
		Order("submitted_at desc, created_at desc").
		Find(&subs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list submissions")
	}
	return subs, nil
}

// Remove deletes a submission record and then asks storage to drop its
// files. Storage failures after the record is gone are only logged.
func (s *SubmissionStore) Remove(ctx context.Context, actor models.Actor, submissionID string) error {
	db := s.db.WithContext(ctx)
	var sub models.Submission
	if err := db.Where("id = ?", submissionID).First(&sub).Error; err != nil {
		if database.IsNotFound(err) {
			return apperr.NotFound("submission not found")
		}
		return apperr.Wrap(err, "failed to load submission")
	}
	if sub.SubmittedBy != actor.ID {
		return apperr.Forbidden("only the submitter can remove a submission")
	}
	sel, err := loadSelection(db, sub.SelectionID)
	if err != nil {
		return err
	}
	if sel.Status.IsCompleted {
		return apperr.Conflict("group evaluation is complete; submissions are closed")
	}

	res := db.Delete(&sub)
	if res.Error != nil {
		return apperr.Wrap(res.Error, "failed to remove submission")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("submission not found")
	}

	for _, f := range sub.Files {
		ok, err := s.blobs.Delete(ctx, f.FileURL)
		if err != nil || !ok {
			logutils.Log.WithFields(logutils.Fields{
				"submission": sub.ID,
				"file":       f.FileURL,
			}).Warnf("file not removed from storage: %v", err)
		}
	}
	return nil
}

func logOrphans(selectionID string, stored []models.Attachment, reason string) {
	if len(stored) == 0 {
		return
	}
	urls := make([]string, 0, len(stored))
	for _, a := range stored {
		urls = append(urls, a.FileURL)
	}
	logutils.Log.WithFields(logutils.Fields{
		"selection": selectionID,
		"files":     urls,
	}).Warn(reason + "; stored files are orphaned")
}
