// Package notify delivers status-transition notifications. Delivery is
// fire-and-forget: failures are logged, never retried or returned.
package notify

import (
	"context"

	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"

	"gorm.io/gorm"
)

type Message struct {
	RecipientID string
	Kind        models.NotificationKind
	Subject     string
	Body        string
	EntityID    string
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Send dispatches msg and only logs a warning when delivery fails.
func Send(ctx context.Context, d Dispatcher, msg Message) {
	if d == nil || msg.RecipientID == "" {
		return
	}
	if err := d.Dispatch(ctx, msg); err != nil {
		logutils.Log.WithFields(logutils.Fields{
			"recipient": msg.RecipientID,
			"kind":      msg.Kind,
			"entity":    msg.EntityID,
		}).Warnf("notification not delivered: %v", err)
	}
}

// Inbox stores notifications for the in-app inbox.
type Inbox struct {
	db *gorm.DB
}

func NewInbox(db *gorm.DB) *Inbox {
	return &Inbox{db: db}
}

func (i *Inbox) Dispatch(ctx context.Context, msg Message) error {
	n := models.Notification{
		ID:          models.NewID(),
		RecipientID: msg.RecipientID,
		Kind:        msg.Kind,
		Subject:     msg.Subject,
		Body:        msg.Body,
		EntityID:    msg.EntityID,
	}
	return i.db.WithContext(ctx).Create(&n).Error
}

func (i *Inbox) List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	q := i.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var items []models.Notification
	err := q.Order("created_at desc").Limit(200).Find(&items).Error
	return items, err
}

// MarkRead flags a notification as read. It reports false when the
// notification does not exist or belongs to someone else.
func (i *Inbox) MarkRead(ctx context.Context, id, recipientID string) (bool, error) {
	res := i.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}

// Logger writes notifications to the service log, standing in for email.
type Logger struct{}

func (Logger) Dispatch(_ context.Context, msg Message) error {
	logutils.Log.WithFields(logutils.Fields{
		"recipient": msg.RecipientID,
		"kind":      msg.Kind,
		"entity":    msg.EntityID,
	}).Info(msg.Subject)
	return nil
}

// Fanout delivers to every dispatcher and returns the first error.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, msg Message) error {
	var first error
	for _, d := range f {
		if err := d.Dispatch(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
