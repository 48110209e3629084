package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/cyverse-de/ticket-tracker/model"
)

// Notifier stores one notification per recipient.
type Notifier struct {
	db  DatabaseClient
	now func() time.Time
}

// NewNotifier returns a notifier that stores notifications using db and timestamps them using now.
func NewNotifier(db DatabaseClient, now func() time.Time) *Notifier {
	return &Notifier{db: db, now: now}
}

// Send stores a notification for each recipient within tx. Recipients are not deduplicated. If any recipient can't
// be found the whole batch fails with a NotFoundError, and the caller's transaction must be rolled back.
func (n *Notifier) Send(
	ctx context.Context,
	tx *sql.Tx,
	recipients []model.UserRef,
	sender model.UserRef,
	body string,
	kind model.NotificationType,
	subject string,
) ([]model.Notification, error) {
	if !kind.Valid() {
		return nil, NewValidationError("unknown notification type: %s", kind)
	}

	timestamp := n.now()
	notifications := make([]model.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		user, err := n.db.GetUser(ctx, tx, recipient.ID)
		if err != nil {
			return nil, lookupError(err, "recipient %d", recipient.ID)
		}

		notification := model.Notification{
			SenderID:    sender.ID,
			RecipientID: user.ID,
			Subject:     subject,
			Body:        body,
			Type:        kind,
			Timestamp:   timestamp,
		}
		if err = n.db.SaveNotification(ctx, tx, &notification); err != nil {
			return nil, NewPersistenceError(err, "unable to notify user %d", user.ID)
		}
		notifications = append(notifications, notification)
	}

	log.Debugf("stored %d %s notifications from user %d", len(notifications), kind, sender.ID)
	return notifications, nil
}

// Union returns every user that appears in either list, in order of first appearance. Users are compared by ID.
func Union(before, after []model.UserRef) []model.UserRef {
	seen := make(map[int64]bool, len(before)+len(after))
	union := make([]model.UserRef, 0, len(before)+len(after))
	for _, list := range [][]model.UserRef{before, after} {
		for _, ref := range list {
			if seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			union = append(union, ref)
		}
	}
	return union
}
