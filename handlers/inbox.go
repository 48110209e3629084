package handlers

import (
	"context"
	"database/sql"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
)

// Inbox implements the unread counters and the inbox views that advance the read watermarks.
type Inbox struct {
	base
}

// NewInbox returns the inbox workflows.
func NewInbox(deps Dependencies) *Inbox {
	return &Inbox{base: newBase(deps)}
}

// MessageInbox contains the messages a user has received and sent, newest first.
type MessageInbox struct {
	Received []model.Message
	Sent     []model.Message
}

// UnreadMessageCount returns the number of messages the user received after last viewing their messages.
func (h *Inbox) UnreadMessageCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		user, err := h.db.GetUser(ctx, tx, userID)
		if err != nil {
			return lookupError(err, "user %d", userID)
		}

		count, err = h.db.CountUnreadMessages(ctx, tx, user.ID, common.Watermark(user.LastMessageReadTime))
		if err != nil {
			return NewPersistenceError(err, "unable to count the unread messages for user %d", userID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UnreadNotificationCount returns the number of notifications the user received from other users after last
// viewing their notifications.
func (h *Inbox) UnreadNotificationCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		user, err := h.db.GetUser(ctx, tx, userID)
		if err != nil {
			return lookupError(err, "user %d", userID)
		}

		count, err = h.db.CountUnreadNotifications(ctx, tx, user.ID, common.Watermark(user.LastNotificationReadTime))
		if err != nil {
			return NewPersistenceError(err, "unable to count the unread notifications for user %d", userID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ViewMessages moves the user's message watermark to the current time and returns their messages.
func (h *Inbox) ViewMessages(ctx context.Context, userID int64) (*MessageInbox, error) {
	inbox := &MessageInbox{}
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := h.db.GetUser(ctx, tx, userID); err != nil {
			return lookupError(err, "user %d", userID)
		}

		var err error
		if inbox.Received, err = h.db.ListReceivedMessages(ctx, tx, userID); err != nil {
			return NewPersistenceError(err, "unable to list the messages received by user %d", userID)
		}
		if inbox.Sent, err = h.db.ListSentMessages(ctx, tx, userID); err != nil {
			return NewPersistenceError(err, "unable to list the messages sent by user %d", userID)
		}
		if err = h.db.SetMessageReadTime(ctx, tx, userID, h.now()); err != nil {
			return NewPersistenceError(err, "unable to mark the messages for user %d as read", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inbox, nil
}

// ViewNotifications moves the user's notification watermark to the current time and returns the notifications
// they received.
func (h *Inbox) ViewNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	var notifications []model.Notification
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := h.db.GetUser(ctx, tx, userID); err != nil {
			return lookupError(err, "user %d", userID)
		}

		var err error
		if notifications, err = h.db.ListReceivedNotifications(ctx, tx, userID); err != nil {
			return NewPersistenceError(err, "unable to list the notifications for user %d", userID)
		}
		if err = h.db.SetNotificationReadTime(ctx, tx, userID, h.now()); err != nil {
			return NewPersistenceError(err, "unable to mark the notifications for user %d as read", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// ViewSentNotifications returns the notifications a user has caused, which serve as their activity feed. Users
// with private profiles may only view their own activity.
func (h *Inbox) ViewSentNotifications(ctx context.Context, viewerID, userID int64) ([]model.Notification, error) {
	var notifications []model.Notification
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		user, err := h.db.GetUser(ctx, tx, userID)
		if err != nil {
			return lookupError(err, "user %d", userID)
		}
		if user.PrivateProfile && viewerID != userID {
			return NewPermissionError("the activity of user %s is private", user.Username)
		}

		if notifications, err = h.db.ListSentNotifications(ctx, tx, userID); err != nil {
			return NewPersistenceError(err, "unable to list the activity of user %d", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
