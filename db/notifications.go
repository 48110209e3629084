package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

// CountUnreadNotifications counts the notifications addressed to the user that arrived after the given read
// watermark. Notifications that the user sent are never counted.
func (c *Client) CountUnreadNotifications(ctx context.Context, tx *sql.Tx, userID int64, since time.Time) (int64, error) {
	wrapMsg := "unable to count unread notifications"
	var total int64

	// Build the statement to count the unread notifications.
	statement, args, err := c.builder.
		Select("count(*)").
		From("notifications").
		Where(sq.Eq{"recipient_id": userID}).
		Where(sq.Gt{"timestamp": since}).
		Where(sq.NotEq{"sender_id": userID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	err = tx.QueryRowContext(ctx, statement, args...).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return total, nil
}

// SaveNotification saves a single notification into the database.
func (c *Client) SaveNotification(ctx context.Context, tx *sql.Tx, notification *model.Notification) error {
	wrapMsg := "unable to save notification"

	// Get the notification type ID.
	notificationTypeID, err := c.GetNotificationTypeID(ctx, tx, string(notification.Type))
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Build the statement to insert the notifications.
	statement, args, err := c.builder.
		Insert("notifications").
		Columns(
			"notification_type_id",
			"sender_id",
			"recipient_id",
			"subject",
			"body",
			"timestamp").
		Values(
			notificationTypeID,
			notification.SenderID,
			notification.RecipientID,
			notification.Subject,
			notification.Body,
			notification.Timestamp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the insert statement, scanning the ID into the notification structure.
	row := tx.QueryRowContext(ctx, statement, args...)
	err = row.Scan(&notification.ID)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// listNotifications lists notifications matching a condition, newest first.
func (c *Client) listNotifications(ctx context.Context, tx *sql.Tx, where sq.Eq, wrapMsg string) ([]model.Notification, error) {
	query, args, err := c.builder.
		Select("n.id", "n.sender_id", "n.recipient_id", "n.subject", "n.body", "t.name", "n.timestamp").
		From("notifications n").
		Join("notification_types t ON n.notification_type_id = t.id").
		Where(where).
		OrderBy("n.timestamp DESC", "n.id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		var notificationType string
		err = rows.Scan(&n.ID, &n.SenderID, &n.RecipientID, &n.Subject, &n.Body, &notificationType, &n.Timestamp)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		n.Type = model.NotificationType(notificationType)
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return notifications, nil
}

// ListReceivedNotifications lists the notifications addressed to a user, newest first.
func (c *Client) ListReceivedNotifications(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Notification, error) {
	wrapMsg := fmt.Sprintf("unable to list notifications received by user %d", userID)
	return c.listNotifications(ctx, tx, sq.Eq{"n.recipient_id": userID}, wrapMsg)
}

// ListSentNotifications lists the notifications sent by a user, newest first.
func (c *Client) ListSentNotifications(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Notification, error) {
	wrapMsg := fmt.Sprintf("unable to list notifications sent by user %d", userID)
	return c.listNotifications(ctx, tx, sq.Eq{"n.sender_id": userID}, wrapMsg)
}
