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

// SaveMessage saves a direct message, storing its new ID in the message structure.
func (c *Client) SaveMessage(ctx context.Context, tx *sql.Tx, message *model.Message) error {
	wrapMsg := "unable to save message"

	statement, args, err := c.builder.
		Insert("messages").
		Columns("sender_id", "recipient_id", "body", "timestamp").
		Values(message.SenderID, message.RecipientID, message.Body, message.Timestamp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	err = tx.QueryRowContext(ctx, statement, args...).Scan(&message.ID)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// CountUnreadMessages counts the messages addressed to the user that arrived after the given read watermark.
func (c *Client) CountUnreadMessages(ctx context.Context, tx *sql.Tx, userID int64, since time.Time) (int64, error) {
	wrapMsg := "unable to count unread messages"
	var total int64

	statement, args, err := c.builder.
		Select("count(*)").
		From("messages").
		Where(sq.Eq{"recipient_id": userID}).
		Where(sq.Gt{"timestamp": since}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	err = tx.QueryRowContext(ctx, statement, args...).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return total, nil
}

// listMessages lists messages matching a condition, newest first.
func (c *Client) listMessages(ctx context.Context, tx *sql.Tx, where sq.Eq, wrapMsg string) ([]model.Message, error) {
	query, args, err := c.builder.
		Select("id", "sender_id", "recipient_id", "body", "timestamp").
		From("messages").
		Where(where).
		OrderBy("timestamp DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err = rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.Timestamp); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return messages, nil
}

// ListReceivedMessages lists the messages addressed to a user, newest first.
func (c *Client) ListReceivedMessages(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Message, error) {
	wrapMsg := fmt.Sprintf("unable to list messages received by user %d", userID)
	return c.listMessages(ctx, tx, sq.Eq{"recipient_id": userID}, wrapMsg)
}

// ListSentMessages lists the messages sent by a user, newest first.
func (c *Client) ListSentMessages(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Message, error) {
	wrapMsg := fmt.Sprintf("unable to list messages sent by user %d", userID)
	return c.listMessages(ctx, tx, sq.Eq{"sender_id": userID}, wrapMsg)
}
