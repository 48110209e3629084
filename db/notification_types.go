package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// GetNotificationTypeID obtains the ID of the notification type with the given name. An error
// is returned if the database can't be queried or the notification type doesn't exist.
func (c *Client) GetNotificationTypeID(ctx context.Context, tx *sql.Tx, notificationType string) (int64, error) {
	wrapMsg := fmt.Sprintf("unable to get the notification type ID for `%s`", notificationType)

	// Build the SQL query and arguments.
	query, args, err := c.builder.
		Select("id").
		From("notification_types").
		Where("name = ?", notificationType).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	var id int64
	row := tx.QueryRowContext(ctx, query, args...)
	err = row.Scan(&id)
	if err != nil {
		return 0, wrapQueryError(err, wrapMsg)
	}

	return id, nil
}

// RegisterNotificationType adds a notification type to the database.
func (c *Client) RegisterNotificationType(ctx context.Context, tx *sql.Tx, notificationType string) error {
	wrapMsg := fmt.Sprintf("unable to register notification type `%s`", notificationType)

	// Build the statement.
	statement, args, err := c.builder.
		Insert("notification_types").
		Columns("name").
		Values(notificationType).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	_, err = tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}
