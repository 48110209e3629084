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

var userColumns = []string{
	"id",
	"email",
	"username",
	"department",
	"description",
	"avatar",
	"date_created",
	"private_profile",
	"last_message_read_time",
	"last_notification_read_time",
}

// AddUser adds a user to the `users` table, storing the ID assigned to the user in the user structure.
func (c *Client) AddUser(ctx context.Context, tx *sql.Tx, user *model.User) error {
	wrapMsg := fmt.Sprintf("unable to add `%s` to the users table", user.Username)

	// Build the query.
	statement, args, err := c.builder.
		Insert("users").
		Columns("email", "username", "department", "description", "avatar", "date_created", "private_profile").
		Values(
			user.Email,
			user.Username,
			user.Department,
			user.Description,
			user.Avatar,
			user.DateCreated,
			user.PrivateProfile).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	row := tx.QueryRowContext(ctx, statement, args...)
	err = row.Scan(&user.ID)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// GetUser obtains the user with the given ID.
func (c *Client) GetUser(ctx context.Context, tx *sql.Tx, id int64) (*model.User, error) {
	wrapMsg := fmt.Sprintf("unable to look up user %d", id)

	// Build the query.
	query, args, err := c.builder.
		Select(userColumns...).
		From("users").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	var user model.User
	var messageReadTime, notificationReadTime sql.NullTime
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Department,
		&user.Description,
		&user.Avatar,
		&user.DateCreated,
		&user.PrivateProfile,
		&messageReadTime,
		&notificationReadTime,
	)
	if err != nil {
		return nil, wrapQueryError(err, wrapMsg)
	}
	if messageReadTime.Valid {
		user.LastMessageReadTime = &messageReadTime.Time
	}
	if notificationReadTime.Valid {
		user.LastNotificationReadTime = &notificationReadTime.Time
	}

	return &user, nil
}

// setReadTime updates one of the read watermarks for a user.
func (c *Client) setReadTime(ctx context.Context, tx *sql.Tx, column string, userID int64, readTime time.Time) error {
	wrapMsg := fmt.Sprintf("unable to update %s for user %d", column, userID)

	// Build the statement.
	statement, args, err := c.builder.
		Update("users").
		Set(column, readTime).
		Where("id = ?", userID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement and verify that the user exists.
	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	return checkRowsAffected(result, wrapMsg)
}

// SetMessageReadTime records the time at which a user last viewed their messages.
func (c *Client) SetMessageReadTime(ctx context.Context, tx *sql.Tx, userID int64, readTime time.Time) error {
	return c.setReadTime(ctx, tx, "last_message_read_time", userID, readTime)
}

// SetNotificationReadTime records the time at which a user last viewed their notifications.
func (c *Client) SetNotificationReadTime(ctx context.Context, tx *sql.Tx, userID int64, readTime time.Time) error {
	return c.setReadTime(ctx, tx, "last_notification_read_time", userID, readTime)
}

// UpdateUserProfile stores the editable profile fields of a user.
func (c *Client) UpdateUserProfile(ctx context.Context, tx *sql.Tx, user *model.User) error {
	wrapMsg := fmt.Sprintf("unable to update the profile of user %d", user.ID)

	statement, args, err := c.builder.
		Update("users").
		Set("department", user.Department).
		Set("description", user.Description).
		Set("avatar", user.Avatar).
		Set("private_profile", user.PrivateProfile).
		Where("id = ?", user.ID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	return checkRowsAffected(result, wrapMsg)
}

// UsernameTaken returns true if a user with the given username already exists.
func (c *Client) UsernameTaken(ctx context.Context, tx *sql.Tx, username string) (bool, error) {
	wrapMsg := fmt.Sprintf("unable to look up the username `%s`", username)
	return c.rowExists(ctx, tx, "users", sq.Eq{"username": username}, wrapMsg)
}

// EmailTaken returns true if a user with the given email address already exists.
func (c *Client) EmailTaken(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	wrapMsg := fmt.Sprintf("unable to look up the email address `%s`", email)
	return c.rowExists(ctx, tx, "users", sq.Eq{"email": email}, wrapMsg)
}
