package db

import (
	"context"
	"strings"

	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

// schemaStatements are applied in order by Migrate. Every statement must be safe to run more than once.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id %ID%,
		email text NOT NULL UNIQUE,
		username text NOT NULL UNIQUE,
		department text NOT NULL DEFAULT 'no department',
		description text NOT NULL DEFAULT 'no description filled in',
		avatar text NOT NULL DEFAULT '/static/img/avatar-default.png',
		date_created %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		private_profile boolean NOT NULL DEFAULT false,
		last_message_read_time %TIMESTAMP%,
		last_notification_read_time %TIMESTAMP%
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id %ID%,
		date_created %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		author %BIGINT% REFERENCES users(id),
		name text NOT NULL UNIQUE,
		description text NOT NULL DEFAULT '',
		status text NOT NULL,
		priority text NOT NULL,
		deadline date,
		file text NOT NULL DEFAULT '',
		days_left integer NOT NULL DEFAULT 0,
		last_update %TIMESTAMP% NOT NULL DEFAULT %NOW%
	)`,
	`CREATE TABLE IF NOT EXISTS project_developers (
		project_id %BIGINT% NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		position integer NOT NULL,
		PRIMARY KEY (project_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id %ID%,
		date_created %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		author %BIGINT% REFERENCES users(id),
		name text NOT NULL UNIQUE,
		description text NOT NULL DEFAULT '',
		status text NOT NULL,
		type text NOT NULL,
		file text NOT NULL DEFAULT '',
		last_update %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		project_id %BIGINT% NOT NULL REFERENCES projects(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS ticket_developers (
		ticket_id %BIGINT% NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		user_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		position integer NOT NULL,
		PRIMARY KEY (ticket_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id %ID%,
		text text NOT NULL,
		date_created %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		author_id %BIGINT% REFERENCES users(id),
		project_id %BIGINT% REFERENCES projects(id) ON DELETE CASCADE,
		ticket_id %BIGINT% REFERENCES tickets(id) ON DELETE CASCADE,
		file text NOT NULL DEFAULT '',
		deleted boolean NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id %ID%,
		author %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		comment_id %BIGINT% NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		date_created %TIMESTAMP% NOT NULL DEFAULT %NOW%,
		UNIQUE (author, comment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id %ID%,
		sender_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		body text NOT NULL,
		timestamp %TIMESTAMP% NOT NULL DEFAULT %NOW%
	)`,
	`CREATE INDEX IF NOT EXISTS messages_recipient_timestamp_index ON messages (recipient_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS notification_types (
		id %ID%,
		name text NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id %ID%,
		notification_type_id %BIGINT% NOT NULL REFERENCES notification_types(id),
		sender_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id %BIGINT% NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		subject text NOT NULL,
		body text NOT NULL,
		timestamp %TIMESTAMP% NOT NULL DEFAULT %NOW%
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_timestamp_index ON notifications (recipient_id, timestamp)`,
}

// SchemaStatements returns the schema statements rendered for the client's dialect.
func (c *Client) SchemaStatements() []string {
	pairs := make([]string, 0, len(c.dialect.ddl)*2)
	for placeholder, replacement := range c.dialect.ddl {
		pairs = append(pairs, placeholder, replacement)
	}
	replacer := strings.NewReplacer(pairs...)

	statements := make([]string, len(schemaStatements))
	for i, statement := range schemaStatements {
		statements[i] = replacer.Replace(statement)
	}
	return statements
}

// Migrate creates any missing tables and registers any missing notification types.
func (c *Client) Migrate(ctx context.Context) error {
	wrapMsg := "unable to migrate the database schema"

	tx, err := c.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	defer func() { _ = c.Rollback(tx) }()

	for _, statement := range c.SchemaStatements() {
		if _, err = tx.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, wrapMsg)
		}
	}

	for _, notificationType := range model.NotificationTypes {
		_, err = c.GetNotificationTypeID(ctx, tx, string(notificationType))
		if IsNotFound(err) {
			log.Infof("registering notification type %s", notificationType)
			err = c.RegisterNotificationType(ctx, tx, string(notificationType))
		}
		if err != nil {
			return errors.Wrap(err, wrapMsg)
		}
	}

	return c.Commit(tx)
}
