package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

// getDevelopers lists the developers assigned to an entity in assignment order.
func (c *Client) getDevelopers(ctx context.Context, tx *sql.Tx, table, column string, id int64) ([]model.UserRef, error) {
	wrapMsg := fmt.Sprintf("unable to list the developers in %s for %d", table, id)

	query, args, err := c.builder.
		Select("u.id", "u.username").
		From(table + " d").
		Join("users u ON d.user_id = u.id").
		Where(sq.Eq{"d." + column: id}).
		OrderBy("d.position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	developers := make([]model.UserRef, 0)
	for rows.Next() {
		var developer model.UserRef
		if err = rows.Scan(&developer.ID, &developer.Username); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		developers = append(developers, developer)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return developers, nil
}

// setDevelopers replaces the developers assigned to an entity.
func (c *Client) setDevelopers(ctx context.Context, tx *sql.Tx, table, column string, id int64, developers []model.UserRef) error {
	wrapMsg := fmt.Sprintf("unable to set the developers in %s for %d", table, id)

	// Remove the existing assignments.
	statement, args, err := c.builder.
		Delete(table).
		Where(sq.Eq{column: id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if _, err = tx.ExecContext(ctx, statement, args...); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if len(developers) == 0 {
		return nil
	}

	// Add the new assignments, remembering their order.
	insert := c.builder.Insert(table).Columns(column, "user_id", "position")
	for position, developer := range developers {
		insert = insert.Values(id, developer.ID, position)
	}
	statement, args, err = insert.ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if _, err = tx.ExecContext(ctx, statement, args...); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}
