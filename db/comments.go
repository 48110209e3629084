package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

var commentColumns = []string{"id", "text", "date_created", "author_id", "project_id", "ticket_id", "file", "deleted"}

// nullableID converts an optional ID to a value suitable for a nullable column.
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// AddComment inserts a comment, storing the new ID in the comment structure.
func (c *Client) AddComment(ctx context.Context, tx *sql.Tx, comment *model.Comment) error {
	wrapMsg := "unable to add comment"

	statement, args, err := c.builder.
		Insert("comments").
		Columns(commentColumns[1:]...).
		Values(
			comment.Text,
			comment.DateCreated,
			comment.AuthorID,
			nullableID(comment.ProjectID),
			nullableID(comment.TicketID),
			comment.File,
			comment.Deleted).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = tx.QueryRowContext(ctx, statement, args...).Scan(&comment.ID); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// GetComment obtains a comment.
func (c *Client) GetComment(ctx context.Context, tx *sql.Tx, id int64) (*model.Comment, error) {
	wrapMsg := fmt.Sprintf("unable to look up comment %d", id)

	query, args, err := c.builder.
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	var comment model.Comment
	var projectID, ticketID sql.NullInt64
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&comment.ID,
		&comment.Text,
		&comment.DateCreated,
		&comment.AuthorID,
		&projectID,
		&ticketID,
		&comment.File,
		&comment.Deleted,
	)
	if err != nil {
		return nil, wrapQueryError(err, wrapMsg)
	}
	if projectID.Valid {
		comment.ProjectID = &projectID.Int64
	}
	if ticketID.Valid {
		comment.TicketID = &ticketID.Int64
	}

	return &comment, nil
}

// UpdateComment stores the text, file and deleted flag of a comment.
func (c *Client) UpdateComment(ctx context.Context, tx *sql.Tx, comment *model.Comment) error {
	wrapMsg := fmt.Sprintf("unable to update comment %d", comment.ID)

	statement, args, err := c.builder.
		Update("comments").
		Set("text", comment.Text).
		Set("file", comment.File).
		Set("deleted", comment.Deleted).
		Where(sq.Eq{"id": comment.ID}).
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

// GetLike obtains the like a user gave a comment.
func (c *Client) GetLike(ctx context.Context, tx *sql.Tx, authorID, commentID int64) (*model.Like, error) {
	wrapMsg := fmt.Sprintf("unable to look up the like from user %d on comment %d", authorID, commentID)

	query, args, err := c.builder.
		Select("id", "author", "comment_id", "date_created").
		From("likes").
		Where(sq.Eq{"author": authorID, "comment_id": commentID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	var like model.Like
	err = tx.QueryRowContext(ctx, query, args...).Scan(&like.ID, &like.AuthorID, &like.CommentID, &like.DateCreated)
	if err != nil {
		return nil, wrapQueryError(err, wrapMsg)
	}

	return &like, nil
}

// AddLike records that a user liked a comment.
func (c *Client) AddLike(ctx context.Context, tx *sql.Tx, like *model.Like) error {
	wrapMsg := fmt.Sprintf("unable to add a like from user %d on comment %d", like.AuthorID, like.CommentID)

	statement, args, err := c.builder.
		Insert("likes").
		Columns("author", "comment_id", "date_created").
		Values(like.AuthorID, like.CommentID, like.DateCreated).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = tx.QueryRowContext(ctx, statement, args...).Scan(&like.ID); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// DeleteLike removes a like.
func (c *Client) DeleteLike(ctx context.Context, tx *sql.Tx, id int64) error {
	wrapMsg := fmt.Sprintf("unable to delete like %d", id)

	statement, args, err := c.builder.
		Delete("likes").
		Where(sq.Eq{"id": id}).
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

// ListTicketCommentFiles lists the files attached to the comments on a ticket.
func (c *Client) ListTicketCommentFiles(ctx context.Context, tx *sql.Tx, ticketID int64) ([]string, error) {
	wrapMsg := fmt.Sprintf("unable to list the comment files for ticket %d", ticketID)

	query, args, err := c.builder.
		Select("file").
		From("comments").
		Where(sq.Eq{"ticket_id": ticketID}).
		Where(sq.NotEq{"file": ""}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err = rows.Scan(&file); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		files = append(files, file)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return files, nil
}
