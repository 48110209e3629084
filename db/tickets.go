package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

var ticketColumns = []string{
	"id",
	"date_created",
	"author",
	"name",
	"description",
	"status",
	"type",
	"file",
	"last_update",
	"project_id",
}

// AddTicket inserts a ticket along with its developer assignments, storing the new ID in the ticket structure.
func (c *Client) AddTicket(ctx context.Context, tx *sql.Tx, ticket *model.Ticket) error {
	wrapMsg := fmt.Sprintf("unable to add ticket `%s`", ticket.Name)

	statement, args, err := c.builder.
		Insert("tickets").
		Columns(ticketColumns[1:]...).
		Values(
			ticket.DateCreated,
			ticket.Author,
			ticket.Name,
			ticket.Description,
			ticket.Status,
			ticket.Type,
			ticket.File,
			ticket.LastUpdate,
			ticket.ProjectID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = tx.QueryRowContext(ctx, statement, args...).Scan(&ticket.ID); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = c.setDevelopers(ctx, tx, "ticket_developers", "ticket_id", ticket.ID, ticket.Developers); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// GetTicket obtains a ticket and its developers.
func (c *Client) GetTicket(ctx context.Context, tx *sql.Tx, id int64) (*model.Ticket, error) {
	wrapMsg := fmt.Sprintf("unable to look up ticket %d", id)

	query, args, err := c.builder.
		Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	var ticket model.Ticket
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.DateCreated,
		&ticket.Author,
		&ticket.Name,
		&ticket.Description,
		&ticket.Status,
		&ticket.Type,
		&ticket.File,
		&ticket.LastUpdate,
		&ticket.ProjectID,
	)
	if err != nil {
		return nil, wrapQueryError(err, wrapMsg)
	}

	ticket.Developers, err = c.getDevelopers(ctx, tx, "ticket_developers", "ticket_id", id)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &ticket, nil
}

// UpdateTicket stores the mutable fields of a ticket and replaces its developer assignments.
func (c *Client) UpdateTicket(ctx context.Context, tx *sql.Tx, ticket *model.Ticket) error {
	wrapMsg := fmt.Sprintf("unable to update ticket %d", ticket.ID)

	statement, args, err := c.builder.
		Update("tickets").
		SetMap(map[string]interface{}{
			"description": ticket.Description,
			"status":      ticket.Status,
			"type":        ticket.Type,
			"file":        ticket.File,
			"last_update": ticket.LastUpdate,
		}).
		Where(sq.Eq{"id": ticket.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	result, err := tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if err = checkRowsAffected(result, wrapMsg); err != nil {
		return err
	}

	if err = c.setDevelopers(ctx, tx, "ticket_developers", "ticket_id", ticket.ID, ticket.Developers); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// DeleteTicket removes a ticket. Its comments and developer assignments are removed by the database.
func (c *Client) DeleteTicket(ctx context.Context, tx *sql.Tx, id int64) error {
	wrapMsg := fmt.Sprintf("unable to delete ticket %d", id)

	statement, args, err := c.builder.
		Delete("tickets").
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

// TicketNameTaken returns true if a ticket with the given name already exists.
func (c *Client) TicketNameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	wrapMsg := fmt.Sprintf("unable to look up tickets named `%s`", name)
	return c.rowExists(ctx, tx, "tickets", sq.Eq{"name": name}, wrapMsg)
}
