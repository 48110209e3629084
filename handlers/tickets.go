package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/cyverse-de/ticket-tracker/version"
)

// NewTicket describes a ticket to be created.
type NewTicket struct {
	Name         string
	Description  string
	Status       string
	Type         string
	ProjectID    int64
	DeveloperIDs []int64
	Upload       *Upload
}

// Validate checks the ticket against the form constraints.
func (t *NewTicket) Validate() error {
	if t.ProjectID == 0 {
		return NewValidationError("a project is required")
	}
	return firstError(
		checkLength("name", t.Name, 2, 64),
		checkLength("description", t.Description, 1, 1500),
		checkChoice("status", t.Status, model.Statuses),
		checkChoice("type", t.Type, model.TicketTypes),
		checkDevelopers(t.DeveloperIDs),
	)
}

// TicketChanges describes an edit to an existing ticket.
type TicketChanges struct {
	Description  string
	Status       string
	Type         string
	DeveloperIDs []int64
}

// Validate checks the changes against the form constraints.
func (c *TicketChanges) Validate() error {
	return firstError(
		checkLength("description", c.Description, 1, 1500),
		checkChoice("status", c.Status, model.Statuses),
		checkChoice("type", c.Type, model.TicketTypes),
		checkDevelopers(c.DeveloperIDs),
	)
}

// TicketUpdate is the outcome of a ticket edit.
type TicketUpdate struct {
	Ticket        *model.Ticket
	Diff          string
	Notifications []model.Notification
}

// Tickets implements the ticket workflows.
type Tickets struct {
	base
}

// NewTickets returns the ticket workflows.
func NewTickets(deps Dependencies) *Tickets {
	return &Tickets{base: newBase(deps)}
}

// Get loads a ticket.
func (h *Tickets) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		ticket, err = h.db.GetTicket(ctx, tx, id)
		if err != nil {
			return lookupError(err, "ticket %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Create creates a ticket within an existing project and notifies its developers.
func (h *Tickets) Create(ctx context.Context, actor model.UserRef, input *NewTicket) (*model.Ticket, []model.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	var ticket *model.Ticket
	var notifications []model.Notification
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		project, err := h.db.GetProject(ctx, tx, input.ProjectID)
		if err != nil {
			return lookupError(err, "project %d", input.ProjectID)
		}

		taken, err := h.db.TicketNameTaken(ctx, tx, input.Name)
		if err != nil {
			return NewPersistenceError(err, "unable to look up ticket %s", input.Name)
		}
		if taken {
			return NewValidationError("the ticket name %s is already taken", input.Name)
		}

		developers, err := h.resolveDevelopers(ctx, tx, input.DeveloperIDs)
		if err != nil {
			return err
		}

		if filePath, err = h.store(ctx, projectFolder(project.ID), input.Upload); err != nil {
			return err
		}

		now := h.now()
		ticket = &model.Ticket{
			DateCreated: now,
			Author:      actor.ID,
			Name:        input.Name,
			Description: input.Description,
			Status:      input.Status,
			Type:        input.Type,
			Developers:  developers,
			File:        filePath,
			LastUpdate:  now,
			ProjectID:   project.ID,
		}
		if err = h.db.AddTicket(ctx, tx, ticket); err != nil {
			return NewPersistenceError(err, "unable to create ticket %s", ticket.Name)
		}

		subject := fmt.Sprintf("%s created ticket %s", actor.Username, ticket.Name)
		notifications, err = h.notifier.Send(
			ctx, tx, ticket.Developers, actor, ticket.Description, model.NotificationCreate, subject,
		)
		return err
	})
	if err != nil {
		h.removeFile(ctx, filePath)
		return nil, nil, err
	}

	log.Infof("user %d created ticket %d in project %d", actor.ID, ticket.ID, ticket.ProjectID)
	h.publish(ctx, notifications)
	return ticket, notifications, nil
}

// Update applies changes to a ticket and notifies every developer assigned to the ticket either before or after
// the edit. The edit and the notifications are committed together.
func (h *Tickets) Update(ctx context.Context, actor model.UserRef, id int64, changes *TicketChanges) (*TicketUpdate, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	result := &TicketUpdate{}
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		ticket, err := h.db.GetTicket(ctx, tx, id)
		if err != nil {
			return lookupError(err, "ticket %d", id)
		}

		before := version.TicketSchema.Take(ticket)
		developersBefore := append([]model.UserRef(nil), ticket.Developers...)

		developersAfter, err := h.resolveDevelopers(ctx, tx, changes.DeveloperIDs)
		if err != nil {
			return err
		}
		ticket.Description = changes.Description
		ticket.Status = changes.Status
		ticket.Type = changes.Type
		ticket.Developers = developersAfter
		ticket.LastUpdate = h.now()

		if err = h.db.UpdateTicket(ctx, tx, ticket); err != nil {
			return NewPersistenceError(err, "unable to update ticket %d", id)
		}

		after := version.TicketSchema.Take(ticket)
		difference := version.Diff(before, after)

		subject := fmt.Sprintf("%s updated ticket %s", actor.Username, ticket.Name)
		recipients := Union(developersBefore, developersAfter)
		notifications, err := h.notifier.Send(ctx, tx, recipients, actor, difference, model.NotificationUpdate, subject)
		if err != nil {
			return err
		}

		result.Ticket = ticket
		result.Diff = difference
		result.Notifications = notifications
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %d updated ticket %d", actor.ID, id)
	h.publish(ctx, result.Notifications)
	return result, nil
}

// Delete removes a ticket along with its comments. Only the ticket's author may delete it. The developers
// assigned at the time of deletion are notified. The files attached to the ticket and to its comments are removed
// once the deletion is committed.
func (h *Tickets) Delete(ctx context.Context, actor model.UserRef, id int64) ([]model.Notification, error) {
	var ticket *model.Ticket
	var notifications []model.Notification
	var commentFiles []string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		ticket, err = h.db.GetTicket(ctx, tx, id)
		if err != nil {
			return lookupError(err, "ticket %d", id)
		}
		if ticket.Author != actor.ID {
			return NewPermissionError("only the author can delete this ticket")
		}

		subject := fmt.Sprintf("%s deleted ticket %s", actor.Username, ticket.Name)
		body := "ticket and all associated comments were deleted"
		notifications, err = h.notifier.Send(ctx, tx, ticket.Developers, actor, body, model.NotificationDelete, subject)
		if err != nil {
			return err
		}

		if commentFiles, err = h.db.ListTicketCommentFiles(ctx, tx, id); err != nil {
			return NewPersistenceError(err, "unable to list the comment files for ticket %d", id)
		}
		if err = h.db.DeleteTicket(ctx, tx, id); err != nil {
			return lookupError(err, "ticket %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %d deleted ticket %d", actor.ID, id)
	h.removeFile(ctx, ticket.File)
	for _, filePath := range commentFiles {
		h.removeFile(ctx, filePath)
	}
	h.publish(ctx, notifications)
	return notifications, nil
}

// DeleteFile detaches the file from a ticket and removes it from the file store. Only the ticket's author may do
// this.
func (h *Tickets) DeleteFile(ctx context.Context, actor model.UserRef, id int64) error {
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		ticket, err := h.db.GetTicket(ctx, tx, id)
		if err != nil {
			return lookupError(err, "ticket %d", id)
		}
		if ticket.Author != actor.ID {
			return NewPermissionError("only the author can delete this file")
		}

		filePath = ticket.File
		if filePath == "" {
			return nil
		}
		ticket.File = ""
		if err = h.db.UpdateTicket(ctx, tx, ticket); err != nil {
			return NewPersistenceError(err, "unable to update ticket %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.removeFile(ctx, filePath)
	return nil
}

// Comment adds a comment to a ticket and notifies the ticket's developers. Attached files are stored in the
// folder of the ticket's project.
func (h *Tickets) Comment(ctx context.Context, actor model.UserRef, id int64, input *NewComment) (*model.Comment, []model.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	var comment *model.Comment
	var notifications []model.Notification
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		ticket, err := h.db.GetTicket(ctx, tx, id)
		if err != nil {
			return lookupError(err, "ticket %d", id)
		}
		if filePath, err = h.store(ctx, projectFolder(ticket.ProjectID), input.Upload); err != nil {
			return err
		}
		comment = &model.Comment{
			Text:        input.Text,
			DateCreated: h.now(),
			AuthorID:    actor.ID,
			TicketID:    &ticket.ID,
			File:        filePath,
		}
		if err = h.db.AddComment(ctx, tx, comment); err != nil {
			return NewPersistenceError(err, "unable to add a comment to ticket %d", id)
		}

		subject := fmt.Sprintf("%s commented ticket %s", actor.Username, ticket.Name)
		notifications, err = h.notifier.Send(
			ctx, tx, ticket.Developers, actor, input.Text, model.NotificationComment, subject,
		)
		return err
	})
	if err != nil {
		h.removeFile(ctx, filePath)
		return nil, nil, err
	}

	h.publish(ctx, notifications)
	return comment, notifications, nil
}
