package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/db"
	"github.com/cyverse-de/ticket-tracker/model"
)

// NewComment describes a comment to be added to a project or a ticket.
type NewComment struct {
	Text   string
	Upload *Upload
}

// Validate checks the comment against the form constraints.
func (c *NewComment) Validate() error {
	return checkLength("comment", c.Text, 1, 3000)
}

// Comments implements the comment workflows.
type Comments struct {
	base
}

// NewComments returns the comment workflows.
func NewComments(deps Dependencies) *Comments {
	return &Comments{base: newBase(deps)}
}

// commentParent describes the project or ticket that a comment belongs to.
type commentParent struct {
	kind       string
	name       string
	developers []model.UserRef
}

func (h *Comments) parent(ctx context.Context, tx *sql.Tx, comment *model.Comment) (*commentParent, error) {
	switch {
	case comment.ProjectID != nil:
		project, err := h.db.GetProject(ctx, tx, *comment.ProjectID)
		if err != nil {
			return nil, lookupError(err, "project %d", *comment.ProjectID)
		}
		return &commentParent{kind: "project", name: project.Name, developers: project.Developers}, nil
	case comment.TicketID != nil:
		ticket, err := h.db.GetTicket(ctx, tx, *comment.TicketID)
		if err != nil {
			return nil, lookupError(err, "ticket %d", *comment.TicketID)
		}
		return &commentParent{kind: "ticket", name: ticket.Name, developers: ticket.Developers}, nil
	default:
		return nil, NewPersistenceError(fmt.Errorf("comment %d has no parent", comment.ID), "invalid comment")
	}
}

// Delete marks a comment as deleted and notifies the developers of the project or ticket it belongs to. Only the
// comment's author may delete it. Any attached file is removed once the deletion is committed.
func (h *Comments) Delete(ctx context.Context, actor model.UserRef, id int64) (*model.Comment, []model.Notification, error) {
	var comment *model.Comment
	var notifications []model.Notification
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		comment, err = h.db.GetComment(ctx, tx, id)
		if err != nil {
			return lookupError(err, "comment %d", id)
		}
		if comment.AuthorID != actor.ID {
			return NewPermissionError("only the author can delete this comment")
		}
		if comment.Deleted {
			return NewValidationError("comment %d has already been deleted", id)
		}

		parent, err := h.parent(ctx, tx, comment)
		if err != nil {
			return err
		}

		filePath = comment.File
		comment.Text = fmt.Sprintf("This comment was deleted on %s", common.FormatDate(h.now()))
		comment.File = ""
		comment.Deleted = true
		if err = h.db.UpdateComment(ctx, tx, comment); err != nil {
			return NewPersistenceError(err, "unable to delete comment %d", id)
		}

		subject := fmt.Sprintf("%s deleted comment in %s %s", actor.Username, parent.kind, parent.name)
		notifications, err = h.notifier.Send(ctx, tx, parent.developers, actor, "", model.NotificationDelete, subject)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Infof("user %d deleted comment %d", actor.ID, id)
	h.removeFile(ctx, filePath)
	h.publish(ctx, notifications)
	return comment, notifications, nil
}

// ToggleLike removes the actor's like from a comment if there is one, and adds one otherwise. The returned value
// indicates whether the actor likes the comment afterwards.
func (h *Comments) ToggleLike(ctx context.Context, actor model.UserRef, id int64) (bool, error) {
	var liked bool
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		comment, err := h.db.GetComment(ctx, tx, id)
		if err != nil {
			return lookupError(err, "comment %d", id)
		}

		like, err := h.db.GetLike(ctx, tx, actor.ID, id)
		switch {
		case err == nil:
			if err = h.db.DeleteLike(ctx, tx, like.ID); err != nil {
				return NewPersistenceError(err, "unable to remove the like from comment %d", id)
			}
			liked = false
			return nil
		case !db.IsNotFound(err):
			return NewPersistenceError(err, "unable to look up the like on comment %d", id)
		}

		if comment.Deleted {
			return NewValidationError("deleted comments can't be liked")
		}
		like = &model.Like{AuthorID: actor.ID, CommentID: id, DateCreated: h.now()}
		if err = h.db.AddLike(ctx, tx, like); err != nil {
			return NewPersistenceError(err, "unable to like comment %d", id)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}
