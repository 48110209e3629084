package handlers

import (
	"context"
	"database/sql"

	"github.com/cyverse-de/ticket-tracker/model"
)

// Messages implements direct messaging between users.
type Messages struct {
	base
}

// NewMessages returns the messaging workflows.
func NewMessages(deps Dependencies) *Messages {
	return &Messages{base: newBase(deps)}
}

// Send stores a message from the actor to another user.
func (h *Messages) Send(ctx context.Context, actor model.UserRef, recipientID int64, body string) (*model.Message, error) {
	if err := checkLength("message", body, 1, 3000); err != nil {
		return nil, err
	}

	var message *model.Message
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		recipient, err := h.db.GetUser(ctx, tx, recipientID)
		if err != nil {
			return lookupError(err, "recipient %d", recipientID)
		}

		message = &model.Message{
			SenderID:    actor.ID,
			RecipientID: recipient.ID,
			Body:        body,
			Timestamp:   h.now(),
		}
		if err = h.db.SaveMessage(ctx, tx, message); err != nil {
			return NewPersistenceError(err, "unable to send a message to user %d", recipientID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("user %d sent message %d to user %d", actor.ID, message.ID, recipientID)
	return message, nil
}
