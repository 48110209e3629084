package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/stretchr/testify/assert"
)

func TestSaveMessage(t *testing.T) {
	assert := assert.New(t)

	client, db, mock := newMockClient(t)
	ctx := context.Background()
	defer db.Close()

	timestamp := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages \\(sender_id,recipient_id,body,timestamp\\)").
		WithArgs(int64(1), int64(2), "hello", timestamp).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectRollback()

	tx, err := db.Begin()
	assert.NoError(err, "unable to begin a transaction")
	message := &model.Message{SenderID: 1, RecipientID: 2, Body: "hello", Timestamp: timestamp}
	err = client.SaveMessage(ctx, tx, message)
	assert.NoError(err, "unexpected error occurred while saving the message")
	assert.Equal(int64(10), message.ID)
	_ = tx.Rollback()

	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestCountUnreadMessages(t *testing.T) {
	assert := assert.New(t)

	client, db, mock := newMockClient(t)
	ctx := context.Background()
	defer db.Close()

	since := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM messages WHERE .*recipient_id.*timestamp >").
		WithArgs(int64(2), since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectRollback()

	tx, err := db.Begin()
	assert.NoError(err, "unable to begin a transaction")
	count, err := client.CountUnreadMessages(ctx, tx, 2, since)
	assert.NoError(err, "unexpected error occurred while counting messages")
	assert.Equal(int64(3), count)
	_ = tx.Rollback()

	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}
