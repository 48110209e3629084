package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/db"
	"github.com/cyverse-de/ticket-tracker/events"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/cyverse-de/ticket-tracker/storage"
	"github.com/sirupsen/logrus"
)

var log = common.Log.WithFields(logrus.Fields{"package": "handlers"})

// DatabaseClient describes the database operations used by the workflows. Every query runs inside a transaction
// obtained from Begin.
type DatabaseClient interface {
	Begin(ctx context.Context) (*sql.Tx, error)
	Commit(tx *sql.Tx) error
	Rollback(tx *sql.Tx) error

	AddUser(ctx context.Context, tx *sql.Tx, user *model.User) error
	UsernameTaken(ctx context.Context, tx *sql.Tx, username string) (bool, error)
	EmailTaken(ctx context.Context, tx *sql.Tx, email string) (bool, error)
	GetUser(ctx context.Context, tx *sql.Tx, id int64) (*model.User, error)
	UpdateUserProfile(ctx context.Context, tx *sql.Tx, user *model.User) error
	SetMessageReadTime(ctx context.Context, tx *sql.Tx, userID int64, readTime time.Time) error
	SetNotificationReadTime(ctx context.Context, tx *sql.Tx, userID int64, readTime time.Time) error

	AddProject(ctx context.Context, tx *sql.Tx, project *model.Project) error
	ProjectNameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error)
	GetProject(ctx context.Context, tx *sql.Tx, id int64) (*model.Project, error)
	ListProjects(ctx context.Context, tx *sql.Tx) ([]*model.Project, error)
	UpdateProject(ctx context.Context, tx *sql.Tx, project *model.Project) error
	SetProjectDaysLeft(ctx context.Context, tx *sql.Tx, id int64, daysLeft int) error
	DeleteProject(ctx context.Context, tx *sql.Tx, id int64) error

	AddTicket(ctx context.Context, tx *sql.Tx, ticket *model.Ticket) error
	TicketNameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error)
	GetTicket(ctx context.Context, tx *sql.Tx, id int64) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, tx *sql.Tx, ticket *model.Ticket) error
	DeleteTicket(ctx context.Context, tx *sql.Tx, id int64) error

	AddComment(ctx context.Context, tx *sql.Tx, comment *model.Comment) error
	GetComment(ctx context.Context, tx *sql.Tx, id int64) (*model.Comment, error)
	UpdateComment(ctx context.Context, tx *sql.Tx, comment *model.Comment) error
	ListTicketCommentFiles(ctx context.Context, tx *sql.Tx, ticketID int64) ([]string, error)
	GetLike(ctx context.Context, tx *sql.Tx, authorID, commentID int64) (*model.Like, error)
	AddLike(ctx context.Context, tx *sql.Tx, like *model.Like) error
	DeleteLike(ctx context.Context, tx *sql.Tx, id int64) error

	SaveMessage(ctx context.Context, tx *sql.Tx, message *model.Message) error
	CountUnreadMessages(ctx context.Context, tx *sql.Tx, userID int64, since time.Time) (int64, error)
	ListReceivedMessages(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Message, error)
	ListSentMessages(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Message, error)

	SaveNotification(ctx context.Context, tx *sql.Tx, notification *model.Notification) error
	CountUnreadNotifications(ctx context.Context, tx *sql.Tx, userID int64, since time.Time) (int64, error)
	ListReceivedNotifications(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Notification, error)
	ListSentNotifications(ctx context.Context, tx *sql.Tx, userID int64) ([]model.Notification, error)
}

// Dependencies are the collaborators shared by every workflow.
type Dependencies struct {
	DB        DatabaseClient
	Files     storage.FileStore
	Publisher events.Publisher
	Clock     func() time.Time
}

// Upload is a file supplied along with a change set.
type Upload struct {
	Filename string
	Content  io.Reader
	Size     int64
}

// base holds the collaborators and helpers shared by the workflows.
type base struct {
	db        DatabaseClient
	files     storage.FileStore
	publisher events.Publisher
	now       func() time.Time
	notifier  *Notifier
}

func newBase(deps Dependencies) base {
	now := deps.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Discard{}
	}
	return base{
		db:        deps.DB,
		files:     deps.Files,
		publisher: publisher,
		now:       now,
		notifier:  NewNotifier(deps.DB, now),
	}
}

// lookupError converts an error from a database lookup into either a NotFoundError or a PersistenceError.
func lookupError(err error, formatString string, a ...interface{}) error {
	description := fmt.Sprintf(formatString, a...)
	if db.IsNotFound(err) {
		return NewNotFoundError("%s not found", description)
	}
	return NewPersistenceError(err, "unable to look up %s", description)
}

// inTransaction calls fn within a database transaction, committing the transaction only if fn succeeds.
func (b *base) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return NewPersistenceError(err, "unable to begin a database transaction")
	}
	defer func() {
		if err := b.db.Rollback(tx); err != nil {
			log.Errorf("unable to roll back the database transaction: %s", err)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = b.db.Commit(tx); err != nil {
		return NewPersistenceError(err, "unable to commit the database transaction")
	}
	return nil
}

// publish hands committed notifications to the event publisher. Failures are logged because the notifications
// have already been stored.
func (b *base) publish(ctx context.Context, notifications []model.Notification) {
	if len(notifications) == 0 {
		return
	}
	if err := b.publisher.PublishNotifications(ctx, notifications); err != nil {
		log.Errorf("unable to publish %d notifications: %s", len(notifications), err)
	}
}

// resolveDevelopers looks up each developer ID and returns references in the same order.
func (b *base) resolveDevelopers(ctx context.Context, tx *sql.Tx, ids []int64) ([]model.UserRef, error) {
	developers := make([]model.UserRef, 0, len(ids))
	for _, id := range ids {
		user, err := b.db.GetUser(ctx, tx, id)
		if err != nil {
			return nil, lookupError(err, "developer %d", id)
		}
		developers = append(developers, user.Ref())
	}
	return developers, nil
}

// projectFolder returns the storage folder that holds the files attached to a project and its tickets. Folders are
// keyed on the project ID because distinct project names may reduce to the same secure filename.
func projectFolder(projectID int64) string {
	return fmt.Sprintf("project-%d", projectID)
}

// store saves an upload in the given folder, returning an empty path if there is nothing to store.
func (b *base) store(ctx context.Context, folder string, upload *Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if b.files == nil {
		return "", NewValidationError("file uploads are not enabled")
	}
	storedPath, err := b.files.Save(ctx, folder, upload.Filename, upload.Content, upload.Size)
	if err != nil {
		return "", NewPersistenceError(err, "unable to store %s", upload.Filename)
	}
	return storedPath, nil
}

// removeFile removes a stored file. Failures are logged and otherwise ignored.
func (b *base) removeFile(ctx context.Context, storedPath string) {
	if storedPath == "" {
		return
	}
	if b.files == nil {
		log.Warnf("file uploads are not enabled; leaving %s in place", storedPath)
		return
	}
	if err := b.files.Delete(ctx, storedPath); err != nil {
		log.Warnf("unable to remove %s: %s", storedPath, err)
	}
}

// removeFolder removes a stored folder. Failures are logged and otherwise ignored.
func (b *base) removeFolder(ctx context.Context, folder string) {
	if b.files == nil {
		return
	}
	if err := b.files.DeleteFolder(ctx, folder); err != nil {
		log.Warnf("unable to remove folder %s: %s", folder, err)
	}
}
