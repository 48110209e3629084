package handlers

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/cyverse-de/ticket-tracker/db"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/cyverse-de/ticket-tracker/storage"
	"github.com/pkg/errors"
)

// mockState holds the rows stored by the mock database client.
type mockState struct {
	nextID        int64
	users         map[int64]model.User
	projects      map[int64]model.Project
	tickets       map[int64]model.Ticket
	comments      map[int64]model.Comment
	likes         map[int64]model.Like
	messages      []model.Message
	notifications []model.Notification
}

func newMockState() *mockState {
	return &mockState{
		users:    make(map[int64]model.User),
		projects: make(map[int64]model.Project),
		tickets:  make(map[int64]model.Ticket),
		comments: make(map[int64]model.Comment),
		likes:    make(map[int64]model.Like),
	}
}

func copyRefs(refs []model.UserRef) []model.UserRef {
	return append([]model.UserRef(nil), refs...)
}

// clone returns a copy of the state that shares nothing mutable with the original.
func (s *mockState) clone() *mockState {
	c := newMockState()
	c.nextID = s.nextID
	for id, user := range s.users {
		c.users[id] = user
	}
	for id, project := range s.projects {
		project.Developers = copyRefs(project.Developers)
		c.projects[id] = project
	}
	for id, ticket := range s.tickets {
		ticket.Developers = copyRefs(ticket.Developers)
		c.tickets[id] = ticket
	}
	for id, comment := range s.comments {
		c.comments[id] = comment
	}
	for id, like := range s.likes {
		c.likes[id] = like
	}
	c.messages = append([]model.Message(nil), s.messages...)
	c.notifications = append([]model.Notification(nil), s.notifications...)
	return c
}

func (s *mockState) newID() int64 {
	s.nextID++
	return s.nextID
}

// MockDatabaseClient is an in-memory implementation of DatabaseClient. Begin takes a snapshot of the stored rows,
// and Rollback restores the snapshot unless the transaction was committed.
type MockDatabaseClient struct {
	state     *mockState
	snapshot  *mockState
	committed bool

	BeginCalled    bool
	CommitCalled   bool
	RolledBack     bool
	CommitError    error
	QueryError     error
	FailingUserIDs map[int64]bool
}

// NewMockDatabaseClient creates a new, empty mock database client for testing.
func NewMockDatabaseClient() *MockDatabaseClient {
	return &MockDatabaseClient{state: newMockState(), FailingUserIDs: make(map[int64]bool)}
}

// Begin records the fact that it was called and takes a snapshot of the current state.
func (c *MockDatabaseClient) Begin(context.Context) (*sql.Tx, error) {
	c.BeginCalled = true
	c.snapshot = c.state.clone()
	c.committed = false
	return nil, nil
}

// Commit records the fact that it was called and returns CommitError if one was set.
func (c *MockDatabaseClient) Commit(*sql.Tx) error {
	c.CommitCalled = true
	if c.CommitError != nil {
		return c.CommitError
	}
	c.committed = true
	return nil
}

// Rollback restores the snapshot taken by Begin if the transaction wasn't committed.
func (c *MockDatabaseClient) Rollback(*sql.Tx) error {
	if !c.committed && c.snapshot != nil {
		c.state = c.snapshot
		c.RolledBack = true
	}
	c.snapshot = nil
	return nil
}

// errUniqueViolation mimics the error returned by the database when a unique constraint is violated.
var errUniqueViolation = errors.New("duplicate key value violates unique constraint")

// AddUser stores a copy of the user.
func (c *MockDatabaseClient) AddUser(ctx context.Context, tx *sql.Tx, user *model.User) error {
	usernameTaken, _ := c.UsernameTaken(ctx, tx, user.Username)
	emailTaken, _ := c.EmailTaken(ctx, tx, user.Email)
	if usernameTaken || emailTaken {
		return errUniqueViolation
	}
	user.ID = c.state.newID()
	c.state.users[user.ID] = *user
	return nil
}

// UsernameTaken returns true if a stored user has the given username.
func (c *MockDatabaseClient) UsernameTaken(_ context.Context, _ *sql.Tx, username string) (bool, error) {
	for _, user := range c.state.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// EmailTaken returns true if a stored user has the given email address.
func (c *MockDatabaseClient) EmailTaken(_ context.Context, _ *sql.Tx, email string) (bool, error) {
	for _, user := range c.state.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// GetUser returns a copy of a stored user.
func (c *MockDatabaseClient) GetUser(_ context.Context, _ *sql.Tx, id int64) (*model.User, error) {
	if c.FailingUserIDs[id] {
		return nil, errors.New("connection reset")
	}
	user, ok := c.state.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &user, nil
}

// UpdateUserProfile stores a copy of the user.
func (c *MockDatabaseClient) UpdateUserProfile(_ context.Context, _ *sql.Tx, user *model.User) error {
	if _, ok := c.state.users[user.ID]; !ok {
		return db.ErrNotFound
	}
	c.state.users[user.ID] = *user
	return nil
}

// SetMessageReadTime updates the message watermark for a user.
func (c *MockDatabaseClient) SetMessageReadTime(_ context.Context, _ *sql.Tx, userID int64, readTime time.Time) error {
	user, ok := c.state.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	user.LastMessageReadTime = &readTime
	c.state.users[userID] = user
	return nil
}

// SetNotificationReadTime updates the notification watermark for a user.
func (c *MockDatabaseClient) SetNotificationReadTime(
	_ context.Context,
	_ *sql.Tx,
	userID int64,
	readTime time.Time,
) error {
	user, ok := c.state.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	user.LastNotificationReadTime = &readTime
	c.state.users[userID] = user
	return nil
}

// AddProject stores a copy of the project.
func (c *MockDatabaseClient) AddProject(ctx context.Context, tx *sql.Tx, project *model.Project) error {
	if taken, _ := c.ProjectNameTaken(ctx, tx, project.Name); taken {
		return errUniqueViolation
	}
	project.ID = c.state.newID()
	stored := *project
	stored.Developers = copyRefs(project.Developers)
	c.state.projects[project.ID] = stored
	return nil
}

// ProjectNameTaken returns true if a stored project has the given name.
func (c *MockDatabaseClient) ProjectNameTaken(_ context.Context, _ *sql.Tx, name string) (bool, error) {
	for _, project := range c.state.projects {
		if project.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// GetProject returns a copy of a stored project.
func (c *MockDatabaseClient) GetProject(_ context.Context, _ *sql.Tx, id int64) (*model.Project, error) {
	if c.QueryError != nil {
		return nil, c.QueryError
	}
	project, ok := c.state.projects[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	project.Developers = copyRefs(project.Developers)
	return &project, nil
}

// ListProjects returns copies of every stored project in ID order.
func (c *MockDatabaseClient) ListProjects(ctx context.Context, tx *sql.Tx) ([]*model.Project, error) {
	ids := make([]int64, 0, len(c.state.projects))
	for id := range c.state.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	projects := make([]*model.Project, 0, len(ids))
	for _, id := range ids {
		project, _ := c.GetProject(ctx, tx, id)
		projects = append(projects, project)
	}
	return projects, nil
}

// UpdateProject stores a copy of the project.
func (c *MockDatabaseClient) UpdateProject(_ context.Context, _ *sql.Tx, project *model.Project) error {
	if _, ok := c.state.projects[project.ID]; !ok {
		return db.ErrNotFound
	}
	stored := *project
	stored.Developers = copyRefs(project.Developers)
	c.state.projects[project.ID] = stored
	return nil
}

// SetProjectDaysLeft updates the number of days left for a project.
func (c *MockDatabaseClient) SetProjectDaysLeft(_ context.Context, _ *sql.Tx, id int64, daysLeft int) error {
	project, ok := c.state.projects[id]
	if !ok {
		return db.ErrNotFound
	}
	project.DaysLeft = daysLeft
	c.state.projects[id] = project
	return nil
}

// DeleteProject removes a project along with its tickets and every comment on either.
func (c *MockDatabaseClient) DeleteProject(_ context.Context, _ *sql.Tx, id int64) error {
	if _, ok := c.state.projects[id]; !ok {
		return db.ErrNotFound
	}
	for ticketID, ticket := range c.state.tickets {
		if ticket.ProjectID == id {
			c.deleteTicket(ticketID)
		}
	}
	for commentID, comment := range c.state.comments {
		if comment.ProjectID != nil && *comment.ProjectID == id {
			c.deleteComment(commentID)
		}
	}
	delete(c.state.projects, id)
	return nil
}

// AddTicket stores a copy of the ticket.
func (c *MockDatabaseClient) AddTicket(ctx context.Context, tx *sql.Tx, ticket *model.Ticket) error {
	if taken, _ := c.TicketNameTaken(ctx, tx, ticket.Name); taken {
		return errUniqueViolation
	}
	ticket.ID = c.state.newID()
	stored := *ticket
	stored.Developers = copyRefs(ticket.Developers)
	c.state.tickets[ticket.ID] = stored
	return nil
}

// TicketNameTaken returns true if a stored ticket has the given name.
func (c *MockDatabaseClient) TicketNameTaken(_ context.Context, _ *sql.Tx, name string) (bool, error) {
	for _, ticket := range c.state.tickets {
		if ticket.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// GetTicket returns a copy of a stored ticket.
func (c *MockDatabaseClient) GetTicket(_ context.Context, _ *sql.Tx, id int64) (*model.Ticket, error) {
	ticket, ok := c.state.tickets[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	ticket.Developers = copyRefs(ticket.Developers)
	return &ticket, nil
}

// UpdateTicket stores a copy of the ticket.
func (c *MockDatabaseClient) UpdateTicket(_ context.Context, _ *sql.Tx, ticket *model.Ticket) error {
	if _, ok := c.state.tickets[ticket.ID]; !ok {
		return db.ErrNotFound
	}
	stored := *ticket
	stored.Developers = copyRefs(ticket.Developers)
	c.state.tickets[ticket.ID] = stored
	return nil
}

// DeleteTicket removes a ticket along with its comments.
func (c *MockDatabaseClient) DeleteTicket(_ context.Context, _ *sql.Tx, id int64) error {
	if _, ok := c.state.tickets[id]; !ok {
		return db.ErrNotFound
	}
	c.deleteTicket(id)
	return nil
}

func (c *MockDatabaseClient) deleteTicket(id int64) {
	for commentID, comment := range c.state.comments {
		if comment.TicketID != nil && *comment.TicketID == id {
			c.deleteComment(commentID)
		}
	}
	delete(c.state.tickets, id)
}

func (c *MockDatabaseClient) deleteComment(id int64) {
	for likeID, like := range c.state.likes {
		if like.CommentID == id {
			delete(c.state.likes, likeID)
		}
	}
	delete(c.state.comments, id)
}

// AddComment stores a copy of the comment.
func (c *MockDatabaseClient) AddComment(_ context.Context, _ *sql.Tx, comment *model.Comment) error {
	comment.ID = c.state.newID()
	c.state.comments[comment.ID] = *comment
	return nil
}

// GetComment returns a copy of a stored comment.
func (c *MockDatabaseClient) GetComment(_ context.Context, _ *sql.Tx, id int64) (*model.Comment, error) {
	comment, ok := c.state.comments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &comment, nil
}

// UpdateComment stores a copy of the comment.
func (c *MockDatabaseClient) UpdateComment(_ context.Context, _ *sql.Tx, comment *model.Comment) error {
	if _, ok := c.state.comments[comment.ID]; !ok {
		return db.ErrNotFound
	}
	c.state.comments[comment.ID] = *comment
	return nil
}

// ListTicketCommentFiles lists the files attached to the comments on a ticket in ID order.
func (c *MockDatabaseClient) ListTicketCommentFiles(_ context.Context, _ *sql.Tx, ticketID int64) ([]string, error) {
	ids := make([]int64, 0, len(c.state.comments))
	for id, comment := range c.state.comments {
		if comment.TicketID != nil && *comment.TicketID == ticketID && comment.File != "" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	files := make([]string, 0, len(ids))
	for _, id := range ids {
		files = append(files, c.state.comments[id].File)
	}
	return files, nil
}

// GetLike returns the like a user gave a comment.
func (c *MockDatabaseClient) GetLike(_ context.Context, _ *sql.Tx, authorID, commentID int64) (*model.Like, error) {
	for _, like := range c.state.likes {
		if like.AuthorID == authorID && like.CommentID == commentID {
			return &like, nil
		}
	}
	return nil, db.ErrNotFound
}

// AddLike stores a copy of the like.
func (c *MockDatabaseClient) AddLike(_ context.Context, _ *sql.Tx, like *model.Like) error {
	like.ID = c.state.newID()
	c.state.likes[like.ID] = *like
	return nil
}

// DeleteLike removes a like.
func (c *MockDatabaseClient) DeleteLike(_ context.Context, _ *sql.Tx, id int64) error {
	if _, ok := c.state.likes[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.state.likes, id)
	return nil
}

// SaveMessage stores a copy of the message.
func (c *MockDatabaseClient) SaveMessage(_ context.Context, _ *sql.Tx, message *model.Message) error {
	message.ID = c.state.newID()
	c.state.messages = append(c.state.messages, *message)
	return nil
}

// CountUnreadMessages counts the messages a user received after since.
func (c *MockDatabaseClient) CountUnreadMessages(
	_ context.Context,
	_ *sql.Tx,
	userID int64,
	since time.Time,
) (int64, error) {
	var count int64
	for _, message := range c.state.messages {
		if message.RecipientID == userID && message.Timestamp.After(since) {
			count++
		}
	}
	return count, nil
}

func (c *MockDatabaseClient) listMessages(matches func(*model.Message) bool) []model.Message {
	var messages []model.Message
	for i := len(c.state.messages) - 1; i >= 0; i-- {
		if matches(&c.state.messages[i]) {
			messages = append(messages, c.state.messages[i])
		}
	}
	return messages
}

// ListReceivedMessages lists the messages a user received, newest first.
func (c *MockDatabaseClient) ListReceivedMessages(_ context.Context, _ *sql.Tx, userID int64) ([]model.Message, error) {
	return c.listMessages(func(m *model.Message) bool { return m.RecipientID == userID }), nil
}

// ListSentMessages lists the messages a user sent, newest first.
func (c *MockDatabaseClient) ListSentMessages(_ context.Context, _ *sql.Tx, userID int64) ([]model.Message, error) {
	return c.listMessages(func(m *model.Message) bool { return m.SenderID == userID }), nil
}

// SaveNotification stores a copy of the notification.
func (c *MockDatabaseClient) SaveNotification(_ context.Context, _ *sql.Tx, notification *model.Notification) error {
	if !notification.Type.Valid() {
		return db.ErrNotFound
	}
	notification.ID = c.state.newID()
	c.state.notifications = append(c.state.notifications, *notification)
	return nil
}

// CountUnreadNotifications counts the notifications a user received from other users after since.
func (c *MockDatabaseClient) CountUnreadNotifications(
	_ context.Context,
	_ *sql.Tx,
	userID int64,
	since time.Time,
) (int64, error) {
	var count int64
	for _, n := range c.state.notifications {
		if n.RecipientID == userID && n.SenderID != userID && n.Timestamp.After(since) {
			count++
		}
	}
	return count, nil
}

func (c *MockDatabaseClient) listNotifications(matches func(*model.Notification) bool) []model.Notification {
	var notifications []model.Notification
	for i := len(c.state.notifications) - 1; i >= 0; i-- {
		if matches(&c.state.notifications[i]) {
			notifications = append(notifications, c.state.notifications[i])
		}
	}
	return notifications
}

// ListReceivedNotifications lists the notifications a user received, newest first.
func (c *MockDatabaseClient) ListReceivedNotifications(
	_ context.Context,
	_ *sql.Tx,
	userID int64,
) ([]model.Notification, error) {
	return c.listNotifications(func(n *model.Notification) bool { return n.RecipientID == userID }), nil
}

// ListSentNotifications lists the notifications a user caused, newest first.
func (c *MockDatabaseClient) ListSentNotifications(
	_ context.Context,
	_ *sql.Tx,
	userID int64,
) ([]model.Notification, error) {
	return c.listNotifications(func(n *model.Notification) bool { return n.SenderID == userID }), nil
}

// Notifications returns every stored notification in the order in which they were saved.
func (c *MockDatabaseClient) Notifications() []model.Notification {
	return append([]model.Notification(nil), c.state.notifications...)
}

// MockPublisher records the notifications it's asked to publish.
type MockPublisher struct {
	Published []model.Notification
	Err       error
}

// PublishNotifications records the notifications and returns Err.
func (p *MockPublisher) PublishNotifications(_ context.Context, notifications []model.Notification) error {
	p.Published = append(p.Published, notifications...)
	return p.Err
}

// failingFileStore is a file store whose deletions always fail.
type failingFileStore struct {
	storage.FileStore
	err error
}

// Delete returns the configured error.
func (s *failingFileStore) Delete(context.Context, string) error {
	return s.err
}

// DeleteFolder returns the configured error.
func (s *failingFileStore) DeleteFolder(context.Context, string) error {
	return s.err
}

// newClock returns a clock that starts at start and advances by one minute each time it's read.
func newClock(start time.Time) func() time.Time {
	current := start.Add(-time.Minute)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}
