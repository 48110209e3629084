package handlers

import (
	"testing"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/stretchr/testify/assert"
)

func unreadNotifications(t *testing.T, f *fixture, username string) int64 {
	count, err := NewInbox(f.deps).UnreadNotificationCount(f.ctx, f.users[username].ID)
	assert.NoError(t, err)
	return count
}

func TestUnreadNotificationsExcludeSelf(t *testing.T) {
	f, _ := newApolloFixture(t)

	// Alice created the project and is one of its developers.
	assert.Equal(t, int64(0), unreadNotifications(t, f, "alice"))
	assert.Equal(t, int64(1), unreadNotifications(t, f, "bob"))
	assert.Equal(t, int64(0), unreadNotifications(t, f, "carol"))
}

func TestUnreadNotificationsAdvance(t *testing.T) {
	assert := assert.New(t)
	f, project := newApolloFixture(t)
	projects := NewProjects(f.deps)
	inbox := NewInbox(f.deps)

	previous := unreadNotifications(t, f, "bob")
	for _, status := range []string{model.StatusInProgress, model.StatusDone, model.StatusCancelled} {
		_, err := projects.Update(f.ctx, f.users["carol"], project.ID, apolloChanges(f, status, "alice", "bob"))
		assert.NoError(err)
		current := unreadNotifications(t, f, "bob")
		assert.Greater(current, previous)
		previous = current
	}
	assert.Equal(int64(4), previous)

	// Viewing the notifications moves the watermark past all of them.
	notifications, err := inbox.ViewNotifications(f.ctx, f.users["bob"].ID)
	assert.NoError(err)
	assert.Len(notifications, 4)
	assert.Equal("carol updated project Apollo", notifications[0].Subject)
	assert.Equal("alice created project Apollo", notifications[3].Subject)
	assert.Equal(int64(0), unreadNotifications(t, f, "bob"))

	user, err := f.db.GetUser(f.ctx, nil, f.users["bob"].ID)
	assert.NoError(err)
	if assert.NotNil(user.LastNotificationReadTime) {
		assert.True(user.LastNotificationReadTime.After(notifications[0].Timestamp))
	}

	_, err = projects.Update(f.ctx, f.users["carol"], project.ID, apolloChanges(f, model.StatusOpen, "alice", "bob"))
	assert.NoError(err)
	assert.Equal(int64(1), unreadNotifications(t, f, "bob"))
}

func TestUnreadMessages(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, "alice", "bob")
	messages := NewMessages(f.deps)
	inbox := NewInbox(f.deps)

	count, err := inbox.UnreadMessageCount(f.ctx, f.users["bob"].ID)
	assert.NoError(err)
	assert.Equal(int64(0), count)

	for _, body := range []string{"first", "second"} {
		_, err = messages.Send(f.ctx, f.users["alice"], f.users["bob"].ID, body)
		assert.NoError(err)
	}
	_, err = messages.Send(f.ctx, f.users["bob"], f.users["alice"].ID, "reply")
	assert.NoError(err)

	count, err = inbox.UnreadMessageCount(f.ctx, f.users["bob"].ID)
	assert.NoError(err)
	assert.Equal(int64(2), count)

	view, err := inbox.ViewMessages(f.ctx, f.users["bob"].ID)
	assert.NoError(err)
	if assert.Len(view.Received, 2) {
		assert.Equal("second", view.Received[0].Body)
		assert.Equal("first", view.Received[1].Body)
	}
	if assert.Len(view.Sent, 1) {
		assert.Equal("reply", view.Sent[0].Body)
	}

	count, err = inbox.UnreadMessageCount(f.ctx, f.users["bob"].ID)
	assert.NoError(err)
	assert.Equal(int64(0), count)

	// Alice hasn't looked at her messages, so the sentinel watermark applies.
	count, err = inbox.UnreadMessageCount(f.ctx, f.users["alice"].ID)
	assert.NoError(err)
	assert.Equal(int64(1), count)
}

func TestUnreadCountsUnknownUser(t *testing.T) {
	f := newFixture(t)
	inbox := NewInbox(f.deps)

	_, err := inbox.UnreadMessageCount(f.ctx, 3)
	assert.IsType(t, NotFoundError{}, err)
	_, err = inbox.UnreadNotificationCount(f.ctx, 3)
	assert.IsType(t, NotFoundError{}, err)
}

func TestUnreadCountsBeforeSentinel(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	// Notifications older than the sentinel are never counted.
	err := f.db.SaveNotification(f.ctx, nil, &model.Notification{
		SenderID:    f.users["alice"].ID,
		RecipientID: f.users["bob"].ID,
		Subject:     "ancient",
		Type:        model.NotificationComment,
		Timestamp:   common.WatermarkSentinel,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), unreadNotifications(t, f, "bob"))
}

func TestViewSentNotifications(t *testing.T) {
	assert := assert.New(t)
	f, _ := newApolloFixture(t)
	inbox := NewInbox(f.deps)

	activity, err := inbox.ViewSentNotifications(f.ctx, f.users["bob"].ID, f.users["alice"].ID)
	assert.NoError(err)
	assert.Len(activity, 2)

	// Viewing activity doesn't touch the watermark.
	assert.Equal(int64(1), unreadNotifications(t, f, "bob"))

	alice, err := f.db.GetUser(f.ctx, nil, f.users["alice"].ID)
	assert.NoError(err)
	alice.PrivateProfile = true
	assert.NoError(f.db.UpdateUserProfile(f.ctx, nil, alice))

	_, err = inbox.ViewSentNotifications(f.ctx, f.users["bob"].ID, f.users["alice"].ID)
	assert.IsType(PermissionError{}, err)
	activity, err = inbox.ViewSentNotifications(f.ctx, f.users["alice"].ID, f.users["alice"].ID)
	assert.NoError(err)
	assert.Len(activity, 2)
}
