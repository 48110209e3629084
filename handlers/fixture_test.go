package handlers

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/cyverse-de/ticket-tracker/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

// fixtureStart is the first time reported by the fixture clock.
var fixtureStart = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// fixture bundles the collaborators used by the workflow tests.
type fixture struct {
	ctx       context.Context
	db        *MockDatabaseClient
	fs        afero.Fs
	publisher *MockPublisher
	deps      Dependencies
	users     map[string]model.UserRef
}

// newFixture creates a fixture with one registered user for each username.
func newFixture(t *testing.T, usernames ...string) *fixture {
	f := &fixture{
		ctx:       context.Background(),
		db:        NewMockDatabaseClient(),
		fs:        afero.NewMemMapFs(),
		publisher: &MockPublisher{},
		users:     make(map[string]model.UserRef),
	}
	f.deps = Dependencies{
		DB:        f.db,
		Files:     storage.NewLocalStore(f.fs, "/uploads", "/static/uploads"),
		Publisher: f.publisher,
		Clock:     newClock(fixtureStart),
	}

	for _, username := range usernames {
		user := &model.User{
			Email:       username + "@example.org",
			Username:    username,
			Department:  model.DefaultDepartment,
			Description: model.DefaultDescription,
			Avatar:      model.DefaultAvatar,
			DateCreated: fixtureStart.Add(-24 * time.Hour),
		}
		err := f.db.AddUser(f.ctx, nil, user)
		assert.NoError(t, err, "unable to add user %s", username)
		f.users[username] = user.Ref()
	}
	return f
}

// ids returns the IDs of the named users.
func (f *fixture) ids(usernames ...string) []int64 {
	ids := make([]int64, len(usernames))
	for i, username := range usernames {
		ids[i] = f.users[username].ID
	}
	return ids
}

// createProject creates a project authored by author with the named developers.
func (f *fixture) createProject(t *testing.T, author string, name string, developers ...string) *model.Project {
	project, _, err := NewProjects(f.deps).Create(f.ctx, f.users[author], &NewProject{
		Name:         name,
		Description:  "the " + name + " project",
		Status:       model.StatusOpen,
		Priority:     "High",
		Deadline:     fixtureStart.AddDate(0, 0, 10),
		DeveloperIDs: f.ids(developers...),
	})
	if !assert.NoError(t, err, "unable to create project %s", name) {
		t.FailNow()
	}
	return project
}

// upload returns a small upload with the given file name.
func upload(filename string) *Upload {
	content := []byte("some file content")
	return &Upload{Filename: filename, Content: bytes.NewReader(content), Size: int64(len(content))}
}

// recipients returns the recipient IDs of a batch of notifications.
func recipients(notifications []model.Notification) []int64 {
	ids := make([]int64, len(notifications))
	for i, n := range notifications {
		ids[i] = n.RecipientID
	}
	return ids
}

// storedFile converts a served path from the fixture's file store into its path on the file system.
func storedFile(servedPath string) string {
	return "/uploads" + servedPath[len("/static/uploads"):]
}
