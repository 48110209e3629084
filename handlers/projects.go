package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/cyverse-de/ticket-tracker/version"
)

// NewProject describes a project to be created.
type NewProject struct {
	Name         string
	Description  string
	Status       string
	Priority     string
	Deadline     time.Time
	DeveloperIDs []int64
	Upload       *Upload
}

// Validate checks the project against the form constraints.
func (p *NewProject) Validate() error {
	return firstError(
		checkLength("name", p.Name, 2, 64),
		checkLength("description", p.Description, 1, 1500),
		checkChoice("status", p.Status, model.Statuses),
		checkChoice("priority", p.Priority, model.Priorities),
		checkDeadline(p.Deadline),
		checkDevelopers(p.DeveloperIDs),
	)
}

// ProjectChanges describes an edit to an existing project.
type ProjectChanges struct {
	Description  string
	Status       string
	Priority     string
	Deadline     time.Time
	DeveloperIDs []int64
}

// Validate checks the changes against the form constraints.
func (c *ProjectChanges) Validate() error {
	return firstError(
		checkLength("description", c.Description, 1, 1500),
		checkChoice("status", c.Status, model.Statuses),
		checkChoice("priority", c.Priority, model.Priorities),
		checkDeadline(c.Deadline),
		checkDevelopers(c.DeveloperIDs),
	)
}

// ProjectUpdate is the outcome of a project edit.
type ProjectUpdate struct {
	Project       *model.Project
	Diff          string
	Notifications []model.Notification
}

// Projects implements the project workflows.
type Projects struct {
	base
}

// NewProjects returns the project workflows.
func NewProjects(deps Dependencies) *Projects {
	return &Projects{base: newBase(deps)}
}

// Get loads a project.
func (h *Projects) Get(ctx context.Context, id int64) (*model.Project, error) {
	var project *model.Project
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		project, err = h.db.GetProject(ctx, tx, id)
		if err != nil {
			return lookupError(err, "project %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Create creates a project and notifies its developers.
func (h *Projects) Create(ctx context.Context, actor model.UserRef, input *NewProject) (*model.Project, []model.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	now := h.now()
	project := &model.Project{
		DateCreated: now,
		Author:      actor.ID,
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		DaysLeft:    common.DaysUntil(input.Deadline, now),
		LastUpdate:  now,
	}

	var notifications []model.Notification
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		taken, err := h.db.ProjectNameTaken(ctx, tx, project.Name)
		if err != nil {
			return NewPersistenceError(err, "unable to look up project %s", project.Name)
		}
		if taken {
			return NewValidationError("the project name %s is already taken", project.Name)
		}
		if project.Developers, err = h.resolveDevelopers(ctx, tx, input.DeveloperIDs); err != nil {
			return err
		}
		if err = h.db.AddProject(ctx, tx, project); err != nil {
			return NewPersistenceError(err, "unable to create project %s", project.Name)
		}

		// The storage folder is keyed on the project ID, so the file can only be stored once the ID is known.
		if filePath, err = h.store(ctx, projectFolder(project.ID), input.Upload); err != nil {
			return err
		}
		if filePath != "" {
			project.File = filePath
			if err = h.db.UpdateProject(ctx, tx, project); err != nil {
				return NewPersistenceError(err, "unable to attach %s to project %s", filePath, project.Name)
			}
		}

		subject := fmt.Sprintf("%s created project %s", actor.Username, project.Name)
		notifications, err = h.notifier.Send(
			ctx, tx, project.Developers, actor, project.Description, model.NotificationCreate, subject,
		)
		return err
	})
	if err != nil {
		h.removeFile(ctx, filePath)
		return nil, nil, err
	}

	log.Infof("user %d created project %d", actor.ID, project.ID)
	h.publish(ctx, notifications)
	return project, notifications, nil
}

// Update applies changes to a project and notifies every developer assigned to the project either before or
// after the edit. The edit and the notifications are committed together.
func (h *Projects) Update(ctx context.Context, actor model.UserRef, id int64, changes *ProjectChanges) (*ProjectUpdate, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	result := &ProjectUpdate{}
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		project, err := h.db.GetProject(ctx, tx, id)
		if err != nil {
			return lookupError(err, "project %d", id)
		}

		before := version.ProjectSchema.Take(project)
		developersBefore := append([]model.UserRef(nil), project.Developers...)

		developersAfter, err := h.resolveDevelopers(ctx, tx, changes.DeveloperIDs)
		if err != nil {
			return err
		}
		now := h.now()
		project.Description = changes.Description
		project.Status = changes.Status
		project.Priority = changes.Priority
		project.Deadline = changes.Deadline
		project.DaysLeft = common.DaysUntil(changes.Deadline, now)
		project.Developers = developersAfter
		project.LastUpdate = now

		if err = h.db.UpdateProject(ctx, tx, project); err != nil {
			return NewPersistenceError(err, "unable to update project %d", id)
		}

		after := version.ProjectSchema.Take(project)
		difference := version.Diff(before, after)

		subject := fmt.Sprintf("%s updated project %s", actor.Username, project.Name)
		recipients := Union(developersBefore, developersAfter)
		notifications, err := h.notifier.Send(ctx, tx, recipients, actor, difference, model.NotificationUpdate, subject)
		if err != nil {
			return err
		}

		result.Project = project
		result.Diff = difference
		result.Notifications = notifications
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %d updated project %d", actor.ID, id)
	h.publish(ctx, result.Notifications)
	return result, nil
}

// Delete removes a project along with its tickets and comments. Only the project's author may delete it. The
// developers assigned at the time of deletion are notified.
func (h *Projects) Delete(ctx context.Context, actor model.UserRef, id int64) ([]model.Notification, error) {
	var project *model.Project
	var notifications []model.Notification
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		project, err = h.db.GetProject(ctx, tx, id)
		if err != nil {
			return lookupError(err, "project %d", id)
		}
		if project.Author != actor.ID {
			return NewPermissionError("only the author can delete this project")
		}

		subject := fmt.Sprintf("%s deleted project %s", actor.Username, project.Name)
		body := "all associated tickets and comments were deleted"
		notifications, err = h.notifier.Send(ctx, tx, project.Developers, actor, body, model.NotificationDelete, subject)
		if err != nil {
			return err
		}

		if err = h.db.DeleteProject(ctx, tx, id); err != nil {
			return lookupError(err, "project %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %d deleted project %d", actor.ID, id)
	h.removeFolder(ctx, projectFolder(project.ID))
	h.publish(ctx, notifications)
	return notifications, nil
}

// DeleteFile detaches the file from a project and removes it from the file store. Only the project's author may
// do this.
func (h *Projects) DeleteFile(ctx context.Context, actor model.UserRef, id int64) error {
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		project, err := h.db.GetProject(ctx, tx, id)
		if err != nil {
			return lookupError(err, "project %d", id)
		}
		if project.Author != actor.ID {
			return NewPermissionError("only the author can delete this file")
		}

		filePath = project.File
		if filePath == "" {
			return nil
		}
		project.File = ""
		if err = h.db.UpdateProject(ctx, tx, project); err != nil {
			return NewPersistenceError(err, "unable to update project %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.removeFile(ctx, filePath)
	return nil
}

// Comment adds a comment to a project and notifies the project's developers.
func (h *Projects) Comment(ctx context.Context, actor model.UserRef, id int64, input *NewComment) (*model.Comment, []model.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	var comment *model.Comment
	var notifications []model.Notification
	var filePath string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		project, err := h.db.GetProject(ctx, tx, id)
		if err != nil {
			return lookupError(err, "project %d", id)
		}

		if filePath, err = h.store(ctx, projectFolder(project.ID), input.Upload); err != nil {
			return err
		}
		comment = &model.Comment{
			Text:        input.Text,
			DateCreated: h.now(),
			AuthorID:    actor.ID,
			ProjectID:   &project.ID,
			File:        filePath,
		}
		if err = h.db.AddComment(ctx, tx, comment); err != nil {
			return NewPersistenceError(err, "unable to add a comment to project %d", id)
		}

		subject := fmt.Sprintf("%s commented project %s", actor.Username, project.Name)
		notifications, err = h.notifier.Send(
			ctx, tx, project.Developers, actor, input.Text, model.NotificationComment, subject,
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

// RefreshDaysLeft recomputes the number of days remaining before each project's deadline.
func (h *Projects) RefreshDaysLeft(ctx context.Context, today time.Time) (int, error) {
	updated := 0
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		projects, err := h.db.ListProjects(ctx, tx)
		if err != nil {
			return NewPersistenceError(err, "unable to list projects")
		}
		for _, project := range projects {
			if project.Deadline.IsZero() {
				continue
			}
			daysLeft := common.DaysUntil(project.Deadline, today)
			if daysLeft == project.DaysLeft {
				continue
			}
			if err = h.db.SetProjectDaysLeft(ctx, tx, project.ID, daysLeft); err != nil {
				return NewPersistenceError(err, "unable to update project %d", project.ID)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
