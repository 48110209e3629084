package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
)

var projectColumns = []string{
	"id",
	"date_created",
	"author",
	"name",
	"description",
	"status",
	"priority",
	"deadline",
	"file",
	"days_left",
	"last_update",
}

// AddProject inserts a project along with its developer assignments, storing the new ID in the project structure.
func (c *Client) AddProject(ctx context.Context, tx *sql.Tx, project *model.Project) error {
	wrapMsg := fmt.Sprintf("unable to add project `%s`", project.Name)

	statement, args, err := c.builder.
		Insert("projects").
		Columns(projectColumns[1:]...).
		Values(
			project.DateCreated,
			project.Author,
			project.Name,
			project.Description,
			project.Status,
			project.Priority,
			project.Deadline,
			project.File,
			project.DaysLeft,
			project.LastUpdate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = tx.QueryRowContext(ctx, statement, args...).Scan(&project.ID); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	if err = c.setDevelopers(ctx, tx, "project_developers", "project_id", project.ID, project.Developers); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// scanProject scans a single project row.
func scanProject(scanner interface{ Scan(...any) error }) (*model.Project, error) {
	var project model.Project
	var deadline sql.NullTime
	err := scanner.Scan(
		&project.ID,
		&project.DateCreated,
		&project.Author,
		&project.Name,
		&project.Description,
		&project.Status,
		&project.Priority,
		&deadline,
		&project.File,
		&project.DaysLeft,
		&project.LastUpdate,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		project.Deadline = deadline.Time
	}
	return &project, nil
}

// GetProject obtains a project and its developers.
func (c *Client) GetProject(ctx context.Context, tx *sql.Tx, id int64) (*model.Project, error) {
	wrapMsg := fmt.Sprintf("unable to look up project %d", id)

	query, args, err := c.builder.
		Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	project, err := scanProject(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrapQueryError(err, wrapMsg)
	}

	project.Developers, err = c.getDevelopers(ctx, tx, "project_developers", "project_id", id)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return project, nil
}

// ListProjects lists every project, without developers, ordered by ID.
func (c *Client) ListProjects(ctx context.Context, tx *sql.Tx) ([]*model.Project, error) {
	wrapMsg := "unable to list projects"

	query, args, err := c.builder.
		Select(projectColumns...).
		From("projects").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		projects = append(projects, project)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return projects, nil
}

// UpdateProject stores the mutable fields of a project and replaces its developer assignments.
func (c *Client) UpdateProject(ctx context.Context, tx *sql.Tx, project *model.Project) error {
	wrapMsg := fmt.Sprintf("unable to update project %d", project.ID)

	statement, args, err := c.builder.
		Update("projects").
		SetMap(map[string]interface{}{
			"description": project.Description,
			"status":      project.Status,
			"priority":    project.Priority,
			"deadline":    project.Deadline,
			"file":        project.File,
			"days_left":   project.DaysLeft,
			"last_update": project.LastUpdate,
		}).
		Where(sq.Eq{"id": project.ID}).
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

	if err = c.setDevelopers(ctx, tx, "project_developers", "project_id", project.ID, project.Developers); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// SetProjectDaysLeft updates the number of days remaining before a project's deadline.
func (c *Client) SetProjectDaysLeft(ctx context.Context, tx *sql.Tx, id int64, daysLeft int) error {
	wrapMsg := fmt.Sprintf("unable to update the days left for project %d", id)

	statement, args, err := c.builder.
		Update("projects").
		Set("days_left", daysLeft).
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

// DeleteProject removes a project. Its tickets, comments and developer assignments are removed by the database.
func (c *Client) DeleteProject(ctx context.Context, tx *sql.Tx, id int64) error {
	wrapMsg := fmt.Sprintf("unable to delete project %d", id)

	statement, args, err := c.builder.
		Delete("projects").
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

// ProjectNameTaken returns true if a project with the given name already exists.
func (c *Client) ProjectNameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	wrapMsg := fmt.Sprintf("unable to look up projects named `%s`", name)
	return c.rowExists(ctx, tx, "projects", sq.Eq{"name": name}, wrapMsg)
}
