package db

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyverse-de/dbutil"
	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var log = common.Log.WithFields(logrus.Fields{"package": "db"})

// ErrNotFound is the cause of every error returned when a requested row doesn't exist.
var ErrNotFound = errors.New("not found")

// IsNotFound returns true if the cause of err is ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && errors.Cause(err) == ErrNotFound
}

// Dialect describes the differences between the supported database engines.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder sq.PlaceholderFormat
	ddl         map[string]string
}

// Postgres is the dialect used for PostgreSQL databases.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "postgres",
	Placeholder: sq.Dollar,
	ddl: map[string]string{
		"%ID%":        "bigserial PRIMARY KEY",
		"%BIGINT%":    "bigint",
		"%TIMESTAMP%": "timestamp with time zone",
		"%NOW%":       "now()",
	},
}

// SQLite is the dialect used for SQLite databases. Cascading deletes rely on foreign key enforcement, so the
// database URI should include `_pragma=foreign_keys(1)`. Timestamps are compared as text, so the URI should also
// include `_time_format=sqlite`.
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	Placeholder: sq.Question,
	ddl: map[string]string{
		"%ID%":        "INTEGER PRIMARY KEY AUTOINCREMENT",
		"%BIGINT%":    "INTEGER",
		"%TIMESTAMP%": "DATETIME",
		"%NOW%":       "CURRENT_TIMESTAMP",
	},
}

// DialectFor returns the dialect with the given name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, errors.Errorf("unsupported database driver: %s", name)
	}
}

// InitDatabase establishes a database connection and verifies tha the database can be reached.
func InitDatabase(driverName, databaseURI string) (*sql.DB, error) {
	wrapMsg := "unable to initialize the database"

	// Create a database connector to establish the connection.
	connector, err := dbutil.NewDefaultConnector("1m")
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Establish the database connection.
	db, err := connector.Connect(driverName, databaseURI)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return db, nil
}

// Client runs tracker queries against a database. Every query method operates within a caller-supplied
// transaction so that a whole workflow can be committed or rolled back as a unit.
type Client struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

// NewClient returns a new client for the given database connection.
func NewClient(db *sql.DB, dialect Dialect) *Client {
	return &Client{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
	}
}

// Begin begins a database transaction.
func (c *Client) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin a database transaction")
	}
	return tx, nil
}

// Commit commits a database transaction.
func (c *Client) Commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "unable to commit the database transaction")
	}
	return nil
}

// Rollback rolls back a database transaction. Rolling back a transaction that has already been committed is not
// an error.
func (c *Client) Rollback(tx *sql.Tx) error {
	err := tx.Rollback()
	if err == nil || err == sql.ErrTxDone {
		return nil
	}
	return errors.Wrap(err, "unable to roll back the database transaction")
}

// checkRowsAffected returns ErrNotFound if a statement affected no rows.
func checkRowsAffected(result sql.Result, wrapMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if rowsAffected == 0 {
		return errors.Wrap(ErrNotFound, wrapMsg)
	}
	return nil
}

// wrapQueryError converts sql.ErrNoRows to ErrNotFound and wraps all errors with the given message.
func wrapQueryError(err error, wrapMsg string) error {
	if err == sql.ErrNoRows {
		return errors.Wrap(ErrNotFound, wrapMsg)
	}
	return errors.Wrap(err, wrapMsg)
}

// rowExists returns true if at least one row in table matches where.
func (c *Client) rowExists(ctx context.Context, tx *sql.Tx, table string, where sq.Eq, wrapMsg string) (bool, error) {
	var total int64

	query, args, err := c.builder.
		Select("count(*)").
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	if err = tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	return total > 0, nil
}
