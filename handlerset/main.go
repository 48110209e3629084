// Package handlerset assembles the tracker workflows and the collaborators they share from the service
// configuration.
package handlerset

import (
	"context"
	"database/sql"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/db"
	"github.com/cyverse-de/ticket-tracker/events"
	"github.com/cyverse-de/ticket-tracker/handlers"
	"github.com/cyverse-de/ticket-tracker/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var log = common.Log.WithFields(logrus.Fields{"package": "handlerset"})

// HandlerSet represents the complete set of tracker workflows.
type HandlerSet struct {
	DB       *db.Client
	Projects *handlers.Projects
	Tickets  *handlers.Tickets
	Comments *handlers.Comments
	Messages *handlers.Messages
	Inbox    *handlers.Inbox
	Users    *handlers.Users

	database  *sql.DB
	publisher *events.AMQPPublisher
}

// NewFileStore creates the file store selected by the `files.backend` setting.
func NewFileStore(ctx context.Context, cfg *viper.Viper) (storage.FileStore, error) {
	urlPrefix := cfg.GetString("files.url_prefix")

	switch backend := cfg.GetString("files.backend"); backend {
	case "local":
		return storage.NewLocalStore(afero.NewOsFs(), cfg.GetString("files.root"), urlPrefix), nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, &storage.MinioSettings{
			Endpoint:  cfg.GetString("minio.endpoint"),
			AccessKey: cfg.GetString("minio.access_key"),
			SecretKey: cfg.GetString("minio.secret_key"),
			Bucket:    cfg.GetString("minio.bucket"),
			Region:    cfg.GetString("minio.region"),
			Secure:    cfg.GetBool("minio.secure"),
			URLPrefix: urlPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.Errorf("unsupported file storage backend: %s", backend)
	}
}

// New creates a new handler set from the service configuration.
func New(ctx context.Context, cfg *viper.Viper) (*HandlerSet, error) {
	wrapMsg := "unable to create the handler set"

	// Connect to the database.
	dialect, err := db.DialectFor(cfg.GetString("db.driver"))
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	database, err := db.InitDatabase(dialect.Driver, cfg.GetString("db.uri"))
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Set up the file store.
	files, err := NewFileStore(ctx, cfg)
	if err != nil {
		database.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	hs := &HandlerSet{DB: db.NewClient(database, dialect), database: database}
	deps := handlers.Dependencies{DB: hs.DB, Files: files}

	// Connect to the AMQP broker if publishing is enabled.
	if cfg.GetBool("amqp.enabled") {
		hs.publisher, err = events.NewAMQPPublisher(&events.AMQPSettings{
			URI:          cfg.GetString("amqp.uri"),
			ExchangeName: cfg.GetString("amqp.exchange.name"),
			ExchangeType: cfg.GetString("amqp.exchange.type"),
		})
		if err != nil {
			database.Close()
			return nil, errors.Wrap(err, wrapMsg)
		}
		deps.Publisher = hs.publisher
	} else {
		log.Info("AMQP publishing is disabled")
	}

	hs.Projects = handlers.NewProjects(deps)
	hs.Tickets = handlers.NewTickets(deps)
	hs.Comments = handlers.NewComments(deps)
	hs.Messages = handlers.NewMessages(deps)
	hs.Inbox = handlers.NewInbox(deps)
	hs.Users = handlers.NewUsers(deps)
	return hs, nil
}

// Close closes the connections held by the handler set.
func (hs *HandlerSet) Close() {
	if hs.publisher != nil {
		hs.publisher.Close()
	}
	if err := hs.database.Close(); err != nil {
		log.Warnf("unable to close the database connection: %s", err)
	}
}
