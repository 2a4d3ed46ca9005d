package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hourglass-hq/timesheet-approvals/internal/application/port"
	"github.com/hourglass-hq/timesheet-approvals/internal/application/service"
	"github.com/hourglass-hq/timesheet-approvals/internal/audit"
	"github.com/hourglass-hq/timesheet-approvals/internal/config"
	"github.com/hourglass-hq/timesheet-approvals/internal/notification"
	"github.com/hourglass-hq/timesheet-approvals/internal/repository"
	"github.com/hourglass-hq/timesheet-approvals/internal/worker"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Record     port.RecordStore
	Submission port.SubmissionStore
	Entry      port.EntrySource
	Event      port.EventStore
	Identity   port.IdentityResolver
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Approval   service.ApprovalService
	Visibility service.VisibilityService
}

// SinkBundle groups the fire-and-forget side-effect targets.
type SinkBundle struct {
	Audit    port.AuditSink
	Notifier port.NotificationDispatcher
}

// ServiceDeps carries everything ProvideServices needs.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Sinks     *SinkBundle
	Config    *config.ApprovalConfig
	Logger    *zap.Logger
}

// ProvideDatabase opens the database, runs migrations, and builds the
// repository bundle.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, *RepositoryBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	repos := &RepositoryBundle{
		Record:     repository.NewRecordRepository(db, logger),
		Submission: repository.NewSubmissionRepository(db, logger),
		Entry:      repository.NewEntryRepository(db, logger),
		Event:      repository.NewEventRepository(db, logger),
		Identity:   repository.NewIdentityRepository(db, logger),
	}
	return db, repos, nil
}

// ProvideWorkers builds the worker manager with the audit emitter and the
// notification dispatcher registered, and returns their sink interfaces.
func ProvideWorkers(cfg *config.Config, logger *zap.Logger) (*worker.Manager, *SinkBundle, error) {
	emitter := audit.NewEmitter(cfg.Approval.AuditQueueSize, logger)
	dispatcher := notification.NewDispatcher(notification.Config{
		WebhookURL: cfg.Notification.WebhookURL,
		Timeout:    cfg.Notification.Timeout,
		QueueSize:  cfg.Notification.QueueSize,
	}, logger)

	manager := worker.NewManager(logger)
	manager.Register(emitter)
	manager.Register(dispatcher)

	return manager, &SinkBundle{Audit: emitter, Notifier: dispatcher}, nil
}

// ProvideServices builds the application services.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Approval: service.NewApprovalService(
			deps.Repos.Record,
			deps.Repos.Submission,
			deps.Repos.Event,
			deps.Repos.Entry,
			deps.Repos.Identity,
			deps.TxManager,
			deps.Sinks.Audit,
			deps.Sinks.Notifier,
			deps.Config.BulkWorkers,
			serviceLogger,
		),
		Visibility: service.NewVisibilityService(
			deps.Repos.Record,
			deps.Repos.Submission,
			deps.Repos.Entry,
			deps.Repos.Identity,
			serviceLogger,
		),
	}
}
