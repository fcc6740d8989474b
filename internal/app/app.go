package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"mirror-sync-go/internal/broker"
	"mirror-sync-go/internal/config"
	"mirror-sync-go/internal/db"
	mirrordomain "mirror-sync-go/internal/domain/mirror"
	"mirror-sync-go/internal/git"
	"mirror-sync-go/internal/metrics"
	"mirror-sync-go/internal/repository/inmemory"
	mirrorrepo "mirror-sync-go/internal/repository/postgres/mirror"
	"mirror-sync-go/internal/transport/httpserver"
	"mirror-sync-go/internal/transport/httpserver/handler"
	"mirror-sync-go/pkg/logger"

	"github.com/go-git/go-billy/v5/osfs"
	"gorm.io/gorm"
)

type App struct {
	cfg        config.Config
	log        logger.Logger
	db         *gorm.DB
	records    mirrordomain.Repository
	publisher  *broker.KafkaPublisher
	metrics    *metrics.Metrics
	engine     *mirrordomain.Engine
	scheduler  *Scheduler
	httpServer *httpserver.Server
}

func New(cfg config.Config, log logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	log.Info("app: initializing store", "driver", cfg.DB.Driver)
	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	a.db = dbConn
	if dbConn != nil {
		a.records = mirrorrepo.NewPostgres(dbConn)
	} else {
		a.records = inmemory.NewSyncRecordRepository()
	}

	opts := []mirrordomain.EngineOption{mirrordomain.WithObserver(a.metrics)}
	if len(cfg.Kafka.Brokers) > 0 {
		log.Info("app: initializing publisher")
		publisher, err := broker.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.publisher = publisher
		opts = append(opts, mirrordomain.WithPublisher(publisher))
	} else {
		log.Warn("app: KAFKA_BROKERS not set, mirror events are not published")
	}

	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	log.Info("app: initializing engine", "workspace", root, "git_backend", cfg.Git.Backend, "workers", cfg.Scan.Workers)
	a.engine = mirrordomain.NewEngine(
		osfs.New(root),
		a.records,
		newGit(cfg.Git),
		newResolver(cfg.Mirror),
		mirrordomain.EngineConfig{
			RemoteName:  cfg.Mirror.RemoteName,
			RequireTags: cfg.Mirror.RequireTags,
			Workers:     cfg.Scan.Workers,
		},
		log,
		opts...,
	)
	a.scheduler = NewScheduler(a.engine, cfg.Scan.Interval, log)

	log.Info("app: initializing router")
	handlers := handler.New(a.records, a.scheduler, log)
	router := httpserver.NewRouter(cfg, handlers, a.metrics.Handler(), log)
	a.httpServer = httpserver.New(cfg, router, log)

	return a, nil
}

// Scan runs a single scan in the foreground.
func (a *App) Scan(ctx context.Context) (mirrordomain.ScanSummary, error) {
	return a.engine.Scan(ctx)
}

func (a *App) Scheduler() *Scheduler {
	return a.scheduler
}

func (a *App) HTTPServer() *httpserver.Server {
	return a.httpServer
}

func (a *App) Close() error {
	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if err := db.Close(a.db); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}

func newGit(cfg config.GitConfig) mirrordomain.Git {
	if cfg.Backend == config.GitBackendGoGit {
		return git.NewGoGit(cfg.PushTimeout, git.BasicAuth(cfg.Username, cfg.Password))
	}
	return git.NewCLI(git.CLIConfig{
		Binary: cfg.Binary,
		Timeouts: git.Timeouts{
			List:   cfg.ListTimeout,
			Remote: cfg.RemoteTimeout,
			Push:   cfg.PushTimeout,
		},
		MaxProcs: cfg.MaxProcs,
	})
}

func newResolver(cfg config.MirrorConfig) mirrordomain.Resolver {
	resolver := mirrordomain.NewResolver()
	if len(cfg.UpstreamHosts) > 0 {
		resolver.Hosts = cfg.UpstreamHosts
	}
	if cfg.Scheme != "" {
		resolver.Scheme = cfg.Scheme
	}
	if cfg.Host != "" || cfg.Scheme == mirrordomain.FileScheme {
		resolver.Host = cfg.Host
	}
	resolver.Port = cfg.Port
	resolver.Namespace = cfg.Namespace
	return resolver
}
