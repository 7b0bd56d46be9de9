package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	printapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/auth"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/printdesk/backend/internal/infrastructure/event"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/infrastructure/migration"
	"github.com/printdesk/backend/internal/infrastructure/persistence"
	"github.com/printdesk/backend/internal/infrastructure/persistence/models"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/infrastructure/scheduler"
	"github.com/printdesk/backend/internal/infrastructure/storage"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// application holds the long-lived print pipeline components
type application struct {
	service    *printapp.PrintService
	adapter    backend.Adapter
	reconciler *printapp.Reconciler
	health     *printapp.HealthChecker
	bus        *event.InMemoryEventBus
	hub        *event.Hub
	relay      *event.RedisRelay
	redis      *redis.Client
	retention  *scheduler.RetentionJob
	converter  *infra.RoutingConverter
	tokens     *auth.JWTService
	metrics    *telemetry.PrintMetrics

	background sync.WaitGroup
}

// openDatabase connects, migrates the schema and installs query tracing
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(&models.PrintJobModel{}); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		sqlDB, err := db.DB.DB()
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		m, err := migration.New(sqlDB, "", log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		err = m.Up()
		if cerr := m.Close(); cerr != nil {
			log.Warn("Failed to close migrator", zap.Error(cerr))
		}
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Database.Driver == "sqlite" {
		tracing.DBSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, tracing, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// buildApp wires storage, conversion, the backend adapter, the event
// fan-out and the dispatch service
func buildApp(ctx context.Context, cfg *config.Config, db *persistence.Database, tel *telemetryStack, log *zap.Logger) (*application, error) {
	app := &application{tokens: auth.NewJWTService(cfg.JWT)}
	if !app.tokens.Enabled() {
		log.Warn("JWT secret not set, requester identity is taken from X-User-ID headers")
	}

	metrics, err := telemetry.NewPrintMetrics(tel.meter.Meter("printdesk/printing"))
	if err != nil {
		return nil, fmt.Errorf("failed to create print metrics: %w", err)
	}
	app.metrics = metrics

	store, err := newDocumentStore(cfg, log)
	if err != nil {
		return nil, err
	}

	processor := infra.NewPDFProcessor(log)

	adapter, err := backend.New(backend.Config{
		Kind: cfg.Printing.Backend,
		CUPS: backend.CUPSConfig{
			LpPath:         cfg.Printing.CUPS.LpPath,
			LpstatPath:     cfg.Printing.CUPS.LpstatPath,
			IpptoolPath:    cfg.Printing.CUPS.IpptoolPath,
			ServerURI:      cfg.Printing.CUPS.ServerURI,
			User:           cfg.Printing.CUPS.User,
			PageLogPath:    cfg.Printing.CUPS.PageLogPath,
			CommandTimeout: cfg.Printing.CUPS.CommandTimeout,
		},
		Spooler: backend.SpoolerConfig{
			PowerShellPath: cfg.Printing.Spooler.PowerShellPath,
			SumatraPath:    cfg.Printing.Spooler.SumatraPath,
			TempDir:        cfg.Printing.Spooler.TempDir,
			CommandTimeout: cfg.Printing.Spooler.CommandTimeout,
		},
		IPP: backend.IPPConfig{
			Host:     cfg.Printing.IPP.Host,
			Port:     cfg.Printing.IPP.Port,
			Username: cfg.Printing.IPP.Username,
			Password: cfg.Printing.IPP.Password,
			UseTLS:   cfg.Printing.IPP.UseTLS,
		},
	}, nil, processor, log)
	if err != nil {
		return nil, err
	}
	app.adapter = adapter

	catalog, err := newCatalog(cfg, adapter, log)
	if err != nil {
		return nil, err
	}

	converter, err := newConverter(cfg, metrics, log)
	if err != nil {
		return nil, err
	}
	app.converter = converter

	app.bus = event.NewInMemoryEventBus(log)
	app.hub = event.NewHub(event.DefaultClientBuffer, log)
	app.bus.Subscribe(app.hub)
	if err := app.bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start event bus: %w", err)
	}
	if cfg.Redis.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.relay = event.NewRedisRelay(app.redis, app.bus,
			event.WithRelayChannel(cfg.Redis.Channel),
			event.WithRelayLogger(log))
		app.bus.Subscribe(app.relay)
	}
	notifier := event.NewEventNotifier(app.bus, log)

	app.reconciler = printapp.NewReconciler(
		persistence.NewGormPrintJobRepository(db.DB),
		adapter,
		notifier,
		printapp.ReconcilerConfig{
			PollInterval:    cfg.Printing.PollInterval,
			MaxPollDuration: cfg.Printing.MaxPollDuration,
		},
		log,
	)
	app.reconciler.SetMetrics(metrics)

	app.service = printapp.NewPrintService(printapp.PrintServiceDeps{
		Repo:       persistence.NewGormPrintJobRepository(db.DB),
		Catalog:    catalog,
		Converter:  converter,
		Processor:  processor,
		Store:      store,
		Backend:    adapter,
		Reconciler: app.reconciler,
		Notifier:   notifier,
		Logger:     log,
	})
	app.service.SetMetrics(metrics)

	app.health = printapp.NewHealthChecker(catalog, adapter, notifier, printapp.HealthCheckConfig{
		Attempts: cfg.Printing.HealthCheckAttempts,
		Backoff:  cfg.Printing.HealthCheckBackoff,
	}, log)
	app.health.OnReadyCount(func(n int) { metrics.RecordReadyDevices(ctx, n) })

	if cfg.Storage.RetentionDays > 0 {
		app.retention, err = scheduler.NewRetentionJob(scheduler.RetentionConfig{
			Schedule:      cfg.Storage.RetentionSchedule,
			RetentionDays: cfg.Storage.RetentionDays,
			RunTimeout:    10 * time.Minute,
		}, store, log)
		if err != nil {
			return nil, err
		}
	}

	log.Info("Print pipeline ready",
		zap.String("backend", adapter.Name()),
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("redis_relay", app.relay != nil))
	return app, nil
}

func newDocumentStore(cfg *config.Config, log *zap.Logger) (infra.DocumentStore, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3DocumentStore(&cfg.Storage, storage.WithLogger(log))
	case "", "local":
		return infra.NewFileSystemStore(&infra.FileSystemStoreConfig{BasePath: cfg.Storage.BasePath, Logger: log})
	}
	return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
}

func newCatalog(cfg *config.Config, adapter backend.Adapter, log *zap.Logger) (printing.DeviceCatalog, error) {
	switch {
	case cfg.Printing.DevicesFile != "":
		return infra.LoadFileCatalog(cfg.Printing.DevicesFile)
	case cfg.Printing.DiscoverDevices:
		lister, ok := adapter.(backend.DeviceLister)
		if !ok {
			return nil, fmt.Errorf("backend %s cannot enumerate devices", adapter.Name())
		}
		return infra.NewDiscoveryCatalog(lister, cfg.Printing.DiscoveryTTL, log), nil
	}
	if len(cfg.Printing.Devices) == 0 {
		return nil, errors.New("no devices configured: set printing.devices, printing.devices_file or printing.discover_devices")
	}
	return infra.NewStaticCatalog(cfg.Printing.Devices), nil
}

func newConverter(cfg *config.Config, rec infra.ConversionRecorder, log *zap.Logger) (*infra.RoutingConverter, error) {
	office, err := infra.NewLibreOfficeConverter(&infra.LibreOfficeConfig{
		BinaryPath: cfg.Converter.LibreOfficePath,
		Timeout:    cfg.Converter.LibreOfficeTimeout,
		TempDir:    cfg.Converter.TempDir,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	html := infra.NewChromedpConverter(&infra.ChromedpConfig{
		Timeout:   cfg.Converter.ChromeTimeout,
		RemoteURL: cfg.Converter.ChromeRemoteURL,
		NoSandbox: cfg.Converter.ChromeNoSandbox,
	})
	return infra.NewRoutingConverter([]infra.DocumentConverter{html, office},
		infra.WithMaxConcurrent(cfg.Converter.MaxConcurrent),
		infra.WithRecorder(rec),
		infra.WithRoutingLogger(log),
	), nil
}

// startBackground resumes polling, checks devices and starts the relay and
// the retention job
func (a *application) startBackground(ctx context.Context, log *zap.Logger) {
	if n, err := a.reconciler.Resume(ctx); err != nil {
		log.Error("Failed to resume status polling", zap.Error(err))
	} else {
		log.Info("Status polling resumed", zap.Int("jobs", n))
	}

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		if _, err := a.health.CheckDevices(ctx); err != nil && ctx.Err() == nil {
			log.Error("Device health check failed", zap.Error(err))
		}
	}()

	if a.relay != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			if err := a.relay.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("Event relay stopped", zap.Error(err))
			}
		}()
	}

	if a.retention != nil {
		if err := a.retention.Start(ctx); err != nil {
			log.Error("Failed to start document retention", zap.Error(err))
		}
	}
}

// stop waits for in-flight dispatches and poll loops, then stops background work
func (a *application) stop(ctx context.Context, log *zap.Logger) {
	if err := a.service.Wait(ctx); err != nil {
		log.Warn("Dispatches still running at shutdown", zap.Error(err))
	}
	if err := a.reconciler.Stop(ctx); err != nil {
		log.Warn("Poll loops still running at shutdown", zap.Error(err))
	}
	if a.retention != nil {
		if err := a.retention.Stop(ctx); err != nil {
			log.Warn("Error stopping document retention", zap.Error(err))
		}
	}
	a.background.Wait()
	if err := a.bus.Stop(ctx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
}

// close releases external resources
func (a *application) close(log *zap.Logger) {
	if err := a.converter.Close(); err != nil {
		log.Warn("Error closing converters", zap.Error(err))
	}
	if c, ok := a.adapter.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("Error closing backend adapter", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}
}
