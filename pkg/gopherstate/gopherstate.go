package gopherstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RealZimboGuy/gopherstate/internal/config"
	"github.com/RealZimboGuy/gopherstate/internal/controllers"
	"github.com/RealZimboGuy/gopherstate/internal/engine"
	"github.com/RealZimboGuy/gopherstate/internal/events"
	"github.com/RealZimboGuy/gopherstate/internal/migrations"
	"github.com/RealZimboGuy/gopherstate/internal/repository"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/core"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

const serviceName = "gopherstate"

// Engine is a fully wired workflow manager together with the resources it owns.
type Engine struct {
	Manager *engine.WorkflowManager
	closers []func() error
}

// Close releases the event bus and database connection.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

// NewEngine opens the configured store, runs migrations for SQL databases and wires the
// manager with transition events. ctx bounds the lifetime of the event subscriber.
func NewEngine(ctx context.Context, clock core.Clock) (*Engine, error) {
	e := &Engine{}

	definitionRepo, instanceRepo, persister, closeStore, err := openStore()
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		e.closers = append(e.closers, closeStore)
	}

	pubSub := events.NewPubSub(slog.Default())
	e.closers = append(e.closers, pubSub.Close)
	if err := events.Subscribe(ctx, pubSub, events.LogHandler(slog.Default())); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("subscribe to transition events: %w", err)
	}

	e.Manager = engine.NewWorkflowManager(definitionRepo, instanceRepo, clock,
		engine.WithPersister(persister),
		engine.WithTransitionListener(events.NewTransitionPublisher(pubSub)),
	)
	return e, nil
}

// RegisterRoutes mounts the definition, instance and health endpoints on mux.
func (e *Engine) RegisterRoutes(mux *http.ServeMux) {
	controllers.NewDefinitionsController(e.Manager).RegisterRoutes(mux)
	controllers.NewInstancesController(e.Manager).RegisterRoutes(mux)
	controllers.RegisterHealthRoute(mux)
}

// Start boots the workflow engine and HTTP server.
// This call blocks until ctx is cancelled or the HTTP server stops.
func Start(ctx context.Context, mux *http.ServeMux) error {
	shutdownTracing, err := SetupTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	wf, err := NewEngine(ctx, core.NewRealClock())
	if err != nil {
		return err
	}
	defer wf.Close()

	if mux == nil {
		mux = http.NewServeMux()
	}
	wf.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func openStore() (engine.DefinitionRepo, engine.InstanceRepo, engine.Persister, func() error, error) {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)

	var db *sql.DB
	var err error
	switch databaseType {
	case config.DATABASE_TYPE_MEMORY:
		return openMemoryStore()
	case config.DATABASE_TYPE_POSTGRES:
		db, err = setupPostgresDatabase()
	case config.DATABASE_TYPE_MYSQL:
		db, err = setupMysqlDatabase()
	case config.DATABASE_TYPE_SQLLITE:
		db, err = setupSqlLiteDatabase()
	default:
		return nil, nil, nil, nil, fmt.Errorf("%s must be one of MEMORY, POSTGRES, MYSQL, SQLLITE, got %q",
			config.DATABASE_TYPE, databaseType)
	}
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ttl := config.GetSystemSettingDuration(config.DEFINITION_CACHE_TTL)
	definitions := repository.NewCachedDefinitionRepository(repository.NewWorkflowDefinitionRepository(db), ttl)
	// every write is committed by the SQL repositories themselves
	return definitions, repository.NewWorkflowInstanceRepository(db), nil, db.Close, nil
}

func openMemoryStore() (engine.DefinitionRepo, engine.InstanceRepo, engine.Persister, func() error, error) {
	fileName := config.GetSystemSettingString(config.SNAPSHOT_FILE_NAME)
	if fileName == "" {
		slog.Warn("No snapshot file configured, workflow data will not survive a restart")
		store := repository.NewMemoryStore()
		return store.Definitions(), store.Instances(), store, nil, nil
	}
	slog.Info("Using in-memory store", "snapshot", fileName)
	store, err := repository.NewMemoryStoreWithSnapshot(repository.NewFileSnapshot(fileName))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return store.Definitions(), store.Instances(), store, nil, nil
}

func setupPostgresDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		return nil, errors.New("GSTATE_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Running migrations", "database", "postgres")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		return nil, fmt.Errorf("postgres migration failed: %w", err)
	}
	slog.Info("Opening Postgres database")
	return openAndPing("postgres", dbURL)
}

func setupSqlLiteDatabase() (*sql.DB, error) {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		return nil, errors.New("GSTATE_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	slog.Info("Running migrations", "database", "sqlite", "file", fileName)
	if err := runMigrationsFromEmbed("sqllite3", "sqlite3://"+fileName); err != nil {
		return nil, fmt.Errorf("sqlite migration failed: %w", err)
	}
	db, err := openAndPing("sqlite3", fileName)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

func setupMysqlDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		return nil, errors.New("GSTATE_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		return nil, errors.New("GSTATE_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		return nil, errors.New("GSTATE_DATABASE_URL must start with 'mysql://' for MySQL")
	}
	slog.Info("Running migrations", "database", "mysql")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		return nil, fmt.Errorf("mysql migration failed: %w", err)
	}
	slog.Info("Opening MySQL database")
	return openAndPing("mysql", strings.Replace(dbURL, "mysql://", "", 1))
}

func openAndPing(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SetupTracing installs a stdout span exporter when GSTATE_TRACING_ENABLED is set.
// The returned function flushes and stops the provider.
func SetupTracing() (func(context.Context) error, error) {
	if !config.GetSystemSettingBool(config.TRACING_ENABLED) {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	slog.Info("Tracing enabled", "exporter", "stdout")
	return tp.Shutdown, nil
}

// SetupLogger installs a tint handler on the default slog logger at GSTATE_LOG_LEVEL.
func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.GetSystemSettingString(config.LOG_LEVEL))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
