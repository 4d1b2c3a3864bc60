package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/api"
	"github.com/onemorerev/client/internal/auth"
	"github.com/onemorerev/client/internal/config"
	"github.com/onemorerev/client/internal/database"
	"github.com/onemorerev/client/internal/influx"
	"github.com/onemorerev/client/internal/logging"
	"github.com/onemorerev/client/internal/otel"
	"github.com/onemorerev/client/internal/storage"
	gormstorage "github.com/onemorerev/client/internal/storage/gorm"
	"github.com/onemorerev/client/internal/storage/memory"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the flags and the services built from them for one invocation.
type app struct {
	configDir  string
	server     string
	accessCode string
	format     string
	logLevel   string
	stats      bool

	logs      *logging.SlogManager
	telemetry *otel.Provider
	metrics   *influx.Manager
	client    *api.Client
	auth      *auth.Store
	snapshots storage.Backend
	download  config.DownloadConfig

	closers []func() error
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = api.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (a *app) logger() *slog.Logger {
	return a.logs.Logger()
}

// setup loads configuration and builds every service the commands use.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configDir == "" {
		a.configDir = config.DefaultDir()
	}
	if err := config.Load(a.configDir); err != nil {
		return err
	}
	if a.logLevel == "" {
		a.logLevel = config.GetString("logLevel")
	}

	apiCfg := config.GetAPIConfig()
	if a.server == "" {
		a.server = apiCfg.ServerURL
	}
	if a.accessCode == "" {
		a.accessCode = apiCfg.AccessCode
	}
	a.download = config.GetDownloadConfig()

	logFile := a.openLogFile()
	if err := a.setupTelemetry(logFile); err != nil {
		return err
	}

	var graylog io.Writer
	if gc := config.GetGraylogConfig(); gc.Enabled {
		w, err := logging.NewGraylogWriter(gc.Address)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "graylog disabled: %v\n", err)
		} else {
			graylog = w
			a.closers = append(a.closers, w.Close)
		}
	}

	a.logs = logging.NewSlogManager()
	a.logs.Setup(logging.Options{
		Level:    a.logLevel,
		Console:  cmd.ErrOrStderr(),
		File:     logFile,
		Graylog:  graylog,
		Provider: a.telemetry.LoggerProvider(),
		Context: func() []slog.Attr {
			return []slog.Attr{
				slog.String("server", a.server),
				slog.Bool("guest", a.accessCode != ""),
			}
		},
	})

	zlOut := cmd.ErrOrStderr()
	if logFile != nil {
		zlOut = logFile
	}

	opts := []api.Option{
		api.WithHTTPClient(newHTTPClient(apiCfg.Timeout)),
		api.WithAccessCode(a.accessCode),
		api.WithLogger(a.logger()),
	}
	if ic := config.GetInfluxConfig(); ic.Enabled {
		a.metrics = influx.NewManager(logging.NewZerolog(zlOut, a.logLevel, "influx"), ic)
		a.closers = append(a.closers, a.metrics.Close)
		if err := a.metrics.Connect(cmd.Context()); err != nil {
			a.logger().Warn("Request metrics disabled", "error", err)
		} else {
			opts = append(opts, api.WithObserver(a.metrics))
		}
	}
	a.client = api.New(a.server, opts...)

	a.auth = auth.NewStore(a.configDir)
	if _, err := a.auth.Restore(cmd.Context(), a.client); err != nil {
		a.logger().Warn("Could not restore session", "error", err)
	}

	backend, err := newSnapshotBackend(config.GetStorageConfig(), logging.NewZerolog(zlOut, a.logLevel, "database"))
	if err != nil {
		a.logger().Warn("Snapshots disabled", "error", err)
		backend = memory.New()
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("snapshot storage: %w", err)
	}
	a.snapshots = backend
	a.closers = append(a.closers, backend.Close)

	return nil
}

func (a *app) setupTelemetry(logFile io.Writer) error {
	oc := config.GetOTelConfig()
	cfg := otel.Config{
		Enabled:        oc.Enabled,
		ServiceName:    oc.ServiceName,
		ServiceVersion: version,
		BatchTimeout:   oc.BatchTimeout,
		Endpoint:       oc.Endpoint,
		Insecure:       oc.Insecure,
		Metrics:        a.stats,
	}
	if oc.Enabled && logFile != nil {
		cfg.LogWriter = logFile
	}
	p, err := otel.New(cfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	p.Install()
	a.telemetry = p
	return nil
}

func (a *app) openLogFile() io.Writer {
	dir := config.GetString("logsDir")
	if dir == "" {
		return nil
	}
	f, err := logging.OpenSessionLog(dir, time.Now(), config.GetInt("logsKeep"))
	if err != nil {
		return nil
	}
	a.closers = append(a.closers, f.Close)
	return f
}

// teardown prints request stats when asked and releases every service.
func (a *app) teardown(cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.stats && a.telemetry != nil {
		counters, err := a.telemetry.Counters(ctx)
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "api requests: %d\n", counters["omr.api.requests"])
		}
	}

	var errs []error
	if a.logs != nil {
		errs = append(errs, a.logs.Flush(ctx))
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newSnapshotBackend creates a storage backend based on configuration
func newSnapshotBackend(cfg config.StorageConfig, zl zerolog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		m := database.NewManager(zl)
		if err := m.OpenPostgres(cfg.Postgres.DSN); err != nil {
			return nil, err
		}
		return gormstorage.New(m), nil
	case "sqlite":
		if cfg.SQLite.Path != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
				return nil, err
			}
		}
		m := database.NewManager(zl)
		if err := m.OpenSqlite(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		return gormstorage.New(m), nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
