package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/shellfall/engine/v2/internal/api"
	"github.com/shellfall/engine/v2/internal/cache"
	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/dispatcher"
	"github.com/shellfall/engine/v2/internal/influx"
	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/internal/monitor"
	intOtel "github.com/shellfall/engine/v2/internal/otel"
	"github.com/shellfall/engine/v2/internal/parser"
	"github.com/shellfall/engine/v2/internal/session"
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/internal/worker"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   string = "0.3.0"
	BuildDate string = "unknown"

	EngineName string = "shellfall"
)

// Shared services, wired by setup(). Commands run one at a time, so plain
// globals are fine here.
var (
	SessionStartTime time.Time = time.Now()

	LogManager   *logging.SlogManager
	Logger       *slog.Logger
	LogFile      *os.File
	OTelProvider *intOtel.Provider

	FleetCache    *cache.FleetCache = cache.NewFleetCache()
	ActiveSession *session.Context  = session.NewContext()

	apiClient       *api.Client
	parserService   *parser.Parser
	calibration     gunnery.Calibration
	influxManager   *influx.Manager
	storageBackend  storage.Backend
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "fetch":
		err = runFetch(os.Args[2:])
	case "ships":
		err = runShips(os.Args[2:])
	case "evaluate":
		err = runEvaluate(os.Args[2:])
	case "sweep":
		err = runSweep(os.Args[2:])
	case "maxrange":
		err = runMaxRange(os.Args[2:])
	case "attack":
		err = runAttack(os.Args[2:])
	case "version":
		fmt.Printf("%s %s (built %s)\n", EngineName, Version, BuildDate)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	shutdown()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `%s - naval gunnery engagement engine

Usage: %s <command> [flags]

Commands:
  fetch     fetch and snapshot ship data (whole fleet, or named ship ids)
  ships     list the stored fleet snapshot
  evaluate  evaluate one engagement at a range against a plate
  sweep     evaluate a range sweep in parallel and store the run
  maxrange  report a shell's maximum range and the elevation reaching it
  attack    raytrace a shell against a target ship's armor scheme
  version   print version information

Run '%s <command> --help' for command flags.
`, EngineName, EngineName, EngineName)
}

// commonFlags registers the flags every command shares. Overrides land in
// viper so the config accessors see them like file values.
func commonFlags(fs *pflag.FlagSet) {
	fs.String("config-dir", ".", "directory containing "+EngineName+".cfg.json")
	fs.String("log-level", "", "override configured log level (debug/info/warn/error)")
	fs.String("storage", "", "override configured storage backend (memory/sqlite/postgres/websocket)")
}

// setup loads config and brings up logging, telemetry, storage and the
// worker stack. Every command calls it exactly once after flag parsing.
func setup(fs *pflag.FlagSet) error {
	configDir, _ := fs.GetString("config-dir")
	if err := config.Load(configDir); err != nil {
		// Defaults cover a missing file; a malformed one should not be
		// silently ignored.
		fmt.Fprintln(os.Stderr, "warning: using default config:", err)
	}
	if fs.Changed("log-level") {
		lvl, _ := fs.GetString("log-level")
		viper.Set("logLevel", lvl)
	}
	if fs.Changed("storage") {
		st, _ := fs.GetString("storage")
		viper.Set("storage.type", st)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, EngineName, SessionStartTime)
	var err error
	LogFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OTel provider: %w", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	var gelfAddress string
	if viper.GetBool("graylog.enabled") {
		gelfAddress = viper.GetString("graylog.address")
	}
	LogManager = logging.NewSlogManager()
	if err := LogManager.Setup(logging.Options{
		Level:       viper.GetString("logLevel"),
		File:        LogFile,
		GelfAddress: gelfAddress,
		Context:     ActiveSession.LogAttrs,
		Provider:    otelLogProvider,
	}); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	Logger = LogManager.Logger()
	Logger.Info("Engine starting", "version", Version, "logFile", logPath)

	calibration = gunnery.DefaultCalibration()
	if calFile := viper.GetString("calibration.file"); calFile != "" {
		calibration, err = gunnery.LoadCalibration(calFile)
		if err != nil {
			return err
		}
		Logger.Info("Loaded calibration table", "file", calFile)
	}

	apiClient, err = api.New(config.GetAPIConfig(), Logger)
	if err != nil {
		return fmt.Errorf("failed to create game-data client: %w", err)
	}
	parserService = parser.NewParser(Logger)

	// Database and influx internals log through zerolog; keep their output
	// in the session log file alongside everything else.
	activityLog := zerolog.New(LogFile).With().Timestamp().Str("component", "metrics").Logger()
	influxManager = influx.NewManager(activityLog, filepath.Join(logsDir, "influx_backup.gz"))
	if viper.GetBool("influx.enabled") {
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxManager = nil
		}
	} else {
		influxManager = nil
	}

	if err := initStorage(); err != nil {
		return err
	}

	workerManager = worker.NewManager(worker.Dependencies{
		FleetCache:  FleetCache,
		LogManager:  LogManager,
		Parser:      parserService,
		APIClient:   apiClient,
		Session:     ActiveSession,
		Influx:      influxManager,
		Calibration: calibration,
		Solver:      config.GetSolverConfig(),
		Sweep:       config.GetSweepConfig(),
	}, storageBackend)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager.RegisterHandlers(eventDispatcher)

	monitorService = monitor.NewService(monitor.Dependencies{
		Backend:       storageBackend,
		LogManager:    LogManager,
		Session:       ActiveSession,
		WorkerManager: workerManager,
		Influx:        influxManager,
		StatusDir:     logsDir,
	})

	return nil
}

// dispatch routes one command through the dispatcher, the same path a
// remote stream would use.
func dispatch(command string, args ...string) (any, error) {
	return eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// shutdown flushes every service that buffers. Safe to call with any subset
// of services wired, including none.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if monitorService != nil {
		monitorService.Stop()
	}
	closeStorage()
	if influxManager != nil {
		influxManager.Close()
	}
	if LogManager != nil {
		if err := LogManager.Flush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "warning: log flush failed:", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "warning: otel shutdown failed:", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
