package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/api"
	"github.com/yourusername/sldl-jobs/api/handlers"
	"github.com/yourusername/sldl-jobs/internal/app"
	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/internal/infrastructure"
	"github.com/yourusername/sldl-jobs/internal/metrics"
	"github.com/yourusername/sldl-jobs/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.sldl-jobs, /etc/sldl-jobs)")
	daemon     = flag.Bool("daemon", false, "Detach and run in the background")
)

func main() {
	flag.Parse()

	if *daemon {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "sldl-jobs: %v\n", err)
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
}

func runServer() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := createDirectories(config); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: "stderr",
		Name:       "sldl-jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize categorized logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting sldl-jobs server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("sidecar", config.Sidecar.Binary),
		zap.String("downloads_path", config.Sidecar.DownloadsPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter := infrastructure.NewMultiEmitter(infrastructure.NewLogEmitter(multiLog))

	var hub *infrastructure.EventHub
	if config.Events.WebSocket {
		hub = infrastructure.NewEventHub(log)
		defer hub.Close()
		emitter.Add(hub)
	}

	if config.Events.RedisEnabled {
		client := infrastructure.NewRedisClient(config.Events.RedisAddr)
		if err := infrastructure.PingRedis(ctx, client); err != nil {
			// Publishing is retried per event; an absent broker only loses events
			log.Warn("Redis not reachable", zap.String("addr", config.Events.RedisAddr), zap.Error(err))
		}
		redisEmitter := infrastructure.NewRedisEmitter(client, config.Events.RedisChannel, log)
		defer redisEmitter.Close()
		emitter.Add(redisEmitter)
	}

	if config.Notification.Enabled {
		emitter.Add(infrastructure.NewNotificationService(&config.Notification, log))
	}

	var history domain.HistoryRepository
	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer repo.Close()
		history = repo
	}

	var collector *metrics.Collector
	if config.Metrics.Enabled {
		collector = metrics.NewCollector(true)
	}

	manager := app.NewJobManager(app.JobManagerDeps{
		Registry:    infrastructure.NewMemoryJobRegistry(),
		Runner:      infrastructure.NewSidecarRunner(config.Sidecar, multiLog),
		Emitter:     emitter,
		History:     history,
		Cleaner:     infrastructure.NewSideFileCleaner(config.Cleanup.SideFilePatterns, multiLog),
		Metrics:     collector,
		MultiLogger: multiLog,
		Logger:      log,
		Config:      config,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job manager: %w", err)
	}

	router := api.SetupRouter(api.RouterDeps{
		Jobs:        manager,
		History:     history,
		Events:      hub,
		Metrics:     collector,
		MetricsPath: config.Metrics.Path,
		MultiLogger: multiLog,
		Logger:      log,
		LogsDir:     config.Logging.LogsDir,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Kills remaining sidecars and waits for their final notifications
	if err := manager.Stop(); err != nil {
		log.Error("Error stopping job manager", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Sidecar.DownloadsPath,
		config.Logging.LogsDir,
	}
	if config.History.Enabled {
		dirs = append(dirs, filepath.Dir(config.History.DatabasePath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
