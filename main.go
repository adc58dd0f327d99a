package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/thushan/gateway/internal/config"
	"github.com/thushan/gateway/internal/env"
	"github.com/thushan/gateway/internal/logger"
	"github.com/thushan/gateway/internal/supervisor"
	"github.com/thushan/gateway/internal/version"
	"github.com/thushan/gateway/pkg/container"
	"github.com/thushan/gateway/pkg/format"
	"github.com/thushan/gateway/pkg/nerdstats"
	"github.com/thushan/gateway/pkg/profiler"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	} else {
		version.PrintVersionInfo(false, vlog)
	}

	lcfg := buildLoggerConfig()
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)
	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid(), "containerised", container.IsContainerised())

	if env.GetEnvBoolOrDefault("GATEWAY_PROFILER", false) {
		profiler.InitialiseProfiler()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	configPath := env.GetEnvOrDefault("GATEWAY_CONFIG", config.DefaultConfigPath)
	atomicCfg := supervisor.Load(configPath, styledLogger)

	proxyAddr := env.GetEnvOrDefault("GATEWAY_PROXY_ADDR", config.DefaultProxyListenAddr)
	adminAddr := env.GetEnvOrDefault("GATEWAY_ADMIN_ADDR", config.DefaultAdminListenAddr)

	sup := supervisor.New(atomicCfg, styledLogger)

	if err := sup.Run(ctx, proxyAddr, adminAddr); err != nil {
		logger.FatalWithLogger(logInstance, "Supervisor exited with error", "error", err)
	}

	reportProcessStats(styledLogger, startTime)
	styledLogger.Info("gateway has shutdown")
}

func reportProcessStats(logger *logger.StyledLogger, startTime time.Time) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	logger.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"heap_released", format.Bytes(stats.HeapReleased),
		"stack_inuse", format.Bytes(stats.StackInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"memory_pressure", stats.GetMemoryPressure(),
	)

	logger.Info("Process Allocation Stats",
		"total_mallocs", stats.Mallocs,
		"total_frees", stats.Frees,
		"net_objects", int64(stats.Mallocs)-int64(stats.Frees),
	)

	if stats.NumGC > 0 {
		logger.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"last_gc", stats.LastGC.Format(time.RFC3339),
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"gc_cpu_fraction", fmt.Sprintf("%.4f%%", stats.GCCPUFraction*100),
		)
	}

	logger.Info("Goroutine Stats",
		"num_goroutines", stats.NumGoroutines,
		"goroutine_health", stats.GetGoroutineHealthStatus(),
		"num_cgo_calls", stats.NumCgoCall,
	)

	logger.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"go_version", stats.GoVersion,
		"num_cpu", stats.NumCPU,
		"gomaxprocs", stats.GOMAXPROCS,
	)
}

// buildLoggerConfig creates logger config from environment variables with defaults
func buildLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		FileOutput: env.GetEnvBoolOrDefault("GATEWAY_FILE_OUTPUT", true),
		LogDir:     env.GetEnvOrDefault("GATEWAY_LOG_DIR", "./logs"),
		MaxSize:    env.GetEnvIntOrDefault("GATEWAY_MAX_SIZE", 100),
		MaxBackups: env.GetEnvIntOrDefault("GATEWAY_MAX_BACKUPS", 5),
		MaxAge:     env.GetEnvIntOrDefault("GATEWAY_MAX_AGE", 30),
		Theme:      env.GetEnvOrDefault("GATEWAY_THEME", "default"),
		PrettyLogs: env.GetEnvBoolOrDefault("GATEWAY_PRETTY_LOGS", true),
	}
}
