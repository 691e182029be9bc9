package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/capture"
	"github.com/diogocs32/penareia-bridge/internal/clip"
	"github.com/diogocs32/penareia-bridge/internal/config"
	"github.com/diogocs32/penareia-bridge/internal/heartbeat"
	"github.com/diogocs32/penareia-bridge/internal/journal"
	"github.com/diogocs32/penareia-bridge/internal/logger"
	"github.com/diogocs32/penareia-bridge/internal/objectstore"
	"github.com/diogocs32/penareia-bridge/internal/ring"
	"github.com/diogocs32/penareia-bridge/internal/supervisor"
	"github.com/diogocs32/penareia-bridge/internal/transcode"
	"github.com/diogocs32/penareia-bridge/internal/update"
	"github.com/diogocs32/penareia-bridge/internal/web"
	"github.com/diogocs32/penareia-bridge/internal/webhook"
	"github.com/diogocs32/penareia-bridge/internal/worker"
	"github.com/diogocs32/penareia-bridge/pkg/health"
)

// Build info set at compile time via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// dataRootPath picks the daemon's persisted-state root per its deployment
// target: an ARM host is assumed to be a dedicated Raspberry Pi install
// with a proper system layout, anything else a developer checkout.
func dataRootPath() string {
	if transcode.IsARM() {
		return "/var/lib/penareia"
	}
	return "./data"
}

// logFilePath picks the daemon's log file per its deployment target.
func logFilePath() string {
	if transcode.IsARM() {
		return "/var/log/penareia.log"
	}
	return "./logs/penareia.log"
}

// openLogFile opens the daemon's log file, creating its parent directory if
// needed, and tees output to it alongside stdout. If the file can't be
// opened (permissions, read-only root) it falls back to stdout alone rather
// than refusing to start. The returned file is nil in that fallback case.
func openLogFile(path string) (io.Writer, *os.File) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stdout, nil
	}
	return io.MultiWriter(os.Stdout, f), f
}

func main() {
	dataRoot := os.Getenv("PENAREIA_DATA_ROOT")
	if dataRoot == "" {
		dataRoot = dataRootPath()
	}

	logOutput, logFile := openLogFile(logFilePath())
	if logFile != nil {
		defer logFile.Close()
	}

	logCfg := logger.ConfigFromEnv()
	logCfg.Output = logOutput
	logger.SetDefault(logger.New(logCfg))
	log := logger.Default()

	log.Info("Penareia Bridge starting", "version", Version, "commit", GitCommit)

	configPath := os.Getenv("PENAREIA_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(dataRoot, "config.ini")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("configuration invalid, refusing to start", "path", configPath, "err", err)
		os.Exit(1)
	}

	hb := heartbeat.New()

	r := ring.New(cfg.Video.BufferSeconds*cfg.Video.ForceFPS, cfg.Video.MaxWidth, cfg.Video.MaxHeight)

	captureLoop := capture.New(cfg.Video.Source, cfg.Video.MaxWidth, cfg.Video.MaxHeight, cfg.Video.ForceFPS, r, hb, log)

	j, err := journal.Open(filepath.Join(dataRoot, "queue.db"))
	if err != nil {
		log.Error("failed to open upload journal", "err", err)
		os.Exit(1)
	}
	defer j.Close()

	if err := j.RecoverPending(); err != nil {
		log.Warn("failed to recover pending journal entries", "err", err)
	}

	profile := transcode.Profile{
		VideoCodec:  cfg.Encoding.Codec,
		AudioCodec:  cfg.Encoding.AudioCodec,
		Preset:      cfg.Encoding.Preset,
		CRF:         cfg.Encoding.CRF,
		PixelFormat: cfg.Encoding.PixelFormat,
		Tune:        cfg.Encoding.Tune,
		Threads:     cfg.Encoding.Threads,
		UseGPU:      cfg.Encoding.UseGPU,
	}
	transcoder := transcode.New(profile, log)

	clipWriter := clip.New(dataRoot, cfg.Video.SaveSeconds, cfg.Video.ForceFPS, transcoder, j, log)

	store := objectstore.New(cfg.B2.KeyID, cfg.B2.ApplicationKey, cfg.B2.BucketName)
	notifier := webhook.New(cfg.Webhook.URL, log)
	uploadWorker := worker.New(j, store, notifier, hb, log)

	monitor := health.NewSystemMonitor(dataRoot)
	var updateChecker supervisor.UpdateChecker
	checker := update.NewChecker(Version, GitCommit)
	updateChecker = checker

	super := supervisor.New(hb, j, dataRoot, monitor, updateChecker, log)

	webServer := web.NewServer(web.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Trigger: func() (string, error) {
			result, err := clipWriter.WriteAndEnqueue(r)
			if err != nil {
				return "", err
			}
			return result.Filename, nil
		},
		Status: web.StatusProvider{
			SourceIdentifier:  cfg.Video.Source,
			EffectiveFPS:      cfg.Video.ForceFPS,
			BufferSeconds:     cfg.Video.BufferSeconds,
			SaveSeconds:       cfg.Video.SaveSeconds,
			Ring:              r,
			ObjectStoreBucket: cfg.B2.BucketName,
			WebhookConfigured: cfg.Webhook.URL != "",
			HostTelemetry: func() map[string]any {
				stats := monitor.GetStats()
				return map[string]any{
					"cpu_percent":  stats.CPUPercent,
					"mem_percent":  stats.MemPercent,
					"disk_percent": stats.DiskPercent,
					"overall":      stats.OverallLevel,
				}
			},
			RecentLogs: log.Recent,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())

	go captureLoop.Run(ctx)
	go uploadWorker.Run(ctx)
	go super.Run(ctx)
	go func() {
		log.Info("web server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		log.Error("error stopping web server", "err", err)
	}

	log.Info("goodbye")
}
