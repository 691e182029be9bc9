// Package supervisor runs the daemon's heartbeat watchdog: a periodic tick
// that force-exits the process on a stalled worker, cleans up aged clips,
// and optionally reports host telemetry and an upstream release check.
package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/heartbeat"
	"github.com/diogocs32/penareia-bridge/pkg/health"
)

const (
	tickInterval    = 30 * time.Second
	stallThreshold  = 60 * time.Second
	cleanupInterval = time.Hour
	clipMaxAge      = 24 * time.Hour
)

// Logger is the subset of logging the supervisor needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Journal is the subset of the Upload Journal the supervisor records against.
type Journal interface {
	Heartbeat(uptimeSeconds int64) error
	IncrementCrashes() error
}

// UpdateChecker is the subset of the optional release checker the
// supervisor drives; nil disables the feature entirely.
type UpdateChecker interface {
	Start()
	Stop()
}

// Exiter abstracts process termination so tests can observe a stall without
// actually killing the test binary.
type Exiter func(code int)

// Supervisor watches a shared heartbeat and forces process exit on a stall.
type Supervisor struct {
	hb            *heartbeat.Heartbeat
	journal       Journal
	videosRoot    string
	monitor       *health.SystemMonitor
	updateChecker UpdateChecker
	log           Logger
	exit          Exiter
	startedAt     time.Time

	lastCleanup time.Time
}

// New constructs a Supervisor. updateChecker may be nil to disable the
// optional self-update check; monitor may be nil to disable host telemetry.
func New(hb *heartbeat.Heartbeat, j Journal, videosRoot string, monitor *health.SystemMonitor, updateChecker UpdateChecker, log Logger) *Supervisor {
	return &Supervisor{
		hb:            hb,
		journal:       j,
		videosRoot:    videosRoot,
		monitor:       monitor,
		updateChecker: updateChecker,
		log:           log,
		exit:          os.Exit,
		startedAt:     time.Now(),
	}
}

// Run ticks every 30 seconds until ctx is cancelled, returning only then
// (a forced stall exit never returns — it calls exit directly).
func (s *Supervisor) Run(ctx context.Context) {
	if s.updateChecker != nil {
		s.updateChecker.Start()
		defer s.updateChecker.Stop()
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Supervisor) tick() {
	gap := time.Since(s.hb.Last())
	if gap > stallThreshold {
		s.log.Error("heartbeat stall detected, forcing exit", "gap_seconds", gap.Seconds())
		if err := s.journal.IncrementCrashes(); err != nil {
			s.log.Error("failed to record crash before forced exit", "err", err)
		}
		s.exit(1)
		return
	}

	uptime := int64(time.Since(s.startedAt).Seconds())
	if err := s.journal.Heartbeat(uptime); err != nil {
		s.log.Warn("failed to persist heartbeat", "err", err)
	}

	if s.monitor != nil {
		stats := s.monitor.GetStats()
		if stats.OverallLevel == health.LevelCritical {
			s.log.Warn("host resource usage critical", "cpu_percent", stats.CPUPercent, "mem_percent", stats.MemPercent, "disk_percent", stats.DiskPercent)
		}
	}

	if time.Since(s.lastCleanup) >= cleanupInterval {
		s.lastCleanup = time.Now()
		removed, freedBytes := s.cleanupAgedClips()
		if removed > 0 {
			s.log.Info("periodic clip cleanup", "removed", removed, "freed_bytes", freedBytes)
		}
	}
}

// cleanupAgedClips removes files older than clipMaxAge from videos/temp and
// videos/final, returning the count removed and bytes freed.
func (s *Supervisor) cleanupAgedClips() (removed int, freedBytes int64) {
	cutoff := time.Now().Add(-clipMaxAge)
	for _, sub := range []string{"temp", "final"} {
		dir := filepath.Join(s.videosRoot, "videos", sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				path := filepath.Join(dir, entry.Name())
				if err := os.Remove(path); err != nil {
					s.log.Warn("cleanup: failed to remove aged clip", "path", path, "err", err)
					continue
				}
				removed++
				freedBytes += info.Size()
			}
		}
	}
	return removed, freedBytes
}
