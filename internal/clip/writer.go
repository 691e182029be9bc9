// Package clip turns a Ring snapshot into a final transcoded file on disk,
// ready for the Upload Journal: the snapshot goes to a raw file under
// videos/temp, and the Transcoder Adapter writes the final clip under
// videos/final.
package clip

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/daemonerr"
	"github.com/diogocs32/penareia-bridge/internal/ring"
	"github.com/diogocs32/penareia-bridge/internal/transcode"
)

const (
	minFreeBytes        = 1 << 30   // 1 GB
	minFreeBytesAfterGC = 512 << 20 // 0.5 GB
	cleanupAgeThreshold = time.Hour
	videosDir           = "videos"
	tempSubdir          = "temp"
	finalSubdir         = "final"
	basenameTimeFormat  = "02-01-2006_15-04-05"
)

// Logger is the subset of logging the writer needs.
type Logger interface {
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Journal is the subset of the Upload Journal the writer enqueues into.
type Journal interface {
	Enqueue(localPath, remoteName string, priority bool) error
	IncrementCaptures() error
}

// Writer produces final clips from Ring snapshots and enqueues them.
type Writer struct {
	root        string // base directory containing videos/
	saveSeconds int
	forceFPS    int
	transcoder  *transcode.Adapter
	journal     Journal
	log         Logger
}

// New constructs a Writer rooted at root (the working directory under which
// videos/temp and videos/final live).
func New(root string, saveSeconds, forceFPS int, transcoder *transcode.Adapter, journal Journal, log Logger) *Writer {
	return &Writer{
		root:        root,
		saveSeconds: saveSeconds,
		forceFPS:    forceFPS,
		transcoder:  transcoder,
		journal:     journal,
		log:         log,
	}
}

// Result describes a successfully produced clip.
type Result struct {
	Filename  string
	FinalPath string
}

// WriteAndEnqueue runs the full trigger pipeline: precheck, snapshot, raw
// write, transcode, enqueue. Each numbered step is a distinct failure
// boundary returning one of the daemonerr kinds.
func (w *Writer) WriteAndEnqueue(r *ring.Ring) (*Result, error) {
	if err := w.ensureFreeSpace(); err != nil {
		return nil, err
	}

	frames := r.SnapshotTail(w.saveSeconds * w.forceFPS)
	if len(frames) == 0 {
		return nil, &daemonerr.BufferEmptyError{}
	}

	tempDir := filepath.Join(w.root, videosDir, tempSubdir)
	finalDir := filepath.Join(w.root, videosDir, finalSubdir)
	for _, d := range []string{tempDir, finalDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("ensure directory %s: %w", d, err)
		}
	}

	base := "Penareia_" + time.Now().Format(basenameTimeFormat)
	rawPath := filepath.Join(tempDir, base+"_temp.mp4")
	finalPath := filepath.Join(finalDir, base+".mp4")

	width, height := r.Dimensions()
	if err := writeRawContainer(rawPath, frames, width, height); err != nil {
		return nil, err
	}

	if err := w.transcoder.Transcode(rawPath, finalPath, width, height, w.forceFPS); err != nil {
		_ = os.Remove(rawPath)
		return nil, err
	}

	if err := os.Remove(rawPath); err != nil {
		w.log.Warn("failed to remove temp clip after transcode", "path", rawPath, "err", err)
	}

	filename := base + ".mp4"
	if err := w.journal.Enqueue(finalPath, filename, true); err != nil {
		return nil, &daemonerr.EnqueueFailedError{Path: finalPath, Err: err}
	}

	if err := w.journal.IncrementCaptures(); err != nil {
		w.log.Warn("failed to increment captures counter", "err", err)
	}

	return &Result{Filename: filename, FinalPath: finalPath}, nil
}

// ensureFreeSpace implements the precheck/cleanup/recheck sequence.
func (w *Writer) ensureFreeSpace() error {
	free, err := freeBytes(w.root)
	if err != nil {
		return fmt.Errorf("statfs %s: %w", w.root, err)
	}
	if free >= minFreeBytes {
		return nil
	}

	removed := w.cleanupOlderThan(cleanupAgeThreshold)
	w.log.Info("low disk space, ran opportunistic cleanup", "removed", removed, "free_before", free)

	free, err = freeBytes(w.root)
	if err != nil {
		return fmt.Errorf("statfs %s: %w", w.root, err)
	}
	if free < minFreeBytesAfterGC {
		return &daemonerr.InsufficientStorageError{AvailableBytes: free, RequiredBytes: minFreeBytesAfterGC}
	}
	return nil
}

// cleanupOlderThan removes final clips older than age, returning the count
// removed. Failures to remove an individual file are logged and skipped.
func (w *Writer) cleanupOlderThan(age time.Duration) int {
	finalDir := filepath.Join(w.root, videosDir, finalSubdir)
	entries, err := os.ReadDir(finalDir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(finalDir, entry.Name())
			if err := os.Remove(path); err != nil {
				w.log.Warn("cleanup: failed to remove old clip", "path", path, "err", err)
				continue
			}
			removed++
		}
	}
	return removed
}

func freeBytes(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
