// Package worker runs the Upload Worker: a single goroutine that drains the
// Upload Journal, verifies integrity, uploads with a two-tier retry
// schedule, and fires a webhook notification on success.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/heartbeat"
	"github.com/diogocs32/penareia-bridge/internal/journal"
)

const (
	dequeueTimeout = 5 * time.Second
	subAttempts    = 3
	outerRetryWait = 30 * time.Second
	panicRestart   = 10 * time.Second
)

// subAttemptBackoff returns the 2*2^k second delay between sub-attempts k
// and k+1 (2s, 4s, 8s).
func subAttemptBackoff(k int) time.Duration {
	return time.Duration(2<<uint(k)) * time.Second
}

// ObjectStore is the subset of the object store client the worker needs.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, remotePath string) (publicURL string, err error)
}

// Webhook is the subset of the webhook notifier the worker needs.
type Webhook interface {
	Notify(filename, publicURL string, capturedAt time.Time)
}

// Logger is the subset of logging the worker needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Worker drains j sequentially and uploads each entry via store.
type Worker struct {
	j       *journal.Journal
	store   ObjectStore
	webhook Webhook
	hb      *heartbeat.Heartbeat
	log     Logger
}

// New constructs a Worker.
func New(j *journal.Journal, store ObjectStore, webhook Webhook, hb *heartbeat.Heartbeat, log Logger) *Worker {
	return &Worker{j: j, store: store, webhook: webhook, hb: hb, log: log}
}

// Run drives the dequeue loop until ctx is cancelled, recovering from a
// panic in a single entry's processing and restarting after a fixed delay,
// matching the daemon's other long-lived worker goroutines.
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		w.runProtected(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(panicRestart):
		}
	}
}

func (w *Worker) runProtected(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("upload worker panic", "recovered", r)
		}
	}()
	w.dequeueLoop(ctx)
}

func (w *Worker) dequeueLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.hb.Beat()

		entry, ok := w.j.Dequeue(dequeueTimeout)
		if !ok {
			continue
		}
		w.process(ctx, entry)
	}
}

// process implements the numbered steps of the Upload Worker's per-entry
// handling: missing-file check, integrity check, bounded sub-attempts, and
// the coarser 30-second outer retry tier.
func (w *Worker) process(ctx context.Context, e journal.Entry) {
	if _, err := os.Stat(e.LocalPath); err != nil {
		w.fail(e, "file not found")
		return
	}

	hash, err := fileSHA256(e.LocalPath)
	if err != nil {
		w.fail(e, fmt.Sprintf("hash recompute failed: %v", err))
		return
	}
	if hash != e.FileHash {
		w.fail(e, "integrity mismatch")
		return
	}

	url, uploaded := w.uploadWithSubAttempts(ctx, e)
	if uploaded {
		w.succeed(e, url)
		return
	}

	attempts, err := w.j.IncrementAttempts(e.ID)
	if err != nil {
		w.log.Error("failed to increment attempts", "id", e.ID, "err", err)
		attempts = e.Attempts + 1
	}
	if attempts >= e.MaxAttempts {
		w.fail(e, "max attempts exceeded")
		return
	}

	w.log.Warn("upload failed, scheduling outer retry", "id", e.ID, "attempts", attempts, "wait", outerRetryWait)
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(outerRetryWait):
			e.Attempts = attempts
			w.j.Readmit(e)
		}
	}()
}

// uploadWithSubAttempts tries up to subAttempts immediate attempts with
// 2/4/8 second exponential backoff between them.
func (w *Worker) uploadWithSubAttempts(ctx context.Context, e journal.Entry) (url string, ok bool) {
	for k := 0; k < subAttempts; k++ {
		url, err := w.store.Upload(ctx, e.LocalPath, e.RemotePath)
		if err == nil {
			return url, true
		}
		w.log.Warn("upload sub-attempt failed", "id", e.ID, "attempt", k+1, "err", err)

		if k < subAttempts-1 {
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(subAttemptBackoff(k)):
			}
		}
	}
	return "", false
}

func (w *Worker) succeed(e journal.Entry, url string) {
	if err := os.Remove(e.LocalPath); err != nil {
		w.log.Warn("failed to remove uploaded local file", "path", e.LocalPath, "err", err)
	}
	if err := w.j.MarkCompleted(e.ID, url); err != nil {
		w.log.Error("failed to mark entry completed", "id", e.ID, "err", err)
	}
	w.webhook.Notify(e.Filename, url, e.Timestamp)
}

func (w *Worker) fail(e journal.Entry, reason string) {
	if err := w.j.MarkFailed(e.ID, reason); err != nil {
		w.log.Error("failed to mark entry failed", "id", e.ID, "reason", reason, "err", err)
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
