package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	j := newTestJournal(t)
	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clipPath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := j.Enqueue(clipPath, "clip.mp4", true); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	entry, ok := j.Dequeue(time.Second)
	if !ok {
		t.Fatal("expected an entry to dequeue")
	}
	if entry.LocalPath != clipPath {
		t.Errorf("LocalPath = %q, want %q", entry.LocalPath, clipPath)
	}
	if entry.FileHash == "" {
		t.Error("expected a non-empty file hash")
	}
}

func TestDequeueTimesOutWhenEmpty(t *testing.T) {
	j := newTestJournal(t)
	if _, ok := j.Dequeue(50 * time.Millisecond); ok {
		t.Fatal("expected timeout with no entries enqueued")
	}
}

func TestMarkCompletedIncrementsCounter(t *testing.T) {
	j := newTestJournal(t)
	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clipPath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := j.Enqueue(clipPath, "clip.mp4", false); err != nil {
		t.Fatal(err)
	}
	entry, _ := j.Dequeue(time.Second)

	if err := j.MarkCompleted(entry.ID, "https://example.invalid/clip.mp4"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	var success int
	if err := j.db.QueryRow(`SELECT uploads_success FROM system_status WHERE id = 1`).Scan(&success); err != nil {
		t.Fatalf("read uploads_success: %v", err)
	}
	if success != 1 {
		t.Errorf("uploads_success = %d, want 1", success)
	}
}

func TestRecoverPendingMarksMissingFileFailed(t *testing.T) {
	j := newTestJournal(t)
	dir := t.TempDir()
	clipPath := filepath.Join(dir, "gone.mp4")
	if err := os.WriteFile(clipPath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := j.Enqueue(clipPath, "gone.mp4", false); err != nil {
		t.Fatal(err)
	}
	// Drain the enqueue's async push so it doesn't race with deletion below.
	entry, ok := j.Dequeue(time.Second)
	if !ok {
		t.Fatal("expected enqueued entry")
	}
	// Dequeue leaves the row pending, which stands in for a crash before the
	// worker processed it; now delete the backing file.
	if err := os.Remove(clipPath); err != nil {
		t.Fatal(err)
	}

	if err := j.RecoverPending(); err != nil {
		t.Fatalf("RecoverPending: %v", err)
	}

	var status, reason string
	if err := j.db.QueryRow(`SELECT status, error_message FROM journal_entries WHERE id = ?`, entry.ID).Scan(&status, &reason); err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if status != string(StatusFailed) {
		t.Errorf("status = %q, want %q", status, StatusFailed)
	}
	if reason != "file not found on recovery" {
		t.Errorf("error_message = %q, want %q", reason, "file not found on recovery")
	}
}
