package clip

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/ring"
)

type nullLogger struct{}

func (nullLogger) Warn(msg string, args ...any) {}
func (nullLogger) Info(msg string, args ...any) {}

func TestWriteRawContainerRejectsMismatchedDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.raw")

	frames := []ring.Frame{{Data: make([]byte, 4*4*3), Width: 4, Height: 4}}
	if err := writeRawContainer(path, frames, 8, 8); err == nil {
		t.Fatal("expected error for mismatched frame dimensions")
	}
}

func TestWriteRawContainerWritesAllFrameBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.raw")

	frameSize := 4 * 4 * 3
	frames := []ring.Frame{
		{Data: make([]byte, frameSize), Width: 4, Height: 4},
		{Data: make([]byte, frameSize), Width: 4, Height: 4},
	}
	if err := writeRawContainer(path, frames, 4, 4); err != nil {
		t.Fatalf("writeRawContainer: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got, want := info.Size(), int64(frameSize*2); got != want {
		t.Errorf("file size = %d, want %d", got, want)
	}
}

func TestCleanupOlderThanRemovesOnlyStaleFiles(t *testing.T) {
	root := t.TempDir()
	finalDir := filepath.Join(root, videosDir, finalSubdir)
	if err := os.MkdirAll(finalDir, 0755); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(finalDir, "old.mp4")
	newPath := filepath.Join(finalDir, "new.mp4")
	for _, p := range []string{oldPath, newPath} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	w := &Writer{root: root, log: nullLogger{}}
	removed := w.cleanupOlderThan(time.Hour)

	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("expected old.mp4 to be removed")
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Error("expected new.mp4 to survive cleanup")
	}
}
