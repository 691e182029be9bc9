package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/heartbeat"
)

type nullLogger struct{}

func (nullLogger) Info(msg string, args ...any)  {}
func (nullLogger) Warn(msg string, args ...any)  {}
func (nullLogger) Error(msg string, args ...any) {}

type stubJournal struct {
	heartbeats int
	crashes    int
}

func (s *stubJournal) Heartbeat(uptimeSeconds int64) error { s.heartbeats++; return nil }
func (s *stubJournal) IncrementCrashes() error              { s.crashes++; return nil }

func TestTickPersistsHeartbeatWhenHealthy(t *testing.T) {
	hb := heartbeat.New()
	j := &stubJournal{}
	s := New(hb, j, t.TempDir(), nil, nil, nullLogger{})

	exited := false
	s.exit = func(code int) { exited = true }

	s.tick()

	if exited {
		t.Fatal("should not exit when heartbeat is fresh")
	}
	if j.heartbeats != 1 {
		t.Errorf("heartbeats = %d, want 1", j.heartbeats)
	}
}

func TestTickForcesExitOnStall(t *testing.T) {
	hb := &heartbeat.Heartbeat{}
	// Force a stale heartbeat by beating once then waiting past the threshold
	// is too slow for a unit test; instead construct directly via Beat and
	// manipulate time indirectly isn't possible (no setter), so we simulate
	// a stall by using a heartbeat that was never beaten recently: the zero
	// value's Last() is the zero time, always older than stallThreshold.
	j := &stubJournal{}
	s := New(hb, j, t.TempDir(), nil, nil, nullLogger{})

	var exitCode = -1
	s.exit = func(code int) { exitCode = code }

	s.tick()

	if exitCode != 1 {
		t.Fatalf("expected forced exit with code 1, got %d", exitCode)
	}
	if j.crashes != 1 {
		t.Errorf("crashes = %d, want 1", j.crashes)
	}
}

func TestCleanupAgedClipsRemovesOldFiles(t *testing.T) {
	root := t.TempDir()
	finalDir := filepath.Join(root, "videos", "final")
	if err := os.MkdirAll(finalDir, 0755); err != nil {
		t.Fatal(err)
	}
	oldPath := filepath.Join(finalDir, "old.mp4")
	if err := os.WriteFile(oldPath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	s := New(heartbeat.New(), &stubJournal{}, root, nil, nil, nullLogger{})
	removed, freed := s.cleanupAgedClips()

	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if freed == 0 {
		t.Error("expected freedBytes > 0")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	s := New(heartbeat.New(), &stubJournal{}, t.TempDir(), nil, nil, nullLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
