package capture

import (
	"context"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/heartbeat"
	"github.com/diogocs32/penareia-bridge/internal/logger"
	"github.com/diogocs32/penareia-bridge/internal/ring"
)

const (
	maxConsecutiveFailures = 10
	maxReconnectSessions   = 10
	reconnectDelay         = 5 * time.Second
	panicRestartDelay      = 10 * time.Second
)

// Logger is the subset of logging the loop needs, satisfied by
// internal/logger's package logger and trivially stubbed in tests.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Loop owns the camera Source and continuously appends decoded frames to a
// Ring, reconnecting on failure up to a bounded number of sessions before
// settling into a degraded, heartbeat-only state.
type Loop struct {
	sourceSpec string
	maxWidth   int
	maxHeight  int
	forceFPS   int

	ring *ring.Ring
	hb   *heartbeat.Heartbeat
	log  Logger

	degraded bool
}

// New constructs a Loop. The Ring capacity must already reflect
// bufferSeconds * forceFPS; New does not compute it.
func New(sourceSpec string, maxWidth, maxHeight, forceFPS int, r *ring.Ring, hb *heartbeat.Heartbeat, log Logger) *Loop {
	if log == nil {
		log = logger.Default()
	}
	return &Loop{
		sourceSpec: sourceSpec,
		maxWidth:   maxWidth,
		maxHeight:  maxHeight,
		forceFPS:   forceFPS,
		ring:       r,
		hb:         hb,
		log:        log,
	}
}

// Degraded reports whether the loop has exhausted its reconnect budget and
// is no longer capturing frames, only beating the heartbeat.
func (l *Loop) Degraded() bool {
	return l.degraded
}

// Run drives capture sessions until ctx is cancelled. A panicking session is
// recovered and restarted after a fixed delay, mirroring the daemon's other
// long-lived worker goroutines; Run only returns once ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		l.runProtected(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("capture loop restarting after panic", "delay", panicRestartDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(panicRestartDelay):
		}
	}
}

func (l *Loop) runProtected(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("capture loop panic", "recovered", r)
		}
	}()
	l.sessionLoop(ctx)
}

// sessionLoop runs up to maxReconnectSessions capture sessions, each lasting
// until the source fails maxConsecutiveFailures times in a row. Every session
// counts toward that budget, including one that delivered frames before
// failing; the count is not reset. Once every session is exhausted it beats
// the heartbeat on a fixed interval forever, holding the last known frames in
// the ring but appending nothing new.
func (l *Loop) sessionLoop(ctx context.Context) {
	for session := 0; session < maxReconnectSessions; session++ {
		if ctx.Err() != nil {
			return
		}

		src, err := Open(ctx, l.sourceSpec, l.maxWidth, l.maxHeight, l.forceFPS)
		if err != nil {
			l.log.Warn("capture source open failed", "session", session, "err", err)
			l.waitReconnect(ctx)
			continue
		}

		exhausted := l.runSession(ctx, src)
		_ = src.Close()
		if ctx.Err() != nil {
			return
		}
		if !exhausted {
			// Session ended cleanly (shouldn't normally happen) — retry fresh.
			session = -1
			continue
		}
		l.waitReconnect(ctx)
	}

	l.log.Error("capture reconnect budget exhausted, entering degraded mode",
		"sessions", maxReconnectSessions)
	l.degraded = true
	l.beatForever(ctx)
}

func (l *Loop) waitReconnect(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(reconnectDelay):
	}
}

// runSession reads frames until maxConsecutiveFailures read errors occur in
// a row, or ctx is cancelled. It returns true when the failure threshold was
// hit (the session should reconnect), false when ctx ended the session.
func (l *Loop) runSession(ctx context.Context, src *Source) bool {
	width, height := src.Dimensions()
	heartbeatEvery := l.forceFPS * 5
	if heartbeatEvery < 1 {
		heartbeatEvery = 1
	}

	var consecutiveFailures int
	var frameCount int

	for {
		if ctx.Err() != nil {
			return false
		}

		data, err := src.ReadFrame()
		if err != nil {
			consecutiveFailures++
			l.log.Warn("capture read failed", "consecutive", consecutiveFailures, "err", err)
			if consecutiveFailures >= maxConsecutiveFailures {
				return true
			}
			continue
		}

		consecutiveFailures = 0
		l.ring.Append(ring.Frame{
			Data:       data,
			Width:      width,
			Height:     height,
			CapturedAt: time.Now().UnixNano(),
		})

		frameCount++
		if frameCount%heartbeatEvery == 0 {
			l.hb.Beat()
		}
	}
}

// beatForever keeps the supervisor-visible heartbeat alive without capturing,
// so a dead camera does not look like a stalled process.
func (l *Loop) beatForever(ctx context.Context) {
	ticker := time.NewTicker(reconnectDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.hb.Beat()
		}
	}
}
