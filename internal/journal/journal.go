package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

const acquireTimeout = 10 * time.Second

// Status is the JournalEntry lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry mirrors the journal_entries row.
type Entry struct {
	ID           int64
	Filename     string
	LocalPath    string
	RemotePath   string
	Timestamp    time.Time
	Attempts     int
	MaxAttempts  int
	Status       Status
	ErrorMessage sql.NullString
	FileHash     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const defaultMaxAttempts = 5

// Journal is the durable upload queue backed by SQLite. Entries are handed
// to the Upload Worker through two unbuffered channels so a priority clip
// (fresh off the Trigger API) is dequeued ahead of a re-admitted retry
// without needing to reorder anything already sitting in a channel.
type Journal struct {
	db       *sql.DB
	priority chan Entry
	normal   chan Entry
}

// Open opens (creating if absent) the SQLite file at path and ensures the
// schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers regardless; keep one shared connection

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &Journal{
		db:       db,
		priority: make(chan Entry),
		normal:   make(chan Entry),
	}, nil
}

// Dequeue blocks up to timeout for a priority entry first, falling back to a
// normal entry, returning (Entry{}, false) on timeout.
func (j *Journal) Dequeue(timeout time.Duration) (Entry, bool) {
	select {
	case e := <-j.priority:
		return e, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-j.priority:
		return e, true
	case e := <-j.normal:
		return e, true
	case <-timer.C:
		return Entry{}, false
	}
}

// Readmit re-queues entry for another attempt, using the normal lane since
// it's a retry rather than a fresh trigger.
func (j *Journal) Readmit(e Entry) {
	go func() { j.normal <- e }()
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Enqueue computes the content digest of localPath, inserts a pending row,
// and pushes it onto the work channel. priority only affects placement
// within the in-memory channel; every row is durable regardless.
func (j *Journal) Enqueue(localPath, remoteName string, priority bool) error {
	hash, err := fileSHA256(localPath)
	if err != nil {
		return fmt.Errorf("hash %s: %w", localPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	now := time.Now()
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO journal_entries
			(filename, local_path, remote_path, timestamp, attempts, max_attempts, status, file_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		remoteName, localPath, remoteName, now, defaultMaxAttempts, StatusPending, hash, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted journal id: %w", err)
	}

	entry := Entry{
		ID: id, Filename: remoteName, LocalPath: localPath, RemotePath: remoteName,
		Timestamp: now, MaxAttempts: defaultMaxAttempts, Status: StatusPending, FileHash: hash,
		CreatedAt: now, UpdatedAt: now,
	}

	ch := j.normal
	if priority {
		ch = j.priority
	}
	go func() { ch <- entry }()
	return nil
}

// MarkCompleted sets status=completed, stores url as the success payload,
// and increments the uploads_success counter.
func (j *Journal) MarkCompleted(id int64, url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE journal_entries SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, url, time.Now(), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE system_status SET uploads_success = uploads_success + 1 WHERE id = 1`); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkFailed sets status=failed, stores reason, and increments uploads_failed.
func (j *Journal) MarkFailed(id int64, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE journal_entries SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, reason, time.Now(), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE system_status SET uploads_failed = uploads_failed + 1 WHERE id = 1`); err != nil {
		return err
	}
	return tx.Commit()
}

// IncrementAttempts bumps attempts by one and returns the new value.
func (j *Journal) IncrementAttempts(id int64) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	if _, err := j.db.ExecContext(ctx, `UPDATE journal_entries SET attempts = attempts + 1, updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return 0, err
	}

	var attempts int
	row := j.db.QueryRowContext(ctx, `SELECT attempts FROM journal_entries WHERE id = ?`, id)
	if err := row.Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

// RecoverPending loads every pending row at startup; rows whose local file
// still exists are re-admitted to the work channel, the rest are marked
// failed immediately.
func (j *Journal) RecoverPending() error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, filename, local_path, remote_path, timestamp, attempts, max_attempts, file_hash, created_at, updated_at
		FROM journal_entries WHERE status = ?`, StatusPending)
	if err != nil {
		return fmt.Errorf("query pending entries: %w", err)
	}

	var recovered []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Filename, &e.LocalPath, &e.RemotePath, &e.Timestamp,
			&e.Attempts, &e.MaxAttempts, &e.FileHash, &e.CreatedAt, &e.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan pending entry: %w", err)
		}
		e.Status = StatusPending
		recovered = append(recovered, e)
	}
	rows.Close()

	for _, e := range recovered {
		if _, err := os.Stat(e.LocalPath); err != nil {
			if markErr := j.MarkFailed(e.ID, "file not found on recovery"); markErr != nil {
				return markErr
			}
			continue
		}
		j.Readmit(e)
	}
	return nil
}

// Heartbeat updates the system_status row's last_heartbeat and uptime.
func (j *Journal) Heartbeat(uptimeSeconds int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx, `UPDATE system_status SET last_heartbeat = ?, uptime_seconds = ? WHERE id = 1`,
		time.Now(), uptimeSeconds)
	return err
}

// IncrementCaptures bumps the captures counter by one.
func (j *Journal) IncrementCaptures() error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx, `UPDATE system_status SET captures = captures + 1 WHERE id = 1`)
	return err
}

// IncrementCrashes bumps the crashes counter by one.
func (j *Journal) IncrementCrashes() error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx, `UPDATE system_status SET crashes = crashes + 1 WHERE id = 1`)
	return err
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
