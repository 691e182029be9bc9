// Package daemonerr defines the named error kinds shared by every component
// of the capture daemon as distinct types, so callers branch with errors.As
// rather than string matching. Kinds that wrap an underlying cause expose it
// through Unwrap.
package daemonerr

import "fmt"

// BufferEmptyError means the Frame Ring had no frames at trigger time.
type BufferEmptyError struct{}

func (e *BufferEmptyError) Error() string { return "Nenhum frame disponível no buffer!" }

// InsufficientStorageError means free space stayed below the emergency
// threshold even after opportunistic cleanup.
type InsufficientStorageError struct {
	AvailableBytes int64
	RequiredBytes  int64
}

func (e *InsufficientStorageError) Error() string {
	return fmt.Sprintf("insufficient storage: %d bytes available, need %d", e.AvailableBytes, e.RequiredBytes)
}

// WriterOpenFailedError means the raw temp container could not be opened.
type WriterOpenFailedError struct {
	Path string
	Err  error
}

func (e *WriterOpenFailedError) Error() string {
	return fmt.Sprintf("open clip writer %s: %v", e.Path, e.Err)
}
func (e *WriterOpenFailedError) Unwrap() error { return e.Err }

// WriterWriteFailedError means a write to the raw temp container failed.
type WriterWriteFailedError struct {
	Path string
	Err  error
}

func (e *WriterWriteFailedError) Error() string {
	return fmt.Sprintf("write clip %s: %v", e.Path, e.Err)
}
func (e *WriterWriteFailedError) Unwrap() error { return e.Err }

// TranscodeFailedError means both the primary and fallback encoder
// invocations failed.
type TranscodeFailedError struct {
	PrimaryDetail  string
	FallbackDetail string
	Err            error
}

func (e *TranscodeFailedError) Error() string {
	return fmt.Sprintf("transcode failed: primary=%q fallback=%q: %v", e.PrimaryDetail, e.FallbackDetail, e.Err)
}
func (e *TranscodeFailedError) Unwrap() error { return e.Err }

// EnqueueFailedError means the final clip could not be durably journaled.
type EnqueueFailedError struct {
	Path string
	Err  error
}

func (e *EnqueueFailedError) Error() string {
	return fmt.Sprintf("enqueue %s: %v", e.Path, e.Err)
}
func (e *EnqueueFailedError) Unwrap() error { return e.Err }

// UploadAuthFailedError means the object store rejected the credentials.
type UploadAuthFailedError struct {
	Err error
}

func (e *UploadAuthFailedError) Error() string { return fmt.Sprintf("upload auth failed: %v", e.Err) }
func (e *UploadAuthFailedError) Unwrap() error { return e.Err }

// UploadTransportFailedError means the upload call itself failed for a
// reason other than authorization (network error, non-2xx response, etc).
type UploadTransportFailedError struct {
	Err error
}

func (e *UploadTransportFailedError) Error() string {
	return fmt.Sprintf("upload transport failed: %v", e.Err)
}
func (e *UploadTransportFailedError) Unwrap() error { return e.Err }

// IntegrityMismatchError means the digest recomputed before upload no
// longer matches the digest captured at enqueue time.
type IntegrityMismatchError struct {
	Path         string
	ExpectedHash string
	ActualHash   string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: expected %s, got %s", e.Path, e.ExpectedHash, e.ActualHash)
}

// LocalFileMissingError means the journal entry's local_path no longer
// exists on disk.
type LocalFileMissingError struct {
	Path string
}

func (e *LocalFileMissingError) Error() string {
	return fmt.Sprintf("local file missing: %s", e.Path)
}

// WebhookFailedError means webhook delivery failed; it is always
// best-effort and never alters journal state.
type WebhookFailedError struct {
	Err error
}

func (e *WebhookFailedError) Error() string { return fmt.Sprintf("webhook delivery failed: %v", e.Err) }
func (e *WebhookFailedError) Unwrap() error { return e.Err }

// StallDetectedError means the heartbeat gap exceeded the stall threshold
// at a supervisor tick; it is fatal.
type StallDetectedError struct {
	GapSeconds float64
}

func (e *StallDetectedError) Error() string {
	return fmt.Sprintf("stall detected: heartbeat gap %.1fs exceeds threshold", e.GapSeconds)
}
