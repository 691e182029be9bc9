// Package web implements the Trigger API, Status API, and landing page over
// net/http, with embed.FS static assets and method-check-then-JSON-encode
// handlers.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/daemonerr"
	"github.com/diogocs32/penareia-bridge/internal/logger"
)

//go:embed static/*
var staticFiles embed.FS

// Ring is the subset of the Frame Ring the Status API reads.
type Ring interface {
	Len() int
	Capacity() int
	Dimensions() (width, height int)
}

// StatusProvider supplies the read-only fields the Status API reports.
type StatusProvider struct {
	SourceIdentifier    string
	EffectiveFPS        int
	BufferSeconds       int
	SaveSeconds         int
	Ring                Ring
	ObjectStoreBucket   string
	WebhookConfigured   bool
	TranscoderAvailable func() bool
	HostTelemetry       func() map[string]any
	RecentLogs          func(n int) []string
}

// Server is the HTTP server exposing the Trigger API, Status API, and the
// static landing page.
type Server struct {
	mux        *http.ServeMux
	httpServer *http.Server
	log        *logger.Logger

	trigger func() (*triggerResult, error)
	status  StatusProvider
}

type triggerResult struct {
	Filename  string
	RemoteURL string
}

// Config wires the Server to the rest of the daemon.
type Config struct {
	Host    string
	Port    int
	Trigger func() (filename string, err error)
	Status  StatusProvider
}

// NewServer constructs a Server with routes registered.
func NewServer(cfg Config) *Server {
	s := &Server{
		mux: http.NewServeMux(),
		log: logger.Default(),
		trigger: func() (*triggerResult, error) {
			filename, err := cfg.Trigger()
			if err != nil {
				return nil, err
			}
			return &triggerResult{Filename: filename}, nil
		},
		status: cfg.Status,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/trigger", s.handleTrigger)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	staticFS, _ := fs.Sub(staticFiles, "static")
	s.mux.Handle("/", http.FileServer(http.FS(staticFS)))
}

// Start runs the HTTP server, blocking until it stops or errors.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetMux exposes the mux for tests.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

type triggerResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Arquivo   string `json:"arquivo,omitempty"`
	Conversao string `json:"conversao,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleTrigger implements POST /trigger, orchestrating the Clip Writer and
// Upload Journal enqueue. It never waits for the upload itself to complete.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.trigger()
	w.Header().Set("Content-Type", "application/json")

	if err != nil {
		statusCode := http.StatusInternalServerError
		var insufficientStorage *daemonerr.InsufficientStorageError
		if errors.As(err, &insufficientStorage) {
			statusCode = http.StatusInsufficientStorage
		}
		s.log.Warn("trigger failed", "err", err)
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(triggerResponse{
			Success: false,
			Message: "falha ao processar gatilho",
			Error:   err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(triggerResponse{
		Success:   true,
		Message:   "clipe capturado e enfileirado",
		Arquivo:   result.Filename,
		Conversao: result.Filename,
	})
}

// recentLogLines is how many buffered log entries the Status API reports.
const recentLogLines = 20

type statusResponse struct {
	SourceIdentifier    string         `json:"source_identifier"`
	EffectiveFPS        int            `json:"effective_fps"`
	Width               int            `json:"width"`
	Height              int            `json:"height"`
	BufferSeconds       int            `json:"buffer_seconds"`
	SaveSeconds         int            `json:"save_seconds"`
	RingLength          int            `json:"ring_length"`
	RingCapacity        int            `json:"ring_capacity"`
	ObjectStoreBucket   string         `json:"object_store_bucket"`
	WebhookConfigured   bool           `json:"webhook_configured"`
	TranscoderAvailable bool           `json:"transcoder_available"`
	HostTelemetry       map[string]any `json:"host_telemetry,omitempty"`
	RecentLog           []string       `json:"recent_log,omitempty"`
}

// handleStatus implements GET /status, a pure read-only snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	width, height := 0, 0
	ringLen, ringCap := 0, 0
	if s.status.Ring != nil {
		width, height = s.status.Ring.Dimensions()
		ringLen = s.status.Ring.Len()
		ringCap = s.status.Ring.Capacity()
	}

	transcoderAvailable := true
	if s.status.TranscoderAvailable != nil {
		transcoderAvailable = s.status.TranscoderAvailable()
	}

	var telemetry map[string]any
	if s.status.HostTelemetry != nil {
		telemetry = s.status.HostTelemetry()
	}

	var recentLog []string
	if s.status.RecentLogs != nil {
		recentLog = s.status.RecentLogs(recentLogLines)
	}

	resp := statusResponse{
		SourceIdentifier:    s.status.SourceIdentifier,
		EffectiveFPS:        s.status.EffectiveFPS,
		Width:               width,
		Height:              height,
		BufferSeconds:       s.status.BufferSeconds,
		SaveSeconds:         s.status.SaveSeconds,
		RingLength:          ringLen,
		RingCapacity:        ringCap,
		ObjectStoreBucket:   s.status.ObjectStoreBucket,
		WebhookConfigured:   s.status.WebhookConfigured,
		TranscoderAvailable: transcoderAvailable,
		HostTelemetry:       telemetry,
		RecentLog:           recentLog,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleHealthz is a minimal liveness probe for external supervisors
// (systemd, docker healthcheck) distinct from the Supervisor's own
// heartbeat-stall logic.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
