// Package web serves the status dashboard, its SSE streams and the metrics endpoint.
package web

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/ladderbot/internal/domain"
)

const (
	journalPollInterval = 3 * time.Second
	heartbeatInterval   = 20 * time.Second
)

type snapshotSource interface {
	Latest() []domain.StatusSnapshot
	Subscribe() chan domain.StatusSnapshot
	Unsubscribe(ch chan domain.StatusSnapshot)
}

type journalReader interface {
	RecordsAfter(index uint64) ([]domain.CommandRecord, error)
}

// Server exposes the dashboard over HTTP. Any of Snapshots, Journal and
// Metrics may be nil; their endpoints then answer 503.
type Server struct {
	Addr      string
	Snapshots snapshotSource
	Journal   journalReader
	Metrics   http.Handler

	l            *zap.Logger
	pollInterval time.Duration
}

// NewServer creates a new web server instance.
func NewServer(l *zap.Logger, addr string, snapshots snapshotSource, journal journalReader, metrics http.Handler) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Snapshots:    snapshots,
		Journal:      journal,
		Metrics:      metrics,
		l:            l,
		pollInterval: journalPollInterval,
	}
}

// Handler returns the routes of the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /status/stream", s.handleStatusStream)
	mux.HandleFunc("GET /orders/stream", s.handleOrderStream)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with certificates obtained via ACME.
// It also serves HTTP-01 challenges on port 80.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12
	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("acme server", zap.Error(err))
		}
	}()

	s.l.Info("dashboard listening with auto TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		fmt.Fprint(w, indexHTML)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Vary", "Accept-Encoding")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	fmt.Fprint(gz, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Metrics == nil {
		http.Error(w, "metrics not available", http.StatusServiceUnavailable)
		return
	}
	s.Metrics.ServeHTTP(w, r)
}

// handleStatus returns the latest snapshot of every pair as a JSON array.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.Snapshots == nil {
		http.Error(w, "status not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshots.Latest()); err != nil {
		s.l.Warn("encode status", zap.Error(err))
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	if s.Snapshots == nil {
		http.Error(w, "status not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.Snapshots.Subscribe()
	defer s.Snapshots.Unsubscribe(ch)

	setStreamHeaders(w)

	for _, snap := range s.Snapshots.Latest() {
		if err := writeEvent(w, "", "status", snap); err != nil {
			s.l.Warn("status stream", zap.Error(err))
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, "", "status", snap); err != nil {
				s.l.Warn("status stream", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

// handleOrderStream replays the order journal and then follows it. Clients
// resume from Last-Event-ID (or ?last_event_id=) after a reconnect.
func (s *Server) handleOrderStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "order journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))

	writeRecords := func(records []domain.CommandRecord) error {
		for _, record := range records {
			if err := writeEvent(w, strconv.FormatUint(record.Index, 10), "order", record.Command); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		flusher.Flush()
		return nil
	}

	// headers are not committed yet, so a failing first read can still be a 500
	records, err := s.Journal.RecordsAfter(lastIndex)
	if err != nil {
		s.l.Error("order stream initial load", zap.Error(err))
		http.Error(w, "failed to load order journal", http.StatusInternalServerError)
		return
	}

	setStreamHeaders(w)
	if len(records) == 0 {
		fmt.Fprint(w, "event: no_data\ndata: {}\n\n")
	}
	if err := writeRecords(records); err != nil {
		s.l.Warn("order stream", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-poll.C:
			records, err := s.Journal.RecordsAfter(lastIndex)
			if err != nil {
				s.l.Warn("order stream poll", zap.Error(err))
				continue
			}
			if len(records) == 0 {
				continue
			}
			if err := writeRecords(records); err != nil {
				s.l.Warn("order stream", zap.Error(err))
				return
			}
		}
	}
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func writeEvent(w http.ResponseWriter, id, event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", event)
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

// parseLastEventID extracts an SSE event id from the Last-Event-ID header or,
// failing that, from the query parameter. Garbage reads as zero.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
