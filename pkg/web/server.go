// Package web exposes the serve-mode HTTP API: the latest generation
// report, a regeneration trigger, and SSE streams for progress.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ritzau/bazel-xcodegen/pkg/generator"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/pubsub"
)

// RegenerateFunc runs one generation pass on demand.
type RegenerateFunc func(ctx context.Context) (*generator.Report, error)

// Server represents the web server
type Server struct {
	router     *mux.Router
	publisher  pubsub.Publisher
	regenerate RegenerateFunc

	mu     sync.RWMutex
	report *generator.Report
	// regenerating collapses concurrent trigger requests to one pass.
	regenerating bool
}

// NewServer creates a new web server. regenerate may be nil, which
// disables the POST trigger endpoint.
func NewServer(regenerate RegenerateFunc) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// New subscribers see the current state, not the full history.
	ssePublisher.ConfigureTopic(pubsub.TopicGenerationStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})
	ssePublisher.ConfigureTopic(pubsub.TopicReport, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	s := &Server{
		router:     mux.NewRouter(),
		publisher:  ssePublisher,
		regenerate: regenerate,
	}
	s.setupRoutes()
	return s
}

// SetReport stores the latest generation report and publishes it to
// report subscribers.
func (s *Server) SetReport(report *generator.Report) {
	s.mu.Lock()
	s.report = report
	s.mu.Unlock()

	if err := s.publisher.Publish(pubsub.TopicReport, "ready", report); err != nil {
		logging.Warn("failed to publish report", "error", err)
	}
}

// PublishStatus publishes a generation progress event.
func (s *Server) PublishStatus(state, message string, step, total int) error {
	status := pubsub.GenerationStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	}
	return s.publisher.Publish(pubsub.TopicGenerationStatus, state, status)
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/generation_status", s.handleSubscribe(pubsub.TopicGenerationStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/report", s.handleSubscribe(pubsub.TopicReport)).Methods("GET")

	// API routes
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/diagnostics", s.handleDiagnostics).Methods("GET")
	s.router.HandleFunc("/api/generate", s.handleGenerate).Methods("POST")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// handleSubscribe returns an SSE handler streaming one topic.
func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

		// Send initial comment to establish connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.Debug("SSE client disconnected", "topic", topic, "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, "no generation report available yet", http.StatusServiceUnavailable)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		json.NewEncoder(w).Encode([]any{})
		return
	}
	json.NewEncoder(w).Encode(report.Diagnostics)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.regenerate == nil {
		http.Error(w, "regeneration not available", http.StatusNotImplemented)
		return
	}

	s.mu.Lock()
	if s.regenerating {
		s.mu.Unlock()
		http.Error(w, "generation already in progress", http.StatusConflict)
		return
	}
	s.regenerating = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.regenerating = false
			s.mu.Unlock()
		}()

		report, err := s.regenerate(context.Background())
		if err != nil {
			logging.Error("triggered regeneration failed", "error", err)
			s.PublishStatus("failed", err.Error(), 0, 0)
			return
		}
		s.SetReport(report)
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "regeneration started")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}

// indexPage is a minimal status page; the API is the real surface.
const indexPage = `<!DOCTYPE html>
<html>
<head><title>bazel-xcodegen</title></head>
<body>
<h1>bazel-xcodegen</h1>
<p>Latest report: <a href="/api/report">/api/report</a></p>
<p>Diagnostics: <a href="/api/diagnostics">/api/diagnostics</a></p>
<pre id="status"></pre>
<script>
const el = document.getElementById('status');
const src = new EventSource('/api/subscribe/generation_status');
src.onmessage = (e) => { el.textContent = e.data; };
</script>
</body>
</html>
`

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}
