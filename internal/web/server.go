package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"luna-bot/internal/state"
)

// Saver is the synchronous flush entry point exposed on /save.
type Saver interface {
	ForceSave(ctx context.Context) error
}

// Server reports bot health over HTTP. It is read-only apart from /save and
// stays up even when the chat transport is unavailable (degraded mode).
type Server struct {
	manager   *state.Manager
	saver     Saver
	storage   string
	port      int
	server    *http.Server
	startTime time.Time
}

func NewServer(manager *state.Manager, saver Saver, storage string, port int) *Server {
	return &Server{
		manager:   manager,
		saver:     saver,
		storage:   storage,
		port:      port,
		startTime: time.Now(),
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/save", s.handleSave)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("starting web server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"users":          s.manager.TotalUsers(),
		"total_messages": s.manager.TotalMessages(),
		"storage":        s.storage,
		"uptime":         time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "pong")
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		http.Error(w, "saving not available", http.StatusServiceUnavailable)
		return
	}
	if err := s.saver.ForceSave(r.Context()); err != nil {
		log.Printf("manual save failed: %v", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "saved")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	uptime := time.Since(s.startTime).Round(time.Second)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html>
<head><title>Luna AI Bot</title></head>
<body>
<h1>🤖 Luna AI Bot</h1>
<p>🟢 ONLINE &amp; DATA PERSISTENT</p>
<p><strong>Uptime:</strong> %s<br>
<strong>Total Users:</strong> %d<br>
<strong>Total Messages:</strong> %d<br>
<strong>Storage:</strong> %s</p>
<p>Your progress is permanently saved! 💾</p>
</body>
</html>`, uptime, s.manager.TotalUsers(), s.manager.TotalMessages(), s.storage)
}
