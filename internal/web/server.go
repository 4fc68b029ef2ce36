// Package web provides the HTTP status and control server for the filament-monitor daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/filament-monitor/internal/logic"
	"github.com/sweeney/filament-monitor/internal/status"
)

// Control is the warning controller as seen by the web surface.
type Control interface {
	status.Controller
	SetManualOverride(active bool)
	SetHumidityLimit(limit float64) error
}

// Server serves the status page, the control endpoints and the live feed.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	control    Control
	hub        *Hub
}

// New creates a Server that reads state from tracker and applies changes
// through control. metrics may be nil.
func New(addr string, tracker *status.Tracker, control Control, metrics http.Handler) *Server {
	s := &Server{tracker: tracker, control: control}
	s.hub = NewHub(func() []byte { return status.FormatCompact(s.tracker.Snapshot()) })

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(metrics),
	}
	return s
}

func (s *Server) routes(metrics http.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.html", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.json", s.handleJSON).Methods("GET")
	r.HandleFunc("/data", s.handleData).Methods("GET")
	r.HandleFunc("/override", s.handleOverride).Methods("POST")
	r.HandleFunc("/limit", s.handleLimit).Methods("POST")
	r.Handle("/ws", s.hub).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	return handlers.RecoveryHandler(handlers.RecoveryLogger(log.Default()))(r)
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Broadcast pushes snap to every websocket client.
func (s *Server) Broadcast(snap status.Snapshot) {
	s.hub.Broadcast(status.FormatCompact(snap))
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.hub.Len()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatData(snap))
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	active, err := decodeOverride(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.control.SetManualOverride(active)
	log.Printf("override set via http: %v", active)
	s.publishWarning()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := decodeLimit(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.control.SetHumidityLimit(limit); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("humidity limit set via http: %.1f", limit)
	s.publishWarning()
	w.WriteHeader(http.StatusNoContent)
}

// publishWarning reflects a control change in the tracker and live feed
// without waiting for the next tick.
func (s *Server) publishWarning() {
	s.tracker.SetWarning(status.WarningFrom(s.control))
	s.Broadcast(s.tracker.Snapshot())
}

var _ Control = (*logic.Controller)(nil)
