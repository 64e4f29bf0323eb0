package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/aircraft"
)

// webServer implements iqsource.SnapshotConsumer, serving the latest
// snapshot as JSON over HTTP for a browser-based map or table to
// poll, dump1090's "web" mode.
type webServer struct {
	logger *logrus.Logger
	srv    *http.Server

	mu       sync.RWMutex
	snapshot []aircraft.Entry
	at       time.Time
}

// newWebServer builds a webServer listening on addr once
// ListenAndServe is called.
func newWebServer(addr string, logger *logrus.Logger) *webServer {
	if addr == "" {
		addr = ":8080"
	}
	ws := &webServer{logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/aircraft", ws.handleAircraft)
	ws.srv = &http.Server{Addr: addr, Handler: mux}
	return ws
}

// Render implements iqsource.SnapshotConsumer.
func (ws *webServer) Render(snapshot []aircraft.Entry, at time.Time) error {
	ws.mu.Lock()
	ws.snapshot = snapshot
	ws.at = at
	ws.mu.Unlock()
	return nil
}

func (ws *webServer) handleAircraft(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	snapshot := ws.snapshot
	at := ws.at
	ws.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		At       time.Time         `json:"at"`
		Aircraft []aircraft.Entry `json:"aircraft"`
	}{At: at, Aircraft: snapshot})
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (ws *webServer) ListenAndServe() {
	if err := ws.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ws.logger.WithError(err).Warn("web server stopped")
	}
}

// Shutdown gracefully stops the HTTP server.
func (ws *webServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws.srv.Shutdown(ctx)
}
