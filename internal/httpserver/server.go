// Package httpserver exposes the introspection endpoints for a running
// batcher: health, Prometheus metrics, and a debug view of the classifier's
// aggregated error groups. Adapted from the teacher repo's HTTP server
// (gorilla/mux router, net/http server with read/write timeouts) but scoped
// to introspection rather than log ingestion.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"notifyhub/internal/classifier"
)

// Server serves /healthz, /metrics, and /debug/aggregated-errors.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// New builds a Server bound to addr. classifier may be nil, in which case
// /debug/aggregated-errors reports an empty map.
func New(addr string, clsf *classifier.Classifier, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/debug/aggregated-errors", handleAggregatedErrors(clsf)).Methods(http.MethodGet)

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe runs the server until it errors or Shutdown is called. It
// never returns http.ErrServerClosed as an error.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("introspection server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleAggregatedErrors(clsf *classifier.Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if clsf == nil {
			_ = json.NewEncoder(w).Encode(map[string]classifier.AggregatedErrorView{})
			return
		}
		_ = json.NewEncoder(w).Encode(clsf.GetAggregatedErrors())
	}
}
