// Package service exposes the watch-mode HTTP endpoints: a healthz probe
// and the prometheus metrics handler. Run-once sessions never start it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/xfail-dev/xfail/metrics"
)

const (
	DefaultHealthzAddr = "0.0.0.0:8080"
	DefaultMetricsAddr = "0.0.0.0:7300"

	ShutdownTimeout = 10 * time.Second
)

// Config holds the listen addresses. Empty fields fall back to the
// defaults above.
type Config struct {
	HealthzAddr string
	MetricsAddr string
}

type Service struct {
	healthz *http.Server
	metrics *http.Server
}

func New(cfg Config) *Service {
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = DefaultHealthzAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}
	return &Service{
		healthz: &http.Server{Addr: cfg.HealthzAddr, Handler: healthzHandler()},
		metrics: &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler()},
	}
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting",
		"healthz", s.healthz.Addr, "metrics", s.metrics.Addr)
	go serve("healthz", s.healthz)
	go serve("metrics", s.metrics)
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.healthz.Shutdown(ctx); err != nil {
		log.Warn("healthz server did not shut down cleanly", "error", err)
	}
	if err := s.metrics.Shutdown(ctx); err != nil {
		log.Warn("metrics server did not shut down cleanly", "error", err)
	}

	log.Info("service stopped")
}

func serve(name string, server *http.Server) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "name", name, "addr", server.Addr, "error", err)
		metrics.RecordErrorDetails("error starting "+name+" server", err)
	}
}

type healthzResponse struct {
	Status string `json:"status"`
}

func healthzHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request", "path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(healthzResponse{Status: "ok"}); err != nil {
			log.Error("Failed to write healthz response", "error", err)
		}
	})
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(mux)
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
