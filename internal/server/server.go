// Package server exposes a small read-only HTTP status surface over the
// running trader.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/market"
	"github.com/helios-trade/helios/internal/trader"
)

// Server serves operational state: health, fetch and cache counters, the
// account snapshot and open positions. Read-only; it never mutates the
// trader.
type Server struct {
	trader   *trader.Trader
	fetcher  *market.Fetcher
	provider *market.Provider
	log      *logger.Logger
	http     *http.Server
}

// New creates a status server listening on addr.
func New(addr string, t *trader.Trader, fetcher *market.Fetcher, provider *market.Provider, log *logger.Logger) *Server {
	s := &Server{
		trader:   t,
		fetcher:  fetcher,
		provider: provider,
		log:      log,
		http:     nil,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/account", s.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/api/positions", s.handlePositions).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start serves until Shutdown. It returns on listener failure; callers run it
// in a goroutine.
func (s *Server) Start() error {
	s.log.Info("status server listening", zap.String("addr", s.http.Addr))

	err := s.http.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.trader.Snapshot()
	fetchStats := s.fetcher.Stats()
	cacheStats := s.provider.Stats()

	s.writeJSON(w, map[string]any{
		"cycles":      snapshot.Cycles,
		"last_cycle":  snapshot.LastCycle,
		"order_count": snapshot.OrderCount,
		"fetch": map[string]any{
			"attempts":            fetchStats.Attempts,
			"successes":           fetchStats.Successes,
			"success_rate":        fetchStats.SuccessRate(),
			"feed_successes":      fetchStats.FeedSuccesses,
			"timeframe_successes": fetchStats.TimeframeSuccesses,
			"last_success":        fetchStats.LastSuccess,
		},
		"cache": map[string]any{
			"requests":          cacheStats.Requests,
			"hits":              cacheStats.Hits,
			"hit_ratio":         cacheStats.HitRatio(),
			"failed_requests":   cacheStats.FailedRequests,
			"last_request_time": cacheStats.LastRequestTime,
		},
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.trader.Snapshot().Account)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.trader.Snapshot().Positions)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("status response encode failed", zap.Error(err))
	}
}
