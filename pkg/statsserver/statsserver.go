// Package statsserver exposes a tiny read-only HTTP mux for
// observability (SPEC_FULL §B): Prometheus scraping at /metrics and a
// JSON snapshot of last_packet_info-style context state at /stats.
// This is observability, not the wire transport spec §1 excludes: it
// never touches ip_bytes or out_bytes, only already-computed summaries.
package statsserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rohc-go/compressor/internal/logger"
)

// StatsSnapshot is what GET /stats returns: one entry per active
// context, shaped like spec §6.1's last_packet_info.
type StatsSnapshot struct {
	CID            uint16 `json:"cid"`
	ProfileID      string `json:"profile_id"`
	PacketType     string `json:"packet_type"`
	Phase          string `json:"phase"`
	NumSentPackets uint32 `json:"num_sent_packets"`
	SNWindowSize   int    `json:"sn_window_size"`
}

// SnapshotSource is implemented by whatever owns the context table
// (pkg/rohc.Compressor) so this package never imports it directly,
// avoiding a dependency from observability back into the core.
type SnapshotSource interface {
	Snapshot() []StatsSnapshot
}

// New builds the read-only mux. reg may be nil, in which case
// /metrics serves the process-wide default Prometheus registry
// (promhttp.Handler) rather than panicking.
func New(reg *prometheus.Registry, src SnapshotSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		var snaps []StatsSnapshot
		if src != nil {
			snaps = src.Snapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snaps)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		logger.Debug("stats request completed",
			"method", req.Method,
			"path", req.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
