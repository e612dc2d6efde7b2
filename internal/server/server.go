package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/recordlog"
	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

const defaultWindow = 24 * time.Hour

// Server exposes the timeline query API and the record ingress endpoint.
type Server struct {
	agg    *timeline.Aggregator
	log    recordlog.Log
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server. The record log may be nil, in which
// case ingested batches are aggregated without being persisted.
func NewServer(agg *timeline.Aggregator, log recordlog.Log, logger *slog.Logger) *Server {
	s := &Server{
		agg:    agg,
		log:    log,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/records", s.handleRecords)
	s.mux.HandleFunc("GET /api/v1/series", s.handleSeries)
	s.mux.HandleFunc("GET /api/v1/series/aggregated", s.handleAggregated)
	s.mux.HandleFunc("GET /api/v1/analytics", s.handleAnalytics)
	s.mux.HandleFunc("GET /api/v1/memory", s.handleMemory)
	s.mux.HandleFunc("GET /api/v1/export", s.handleExport)
	s.mux.HandleFunc("GET /api/v1/config", s.handleGetConfig)
	s.mux.HandleFunc("PATCH /api/v1/config", s.handlePatchConfig)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	var records []model.UsageRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid record batch", http.StatusBadRequest)
		return
	}
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			http.Error(w, fmt.Sprintf("record %d: %v", i, err), http.StatusBadRequest)
			return
		}
	}

	if s.log != nil {
		if err := s.log.Append(r.Context(), records); err != nil {
			s.logger.Error("append records", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if err := s.agg.Process(records); err != nil {
		s.logger.Error("process records", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{"accepted": len(records)})
}

func validateRecord(r *model.UsageRecord) error {
	switch {
	case r.Timestamp.IsZero():
		return fmt.Errorf("missing timestamp")
	case r.Provider == "":
		return fmt.Errorf("missing provider")
	case r.Model == "":
		return fmt.Errorf("missing model")
	case r.InputTokens < 0 || r.OutputTokens < 0 || r.CacheCreationTokens < 0 || r.CacheReadTokens < 0:
		return fmt.Errorf("negative token count")
	case r.CostUSD < 0:
		return fmt.Errorf("negative cost")
	}
	return nil
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	window := queryWindow(r)
	maxPoints := queryInt(r, "max_points")

	filter, filtered := queryFilter(r)
	var points []model.TimeBucketPoint
	if filtered {
		points = s.agg.Filtered(window, filter)
	} else {
		points = s.agg.Series(window, maxPoints)
	}
	if points == nil {
		points = []model.TimeBucketPoint{}
	}
	writeJSON(w, points)
}

func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	points := s.agg.AggregatedSeries(queryWindow(r), queryInt(r, "max_points"))
	if points == nil {
		points = []model.AggregatedPoint{}
	}
	writeJSON(w, points)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.agg.Analytics(queryWindow(r)))
}

func (s *Server) handleMemory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.agg.MemoryStats())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := timeline.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	includeBreakdown := r.URL.Query().Get("breakdown") == "true"
	resolution := queryInt(r, "resolution")

	data, err := s.agg.Export(format, queryWindow(r), includeBreakdown, resolution)
	if err != nil {
		s.logger.Error("export series", "format", format, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	switch format {
	case timeline.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="timeline.csv"`)
	case timeline.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(data)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.agg.Config()
	writeJSON(w, configPayload{
		Enabled:             cfg.Enabled,
		BufferCapacity:      cfg.BufferCapacity,
		BucketResolution:    cfg.BucketResolution.String(),
		MaxRetention:        cfg.MaxRetention.String(),
		SweepInterval:       cfg.SweepInterval.String(),
		MaxDownsamplePoints: cfg.MaxDownsamplePoints,
		BucketPadding:       cfg.BucketPadding.String(),
		PredictionEnabled:   cfg.PredictionEnabled,
	})
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var patch configPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid config patch", http.StatusBadRequest)
		return
	}

	update, err := patch.toUpdate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.agg.UpdateConfig(update); err != nil {
		if errors.Is(err, timeline.ErrInvalidCapacity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("update config", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.handleGetConfig(w, r)
}

// configPayload is the wire shape of the aggregator configuration, with
// durations as strings.
type configPayload struct {
	Enabled             bool   `json:"enabled"`
	BufferCapacity      int    `json:"buffer_capacity"`
	BucketResolution    string `json:"bucket_resolution"`
	MaxRetention        string `json:"max_retention"`
	SweepInterval       string `json:"sweep_interval"`
	MaxDownsamplePoints int    `json:"max_downsample_points"`
	BucketPadding       string `json:"bucket_padding"`
	PredictionEnabled   bool   `json:"prediction_enabled"`
}

type configPatch struct {
	Enabled             *bool   `json:"enabled"`
	BufferCapacity      *int    `json:"buffer_capacity"`
	BucketResolution    *string `json:"bucket_resolution"`
	MaxRetention        *string `json:"max_retention"`
	SweepInterval       *string `json:"sweep_interval"`
	MaxDownsamplePoints *int    `json:"max_downsample_points"`
	BucketPadding       *string `json:"bucket_padding"`
	PredictionEnabled   *bool   `json:"prediction_enabled"`
}

func (p *configPatch) toUpdate() (timeline.ConfigUpdate, error) {
	update := timeline.ConfigUpdate{
		Enabled:             p.Enabled,
		BufferCapacity:      p.BufferCapacity,
		MaxDownsamplePoints: p.MaxDownsamplePoints,
		PredictionEnabled:   p.PredictionEnabled,
	}

	durations := []struct {
		raw string
		in  *string
		out **time.Duration
	}{
		{"bucket_resolution", p.BucketResolution, &update.BucketResolution},
		{"max_retention", p.MaxRetention, &update.MaxRetention},
		{"sweep_interval", p.SweepInterval, &update.SweepInterval},
		{"bucket_padding", p.BucketPadding, &update.BucketPadding},
	}
	for _, d := range durations {
		if d.in == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.in)
		if err != nil {
			return timeline.ConfigUpdate{}, fmt.Errorf("invalid %s: %v", d.raw, err)
		}
		*d.out = &parsed
	}

	return update, nil
}

func queryWindow(r *http.Request) time.Duration {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return defaultWindow
	}
	window, err := time.ParseDuration(raw)
	if err != nil || window <= 0 {
		return defaultWindow
	}
	return window
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// queryFilter builds a series filter from request parameters, reporting
// whether any filter criterion was supplied.
func queryFilter(r *http.Request) (model.SeriesFilter, bool) {
	q := r.URL.Query()
	filter := model.SeriesFilter{
		Providers:      splitList(q.Get("providers")),
		Models:         splitList(q.Get("models")),
		MinTotalTokens: int64(queryInt(r, "min_tokens")),
	}
	if raw := q.Get("max_cost"); raw != "" {
		if cost, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxCostUSD = cost
		}
	}
	active := len(filter.Providers) > 0 || len(filter.Models) > 0 ||
		filter.MinTotalTokens > 0 || filter.MaxCostUSD > 0
	return filter, active
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
