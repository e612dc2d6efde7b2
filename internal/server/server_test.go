package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/token-timeline/internal/server"
	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/providers"
	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

func newTestServer(t *testing.T) (*server.Server, *timeline.Aggregator) {
	t.Helper()
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(providers.Info{ID: "openai", DisplayName: "OpenAI"}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agg := timeline.NewAggregator(timeline.Config{
		Enabled:          true,
		BufferCapacity:   32,
		BucketResolution: time.Minute,
	}, registry, logger)

	return server.NewServer(agg, nil, logger), agg
}

func postRecords(t *testing.T, srv *server.Server, records []model.UsageRecord) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(records)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seedRecords(t *testing.T, srv *server.Server) {
	t.Helper()
	now := time.Now().UTC()
	rec := postRecords(t, srv, []model.UsageRecord{
		{Timestamp: now.Add(-10 * time.Minute), Provider: "openai", Model: "gpt-4o", InputTokens: 100, OutputTokens: 40, CostUSD: 0.05},
		{Timestamp: now.Add(-5 * time.Minute), Provider: "anthropic", Model: "claude-3.5-sonnet", InputTokens: 300, OutputTokens: 100, CostUSD: 0.20},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestPostRecords(t *testing.T) {
	srv, agg := newTestServer(t)
	seedRecords(t, srv)

	assert.Equal(t, 2, agg.BufferStats().Size)
}

func TestPostRecords_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRecords_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	now := time.Now().UTC()

	tests := []struct {
		name   string
		record model.UsageRecord
	}{
		{"missing timestamp", model.UsageRecord{Provider: "openai", Model: "gpt-4o"}},
		{"missing provider", model.UsageRecord{Timestamp: now, Model: "gpt-4o"}},
		{"missing model", model.UsageRecord{Timestamp: now, Provider: "openai"}},
		{"negative tokens", model.UsageRecord{Timestamp: now, Provider: "openai", Model: "gpt-4o", InputTokens: -1}},
		{"negative cost", model.UsageRecord{Timestamp: now, Provider: "openai", Model: "gpt-4o", CostUSD: -0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRecords(t, srv, []model.UsageRecord{tt.record})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetSeries(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series?window=1h", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []model.TimeBucketPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 2)
	assert.Equal(t, int64(140), points[0].TotalTokens)
	assert.Equal(t, int64(400), points[1].TotalTokens)
}

func TestGetSeries_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetSeries_Filtered(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series?window=1h&providers=anthropic", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []model.TimeBucketPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, int64(400), points[0].TotalTokens)
}

func TestGetAggregatedSeries(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/aggregated?window=1h", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []model.AggregatedPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 2)
	assert.Contains(t, points[0].Providers, "openai")
	assert.Equal(t, int64(140), points[0].Providers["openai"].Tokens)
}

func TestGetAnalytics(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics?window=1h", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var analytics model.TimelineAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analytics))
	require.NotNil(t, analytics.PeakUsageTime)
	assert.NotEmpty(t, analytics.Trend.Direction)
}

func TestGetMemory(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.MemoryStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 32, stats.Capacity)
	assert.Equal(t, 2, stats.Used)
	assert.Positive(t, stats.EstimatedBytes)
}

func TestGetExport_CSV(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=csv&window=1h", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timeline.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "timestamp,duration_ms,"))
}

func TestGetExport_JSON(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRecords(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=json&window=1h&breakdown=true", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc struct {
		Points []json.RawMessage `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Points, 2)
}

func TestGetExport_UnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=xlsx", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfig_GetAndPatch(t *testing.T) {
	srv, agg := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var before map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Equal(t, float64(32), before["buffer_capacity"])

	patch := `{"buffer_capacity": 64, "sweep_interval": "30s"}`
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/config", strings.NewReader(patch))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 64, agg.Config().BufferCapacity)
	assert.Equal(t, 30*time.Second, agg.Config().SweepInterval)

	var after map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, float64(64), after["buffer_capacity"])
	assert.Equal(t, "30s", after["sweep_interval"])
}

func TestConfig_PatchInvalidDuration(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/config", strings.NewReader(`{"sweep_interval": "soon"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfig_PatchCapacityBelowSize(t *testing.T) {
	srv, agg := newTestServer(t)
	seedRecords(t, srv)
	require.Equal(t, 2, agg.BufferStats().Size)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/config", strings.NewReader(`{"buffer_capacity": 1}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 32, agg.Config().BufferCapacity)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/series", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
