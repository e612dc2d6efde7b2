package timeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat validates a format selector.
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("format %q: %w", s, ErrUnsupportedFormat)
	}
}

// Export renders a point series as CSV or JSON. Image rendering is
// delegated to external consumers of the series. An unrecognized format
// fails immediately with no partial output.
func Export(format ExportFormat, points []model.TimeBucketPoint, includeBreakdown bool, exportedAt time.Time) ([]byte, error) {
	switch format {
	case FormatCSV:
		return exportCSV(points, includeBreakdown)
	case FormatJSON:
		return exportJSON(points, includeBreakdown, exportedAt)
	default:
		return nil, fmt.Errorf("format %q: %w", format, ErrUnsupportedFormat)
	}
}

var csvHeader = []string{
	"timestamp",
	"duration_ms",
	"input_tokens",
	"output_tokens",
	"cache_creation_tokens",
	"cache_read_tokens",
	"total_tokens",
	"cost_usd",
	"entry_count",
}

func exportCSV(points []model.TimeBucketPoint, includeBreakdown bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := csvHeader
	if includeBreakdown {
		header = append(append([]string{}, csvHeader...), "model_breakdown", "provider_breakdown")
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i := range points {
		p := &points[i]
		row := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatInt(p.Duration.Milliseconds(), 10),
			strconv.FormatInt(p.InputTokens, 10),
			strconv.FormatInt(p.OutputTokens, 10),
			strconv.FormatInt(p.CacheCreationTokens, 10),
			strconv.FormatInt(p.CacheReadTokens, 10),
			strconv.FormatInt(p.TotalTokens, 10),
			strconv.FormatFloat(p.CostUSD, 'f', 6, 64),
			strconv.Itoa(p.EntryCount),
		}
		if includeBreakdown {
			models, err := json.Marshal(p.ModelBreakdown)
			if err != nil {
				return nil, fmt.Errorf("marshal model breakdown: %w", err)
			}
			providers, err := json.Marshal(p.ProviderBreakdown)
			if err != nil {
				return nil, fmt.Errorf("marshal provider breakdown: %w", err)
			}
			row = append(row, string(models), string(providers))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// exportPoint is the JSON row shape. Durations are emitted in
// milliseconds; breakdowns appear only when requested.
type exportPoint struct {
	Timestamp           time.Time                     `json:"timestamp"`
	DurationMS          int64                         `json:"duration_ms"`
	InputTokens         int64                         `json:"input_tokens"`
	OutputTokens        int64                         `json:"output_tokens"`
	CacheCreationTokens int64                         `json:"cache_creation_tokens"`
	CacheReadTokens     int64                         `json:"cache_read_tokens"`
	TotalTokens         int64                         `json:"total_tokens"`
	CostUSD             float64                       `json:"cost_usd"`
	EntryCount          int                           `json:"entry_count"`
	ModelBreakdown      map[string]model.ModelStat    `json:"model_breakdown,omitempty"`
	ProviderBreakdown   map[string]model.ProviderStat `json:"provider_breakdown,omitempty"`
}

type exportDocument struct {
	ExportedAt time.Time     `json:"exported_at"`
	Points     []exportPoint `json:"points"`
}

func exportJSON(points []model.TimeBucketPoint, includeBreakdown bool, exportedAt time.Time) ([]byte, error) {
	doc := exportDocument{
		ExportedAt: exportedAt.UTC(),
		Points:     make([]exportPoint, 0, len(points)),
	}
	for i := range points {
		p := &points[i]
		ep := exportPoint{
			Timestamp:           p.Timestamp.UTC(),
			DurationMS:          p.Duration.Milliseconds(),
			InputTokens:         p.InputTokens,
			OutputTokens:        p.OutputTokens,
			CacheCreationTokens: p.CacheCreationTokens,
			CacheReadTokens:     p.CacheReadTokens,
			TotalTokens:         p.TotalTokens,
			CostUSD:             p.CostUSD,
			EntryCount:          p.EntryCount,
		}
		if includeBreakdown {
			ep.ModelBreakdown = p.ModelBreakdown
			ep.ProviderBreakdown = p.ProviderBreakdown
		}
		doc.Points = append(doc.Points, ep)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}
