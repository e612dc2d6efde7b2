// Package recordlog persists raw usage records so that the in-memory
// timeline can be rebuilt on restart. The timeline buffer itself is never
// persisted; this is the source-record side of that boundary.
package recordlog

import (
	"context"
	"time"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// Log is an append-only store of raw usage records.
type Log interface {
	// Append persists a batch of usage records.
	Append(ctx context.Context, records []model.UsageRecord) error

	// Replay returns all records with timestamps at or after since, in
	// ascending timestamp order.
	Replay(ctx context.Context, since time.Time) ([]model.UsageRecord, error)

	// Prune deletes records older than before and returns the number
	// removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases resources.
	Close() error
}
