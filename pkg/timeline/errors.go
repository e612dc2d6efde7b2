package timeline

import "errors"

var (
	// ErrInvalidCapacity is returned by Resize when the requested capacity
	// is smaller than the number of live points. Not retryable without a
	// parameter change.
	ErrInvalidCapacity = errors.New("timeline: capacity smaller than live size")

	// ErrMalformedBatch signals that a non-empty record batch produced zero
	// buckets, which indicates an upstream invariant violation.
	ErrMalformedBatch = errors.New("timeline: record batch produced no buckets")

	// ErrUnsupportedFormat is returned for an unrecognized export format
	// selector. No partial output is produced.
	ErrUnsupportedFormat = errors.New("timeline: unsupported export format")
)
