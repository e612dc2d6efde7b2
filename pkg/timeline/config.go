package timeline

import "time"

// Defaults applied by DefaultConfig and by New for zero-valued fields.
const (
	DefaultBufferCapacity      = 2016 // one week of 5-minute buckets
	DefaultBucketResolution    = 5 * time.Minute
	DefaultMaxRetention        = 7 * 24 * time.Hour
	DefaultSweepInterval       = 10 * time.Minute
	DefaultMaxDownsamplePoints = 200
	DefaultBucketPadding       = time.Second
)

// Config controls the aggregator and its ring buffer.
type Config struct {
	// BufferCapacity bounds the number of resident buckets.
	BufferCapacity int

	// BucketResolution is the width of a time bucket used when folding raw
	// records. Smaller values mean more buckets and a finer signal.
	BucketResolution time.Duration

	// MaxRetention is the age past which points are evicted by the sweeper
	// regardless of capacity.
	MaxRetention time.Duration

	// SweepInterval is the cadence of the retention sweep.
	SweepInterval time.Duration

	// MaxDownsamplePoints caps windowed queries that request no explicit
	// limit.
	MaxDownsamplePoints int

	// BucketPadding widens each bucket's duration so the final bucket of a
	// burst never has zero width.
	BucketPadding time.Duration

	// PredictionEnabled controls whether analytics computes a forward
	// extrapolation.
	PredictionEnabled bool

	// Enabled gates the whole engine. When false, Process is a no-op and
	// every query returns a neutral result.
	Enabled bool
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		BufferCapacity:      DefaultBufferCapacity,
		BucketResolution:    DefaultBucketResolution,
		MaxRetention:        DefaultMaxRetention,
		SweepInterval:       DefaultSweepInterval,
		MaxDownsamplePoints: DefaultMaxDownsamplePoints,
		BucketPadding:       DefaultBucketPadding,
		PredictionEnabled:   true,
		Enabled:             true,
	}
}

// normalize fills zero or negative fields with defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = def.BufferCapacity
	}
	if c.BucketResolution <= 0 {
		c.BucketResolution = def.BucketResolution
	}
	if c.MaxRetention <= 0 {
		c.MaxRetention = def.MaxRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.MaxDownsamplePoints <= 0 {
		c.MaxDownsamplePoints = def.MaxDownsamplePoints
	}
	if c.BucketPadding <= 0 {
		c.BucketPadding = def.BucketPadding
	}
	return c
}

// ConfigUpdate is a partial configuration change. Nil fields keep the
// current value.
type ConfigUpdate struct {
	BufferCapacity      *int
	BucketResolution    *time.Duration
	MaxRetention        *time.Duration
	SweepInterval       *time.Duration
	MaxDownsamplePoints *int
	BucketPadding       *time.Duration
	PredictionEnabled   *bool
	Enabled             *bool
}

// apply merges the update into cfg and returns the result.
func (u ConfigUpdate) apply(cfg Config) Config {
	if u.BufferCapacity != nil {
		cfg.BufferCapacity = *u.BufferCapacity
	}
	if u.BucketResolution != nil {
		cfg.BucketResolution = *u.BucketResolution
	}
	if u.MaxRetention != nil {
		cfg.MaxRetention = *u.MaxRetention
	}
	if u.SweepInterval != nil {
		cfg.SweepInterval = *u.SweepInterval
	}
	if u.MaxDownsamplePoints != nil {
		cfg.MaxDownsamplePoints = *u.MaxDownsamplePoints
	}
	if u.BucketPadding != nil {
		cfg.BucketPadding = *u.BucketPadding
	}
	if u.PredictionEnabled != nil {
		cfg.PredictionEnabled = *u.PredictionEnabled
	}
	if u.Enabled != nil {
		cfg.Enabled = *u.Enabled
	}
	return cfg
}
