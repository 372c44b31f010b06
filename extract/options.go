package extract

import (
	"runtime"
	"time"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/internal/resource"
)

// Option configures an Extractor.
type Option func(*options)

type options struct {
	logger         *ephtile.Logger
	decoderOpts    []ephtile.Option
	profiles       []ephtile.Profile
	suffix         string
	maxFiles       int
	concurrency    int
	perFileTimeout time.Duration
	limits         resource.Config
}

func defaultOptions() options {
	return options{
		logger:      ephtile.NoopLogger(),
		suffix:      ".eph",
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// WithLogger sets the logger for per-file and batch events.
func WithLogger(l *ephtile.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProfiles restricts extraction to chunks matching one of profiles.
// Chunks of other kinds are counted as opaque.
func WithProfiles(profiles ...ephtile.Profile) Option {
	return func(o *options) {
		o.profiles = profiles
	}
}

// WithDecoderOptions passes options through to the per-file decoder.
func WithDecoderOptions(opts ...ephtile.Option) Option {
	return func(o *options) {
		o.decoderOpts = append(o.decoderOpts, opts...)
	}
}

// WithSuffix sets the blob name suffix of tile containers. Default ".eph".
func WithSuffix(suffix string) Option {
	return func(o *options) {
		o.suffix = suffix
	}
}

// WithMaxFiles caps the number of files processed. Zero means no cap.
func WithMaxFiles(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFiles = n
		}
	}
}

// WithConcurrency sets how many files are read and decoded at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithPerFileTimeout bounds the time spent opening, reading and decoding
// a single file. Zero means no timeout.
func WithPerFileTimeout(d time.Duration) Option {
	return func(o *options) {
		o.perFileTimeout = d
	}
}

// WithMemoryLimit caps the bytes of raw container data held at once.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.limits.MemoryLimitBytes = bytes
	}
}

// WithIOLimit caps the read throughput from the store in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.limits.IOLimitBytesPerSec = bytesPerSec
	}
}
