package ephtile

import (
	"runtime"

	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/internal/hash"
)

// ChecksumFunc computes the trailing checksum of a chunk payload.
type ChecksumFunc func(payload []byte) uint32

type options struct {
	logger         *Logger
	metrics        MetricsCollector
	profiles       []Profile
	verifyChecksum bool
	checksum       ChecksumFunc
	concurrency    int
	level          int
	shuffle        bool
}

func defaultOptions() options {
	return options{
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		profiles:    DefaultProfiles(),
		checksum:    hash.CRC32C,
		concurrency: runtime.GOMAXPROCS(0),
		level:       block.DefaultLevel,
		shuffle:     true,
	}
}

func applyOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Option configures a Decoder or Encoder.
//
// Options that only make sense for one side are ignored by the other.
type Option func(*options)

// WithLogger configures structured logging. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures metrics collection. If nil is passed,
// NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithProfiles replaces the registered record profiles. Chunk tags not
// covered by any profile are treated as opaque.
func WithProfiles(profiles ...Profile) Option {
	return func(o *options) {
		o.profiles = profiles
	}
}

// WithVerifyChecksum makes the decoder compare each chunk's trailing
// checksum against the configured ChecksumFunc.
//
// Off by default: the checksum algorithm used by existing producers is not
// known, and files in the wild must not be rejected on that basis.
func WithVerifyChecksum(verify bool) Option {
	return func(o *options) {
		o.verifyChecksum = verify
	}
}

// WithChecksumFunc sets the checksum written by the encoder and used for
// verification. Defaults to CRC32-Castagnoli over the payload.
func WithChecksumFunc(fn ChecksumFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.checksum = fn
		}
	}
}

// WithConcurrency bounds how many chunks of one file are decoded in parallel.
// Values below 1 mean sequential decoding.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithCompressionLevel sets the zlib level used by the encoder (-1..9).
// The default level yields the 78 9C stream header existing readers expect.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithShuffle controls whether the encoder byte-transposes row blocks before
// compressing them (flag bit 0). Enabled by default.
func WithShuffle(shuffle bool) Option {
	return func(o *options) {
		o.shuffle = shuffle
	}
}
