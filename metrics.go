package ephtile

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting decode and encode metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    chunks    *prometheus.CounterVec
//	    decodeDur prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordChunkDecode(tag string, rows int, d time.Duration, err error) {
//	    p.chunks.WithLabelValues(tag).Inc()
//	    p.decodeDur.Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordChunkDecode is called after each recognized chunk is decoded.
	// rows is the number of rows produced, err is nil if successful.
	RecordChunkDecode(tag string, rows int, duration time.Duration, err error)

	// RecordChunkEncode is called after each table is encoded into a chunk.
	// size is the payload size in bytes.
	RecordChunkEncode(tag string, rows, size int, duration time.Duration, err error)

	// RecordFile is called after a whole container has been decoded.
	// chunks is the number of chunks found, skipped the number that failed.
	RecordFile(chunks, skipped int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordChunkDecode(string, int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordChunkEncode(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFile(int, int, time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ChunksDecoded     atomic.Int64
	ChunkDecodeErrors atomic.Int64
	RowsDecoded       atomic.Int64
	DecodeTotalNanos  atomic.Int64
	ChunksEncoded     atomic.Int64
	ChunkEncodeErrors atomic.Int64
	RowsEncoded       atomic.Int64
	BytesEncoded      atomic.Int64
	FilesDecoded      atomic.Int64
	FileErrors        atomic.Int64
	ChunksSkipped     atomic.Int64
}

// RecordChunkDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkDecode(_ string, rows int, duration time.Duration, err error) {
	b.ChunksDecoded.Add(1)
	b.DecodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ChunkDecodeErrors.Add(1)
		return
	}
	b.RowsDecoded.Add(int64(rows))
}

// RecordChunkEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkEncode(_ string, rows, size int, _ time.Duration, err error) {
	b.ChunksEncoded.Add(1)
	if err != nil {
		b.ChunkEncodeErrors.Add(1)
		return
	}
	b.RowsEncoded.Add(int64(rows))
	b.BytesEncoded.Add(int64(size))
}

// RecordFile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFile(_ int, skipped int, _ time.Duration, err error) {
	b.FilesDecoded.Add(1)
	b.ChunksSkipped.Add(int64(skipped))
	if err != nil {
		b.FileErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ChunksDecoded:     b.ChunksDecoded.Load(),
		ChunkDecodeErrors: b.ChunkDecodeErrors.Load(),
		RowsDecoded:       b.RowsDecoded.Load(),
		DecodeAvgNanos:    b.getAvgDecodeNanos(),
		ChunksEncoded:     b.ChunksEncoded.Load(),
		ChunkEncodeErrors: b.ChunkEncodeErrors.Load(),
		RowsEncoded:       b.RowsEncoded.Load(),
		BytesEncoded:      b.BytesEncoded.Load(),
		FilesDecoded:      b.FilesDecoded.Load(),
		FileErrors:        b.FileErrors.Load(),
		ChunksSkipped:     b.ChunksSkipped.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgDecodeNanos() int64 {
	count := b.ChunksDecoded.Load()
	if count == 0 {
		return 0
	}
	return b.DecodeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ChunksDecoded     int64
	ChunkDecodeErrors int64
	RowsDecoded       int64
	DecodeAvgNanos    int64
	ChunksEncoded     int64
	ChunkEncodeErrors int64
	RowsEncoded       int64
	BytesEncoded      int64
	FilesDecoded      int64
	FileErrors        int64
	ChunksSkipped     int64
}
