package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/blobstore"
	"github.com/hupe1980/ephtile/internal/resource"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

// TileRows is one decoded table together with where it came from.
type TileRows struct {
	// Name is the blob name of the container.
	Name       string
	Tag        string
	SpatialKey uint64
	Order      int
	Position   uint64
	Columns    []schema.Column
	Rows       []row.Record
}

// Sink consumes decoded tables. Run calls WriteTile from a single goroutine.
type Sink interface {
	WriteTile(ctx context.Context, t *TileRows) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, t *TileRows) error

// WriteTile calls f.
func (f SinkFunc) WriteTile(ctx context.Context, t *TileRows) error { return f(ctx, t) }

// FileError records a file that could not be processed.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Stats summarizes one Run.
type Stats struct {
	Files         int
	FilesFailed   int
	Chunks        int
	ChunksSkipped int
	ChunksOpaque  int
	Rows          int
	FieldErrors   int
	Duration      time.Duration

	// Tiles holds the distinct spatial keys that produced a table.
	Tiles *roaring64.Bitmap

	// Failures lists the failed files in name order.
	Failures []FileError
}

// Extractor reads every container under a prefix of a BlobStore.
type Extractor struct {
	store   blobstore.BlobStore
	decoder *ephtile.Decoder
	rc      *resource.Controller
	opts    options
}

// New creates an Extractor reading from store.
func New(store blobstore.BlobStore, optFns ...Option) *Extractor {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	decOpts := []ephtile.Option{ephtile.WithLogger(o.logger)}
	if len(o.profiles) > 0 {
		decOpts = append(decOpts, ephtile.WithProfiles(o.profiles...))
	}
	decOpts = append(decOpts, o.decoderOpts...)

	return &Extractor{
		store:   store,
		decoder: ephtile.NewDecoder(decOpts...),
		rc:      resource.NewController(o.limits),
		opts:    o,
	}
}

// fileResult is the decode outcome of one file, published through done.
type fileResult struct {
	done chan struct{}
	res  *ephtile.Result
	err  error
}

// Run lists the containers under prefix, decodes them and passes every table
// to sink in name order. Per-file failures are recorded in Stats; the
// returned error is non-nil only for a listing failure, a sink error or a
// cancelled context.
func (e *Extractor) Run(ctx context.Context, prefix string, sink Sink) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Tiles: roaring64.New()}

	names, err := e.list(ctx, prefix)
	if err != nil {
		return stats, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*fileResult, len(names))
	for i := range results {
		results[i] = &fileResult{done: make(chan struct{})}
	}

	// window bounds the decoded files waiting for the sink. Slots are taken
	// in name order and returned in name order, so the oldest file is always
	// in flight.
	window := semaphore.NewWeighted(int64(2 * e.opts.concurrency))

	launched := make(chan struct{})
	go func() {
		defer close(launched)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.concurrency)
		for i, name := range names {
			if err := window.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				r := results[i]
				r.res, r.err = e.decodeFile(gctx, name)
				close(r.done)
				return nil
			})
		}
		_ = g.Wait()
	}()

	var runErr error
	for i, name := range names {
		r := results[i]
		select {
		case <-r.done:
		case <-ctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}

		if err := e.emit(ctx, name, r, sink, stats); err != nil {
			runErr = err
			break
		}
		r.res = nil
		window.Release(1)
	}

	cancel()
	<-launched

	stats.Duration = time.Since(start)
	e.opts.logger.LogBatch(ctx, stats.Files, stats.FilesFailed, stats.Rows)
	return stats, runErr
}

func (e *Extractor) list(ctx context.Context, prefix string) ([]string, error) {
	all, err := e.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("extract: list %q: %w", prefix, err)
	}

	names := all[:0]
	for _, n := range all {
		if strings.HasSuffix(n, e.opts.suffix) {
			names = append(names, n)
		}
	}
	if e.opts.maxFiles > 0 && len(names) > e.opts.maxFiles {
		names = names[:e.opts.maxFiles]
	}
	return names, nil
}

// decodeFile reads and decodes one container under the memory and IO budget.
func (e *Extractor) decodeFile(ctx context.Context, name string) (*ephtile.Result, error) {
	if e.opts.perFileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.perFileTimeout)
		defer cancel()
	}

	blob, err := e.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	size := blob.Size()
	if err := e.rc.AcquireMemory(ctx, size); err != nil {
		return nil, err
	}
	defer e.rc.ReleaseMemory(size)

	if err := e.rc.AcquireIO(ctx, size); err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, err
	}

	dec := e.decoder.With(ephtile.WithLogger(e.opts.logger.WithFile(name)))
	res, err := dec.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	// Opaque payloads may alias a mapping that closes with the blob.
	for i := range res.Opaque {
		res.Opaque[i].Payload = nil
	}
	return res, nil
}

func (e *Extractor) emit(ctx context.Context, name string, r *fileResult, sink Sink, stats *Stats) error {
	stats.Files++
	if r.err != nil {
		// The run itself was cancelled; the file is not at fault.
		if errors.Is(r.err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		stats.FilesFailed++
		stats.Failures = append(stats.Failures, FileError{Name: name, Err: r.err})
		e.opts.logger.LogFile(ctx, name, 0, 0, r.err)
		return nil
	}

	res := r.res
	stats.Chunks += len(res.Tables) + len(res.Opaque) + len(res.Skipped)
	stats.ChunksSkipped += len(res.Skipped)
	stats.ChunksOpaque += len(res.Opaque)
	stats.FieldErrors += res.FieldErrors()
	e.opts.logger.LogFile(ctx, name, len(res.Tables), len(res.Skipped), nil)

	for _, t := range res.Tables {
		stats.Tiles.Add(t.SpatialKey)
		stats.Rows += len(t.Rows)

		tr := &TileRows{
			Name:       name,
			Tag:        t.Tag,
			SpatialKey: t.SpatialKey,
			Order:      t.Order(),
			Position:   t.Position(),
			Columns:    t.Columns,
			Rows:       t.Rows,
		}
		if err := sink.WriteTile(ctx, tr); err != nil {
			return fmt.Errorf("extract: sink %s: %w", name, err)
		}
	}
	return nil
}
