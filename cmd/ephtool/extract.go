package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/blobstore"
	"github.com/hupe1980/ephtile/codec"
	"github.com/hupe1980/ephtile/export"
	"github.com/hupe1980/ephtile/export/arrowx"
	"github.com/hupe1980/ephtile/extract"
)

type closingSink interface {
	extract.Sink
	io.Closer
}

func cmdExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("extract", stderr)
	src := fs.String("src", "", "local directory, s3://bucket/prefix or minio://host:port/bucket/prefix")
	prefix := fs.String("prefix", "", "blob name prefix below the source, e.g. Norder3/")
	kind := fs.String("kind", "all", "record kind: star, dso or all")
	format := fs.String("format", "json", "output format: json, csv, text or arrow")
	compress := fs.String("compress", "none", "output compression: none, zstd or lz4")
	out := fs.String("o", "-", "output file, - for stdout")
	jsonCodec := fs.String("codec", "go-json", "JSON codec: go-json or json")
	limit := fs.Int("limit", 0, "text format: rows listed per tile, 0 for all")
	maxFiles := fs.Int("max-files", 0, "stop after N files, 0 for all")
	concurrency := fs.Int("concurrency", 4, "files decoded at once")
	timeout := fs.Duration("timeout", time.Minute, "per-file timeout, 0 to disable")
	memLimit := fs.Int64("mem", 0, "bytes of raw tile data held at once, 0 for unlimited")
	ioLimit := fs.Int64("io-rate", 0, "read limit in bytes per second, 0 for unlimited")
	verify := fs.Bool("verify", false, "skip chunks whose CRC32C does not match")
	region := fs.String("region", "", "S3 or MinIO region")
	endpoint := fs.String("endpoint", "", "S3-compatible endpoint URL")
	insecure := fs.Bool("insecure", false, "MinIO: use plain HTTP")
	cacheBytes := fs.Int64("cache", 0, "block cache in bytes for reads from the source, 0 to disable")
	newLogger := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		fmt.Fprintln(stderr, "ephtool extract: -src is required")
		return errUsage
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	var profiles []ephtile.Profile
	if *kind != "all" {
		p, ok := ephtile.ProfileByName(*kind)
		if !ok {
			return fmt.Errorf("unknown kind %q", *kind)
		}
		profiles = append(profiles, p)
	}

	store, base, err := openSource(ctx, *src, sourceConfig{region: *region, endpoint: *endpoint, insecure: *insecure})
	if err != nil {
		return err
	}
	if *cacheBytes > 0 {
		cs := blobstore.NewCachingStoreWithBudget(store, *cacheBytes, 0, *cacheBytes)
		defer func() {
			hits, misses := cs.Stats()
			fmt.Fprintf(stderr, "cache: %d hits, %d misses\n", hits, misses)
			_ = cs.Close()
		}()
		store = cs
	}

	listPrefix := *prefix
	if base != "" {
		listPrefix = strings.TrimSuffix(base, "/") + "/" + *prefix
	}

	var w io.Writer = stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	cw, err := export.NewCompressWriter(w, *compress)
	if err != nil {
		return err
	}

	sink, err := newSink(*format, *jsonCodec, *limit, cw)
	if err != nil {
		return err
	}

	x := extract.New(store,
		extract.WithLogger(logger),
		extract.WithProfiles(profiles...),
		extract.WithMaxFiles(*maxFiles),
		extract.WithConcurrency(*concurrency),
		extract.WithPerFileTimeout(*timeout),
		extract.WithMemoryLimit(*memLimit),
		extract.WithIOLimit(*ioLimit),
		extract.WithDecoderOptions(ephtile.WithVerifyChecksum(*verify)),
	)

	stats, runErr := x.Run(ctx, listPrefix, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := cw.Close(); err != nil && runErr == nil {
		runErr = err
	}

	fmt.Fprintf(stderr, "files=%d failed=%d tiles=%d chunks=%d skipped=%d opaque=%d rows=%d field_errors=%d in %s\n",
		stats.Files, stats.FilesFailed, stats.Tiles.GetCardinality(), stats.Chunks,
		stats.ChunksSkipped, stats.ChunksOpaque, stats.Rows, stats.FieldErrors, stats.Duration.Round(time.Millisecond))
	for _, fe := range stats.Failures {
		fmt.Fprintf(stderr, "  failed: %v\n", fe)
	}
	return runErr
}

func newSink(format, codecName string, limit int, w io.Writer) (closingSink, error) {
	switch format {
	case "json":
		c, ok := codec.ByName(codecName)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q", codecName)
		}
		return export.NewJSONSink(w, c), nil
	case "csv":
		return export.NewCSVSink(w), nil
	case "text":
		return export.NewTextSink(w, limit), nil
	case "arrow":
		return arrowx.NewSink(w, nil), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
