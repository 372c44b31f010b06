// Package export writes extracted tile rows as JSON, CSV or plain text.
//
// Every sink implements extract.Sink and must be closed to finish its
// output. Sinks do not close the underlying writer. Wrap the writer with
// NewCompressWriter to produce zstd or lz4 compressed output:
//
//	cw, err := export.NewCompressWriter(f, "zstd")
//	sink := export.NewJSONSink(cw, nil)
//	stats, err := x.Run(ctx, "", sink)
//	sink.Close()
//	cw.Close()
package export
