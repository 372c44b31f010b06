// Package blobstore provides storage for tile containers.
//
// Tile directories follow the Norder{o}/Dir{d}/Npix{p}.eph layout. A store
// maps those slash-separated names to bytes, locally or remotely.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, mmap reads, atomic writes
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs that can expose their content without copying implement Mappable;
// ReadAll uses it when available.
package blobstore
