package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/ephtile/blobstore"
	"github.com/hupe1980/ephtile/blobstore/minio"
	"github.com/hupe1980/ephtile/blobstore/s3"
)

type sourceConfig struct {
	region   string
	endpoint string
	insecure bool
}

// openSource resolves a source argument into a store and a listing prefix.
//
//	/data/hips                      local directory, prefix ""
//	s3://bucket/hips/Norder3        S3 bucket, prefix "hips/Norder3"
//	minio://host:9000/bucket/hips   MinIO bucket, prefix "hips"
func openSource(ctx context.Context, src string, cfg sourceConfig) (blobstore.BlobStore, string, error) {
	switch {
	case strings.HasPrefix(src, "s3://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(src, "s3://"))
		if bucket == "" {
			return nil, "", fmt.Errorf("source %q: missing bucket", src)
		}
		var opts []s3.Option
		if cfg.region != "" {
			opts = append(opts, s3.WithRegion(cfg.region))
		}
		if cfg.endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.endpoint))
		}
		store, err := s3.New(ctx, bucket, opts...)
		if err != nil {
			return nil, "", err
		}
		return store, prefix, nil

	case strings.HasPrefix(src, "minio://"):
		rest := strings.TrimPrefix(src, "minio://")
		host, path, _ := strings.Cut(rest, "/")
		bucket, prefix := splitBucket(path)
		if host == "" || bucket == "" {
			return nil, "", fmt.Errorf("source %q: want minio://host:port/bucket[/prefix]", src)
		}
		store, err := minio.Dial(minio.Config{
			Endpoint:  host,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Secure:    !cfg.insecure,
			Region:    cfg.region,
		}, bucket, "")
		if err != nil {
			return nil, "", err
		}
		return store, prefix, nil

	default:
		info, err := os.Stat(src)
		if err != nil {
			return nil, "", err
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("source %q is not a directory", src)
		}
		return blobstore.NewLocalStore(src), "", nil
	}
}

func splitBucket(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.Trim(path, "/"), "/")
	return bucket, prefix
}
