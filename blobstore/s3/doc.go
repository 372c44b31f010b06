// Package s3 stores tile containers in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("hips/stars/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	names, err := store.List(ctx, "Norder3/")
//
// Reads are ranged GETs. Tiles below the multipart part size are written
// with one PutObject carrying a CRC32C checksum; larger ones go through the
// upload manager.
package s3
