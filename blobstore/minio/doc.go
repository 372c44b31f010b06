// Package minio stores tile containers in MinIO or any other S3-compatible
// server (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	store, err := minio.Dial(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "tiles", "hips/")
//
// Callers holding a configured *minio.Client use NewStore instead.
package minio
