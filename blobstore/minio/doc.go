// Package minio stores index artifacts in MinIO or any other S3-compatible
// object store, using the MinIO Go client.
//
// # Basic Usage
//
//	store, err := minioblob.Dial(minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "indexes",
//	    Prefix:    "prod/",
//	})
//
// Or wrap an existing client:
//
//	store := minioblob.NewStore(client, "indexes", "prod/")
package minio
