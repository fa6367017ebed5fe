// Package s3 stores index artifacts in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "indexes/prod")
//
//	idx, err := mrpt.New(descriptors,
//	    mrpt.WithBlobStore(store),
//	    mrpt.WithIndexPath("structure.bin"),
//	    mrpt.WithParametersPath("params.json"),
//	)
//
// Small artifacts are written with a single PutObject carrying a CRC32C
// checksum; larger ones go through the multipart uploader. Reads use ranged
// GetObject requests.
package s3
