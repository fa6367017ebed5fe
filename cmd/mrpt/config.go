package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mrpt"
	"github.com/hupe1980/mrpt/blobstore"
	miniostore "github.com/hupe1980/mrpt/blobstore/minio"
	s3store "github.com/hupe1980/mrpt/blobstore/s3"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/descriptor/cache"
	ddbstore "github.com/hupe1980/mrpt/descriptor/dynamodb"
	"github.com/hupe1980/mrpt/descriptor/sqlite"
	"github.com/hupe1980/mrpt/resource"
)

// fileConfig is the YAML configuration file of the CLI.
type fileConfig struct {
	Index       mrpt.Config      `yaml:"index"`
	Descriptors descriptorConfig `yaml:"descriptors"`
	BlobStore   blobConfig       `yaml:"blobstore"`
	Resources   resourceConfig   `yaml:"resources"`
	LogLevel    string           `yaml:"log_level"`
}

type descriptorConfig struct {
	// Type is "sqlite" or "dynamodb".
	Type      string `yaml:"type"`
	Path      string `yaml:"path,omitempty"`
	Table     string `yaml:"table,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	// CacheSize enables an LRU cache of that many vectors when positive.
	CacheSize int `yaml:"cache_size,omitempty"`
}

type blobConfig struct {
	// Type is "local", "s3" or "minio".
	Type     string            `yaml:"type"`
	Root     string            `yaml:"root,omitempty"`
	Bucket   string            `yaml:"bucket,omitempty"`
	Prefix   string            `yaml:"prefix,omitempty"`
	Region   string            `yaml:"region,omitempty"`
	Endpoint string            `yaml:"endpoint,omitempty"`
	MinIO    miniostore.Config `yaml:"minio,omitempty"`
}

type resourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes,omitempty"`
	MaxBuildWorkers    int64 `yaml:"max_build_workers,omitempty"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec,omitempty"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Index:       mrpt.DefaultConfig(),
		Descriptors: descriptorConfig{Type: "sqlite", Path: "descriptors.sqlite"},
		BlobStore:   blobConfig{Type: "local"},
		LogLevel:    "info",
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Index.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c fileConfig) logger() (*mrpt.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return mrpt.NewTextLogger(level), nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// openDescriptors opens the configured descriptor store. The returned close
// function releases it.
func openDescriptors(ctx context.Context, c descriptorConfig) (descriptor.Store, func() error, error) {
	var (
		store   descriptor.Store
		closeFn = func() error { return nil }
	)
	switch c.Type {
	case "", "sqlite":
		s, err := sqlite.Open(c.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = s, s.Close
	case "dynamodb":
		if c.Table == "" {
			return nil, nil, errors.New("descriptors.table is required for dynamodb")
		}
		awsCfg, err := loadAWSConfig(ctx, c.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if c.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.Endpoint)
			}
		})
		store = ddbstore.NewStore(client, c.Table, c.Namespace)
	default:
		return nil, nil, fmt.Errorf("unknown descriptor store type %q", c.Type)
	}

	if c.CacheSize > 0 {
		cached, err := cache.New(store, c.CacheSize)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		store = cached
	}
	return store, closeFn, nil
}

func openBlobStore(ctx context.Context, c blobConfig) (blobstore.Store, error) {
	switch c.Type {
	case "", "local":
		return blobstore.NewLocalStore(c.Root), nil
	case "s3":
		if c.Bucket == "" {
			return nil, errors.New("blobstore.bucket is required for s3")
		}
		awsCfg, err := loadAWSConfig(ctx, c.Region)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if c.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.Endpoint)
				o.UsePathStyle = true
			}
		})
		return s3store.NewStore(client, c.Bucket, c.Prefix), nil
	case "minio":
		s, err := miniostore.Dial(c.MinIO)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob store type %q", c.Type)
	}
}

func (c resourceConfig) controller() *resource.Controller {
	if c == (resourceConfig{}) {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.MemoryLimitBytes,
		MaxBuildWorkers:    c.MaxBuildWorkers,
		IOLimitBytesPerSec: c.IOLimitBytesPerSec,
	})
}

// openIndex opens the descriptor store and the index described by cfg,
// loading existing artifacts.
func openIndex(ctx context.Context, cfg fileConfig) (*mrpt.Index, func() error, error) {
	logger, err := cfg.logger()
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := openDescriptors(ctx, cfg.Descriptors)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := openBlobStore(ctx, cfg.BlobStore)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	idx, err := mrpt.NewFromConfig(ctx, store, cfg.Index,
		mrpt.WithBlobStore(blobs),
		mrpt.WithLogger(logger),
		mrpt.WithResourceController(cfg.Resources.controller()),
	)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return idx, closeFn, nil
}
