package mrpt

import (
	"log/slog"

	"github.com/hupe1980/mrpt/blobstore"
	"github.com/hupe1980/mrpt/codec"
	"github.com/hupe1980/mrpt/distance"
	"github.com/hupe1980/mrpt/persistence"
	"github.com/hupe1980/mrpt/resource"
)

const (
	// DefaultNumTrees is the number of trees built when none is configured.
	DefaultNumTrees = 10

	// DefaultDepth is the tree depth used when none is configured.
	DefaultDepth = 1
)

type options struct {
	numTrees       int
	depth          int
	seed           int64
	readOnly       bool
	metric         distance.Metric
	compression    persistence.Compression
	indexPath      string
	parametersPath string
	blobs          blobstore.Store
	codec          codec.Codec
	logger         *Logger
	metrics        MetricsCollector
	controller     *resource.Controller
	buildWorkers   int
}

// Option configures an Index.
type Option func(*options)

// WithNumTrees sets the number of trees in the ensemble.
func WithNumTrees(n int) Option {
	return func(o *options) {
		o.numTrees = n
	}
}

// WithDepth sets the maximum tree depth. Leaves hold roughly n/2^depth
// descriptors.
func WithDepth(depth int) Option {
	return func(o *options) {
		o.depth = depth
	}
}

// WithRandomSeed sets the seed all projection directions derive from.
// Builds with equal seeds over equal populations are bit-identical.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithReadOnly makes BuildIndex and BuildFromStore fail with ErrReadOnlyIndex.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// WithMetric selects the distance used to rank candidates.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithCompression selects the structural artifact compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithIndexPath sets the name of the structural artifact.
func WithIndexPath(path string) Option {
	return func(o *options) {
		o.indexPath = path
	}
}

// WithParametersPath sets the name of the parameters artifact.
func WithParametersPath(path string) Option {
	return func(o *options) {
		o.parametersPath = path
	}
}

// WithBlobStore sets where artifacts are read and written.
//
// If nil is passed, the local file system is used.
func WithBlobStore(s blobstore.Store) Option {
	return func(o *options) {
		if s == nil {
			s = blobstore.NewLocalStore("")
		}
		o.blobs = s
	}
}

// WithCodec configures the codec used for the parameters artifact.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector sets a custom metrics collector for monitoring.
//
// Example:
//
//	metrics := &mrpt.BasicMetricsCollector{}
//	idx, _ := mrpt.New(ctx, store, mrpt.WithMetricsCollector(metrics))
//	// ... use index ...
//	stats := metrics.GetStats()
//	fmt.Printf("Avg query latency: %dns\n", stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithLogger sets a custom structured logger.
//
// Example:
//
//	logger := mrpt.NewJSONLogger(slog.LevelInfo)
//	idx, _ := mrpt.New(ctx, store, mrpt.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level.
// This is a convenience wrapper around WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares memory, build worker and I/O budgets with
// other indexes using the same controller.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithBuildWorkers bounds the number of trees built concurrently.
// Zero means GOMAXPROCS.
func WithBuildWorkers(n int) Option {
	return func(o *options) {
		o.buildWorkers = n
	}
}

func applyOptions(opts []Option) options {
	o := options{
		numTrees: DefaultNumTrees,
		depth:    DefaultDepth,
		metric:   distance.MetricEuclidean,
		blobs:    blobstore.NewLocalStore(""),
		codec:    codec.Default,
		logger:   NoopLogger(),
		metrics:  NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) validate() error {
	if o.numTrees < 1 {
		return invalidParameter("num_trees must be at least 1, got %d", o.numTrees)
	}
	if o.depth < 1 {
		return invalidParameter("depth must be at least 1, got %d", o.depth)
	}
	if o.buildWorkers < 0 {
		return invalidParameter("build workers must not be negative, got %d", o.buildWorkers)
	}
	if _, err := distance.Provider(o.metric); err != nil {
		return invalidParameter("%v", err)
	}
	if (o.indexPath == "") != (o.parametersPath == "") {
		return invalidParameter("index path and parameters path must be set together")
	}
	if o.compression > persistence.CompressionLZ4 {
		return invalidParameter("unknown compression %d", o.compression)
	}
	return nil
}
