package mrpt

import (
	"context"

	"github.com/hupe1980/mrpt/codec"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/distance"
	"github.com/hupe1980/mrpt/persistence"
)

// Config is the serializable configuration of an Index.
// Index.Config and NewFromConfig round-trip it.
type Config struct {
	NumTrees       int    `json:"num_trees" yaml:"num_trees"`
	Depth          int    `json:"depth" yaml:"depth"`
	RandomSeed     int64  `json:"random_seed" yaml:"random_seed"`
	ReadOnly       bool   `json:"read_only" yaml:"read_only"`
	IndexPath      string `json:"index_filepath,omitempty" yaml:"index_filepath,omitempty"`
	ParametersPath string `json:"parameters_filepath,omitempty" yaml:"parameters_filepath,omitempty"`
	Metric         string `json:"metric" yaml:"metric"`
	Compression    string `json:"compression,omitempty" yaml:"compression,omitempty"`

	// ParametersCodec names the codec of the parameters artifact
	// (see codec.Names). Empty keeps the configured or default codec.
	ParametersCodec string `json:"parameters_codec,omitempty" yaml:"parameters_codec,omitempty"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		NumTrees:    DefaultNumTrees,
		Depth:       DefaultDepth,
		RandomSeed:  0,
		ReadOnly:    false,
		Metric:      distance.MetricEuclidean.String(),
		Compression: persistence.CompressionNone.String(),

		ParametersCodec: codec.Default.Name(),
	}
}

// Options converts c into the equivalent options.
func (c Config) Options() ([]Option, error) {
	metric := distance.MetricEuclidean
	if c.Metric != "" {
		m, err := distance.ParseMetric(c.Metric)
		if err != nil {
			return nil, invalidParameter("%v", err)
		}
		metric = m
	}
	compression, err := persistence.ParseCompression(c.Compression)
	if err != nil {
		return nil, invalidParameter("%v", err)
	}

	opts := []Option{
		WithNumTrees(c.NumTrees),
		WithDepth(c.Depth),
		WithRandomSeed(c.RandomSeed),
		WithReadOnly(c.ReadOnly),
		WithIndexPath(c.IndexPath),
		WithParametersPath(c.ParametersPath),
		WithMetric(metric),
		WithCompression(compression),
	}
	if c.ParametersCodec != "" {
		pc, ok := codec.ByName(c.ParametersCodec)
		if !ok {
			return nil, invalidParameter("unknown parameters codec %q", c.ParametersCodec)
		}
		opts = append(opts, WithCodec(pc))
	}
	return opts, nil
}

// Validate reports whether c describes a usable index.
func (c Config) Validate() error {
	opts, err := c.Options()
	if err != nil {
		return err
	}
	o := applyOptions(opts)
	return o.validate()
}

// NewFromConfig creates an Index from cfg. Options in opts that configure
// the same setting as cfg are overridden by cfg.
func NewFromConfig(ctx context.Context, store descriptor.Store, cfg Config, opts ...Option) (*Index, error) {
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(ctx, store, append(append([]Option(nil), opts...), cfgOpts...)...)
}

// Config returns the configuration of the index. After a load it reflects
// the parameters read from the artifacts.
func (idx *Index) Config() Config {
	cfg := Config{
		NumTrees:       idx.opts.numTrees,
		Depth:          idx.opts.depth,
		RandomSeed:     idx.opts.seed,
		ReadOnly:       idx.opts.readOnly,
		IndexPath:      idx.opts.indexPath,
		ParametersPath: idx.opts.parametersPath,
		Metric:         idx.opts.metric.String(),
		Compression:    idx.opts.compression.String(),

		ParametersCodec: idx.opts.codec.Name(),
	}
	if s := idx.state.Load(); s != nil {
		cfg.NumTrees = s.numTrees
		cfg.Depth = s.depth
		cfg.RandomSeed = s.seed
		cfg.Metric = s.metric.String()
	}
	return cfg
}
