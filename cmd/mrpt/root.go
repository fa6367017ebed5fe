package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mrpt"
	"github.com/hupe1980/mrpt/descriptor"
)

// importBatchSize is the number of descriptors written per store call.
const importBatchSize = 1000

type rootFlags struct {
	configPath string
	dbPath     string
}

// load reads the config file and applies flag overrides.
func (f *rootFlags) load() (fileConfig, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.dbPath != "" {
		cfg.Descriptors.Type = "sqlite"
		cfg.Descriptors.Path = f.dbPath
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "mrpt",
		Short: "Approximate nearest-neighbor search with random projection trees",
		Long: `mrpt builds and queries Multiple Random Projection Trees indexes.

Examples:
  mrpt import --db descriptors.sqlite --file vectors.jsonl
  mrpt build  --db descriptors.sqlite --config mrpt.yaml
  mrpt query  --db descriptors.sqlite --config mrpt.yaml --k 10 --vector 0.1,0.2,0.3
  mrpt config --config mrpt.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to the SQLite descriptor database (overrides the config)")

	root.AddCommand(
		newImportCmd(flags),
		newBuildCmd(flags),
		newQueryCmd(flags),
		newConfigCmd(flags),
		newStatsCmd(flags),
		newImplsCmd(),
	)
	return root
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import descriptors from a JSON Lines file",
		Long:  `Import {"id": <uint64>, "vector": [<float>, ...]} lines into the descriptor store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			store, closeFn, err := openDescriptors(cmd.Context(), cfg.Descriptors)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			w, ok := store.(descriptor.Writer)
			if !ok {
				return errors.New("descriptor store is read-only")
			}

			in := io.Reader(cmd.InOrStdin())
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			n, err := importDescriptors(cmd, w, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d descriptors\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "JSON Lines input file, - for stdin")
	return cmd
}

type importLine struct {
	ID     *uint64   `json:"id"`
	Vector []float64 `json:"vector"`
}

func importDescriptors(cmd *cobra.Command, w descriptor.Writer, in io.Reader) (int, error) {
	ctx := cmd.Context()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		batch []descriptor.Descriptor
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.AddMany(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var l importLine
		if err := gojson.Unmarshal([]byte(text), &l); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		if l.ID == nil || len(l.Vector) == 0 {
			return total, fmt.Errorf("line %d: id and a non-empty vector are required", line)
		}
		batch = append(batch, descriptor.Descriptor{ID: descriptor.ID(*l.ID), Vector: l.Vector})
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, err
	}
	return total, flush()
}

func newBuildCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build an index over every descriptor in the store and save it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if cfg.Index.IndexPath == "" {
				return errors.New("index.index_filepath and index.parameters_filepath must be set to build")
			}
			idx, closeFn, err := openIndex(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := idx.BuildFromStore(cmd.Context()); err != nil {
				return err
			}
			return printStats(cmd, idx)
		},
	}
}

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var (
		k      int
		vector string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a saved index",
		Long:  "Query a saved index and print one \"id distance\" line per neighbor, nearest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := parseVector(vector)
			if err != nil {
				return err
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			idx, closeFn, err := openIndex(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if idx.Count() == 0 {
				return errors.New("no index found; run mrpt build first")
			}
			neighbors, err := idx.Query(cmd.Context(), q, k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range neighbors {
				fmt.Fprintf(out, "%d %s\n", n.ID, strconv.FormatFloat(n.Distance, 'g', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 10, "number of neighbors")
	cmd.Flags().StringVar(&vector, "vector", "", "comma separated query vector")
	_ = cmd.MarkFlagRequired("vector")
	return cmd
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	v := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", f, err)
		}
		v = append(v, x)
	}
	if len(v) == 0 {
		return nil, errors.New("empty query vector")
	}
	return v, nil
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print statistics of a saved index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			idx, closeFn, err := openIndex(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			return printStats(cmd, idx)
		},
	}
}

func printStats(cmd *cobra.Command, idx *mrpt.Index) error {
	data, err := gojson.MarshalIndent(idx.Stats(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func newImplsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "impls",
		Short: "List the available nearest-neighbor index implementations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range mrpt.Implementations() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
