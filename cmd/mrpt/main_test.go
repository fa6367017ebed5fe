package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mrpt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := defaultFileConfig()
	cfg.Index.Depth = 1
	cfg.Index.RandomSeed = 42
	cfg.Index.IndexPath = "mrpt.index"
	cfg.Index.ParametersPath = "mrpt.params.json"
	cfg.Index.Compression = "zstd"
	cfg.Index.ParametersCodec = "json"
	cfg.BlobStore.Root = filepath.Join(dir, "artifacts")
	cfg.Descriptors.CacheSize = 16
	cfg.LogLevel = "error"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "mrpt.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func lineJSONL(n int) string {
	var b strings.Builder
	for j := range n {
		fmt.Fprintf(&b, "{\"id\": %d, \"vector\": [%d, %d]}\n", j, j, 2*j)
	}
	return b.String()
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	db := filepath.Join(dir, "descriptors.sqlite")

	jsonl := filepath.Join(dir, "vectors.jsonl")
	require.NoError(t, os.WriteFile(jsonl, []byte(lineJSONL(100)), 0o600))

	out, err := run(t, "", "import", "--db", db, "--config", cfgPath, "--file", jsonl)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 100 descriptors")

	out, err = run(t, "", "build", "--db", db, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"Size": 100`)
	assert.FileExists(t, filepath.Join(dir, "artifacts", "mrpt.index"))
	assert.FileExists(t, filepath.Join(dir, "artifacts", "mrpt.params.json"))

	out, err = run(t, "", "query", "--db", db, "--config", cfgPath, "--k", "100", "--vector", "0,0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 50)
	assert.Equal(t, "0 0", lines[0])
	for j, l := range lines {
		assert.True(t, strings.HasPrefix(l, fmt.Sprintf("%d ", j)), l)
	}

	out, err = run(t, "", "stats", "--db", db, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"NumTrees": 10`)
}

func TestImportFromStdin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "d.sqlite")
	out, err := run(t, lineJSONL(3)+"\n", "import", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 descriptors")

	_, err = run(t, "{\"vector\": [1]}\n", "import", "--db", db)
	require.ErrorContains(t, err, "line 1")

	_, err = run(t, "not json\n", "import", "--db", db)
	require.ErrorContains(t, err, "line 1")
}

func TestBuildRequiresPaths(t *testing.T) {
	db := filepath.Join(t.TempDir(), "d.sqlite")
	_, err := run(t, "", "build", "--db", db)
	require.ErrorContains(t, err, "index_filepath")
}

func TestQueryWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	_, err := run(t, "", "query", "--db", filepath.Join(dir, "d.sqlite"), "--config", cfgPath, "--vector", "1,2")
	require.ErrorContains(t, err, "no index found")

	_, err = run(t, "", "query", "--config", cfgPath, "--vector", "1,x")
	require.ErrorContains(t, err, "invalid vector component")
}

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := run(t, "", "config", "--config", cfgPath, "--db", "other.sqlite")
	require.NoError(t, err)

	var cfg fileConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "other.sqlite", cfg.Descriptors.Path)
	assert.Equal(t, 42, int(cfg.Index.RandomSeed))
	assert.Equal(t, "zstd", cfg.Index.Compression)
	assert.Equal(t, "json", cfg.Index.ParametersCodec)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("index:\n  num_trees: 0\n"), 0o600))
	_, err = loadConfig(bad)
	require.ErrorIs(t, err, mrpt.ErrInvalidParameter)

	_, err = openBlobStore(context.Background(), blobConfig{Type: "ftp"})
	require.Error(t, err)
	_, _, err = openDescriptors(context.Background(), descriptorConfig{Type: "csv"})
	require.Error(t, err)

	cfg := defaultFileConfig()
	cfg.LogLevel = "loud"
	_, err = cfg.logger()
	require.Error(t, err)
}

func TestImpls(t *testing.T) {
	out, err := run(t, "", "impls")
	require.NoError(t, err)
	assert.Contains(t, out, mrpt.ImplementationName)
}

func TestParseVector(t *testing.T) {
	v, err := parseVector(" 1, 2.5 ,-3 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -3}, v)

	_, err = parseVector(",")
	require.Error(t, err)
}
