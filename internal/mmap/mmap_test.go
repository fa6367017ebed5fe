package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenReadClose(t *testing.T) {
	content := []byte("random projection trees")
	m, err := Open(writeFile(t, content))
	require.NoError(t, err)

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	require.NoError(t, m.Advise(AccessSequential))

	t.Run("ReadAt", func(t *testing.T) {
		buf := make([]byte, 5)
		n, err := m.ReadAt(buf, 7)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "proje", string(buf))
	})

	t.Run("ReadAtPartial", func(t *testing.T) {
		buf := make([]byte, 10)
		n, err := m.ReadAt(buf, int64(len(content)-5))
		assert.Equal(t, 5, n)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, "trees", string(buf[:n]))
	})

	t.Run("ReadAtOutOfRange", func(t *testing.T) {
		n, err := m.ReadAt(make([]byte, 4), 1000)
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)

		_, err = m.ReadAt(make([]byte, 4), -1)
		assert.ErrorIs(t, err, ErrInvalidOffset)
	})

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenEmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.Bytes())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
