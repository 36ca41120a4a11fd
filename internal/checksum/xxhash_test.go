package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte("%PDF-1.4 one"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("%PDF-1.4 two"), 0o644))

	ha, err := FileChecksum(a)
	require.NoError(t, err)
	hb, err := FileChecksum(b)
	require.NoError(t, err)

	assert.Len(t, ha, 16)
	assert.NotEqual(t, ha, hb)

	again, err := FileChecksum(a)
	require.NoError(t, err)
	assert.Equal(t, ha, again)

	_, err = FileChecksum(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}
