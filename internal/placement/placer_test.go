package placement

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func folders(t *testing.T) (string, string) {
	root := t.TempDir()
	src := filepath.Join(root, "workOrderPDF")
	require.NoError(t, os.Mkdir(src, 0o755))
	return src, filepath.Join(root, "not_match")
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "CS-20501234-PUMP01.pdf", CanonicalName("20501234", "PUMP01"))
	assert.Equal(t, "CS-20501234-NoEquip.pdf", CanonicalName("20501234", ""))
	assert.Equal(t, "CS-20501234-NoEquip.pdf", CanonicalName("20501234", "   "))
	assert.Equal(t, "CS-20501234-P_1_2.pdf", CanonicalName("20501234", "P/1:2"))
}

func TestRenameMatched(t *testing.T) {
	src, hold := folders(t)
	writeFile(t, filepath.Join(src, "a.pdf"), "A")

	out := NewPlacer(nil).ClassifyAndPlace(Request{
		Filename: "a.pdf", SourceFolder: src, HoldingFolder: hold,
		WorkOrder: "20501234", Equipment: "PUMP01", Matched: true,
	})

	assert.True(t, out.Success)
	assert.Equal(t, constants.FileRenamed, out.Status)
	assert.Equal(t, filepath.Join(src, "CS-20501234-PUMP01.pdf"), out.NewPath)
	assert.NoFileExists(t, filepath.Join(src, "a.pdf"))
	assert.Equal(t, "A", readFile(t, out.NewPath))
	assert.NoDirExists(t, hold, "holding folder is only created when needed")
}

func TestMoveUnmatchedToHolding(t *testing.T) {
	src, hold := folders(t)
	writeFile(t, filepath.Join(src, "b.pdf"), "B")

	out := NewPlacer(nil).ClassifyAndPlace(Request{
		Filename: "b.pdf", SourceFolder: src, HoldingFolder: hold, WorkOrder: "99999999",
	})

	assert.True(t, out.Success)
	assert.False(t, out.Matched)
	assert.Equal(t, constants.FileHeld, out.Status)
	assert.Equal(t, filepath.Join(hold, "b.pdf"), out.NewPath)
	assert.Equal(t, "B", readFile(t, filepath.Join(hold, "b.pdf")))
	assert.NoFileExists(t, filepath.Join(src, "b.pdf"))
}

func TestCollisionGetsSuffix(t *testing.T) {
	src, hold := folders(t)
	writeFile(t, filepath.Join(src, "CS-20501234-NoEquip.pdf"), "existing")
	writeFile(t, filepath.Join(src, "x.pdf"), "X")
	writeFile(t, filepath.Join(src, "y.pdf"), "Y")

	p := NewPlacer(nil)
	req := Request{SourceFolder: src, HoldingFolder: hold, WorkOrder: "20501234", Matched: true}

	req.Filename = "x.pdf"
	first := p.ClassifyAndPlace(req)
	req.Filename = "y.pdf"
	second := p.ClassifyAndPlace(req)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, filepath.Join(src, "CS-20501234-NoEquip (2).pdf"), first.NewPath)
	assert.Equal(t, filepath.Join(src, "CS-20501234-NoEquip (3).pdf"), second.NewPath)
	assert.Equal(t, "existing", readFile(t, filepath.Join(src, "CS-20501234-NoEquip.pdf")))
}

func TestConcurrentSameTargetNeverOverwrites(t *testing.T) {
	src, hold := folders(t)
	const n = 8
	for i := 0; i < n; i++ {
		writeFile(t, filepath.Join(src, string(rune('a'+i))+".pdf"), string(rune('a'+i)))
	}

	p := NewPlacer(nil)
	var wg sync.WaitGroup
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := p.ClassifyAndPlace(Request{
				Filename: string(rune('a'+i)) + ".pdf", SourceFolder: src, HoldingFolder: hold,
				WorkOrder: "20501234", Equipment: "PUMP01", Matched: true,
			})
			paths[i] = out.NewPath
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		require.NotEmpty(t, p)
		assert.False(t, seen[p], "duplicate target %s", p)
		seen[p] = true
	}
	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestCollisionExhaustedFails(t *testing.T) {
	src, hold := folders(t)
	require.NoError(t, os.MkdirAll(hold, 0o755))
	writeFile(t, filepath.Join(src, "b.pdf"), "B")
	writeFile(t, filepath.Join(hold, "b.pdf"), "old")
	for i := 2; i <= maxSuffix; i++ {
		writeFile(t, filepath.Join(hold, "b ("+strconv.Itoa(i)+").pdf"), "old")
	}

	out := NewPlacer(nil).ClassifyAndPlace(Request{Filename: "b.pdf", SourceFolder: src, HoldingFolder: hold})
	assert.False(t, out.Success)
	assert.Equal(t, constants.FileFailed, out.Status)
	assert.Contains(t, out.Error, "name collision")
	assert.FileExists(t, filepath.Join(src, "b.pdf"), "failed files stay untouched")
}

func TestRenameErrorIsFailedOutcome(t *testing.T) {
	src, hold := folders(t)
	writeFile(t, filepath.Join(src, "a.pdf"), "A")

	p := NewPlacer(nil)
	p.rename = func(string, string) error { return os.ErrPermission }
	out := p.ClassifyAndPlace(Request{
		Filename: "a.pdf", SourceFolder: src, HoldingFolder: hold,
		WorkOrder: "20501234", Matched: true,
	})

	assert.False(t, out.Success)
	assert.Equal(t, constants.FileFailed, out.Status)
	assert.True(t, out.Matched)
	assert.Contains(t, out.Error, common.CodePlacement)
	assert.FileExists(t, filepath.Join(src, "a.pdf"))
}

func TestCrossDeviceFallsBackToCopy(t *testing.T) {
	src, hold := folders(t)
	writeFile(t, filepath.Join(src, "b.pdf"), "payload")

	p := NewPlacer(nil)
	p.rename = func(o, n string) error {
		return &os.LinkError{Op: "rename", Old: o, New: n, Err: syscall.EXDEV}
	}
	out := p.ClassifyAndPlace(Request{Filename: "b.pdf", SourceFolder: src, HoldingFolder: hold})

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "payload", readFile(t, filepath.Join(hold, "b.pdf")))
	assert.NoFileExists(t, filepath.Join(src, "b.pdf"))
}

func TestMissingSourceFails(t *testing.T) {
	src, hold := folders(t)
	out := NewPlacer(nil).ClassifyAndPlace(Request{
		Filename: "gone.pdf", SourceFolder: src, HoldingFolder: hold, WorkOrder: "1", Matched: true,
	})
	assert.False(t, out.Success)
	assert.Equal(t, constants.FileFailed, out.Status)
	assert.NotEmpty(t, out.Error)
}
