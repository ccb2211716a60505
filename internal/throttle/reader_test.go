package throttle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/util.go", "package pkg\n")

	r := NewReader(0, 0) // unlimited
	data, err := r.ReadFile(context.Background(), root, "pkg/util.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(data))
}

func TestReadFile_Missing(t *testing.T) {
	r := NewReader(0, 0)
	_, err := r.ReadFile(context.Background(), t.TempDir(), "nope.go")
	assert.Error(t, err)
}

func TestReadFile_Directory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	r := NewReader(0, 0)
	_, err := r.ReadFile(context.Background(), root, "sub")
	assert.ErrorContains(t, err, "not a regular file")
}

func TestReadFile_TooLarge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.bin", "0123456789")

	r := NewReader(0, 5)
	_, err := r.ReadFile(context.Background(), root, "big.bin")

	var tooLarge *ErrFileTooLarge
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, "big.bin", tooLarge.Path)
	assert.Equal(t, int64(10), tooLarge.Size)
}

func TestReadFile_RateLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "a")

	// 10 reads/sec with burst 1: the third read must wait.
	r := NewReader(10, 0)
	r.limiter.SetBurst(1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := r.ReadFile(context.Background(), root, "a.go")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestReadFile_CancelledWhileWaiting(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "a")

	r := NewReader(0.001, 0)
	r.limiter.SetBurst(1)

	// Drain the single burst token.
	_, err := r.ReadFile(context.Background(), root, "a.go")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ReadFile(ctx, root, "a.go")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module x\n")

	r := NewReader(0, 0)
	assert.True(t, r.Exists(root, "go.mod"))
	assert.False(t, r.Exists(root, "go.sum"))
}
