// Package throttle provides rate-limited, size-bounded read access to a
// working tree. One Reader is shared by every concurrent review job so the
// combined read rate against the source provider stays bounded.
package throttle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"
)

// ErrFileTooLarge is returned for files over the per-file ceiling. Oversized
// files are skipped entirely rather than truncated, since a truncated file
// would corrupt the review engine's interpretation.
type ErrFileTooLarge struct {
	Path string
	Size int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file too large: %s (%d bytes)", e.Path, e.Size)
}

// Reader reads files under a rate limit and a per-file size ceiling. Safe
// for concurrent use.
type Reader struct {
	limiter     *rate.Limiter
	maxFileSize int64
}

// NewReader creates a Reader allowing readsPerSecond file reads with a small
// burst, skipping files larger than maxFileSize bytes. A readsPerSecond of 0
// or less disables rate limiting.
func NewReader(readsPerSecond float64, maxFileSize int64) *Reader {
	limit := rate.Inf
	burst := 1
	if readsPerSecond > 0 {
		limit = rate.Limit(readsPerSecond)
		burst = int(readsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Reader{
		limiter:     rate.NewLimiter(limit, burst),
		maxFileSize: maxFileSize,
	}
}

// ReadFile reads one file relative to root, waiting for a rate token first.
// The wait is the suspension point where cancellation is observed.
func (r *Reader) ReadFile(ctx context.Context, root, relPath string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	full := filepath.Join(root, filepath.FromSlash(relPath))

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("not a regular file: %s", relPath)
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return nil, &ErrFileTooLarge{Path: relPath, Size: info.Size()}
	}

	return os.ReadFile(full)
}

// Exists reports whether relPath exists under root. Stat-only, so it does
// not consume a rate token.
func (r *Reader) Exists(root, relPath string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	return err == nil && !info.IsDir()
}
