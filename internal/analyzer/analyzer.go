// Package analyzer builds a bounded evidence bundle for one pull request:
// the diff, a prioritized slice of repository content read under byte and
// file budgets, detected project kinds, and linked-issue references.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"time"

	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/source"
	"github.com/joescharf/junior/internal/throttle"
)

// ErrTimeout indicates analysis exceeded its wall-clock budget.
var ErrTimeout = errors.New("analysis timed out")

// PRInfo carries pull-request metadata from the webhook event that the
// working tree alone cannot provide.
type PRInfo struct {
	Title       string
	Description string
	BaseBranch  string
	HeadBranch  string
}

// Config bounds one analysis run.
type Config struct {
	MaxTotalBytes int64         // total content budget across all files
	MaxFiles      int           // file-count budget
	Timeout       time.Duration // wall-clock budget, 0 = none
	Rules         DetectionRules
}

// DefaultConfig returns analysis budgets suitable for typical PRs.
func DefaultConfig() Config {
	return Config{
		MaxTotalBytes: 256 * 1024,
		MaxFiles:      40,
		Timeout:       2 * time.Minute,
		Rules:         DefaultRules(),
	}
}

// Analyzer builds evidence bundles through a shared throttled reader.
type Analyzer struct {
	reader *throttle.Reader
	cfg    Config
}

// New creates an Analyzer. The reader is shared across concurrent jobs so
// the aggregate read rate stays bounded.
func New(reader *throttle.Reader, cfg Config) *Analyzer {
	return &Analyzer{reader: reader, cfg: cfg}
}

// candidate is one file considered for inclusion, with its priority tier.
type candidate struct {
	path   string
	reason string
}

// Analyze materializes the subject's working tree and builds the evidence
// bundle. It fails with source.ErrUnavailable when no tree can be produced
// and ErrTimeout when the configured budget expires.
func (a *Analyzer) Analyze(ctx context.Context, subject models.ReviewSubject, pr PRInfo, provider source.Provider) (*models.EvidenceBundle, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, a.cfg.Timeout, ErrTimeout)
		defer cancel()
	}

	checkout, err := provider.Materialize(ctx, subject)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer func() {
		if cerr := checkout.Close(); cerr != nil {
			slog.Warn("checkout cleanup failed", "subject", subject.String(), "error", cerr)
		}
	}()

	bundle := &models.EvidenceBundle{
		Subject:      subject,
		Title:        pr.Title,
		Description:  pr.Description,
		BaseBranch:   pr.BaseBranch,
		HeadBranch:   pr.HeadBranch,
		Changed:      checkout.Changed,
		ProjectKinds: a.detectKinds(checkout.Root),
	}
	if bundle.BaseBranch == "" {
		bundle.BaseBranch = checkout.BaseBranch
	}
	bundle.CommitMessages = checkout.CommitMessages
	bundle.LinkedIssues = ParseIssueRefs(append([]string{pr.Description}, checkout.CommitMessages...)...)

	if err := a.readCandidates(ctx, checkout.Root, bundle); err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(context.Cause(ctx), ErrTimeout) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	slog.Info("analysis complete",
		"subject", subject.String(),
		"kinds", bundle.ProjectKinds,
		"changed", len(bundle.Changed),
		"files", len(bundle.Files),
		"bytes", bundle.TotalBytes)
	return bundle, nil
}

// detectKinds reports every ecosystem whose manifest is present at the root.
func (a *Analyzer) detectKinds(root string) []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, name := range a.cfg.Rules.ManifestNames() {
		if a.reader.Exists(root, name) {
			kind := a.cfg.Rules.Manifests[name]
			if !seen[kind] {
				seen[kind] = true
				kinds = append(kinds, kind)
			}
		}
	}
	sort.Strings(kinds)
	return kinds
}

// readCandidates reads prioritized files into the bundle until a budget is
// exhausted. Files over the per-file ceiling are skipped, never truncated.
func (a *Analyzer) readCandidates(ctx context.Context, root string, bundle *models.EvidenceBundle) error {
	for _, cand := range a.buildCandidates(root, bundle) {
		if bundle.TotalBytes >= a.cfg.MaxTotalBytes || len(bundle.Files) >= a.cfg.MaxFiles {
			break
		}

		content, err := a.reader.ReadFile(ctx, root, cand.path)
		if err != nil {
			var tooLarge *throttle.ErrFileTooLarge
			switch {
			case errors.As(err, &tooLarge):
				bundle.SkippedFiles = append(bundle.SkippedFiles, cand.path)
				continue
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				return fmt.Errorf("read %s: %w", cand.path, context.Cause(ctx))
			case os.IsNotExist(err):
				continue
			default:
				slog.Debug("skipping unreadable file", "path", cand.path, "error", err)
				continue
			}
		}

		// A file that alone would blow the remaining byte budget is skipped
		// whole for the same reason oversized files are.
		if bundle.TotalBytes+int64(len(content)) > a.cfg.MaxTotalBytes {
			bundle.SkippedFiles = append(bundle.SkippedFiles, cand.path)
			continue
		}

		bundle.Files = append(bundle.Files, models.EvidenceFile{
			Path:    cand.path,
			Content: string(content),
			Reason:  cand.reason,
		})
		bundle.TotalBytes += int64(len(content))
	}
	return nil
}

// buildCandidates assembles the prioritized candidate list: changed files,
// then manifests, then files sharing a directory with a change, then common
// entry points. Within a tier, diff order first, then lexical.
func (a *Analyzer) buildCandidates(root string, bundle *models.EvidenceBundle) []candidate {
	var out []candidate
	seen := make(map[string]bool)
	add := func(p, reason string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, candidate{path: p, reason: reason})
	}

	// Tier 1: files touched by the diff, in diff order. Deleted files have
	// no content at head.
	for _, c := range bundle.Changed {
		if c.Status == "deleted" {
			continue
		}
		add(c.Path, "changed")
	}

	// Tier 2: manifests present at the root.
	for _, name := range a.cfg.Rules.ManifestNames() {
		if a.reader.Exists(root, name) {
			add(name, "manifest")
		}
	}

	// Tier 3: siblings of changed files, lexical within each directory.
	dirs := make(map[string]bool)
	var dirOrder []string
	for _, c := range bundle.Changed {
		d := path.Dir(c.Path)
		if !dirs[d] {
			dirs[d] = true
			dirOrder = append(dirOrder, d)
		}
	}
	for _, d := range dirOrder {
		for _, sibling := range listDir(root, d) {
			add(sibling, "related")
		}
	}

	// Tier 4: common entry points.
	for _, entry := range a.cfg.Rules.EntryPoints {
		if a.reader.Exists(root, entry) {
			add(entry, "entrypoint")
		}
	}

	return out
}

// listDir returns the regular files directly under dir (relative to root)
// in lexical order.
func listDir(root, dir string) []string {
	full := root
	if dir != "." {
		full = path.Join(root, dir)
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			p := e.Name()
			if dir != "." {
				p = path.Join(dir, p)
			}
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files
}
