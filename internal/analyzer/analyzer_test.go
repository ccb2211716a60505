package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/source"
	"github.com/joescharf/junior/internal/throttle"
)

// fakeProvider serves a pre-built working tree from disk.
type fakeProvider struct {
	root    string
	changed []models.ChangedFile
	commits []string
	err     error
}

func (p *fakeProvider) Materialize(_ context.Context, _ models.ReviewSubject) (*source.Checkout, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &source.Checkout{
		Root:           p.root,
		BaseBranch:     "main",
		Changed:        p.changed,
		CommitMessages: p.commits,
	}, nil
}

// slowProvider blocks until its context is done.
type slowProvider struct{}

func (slowProvider) Materialize(ctx context.Context, _ models.ReviewSubject) (*source.Checkout, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testSubject() models.ReviewSubject {
	return models.ReviewSubject{Host: "github.com", Repo: "acme/widgets", Number: 7, HeadSHA: "abc123"}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newTestAnalyzer(cfg Config) *Analyzer {
	return New(throttle.NewReader(0, 0), cfg)
}

func TestAnalyze_BuildsBundle(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":                 "module acme\n",
		"main.go":                "package main\n",
		"internal/api/server.go": "package api\n",
		"internal/api/routes.go": "package api\n",
	})
	provider := &fakeProvider{
		root: root,
		changed: []models.ChangedFile{
			{Path: "internal/api/server.go", Status: "modified"},
		},
		commits: []string{"fix handler panic"},
	}

	a := newTestAnalyzer(DefaultConfig())
	bundle, err := a.Analyze(context.Background(), testSubject(), PRInfo{Title: "Fix panic", Description: "Fixes #12"}, provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"go"}, bundle.ProjectKinds)
	assert.Equal(t, []string{"internal/api/server.go"}, bundle.ChangedPaths())
	assert.Equal(t, "main", bundle.BaseBranch)
	assert.Equal(t, []models.IssueRef{{Number: 12, Relation: "closes"}}, bundle.LinkedIssues)

	// Tier order: changed file first, then manifest, then the sibling,
	// then the entry point.
	var paths, reasons []string
	for _, f := range bundle.Files {
		paths = append(paths, f.Path)
		reasons = append(reasons, f.Reason)
	}
	assert.Equal(t, []string{"internal/api/server.go", "go.mod", "internal/api/routes.go", "main.go"}, paths)
	assert.Equal(t, []string{"changed", "manifest", "related", "entrypoint"}, reasons)
	assert.Equal(t, int64(49), bundle.TotalBytes)
}

func TestAnalyze_ZeroByteBudget(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":  "module acme\n",
		"util.go": "package acme\n",
	})
	provider := &fakeProvider{
		root:    root,
		changed: []models.ChangedFile{{Path: "util.go", Status: "modified"}},
	}

	cfg := DefaultConfig()
	cfg.MaxTotalBytes = 0
	a := newTestAnalyzer(cfg)

	bundle, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, provider)
	require.NoError(t, err)

	// No content, but structure is still known.
	assert.Empty(t, bundle.Files)
	assert.Equal(t, []string{"util.go"}, bundle.ChangedPaths())
	assert.Contains(t, bundle.ProjectKinds, "go")
}

func TestAnalyze_FileCountBudget(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go": "package a\n",
		"b.go": "package a\n",
		"c.go": "package a\n",
	})
	provider := &fakeProvider{
		root: root,
		changed: []models.ChangedFile{
			{Path: "a.go", Status: "modified"},
			{Path: "b.go", Status: "modified"},
			{Path: "c.go", Status: "modified"},
		},
	}

	cfg := DefaultConfig()
	cfg.MaxFiles = 2
	a := newTestAnalyzer(cfg)

	bundle, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, provider)
	require.NoError(t, err)
	assert.Len(t, bundle.Files, 2)
}

func TestAnalyze_OversizedFileSkippedWhole(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.go":   "package big\n" + string(make([]byte, 4096)),
		"small.go": "package small\n",
	})
	provider := &fakeProvider{
		root: root,
		changed: []models.ChangedFile{
			{Path: "big.go", Status: "modified"},
			{Path: "small.go", Status: "modified"},
		},
	}

	a := New(throttle.NewReader(0, 1024), DefaultConfig())
	bundle, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"big.go"}, bundle.SkippedFiles)
	require.Len(t, bundle.Files, 1)
	assert.Equal(t, "small.go", bundle.Files[0].Path)
}

func TestAnalyze_DeletedFilesNotRead(t *testing.T) {
	root := writeTree(t, map[string]string{"kept.go": "package a\n"})
	provider := &fakeProvider{
		root: root,
		changed: []models.ChangedFile{
			{Path: "gone.go", Status: "deleted"},
			{Path: "kept.go", Status: "modified"},
		},
	}

	a := newTestAnalyzer(DefaultConfig())
	bundle, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, provider)
	require.NoError(t, err)

	require.Len(t, bundle.Files, 1)
	assert.Equal(t, "kept.go", bundle.Files[0].Path)
}

func TestAnalyze_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	a := newTestAnalyzer(cfg)

	_, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, slowProvider{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAnalyze_ProviderUnavailable(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	_, err := a.Analyze(context.Background(), testSubject(), PRInfo{}, &fakeProvider{err: source.ErrUnavailable})
	assert.ErrorIs(t, err, source.ErrUnavailable)
}

func TestLoadRules_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manifests:\n  mix.exs: elixir\n"), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "elixir", rules.Manifests["mix.exs"])
	// Entry points untouched by the override keep their defaults.
	assert.Contains(t, rules.EntryPoints, "main.go")
}

func TestLoadRules_MissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	// Fallback still usable.
	assert.Equal(t, "go", rules.Manifests["go.mod"])
}

func TestParseIssueRefs(t *testing.T) {
	refs := ParseIssueRefs("Fixes #12 and touches #34", "closes #56")
	assert.Equal(t, []models.IssueRef{
		{Number: 12, Relation: "closes"},
		{Number: 34, Relation: "references"},
		{Number: 56, Relation: "closes"},
	}, refs)
}

func TestParseIssueRefs_ClosingWins(t *testing.T) {
	// A bare mention followed by a closing keyword upgrades the relation.
	refs := ParseIssueRefs("see #9", "resolves #9")
	require.Len(t, refs, 1)
	assert.Equal(t, models.IssueRef{Number: 9, Relation: "closes"}, refs[0])
}

func TestParseIssueRefs_Empty(t *testing.T) {
	assert.Empty(t, ParseIssueRefs("no references here", ""))
}
