// Package source materializes working trees for review jobs. The git
// implementation shells out to the git CLI the same way the rest of the
// tool does, cloning into a temp directory and diffing base against head.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/joescharf/junior/internal/models"
)

// ErrUnavailable indicates the provider could not produce a working tree
// for the subject. Jobs fail with this rather than retrying.
var ErrUnavailable = errors.New("source unavailable")

// Checkout is a materialized working tree plus the base..head diff.
type Checkout struct {
	Root           string
	BaseBranch     string
	Changed        []models.ChangedFile
	CommitMessages []string

	cleanup func() error
}

// Close removes the checkout's temporary directory.
func (c *Checkout) Close() error {
	if c.cleanup == nil {
		return nil
	}
	return c.cleanup()
}

// Provider produces working trees for review subjects.
type Provider interface {
	Materialize(ctx context.Context, subject models.ReviewSubject) (*Checkout, error)
}

// GitProvider implements Provider using the git CLI. Clones are shallow and
// blobless; only files the analyzer actually reads are fetched.
type GitProvider struct {
	// BaseRef overrides base detection (mostly for tests). When empty the
	// remote's default branch is used.
	BaseRef string
}

// NewGitProvider returns a GitProvider with default base detection.
func NewGitProvider() *GitProvider {
	return &GitProvider{}
}

func gitCmd(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// cloneURL builds the HTTPS clone URL for the subject's repository.
func cloneURL(subject models.ReviewSubject) string {
	host := subject.Host
	if host == "" {
		host = "github.com"
	}
	return fmt.Sprintf("https://%s/%s.git", host, subject.Repo)
}

// Materialize clones the repository, checks out the subject's head commit,
// and computes the diff against the merge base with the default branch.
func (p *GitProvider) Materialize(ctx context.Context, subject models.ReviewSubject) (*Checkout, error) {
	tmp, err := os.MkdirTemp("", "junior-checkout-*")
	if err != nil {
		return nil, fmt.Errorf("create checkout dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(tmp) }
	fail := func(err error) (*Checkout, error) {
		_ = cleanup()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := gitCmd(ctx, tmp, "clone", "--filter=blob:none", "--no-checkout", cloneURL(subject), "."); err != nil {
		return fail(fmt.Errorf("clone %s: %v", subject.Repo, err))
	}

	// PR head commits are not always reachable from branch refs; GitHub
	// exposes them under refs/pull/<n>/head.
	if _, err := gitCmd(ctx, tmp, "cat-file", "-e", subject.HeadSHA); err != nil {
		ref := fmt.Sprintf("pull/%d/head", subject.Number)
		if _, err := gitCmd(ctx, tmp, "fetch", "origin", ref); err != nil {
			return fail(fmt.Errorf("fetch %s: %v", ref, err))
		}
	}

	if _, err := gitCmd(ctx, tmp, "checkout", "--detach", subject.HeadSHA); err != nil {
		return fail(fmt.Errorf("checkout %s: %v", subject.HeadSHA, err))
	}

	baseRef := p.BaseRef
	if baseRef == "" {
		ref, err := gitCmd(ctx, tmp, "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
		if err != nil {
			ref = "origin/main"
		}
		baseRef = ref
	}

	mergeBase, err := gitCmd(ctx, tmp, "merge-base", baseRef, "HEAD")
	if err != nil {
		// No common ancestor: diff against the base ref directly.
		mergeBase = baseRef
	}

	rawDiff, err := gitCmd(ctx, tmp, "diff", "--no-color", mergeBase, "HEAD")
	if err != nil {
		return fail(fmt.Errorf("diff: %v", err))
	}
	changed := ParseDiff(rawDiff)

	var messages []string
	if log, err := gitCmd(ctx, tmp, "log", "--format=%s", mergeBase+"..HEAD"); err == nil && log != "" {
		messages = strings.Split(log, "\n")
	}

	return &Checkout{
		Root:           tmp,
		BaseBranch:     strings.TrimPrefix(baseRef, "origin/"),
		Changed:        changed,
		CommitMessages: messages,
		cleanup:        cleanup,
	}, nil
}
