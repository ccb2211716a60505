package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// PRMeta is pull-request metadata fetched from GitHub. It fills the role of
// a webhook payload when a review is started from the command line.
type PRMeta struct {
	Title      string
	Body       string
	BaseBranch string
	HeadBranch string
	HeadSHA    string
	Draft      bool
	State      string
}

func ghCmd(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// FetchPRMeta looks up a pull request through the gh CLI.
func FetchPRMeta(ctx context.Context, repo string, number int) (*PRMeta, error) {
	out, err := ghCmd(ctx, "api", fmt.Sprintf("repos/%s/pulls/%d", repo, number))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Draft bool   `json:"draft"`
		State string `json:"state"`
		Head  struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return nil, fmt.Errorf("parse pull request %s#%d: %w", repo, number, err)
	}

	return &PRMeta{
		Title:      payload.Title,
		Body:       payload.Body,
		BaseBranch: payload.Base.Ref,
		HeadBranch: payload.Head.Ref,
		HeadSHA:    payload.Head.SHA,
		Draft:      payload.Draft,
		State:      payload.State,
	}, nil
}
