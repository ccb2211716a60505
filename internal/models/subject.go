package models

import "fmt"

// ReviewSubject identifies one reviewable pull-request state. Two subjects
// are equal iff all four fields match.
type ReviewSubject struct {
	Host    string // e.g. "github.com"
	Repo    string // "owner/name"
	Number  int
	HeadSHA string
}

// PRKey returns the pull-request identity without the commit. A new commit
// on the same PR shares the PRKey and supersedes the previous review.
func (s ReviewSubject) PRKey() string {
	return fmt.Sprintf("%s/%s#%d", s.Host, s.Repo, s.Number)
}

// Key returns the full de-duplication key including the head commit.
func (s ReviewSubject) Key() string {
	return fmt.Sprintf("%s@%s", s.PRKey(), s.HeadSHA)
}

func (s ReviewSubject) String() string {
	sha := s.HeadSHA
	if len(sha) > 8 {
		sha = sha[:8]
	}
	return fmt.Sprintf("%s/%s#%d@%s", s.Host, s.Repo, s.Number, sha)
}
