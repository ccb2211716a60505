package models

// Hunk is one contiguous diff region within a changed file.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Body     string `json:"body"`
}

// ChangedFile is one file touched by the pull request's diff.
type ChangedFile struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"` // set on renames
	Status  string `json:"status"`             // added, modified, deleted, renamed
	Hunks   []Hunk `json:"hunks,omitempty"`
}

// EvidenceFile is one file included in the evidence bundle, with the tier
// that earned it a slot.
type EvidenceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Reason  string `json:"reason"` // changed, manifest, related, entrypoint
}

// IssueRef is a linked-issue reference parsed from PR or commit text.
type IssueRef struct {
	Number   int    `json:"number"`
	Relation string `json:"relation"` // closes or references
}

// EvidenceBundle is the bounded context handed to review stages. Built once
// per job by the analyzer, immutable thereafter, owned exclusively by the
// orchestrator invocation that consumes it.
type EvidenceBundle struct {
	Subject        ReviewSubject  `json:"subject"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	BaseBranch     string         `json:"base_branch"`
	HeadBranch     string         `json:"head_branch"`
	ProjectKinds   []string       `json:"project_kinds"`
	Changed        []ChangedFile  `json:"changed"`
	Files          []EvidenceFile `json:"files"`
	CommitMessages []string       `json:"commit_messages"`
	LinkedIssues   []IssueRef     `json:"linked_issues"`
	TotalBytes     int64          `json:"total_bytes"`
	SkippedFiles   []string       `json:"skipped_files,omitempty"` // over the per-file ceiling
}

// ChangedPaths returns the diff's file paths in diff order.
func (b *EvidenceBundle) ChangedPaths() []string {
	paths := make([]string, 0, len(b.Changed))
	for _, c := range b.Changed {
		paths = append(paths, c.Path)
	}
	return paths
}
