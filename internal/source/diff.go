package source

import (
	"strconv"
	"strings"

	"github.com/joescharf/junior/internal/models"
)

// ParseDiff parses `git diff` unified output into changed files with hunks.
// Unrecognized lines are skipped; a best-effort parse of a truncated diff is
// still useful evidence.
func ParseDiff(raw string) []models.ChangedFile {
	var files []models.ChangedFile
	var cur *models.ChangedFile
	var hunk *models.Hunk
	var body strings.Builder

	flushHunk := func() {
		if cur != nil && hunk != nil {
			hunk.Body = body.String()
			cur.Hunks = append(cur.Hunks, *hunk)
		}
		hunk = nil
		body.Reset()
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flushFile()
			oldPath, newPath := parseDiffHeader(line)
			cur = &models.ChangedFile{Path: newPath, Status: "modified"}
			if oldPath != newPath {
				cur.OldPath = oldPath
				cur.Status = "renamed"
			}
		case cur == nil:
			// Preamble before the first file header.
		case strings.HasPrefix(line, "new file mode"):
			cur.Status = "added"
		case strings.HasPrefix(line, "deleted file mode"):
			cur.Status = "deleted"
		case strings.HasPrefix(line, "rename from "):
			cur.OldPath = strings.TrimPrefix(line, "rename from ")
			cur.Status = "renamed"
		case strings.HasPrefix(line, "rename to "):
			cur.Path = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "@@"):
			flushHunk()
			h, ok := parseHunkHeader(line)
			if ok {
				hunk = &h
			}
		case hunk != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flushFile()
	return files
}

// parseDiffHeader extracts old and new paths from a "diff --git a/x b/y" line.
func parseDiffHeader(line string) (oldPath, newPath string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	// Paths with spaces are rare in practice; split on " b/" which cannot
	// appear inside the a/ path of a well-formed header.
	if i := strings.Index(rest, " b/"); i >= 0 {
		oldPath = strings.TrimPrefix(rest[:i], "a/")
		newPath = rest[i+len(" b/"):]
		return oldPath, newPath
	}
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		oldPath = strings.TrimPrefix(parts[0], "a/")
		newPath = strings.TrimPrefix(parts[1], "b/")
	}
	return oldPath, newPath
}

// parseHunkHeader parses "@@ -l,c +l,c @@ context".
func parseHunkHeader(line string) (models.Hunk, bool) {
	var h models.Hunk
	rest := strings.TrimPrefix(line, "@@")
	end := strings.Index(rest, "@@")
	if end < 0 {
		return h, false
	}
	fields := strings.Fields(rest[:end])
	if len(fields) != 2 {
		return h, false
	}
	var ok bool
	if h.OldStart, h.OldLines, ok = parseRange(strings.TrimPrefix(fields[0], "-")); !ok {
		return h, false
	}
	if h.NewStart, h.NewLines, ok = parseRange(strings.TrimPrefix(fields[1], "+")); !ok {
		return h, false
	}
	return h, true
}

func parseRange(s string) (start, count int, ok bool) {
	count = 1
	if i := strings.IndexByte(s, ','); i >= 0 {
		c, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return 0, 0, false
		}
		count = c
		s = s[:i]
	}
	start, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, false
	}
	return start, count, true
}
