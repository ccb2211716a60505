package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/server/server.go b/internal/server/server.go
index 1234567..89abcde 100644
--- a/internal/server/server.go
+++ b/internal/server/server.go
@@ -10,7 +10,8 @@ func New() *Server {
 	s := &Server{}
-	s.timeout = 0
+	s.timeout = 30 * time.Second
+	s.retries = 3
 	return s
 }
@@ -40,6 +41,7 @@ func (s *Server) Start() error {
 	if s.listener == nil {
+		return errors.New("no listener")
 	}
diff --git a/docs/new.md b/docs/new.md
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/docs/new.md
@@ -0,0 +1,2 @@
+# New
+doc
diff --git a/old_name.go b/new_name.go
similarity index 90%
rename from old_name.go
rename to new_name.go
diff --git a/gone.go b/gone.go
deleted file mode 100644
index e69de29..0000000
`

func TestParseDiff(t *testing.T) {
	files := ParseDiff(sampleDiff)
	require.Len(t, files, 4)

	t.Run("modified file with two hunks", func(t *testing.T) {
		f := files[0]
		assert.Equal(t, "internal/server/server.go", f.Path)
		assert.Equal(t, "modified", f.Status)
		require.Len(t, f.Hunks, 2)

		assert.Equal(t, 10, f.Hunks[0].OldStart)
		assert.Equal(t, 7, f.Hunks[0].OldLines)
		assert.Equal(t, 10, f.Hunks[0].NewStart)
		assert.Equal(t, 8, f.Hunks[0].NewLines)
		assert.Contains(t, f.Hunks[0].Body, "+	s.retries = 3")

		assert.Equal(t, 41, f.Hunks[1].NewStart)
		assert.Contains(t, f.Hunks[1].Body, "no listener")
	})

	t.Run("added file", func(t *testing.T) {
		f := files[1]
		assert.Equal(t, "docs/new.md", f.Path)
		assert.Equal(t, "added", f.Status)
		require.Len(t, f.Hunks, 1)
		assert.Equal(t, 0, f.Hunks[0].OldStart)
		assert.Equal(t, 2, f.Hunks[0].NewLines)
	})

	t.Run("renamed file", func(t *testing.T) {
		f := files[2]
		assert.Equal(t, "new_name.go", f.Path)
		assert.Equal(t, "old_name.go", f.OldPath)
		assert.Equal(t, "renamed", f.Status)
	})

	t.Run("deleted file", func(t *testing.T) {
		f := files[3]
		assert.Equal(t, "gone.go", f.Path)
		assert.Equal(t, "deleted", f.Status)
	})
}

func TestParseDiff_Empty(t *testing.T) {
	assert.Empty(t, ParseDiff(""))
	assert.Empty(t, ParseDiff("warning: LF will be replaced by CRLF\n"))
}

func TestParseHunkHeader(t *testing.T) {
	h, ok := parseHunkHeader("@@ -1,5 +2,6 @@ func main() {")
	require.True(t, ok)
	assert.Equal(t, 1, h.OldStart)
	assert.Equal(t, 5, h.OldLines)
	assert.Equal(t, 2, h.NewStart)
	assert.Equal(t, 6, h.NewLines)

	// Single-line ranges omit the count.
	h, ok = parseHunkHeader("@@ -3 +4 @@")
	require.True(t, ok)
	assert.Equal(t, 1, h.OldLines)
	assert.Equal(t, 1, h.NewLines)

	_, ok = parseHunkHeader("@@ garbage")
	assert.False(t, ok)
}

func TestParseDiffHeader(t *testing.T) {
	oldPath, newPath := parseDiffHeader("diff --git a/cmd/root.go b/cmd/root.go")
	assert.Equal(t, "cmd/root.go", oldPath)
	assert.Equal(t, "cmd/root.go", newPath)

	oldPath, newPath = parseDiffHeader("diff --git a/x.go b/y.go")
	assert.Equal(t, "x.go", oldPath)
	assert.Equal(t, "y.go", newPath)
}
