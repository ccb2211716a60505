package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("reviewing %s", "acme/widgets#7")
	assert.Contains(t, out.String(), "reviewing acme/widgets#7")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("published %d comments", 4)
	assert.Contains(t, out.String(), "published 4 comments")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("stage %s incomplete", "naming")
	assert.Contains(t, errOut.String(), "stage naming incomplete")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would post review to %s", "acme/widgets#7")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would post review")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would post review")
	assert.Empty(t, errOut.String())
}

func TestSeverityColor(t *testing.T) {
	// Colors may be stripped when not a TTY; the text must survive either way.
	for _, sev := range []string{"critical", "high", "medium", "low", "info", "unknown"} {
		assert.Contains(t, SeverityColor(sev), sev)
	}
}

func TestRecommendationColor(t *testing.T) {
	for _, rec := range []string{"approve", "comment", "request_changes"} {
		assert.Contains(t, RecommendationColor(rec), rec)
	}
}

func TestTable_RendersRows(t *testing.T) {
	u, out, _ := newTestUI()

	table := u.Table([]string{"Severity", "Message"})
	table.Append([]string{"high", "unchecked error"})
	table.Append([]string{"low", "typo in identifier"})
	require.NoError(t, table.Render())

	rendered := out.String()
	assert.Contains(t, rendered, "unchecked error")
	assert.Contains(t, rendered, "typo in identifier")
	assert.True(t, strings.Count(rendered, "\n") >= 3, "header plus two rows")
}
