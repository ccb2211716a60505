package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewSubject_Keys(t *testing.T) {
	s := ReviewSubject{Host: "github.com", Repo: "acme/widgets", Number: 42, HeadSHA: "abc123def456"}

	assert.Equal(t, "github.com/acme/widgets#42", s.PRKey())
	assert.Equal(t, "github.com/acme/widgets#42@abc123def456", s.Key())
	assert.Equal(t, "github.com/acme/widgets#42@abc123de", s.String())
}

func TestReviewSubject_SamePRDifferentCommit(t *testing.T) {
	a := ReviewSubject{Host: "github.com", Repo: "acme/widgets", Number: 42, HeadSHA: "aaa"}
	b := ReviewSubject{Host: "github.com", Repo: "acme/widgets", Number: 42, HeadSHA: "bbb"}

	assert.Equal(t, a.PRKey(), b.PRKey())
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("style").Valid())
	assert.False(t, Category("").Valid())
}

func TestSeverity_Rank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, SeverityLow.Rank(), SeverityInfo.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestFinding_Anchored(t *testing.T) {
	assert.True(t, Finding{Path: "main.go", Line: 10}.Anchored())
	assert.False(t, Finding{Path: "main.go"}.Anchored())
	assert.False(t, Finding{Line: 10}.Anchored())
}

func TestFinding_Overlaps(t *testing.T) {
	t.Run("different paths never overlap", func(t *testing.T) {
		a := Finding{Path: "a.go", Line: 5}
		b := Finding{Path: "b.go", Line: 5}
		assert.False(t, a.Overlaps(b))
	})

	t.Run("anchorless on same path overlaps", func(t *testing.T) {
		a := Finding{Path: "a.go"}
		b := Finding{Path: "a.go", Line: 9}
		assert.True(t, a.Overlaps(b))
		assert.True(t, b.Overlaps(a))
	})

	t.Run("ranges", func(t *testing.T) {
		a := Finding{Path: "a.go", Line: 5, EndLine: 10}
		assert.True(t, a.Overlaps(Finding{Path: "a.go", Line: 10}))
		assert.True(t, a.Overlaps(Finding{Path: "a.go", Line: 1, EndLine: 5}))
		assert.False(t, a.Overlaps(Finding{Path: "a.go", Line: 11}))
	})
}

func TestReviewResult_Histogram(t *testing.T) {
	r := &ReviewResult{Findings: []Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	}}

	h := r.Histogram()
	assert.Equal(t, 2, h[SeverityHigh])
	assert.Equal(t, 1, h[SeverityLow])
	assert.Equal(t, 0, h[SeverityCritical])
}

func TestJobState_Terminal(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCancelled.Terminal())
}
