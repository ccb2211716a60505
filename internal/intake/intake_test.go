package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func prPayload(action string, mutate ...func(map[string]any)) []byte {
	payload := map[string]any{
		"action": action,
		"number": 7,
		"pull_request": map[string]any{
			"title": "Add retries",
			"body":  "Fixes #12",
			"draft": false,
			"state": "open",
			"head":  map[string]any{"sha": "abc123", "ref": "feature/retries"},
			"base":  map[string]any{"sha": "def456", "ref": "main"},
		},
		"repository": map[string]any{"full_name": "acme/widgets"},
	}
	for _, m := range mutate {
		m(payload)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return data
}

func TestVerify(t *testing.T) {
	body := []byte(`{"action":"opened"}`)

	t.Run("valid signature", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		assert.NoError(t, p.Verify(body, sign("topsecret", body)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		err := p.Verify(body, sign("other", body))
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("missing header", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		err := p.Verify(body, "")
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("malformed header", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		err := p.Verify(body, "sha1=deadbeef")
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("tampered body", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		sig := sign("topsecret", body)
		err := p.Verify([]byte(`{"action":"closed"}`), sig)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("no secret disables verification", func(t *testing.T) {
		p := NewProcessor("", "")
		assert.NoError(t, p.Verify(body, ""))
		assert.NoError(t, p.Verify(body, "sha256=bogus"))
	})

	// Authentication rejects a bad signature even when the payload itself
	// is well formed, and never parses it first.
	t.Run("valid payload with bad signature still rejected", func(t *testing.T) {
		p := NewProcessor("", "topsecret")
		err := p.Verify(prPayload("opened"), "sha256=0000")
		assert.ErrorIs(t, err, ErrAuthentication)
	})
}

func TestResolve_AcceptedActions(t *testing.T) {
	p := NewProcessor("github.com", "")
	for _, action := range []string{"opened", "synchronize", "reopened", "ready_for_review"} {
		t.Run(action, func(t *testing.T) {
			body := prPayload(action)
			if action == "ready_for_review" {
				body = prPayload(action, func(m map[string]any) {
					m["pull_request"].(map[string]any)["draft"] = true
				})
			}
			subject, pr, err := p.Resolve("pull_request", body)
			require.NoError(t, err)

			assert.Equal(t, "github.com", subject.Host)
			assert.Equal(t, "acme/widgets", subject.Repo)
			assert.Equal(t, 7, subject.Number)
			assert.Equal(t, "abc123", subject.HeadSHA)
			assert.Equal(t, "Add retries", pr.Title)
			assert.Equal(t, "main", pr.BaseBranch)
			assert.Equal(t, "feature/retries", pr.HeadBranch)
		})
	}
}

func TestResolve_Ignored(t *testing.T) {
	p := NewProcessor("github.com", "")

	tests := []struct {
		name      string
		eventType string
		body      []byte
	}{
		{"non pull_request event", "push", prPayload("opened")},
		{"unaccepted action", "pull_request", prPayload("labeled")},
		{"closed action", "pull_request", prPayload("closed")},
		{"draft PR", "pull_request", prPayload("opened", func(m map[string]any) {
			m["pull_request"].(map[string]any)["draft"] = true
		})},
		{"non-open state", "pull_request", prPayload("synchronize", func(m map[string]any) {
			m["pull_request"].(map[string]any)["state"] = "closed"
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Resolve(tt.eventType, tt.body)
			assert.ErrorIs(t, err, ErrIgnored)
		})
	}
}

func TestResolve_Malformed(t *testing.T) {
	p := NewProcessor("github.com", "")

	tests := []struct {
		name string
		body []byte
	}{
		{"not JSON", []byte("{nope")},
		{"missing pull_request", []byte(`{"action":"opened","number":7,"repository":{"full_name":"a/b"}}`)},
		{"missing repository", []byte(`{"action":"opened","number":7,"pull_request":{"head":{"sha":"x"}}}`)},
		{"missing head sha", prPayload("opened", func(m map[string]any) {
			m["pull_request"].(map[string]any)["head"] = map[string]any{"sha": ""}
		})},
		{"zero number", prPayload("opened", func(m map[string]any) {
			m["number"] = 0
		})},
		{"empty repo name", prPayload("opened", func(m map[string]any) {
			m["repository"].(map[string]any)["full_name"] = ""
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Resolve("pull_request", tt.body)
			assert.ErrorIs(t, err, ErrMalformedPayload, fmt.Sprintf("%v", err))
		})
	}
}

func TestNewProcessor_DefaultHost(t *testing.T) {
	assert.Equal(t, "github.com", NewProcessor("", "s").Host)
	assert.Equal(t, "git.internal", NewProcessor("git.internal", "s").Host)
}
