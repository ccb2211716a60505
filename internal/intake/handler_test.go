package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/scheduler"
)

type fakeSubmitter struct {
	submitted []models.ReviewSubject
	status    scheduler.SubmitStatus
}

func (f *fakeSubmitter) Submit(_ context.Context, subject models.ReviewSubject, _ analyzer.PRInfo) (*scheduler.Handle, scheduler.SubmitStatus) {
	f.submitted = append(f.submitted, subject)
	return &scheduler.Handle{ID: "job-1", Subject: subject}, f.status
}

func postWebhook(t *testing.T, srv *Server, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleWebhook_Accepted(t *testing.T) {
	sub := &fakeSubmitter{status: scheduler.StatusStarted}
	srv := NewServer(NewProcessor("github.com", "secret"), sub)

	body := prPayload("opened")
	rec := postWebhook(t, srv, body, map[string]string{
		"X-GitHub-Event":      "pull_request",
		"X-Hub-Signature-256": sign("secret", body),
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.Equal(t, "job-1", resp["job_id"])
	assert.Equal(t, "github.com/acme/widgets#7@abc123", resp["subject"])

	require.Len(t, sub.submitted, 1)
	assert.Equal(t, "acme/widgets", sub.submitted[0].Repo)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	sub := &fakeSubmitter{status: scheduler.StatusStarted}
	srv := NewServer(NewProcessor("github.com", "secret"), sub)

	rec := postWebhook(t, srv, prPayload("opened"), map[string]string{
		"X-GitHub-Event":      "pull_request",
		"X-Hub-Signature-256": "sha256=wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sub.submitted, "rejected events must not reach the scheduler")
}

func TestHandleWebhook_IgnoredEvent(t *testing.T) {
	sub := &fakeSubmitter{}
	srv := NewServer(NewProcessor("github.com", ""), sub)

	rec := postWebhook(t, srv, prPayload("labeled"), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ignored"`)
	assert.Empty(t, sub.submitted)
}

func TestHandleWebhook_Malformed(t *testing.T) {
	sub := &fakeSubmitter{}
	srv := NewServer(NewProcessor("github.com", ""), sub)

	rec := postWebhook(t, srv, []byte("{not json"), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sub.submitted)
}

func TestHandleWebhook_DuplicateStatusPassedThrough(t *testing.T) {
	sub := &fakeSubmitter{status: scheduler.StatusDuplicate}
	srv := NewServer(NewProcessor("github.com", ""), sub)

	rec := postWebhook(t, srv, prPayload("synchronize"), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duplicate"`)
}

func TestHealthz(t *testing.T) {
	srv := NewServer(NewProcessor("github.com", ""), &fakeSubmitter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
