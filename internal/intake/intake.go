// Package intake validates, authenticates, and de-duplicates inbound
// webhook events, resolving them into review subjects. Everything
// non-conforming is rejected at this boundary; nothing malformed reaches
// the scheduler.
package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
)

var (
	// ErrAuthentication means the signature did not match the configured
	// secret. The event is rejected before parsing.
	ErrAuthentication = errors.New("webhook authentication failed")
	// ErrMalformedPayload means required fields were missing or invalid.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrIgnored is the normal, silently-dropped outcome for events the
	// pipeline does not review.
	ErrIgnored = errors.New("event ignored")
)

// acceptedActions are the PR lifecycle actions that trigger a review.
var acceptedActions = map[string]bool{
	"opened":           true,
	"synchronize":      true,
	"reopened":         true,
	"ready_for_review": true,
}

// Processor validates raw webhook deliveries.
type Processor struct {
	// Secret for HMAC-SHA256 signature verification. Empty disables
	// verification.
	Secret string
	// Host tags the review subjects this processor produces.
	Host string
}

// NewProcessor creates a Processor for the given host and shared secret.
func NewProcessor(host, secret string) *Processor {
	if host == "" {
		host = "github.com"
	}
	return &Processor{Secret: secret, Host: host}
}

// Verify checks the keyed-hash signature over the raw body. The header
// carries "sha256=<hex>". With no secret configured, every delivery passes.
func (p *Processor) Verify(body []byte, signatureHeader string) error {
	if p.Secret == "" {
		return nil
	}
	expected, ok := strings.CutPrefix(signatureHeader, "sha256=")
	if !ok {
		return fmt.Errorf("%w: missing or malformed signature header", ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(p.Secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(expected)) {
		return fmt.Errorf("%w: signature mismatch", ErrAuthentication)
	}
	return nil
}

// webhookPayload is the strict structural schema parsed at the boundary.
type webhookPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Draft bool   `json:"draft"`
		State string `json:"state"`
		Head  struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository *struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// Resolve turns a validated delivery into a review subject plus the PR
// metadata the analyzer needs. eventType is the host's event name header
// (X-GitHub-Event). Non-review events and skippable PRs yield ErrIgnored;
// structural problems yield ErrMalformedPayload.
func (p *Processor) Resolve(eventType string, body []byte) (models.ReviewSubject, analyzer.PRInfo, error) {
	var none models.ReviewSubject
	var noPR analyzer.PRInfo

	if eventType != "pull_request" {
		return none, noPR, fmt.Errorf("%w: event type %q", ErrIgnored, eventType)
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return none, noPR, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !acceptedActions[payload.Action] {
		return none, noPR, fmt.Errorf("%w: action %q", ErrIgnored, payload.Action)
	}
	if payload.PullRequest == nil || payload.Repository == nil {
		return none, noPR, fmt.Errorf("%w: missing pull_request or repository", ErrMalformedPayload)
	}

	pr := payload.PullRequest
	if pr.Draft && payload.Action != "ready_for_review" {
		return none, noPR, fmt.Errorf("%w: draft PR", ErrIgnored)
	}
	if pr.State != "" && pr.State != "open" {
		return none, noPR, fmt.Errorf("%w: PR state %q", ErrIgnored, pr.State)
	}

	if payload.Number <= 0 || payload.Repository.FullName == "" || pr.Head.SHA == "" {
		return none, noPR, fmt.Errorf("%w: missing required fields", ErrMalformedPayload)
	}

	subject := models.ReviewSubject{
		Host:    p.Host,
		Repo:    payload.Repository.FullName,
		Number:  payload.Number,
		HeadSHA: pr.Head.SHA,
	}
	info := analyzer.PRInfo{
		Title:       pr.Title,
		Description: pr.Body,
		BaseBranch:  pr.Base.Ref,
		HeadBranch:  pr.Head.Ref,
	}
	return subject, info, nil
}
