// Package engine evaluates evidence bundles against one review category at
// a time. The Anthropic implementation sends a category-specific prompt and
// parses the structured findings it returns.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/junior/internal/models"
)

// Engine produces findings for one review category. Implementations may
// fail or time out per call; the orchestrator treats that as a stage
// failure, not a job failure.
type Engine interface {
	Evaluate(ctx context.Context, category models.Category, bundle *models.EvidenceBundle, prior []models.Finding) ([]models.Finding, error)
}

// Anthropic implements Engine using the Anthropic API.
type Anthropic struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropic creates an Anthropic engine with the given API key and model.
func NewAnthropic(apiKey, model string) *Anthropic {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// rawFinding is the engine's wire shape before category stamping and
// validation.
type rawFinding struct {
	Severity   string  `json:"severity"`
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	EndLine    int     `json:"end_line"`
	Message    string  `json:"message"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Evaluate sends the category prompt and parses the JSON findings array.
func (a *Anthropic) Evaluate(ctx context.Context, category models.Category, bundle *models.EvidenceBundle, prior []models.Finding) ([]models.Finding, error) {
	systemPrompt, userPrompt := buildPrompt(category, bundle, prior)

	msg, err := a.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	raw, err := parseFindings(text)
	if err != nil {
		return nil, err
	}
	return stamp(category, raw), nil
}

// parseFindings strips markdown fencing and unmarshals the findings array.
func parseFindings(text string) ([]rawFinding, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var raw []rawFinding
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse engine response as JSON: %w\nraw response: %s", err, text)
	}
	return raw, nil
}

// stamp converts raw findings to the domain type, dropping entries without
// a message and clamping out-of-range values.
func stamp(category models.Category, raw []rawFinding) []models.Finding {
	var findings []models.Finding
	for _, r := range raw {
		if r.Message == "" {
			continue
		}
		severity := models.Severity(r.Severity)
		if severity.Rank() == 0 {
			severity = models.SeverityInfo
		}
		confidence := r.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		findings = append(findings, models.Finding{
			Category:   category,
			Severity:   severity,
			Path:       r.Path,
			Line:       r.Line,
			EndLine:    r.EndLine,
			Message:    r.Message,
			Suggestion: r.Suggestion,
			Confidence: confidence,
		})
	}
	return findings
}
