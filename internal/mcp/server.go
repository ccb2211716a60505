// Package mcp exposes the review history and pipeline as MCP tools so
// agent tooling can query past reviews and queue new ones.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/scheduler"
	"github.com/joescharf/junior/internal/store"
)

// Server wraps the junior data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
	sched *scheduler.Scheduler // may be nil: queue tool reports unavailable
}

// NewServer creates the MCP server wrapper. The scheduler is optional; the
// history tools work with just the store.
func NewServer(s store.Store, sched *scheduler.Scheduler) *Server {
	return &Server{store: s, sched: sched}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("junior", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.recentReviewsTool())
	srv.AddTool(s.reviewDetailTool())
	srv.AddTool(s.queueReviewTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// junior_recent_reviews
func (s *Server) recentReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("junior_recent_reviews",
		mcp.WithDescription("List recent automated PR reviews. Returns a JSON array with id, repo, PR number, commit, outcome, recommendation, and finding count."),
		mcp.WithString("repo", mcp.Description("Filter by repository (owner/name)")),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return (default 20)")),
	)
	return tool, s.handleRecentReviews
}

func (s *Server) handleRecentReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := request.GetString("repo", "")
	limit := request.GetInt("limit", 20)

	records, err := s.store.ListReviews(ctx, repo, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID             string `json:"id"`
		Repo           string `json:"repo"`
		Number         int    `json:"number"`
		HeadSHA        string `json:"head_sha"`
		Outcome        string `json:"outcome"`
		Recommendation string `json:"recommendation"`
		Findings       int    `json:"findings"`
		CreatedAt      string `json:"created_at"`
	}

	out := make([]reviewOut, len(records))
	for i, rec := range records {
		out[i] = reviewOut{
			ID:             rec.ID,
			Repo:           rec.Repo,
			Number:         rec.Number,
			HeadSHA:        rec.HeadSHA,
			Outcome:        string(rec.Outcome),
			Recommendation: string(rec.Recommendation),
			Findings:       rec.FindingCount,
			CreatedAt:      rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// junior_review_detail
func (s *Server) reviewDetailTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("junior_review_detail",
		mcp.WithDescription("Get one review's full result, including every finding with category, severity, location, and suggestion."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review record ID")),
	)
	return tool, s.handleReviewDetail
}

func (s *Server) handleReviewDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	rec, err := s.store.GetReview(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get review: %v", err)), nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// junior_queue_review
func (s *Server) queueReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("junior_queue_review",
		mcp.WithDescription("Queue an automated review for a pull request head commit. Returns the job id and submission status."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository (owner/name)")),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithString("head_sha", mcp.Required(), mcp.Description("Head commit SHA to review")),
	)
	return tool, s.handleQueueReview
}

func (s *Server) handleQueueReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.sched == nil {
		return mcp.NewToolResultError("review scheduler not available in this mode"), nil
	}

	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}
	headSHA, err := request.RequireString("head_sha")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: head_sha"), nil
	}

	subject := models.ReviewSubject{
		Host:    "github.com",
		Repo:    repo,
		Number:  number,
		HeadSHA: headSHA,
	}
	handle, status := s.sched.Submit(ctx, subject, analyzer.PRInfo{})

	data, err := json.Marshal(map[string]string{
		"job_id":  handle.ID,
		"status":  string(status),
		"subject": subject.String(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
