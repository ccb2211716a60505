package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/scheduler"
)

// maxBodyBytes caps webhook bodies; GitHub's own limit is 25 MB.
const maxBodyBytes = 25 << 20

// Submitter hands validated subjects to the job scheduler.
type Submitter interface {
	Submit(ctx context.Context, subject models.ReviewSubject, pr analyzer.PRInfo) (*scheduler.Handle, scheduler.SubmitStatus)
}

// Server is the webhook HTTP surface.
type Server struct {
	processor *Processor
	submitter Submitter
}

// NewServer creates the webhook server.
func NewServer(p *Processor, s Submitter) *Server {
	return &Server{processor: p, submitter: s}
}

// Router returns the webhook routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook runs the intake gates in order: authenticity, event type
// and action, payload schema. Intake-level rejections never reach the
// scheduler.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if err := s.processor.Verify(body, r.Header.Get("X-Hub-Signature-256")); err != nil {
		slog.Warn("webhook rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	subject, pr, err := s.processor.Resolve(r.Header.Get("X-GitHub-Event"), body)
	if err != nil {
		switch {
		case errors.Is(err, ErrIgnored):
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		case errors.Is(err, ErrMalformedPayload):
			slog.Warn("webhook rejected", "error", err)
			writeError(w, http.StatusBadRequest, "malformed payload")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	handle, status := s.submitter.Submit(r.Context(), subject, pr)
	slog.Info("webhook accepted",
		"subject", subject.String(),
		"status", status,
		"job", handle.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  string(status),
		"job_id":  handle.ID,
		"subject": subject.String(),
	})
}
