// Package handler exposes the verification engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
	dErrors "veriterra/pkg/domain-errors"
	"veriterra/pkg/platform/httputil"
)

// Service defines the session operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, projectID id.ProjectID, evidence []models.RawEvidence) (*models.Verdict, error)
	Reopen(ctx context.Context, projectID id.ProjectID, reason string) error
	State(ctx context.Context, projectID id.ProjectID) (models.SessionState, error)
	History(ctx context.Context, projectID id.ProjectID) ([]models.Verdict, error)
	Latest(ctx context.Context, projectID id.ProjectID) (*models.Verdict, error)
}

// Handler wires verification endpoints to the session service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Post("/submissions", h.HandleSubmit)
		r.Post("/reopen", h.HandleReopen)
		r.Get("/session", h.HandleState)
		r.Get("/verdicts", h.HandleHistory)
		r.Get("/verdicts/latest", h.HandleLatest)
	})
}

func projectIDFrom(r *http.Request) (id.ProjectID, error) {
	return id.ParseProjectID(chi.URLParam(r, "projectID"))
}

// HandleSubmit handles POST /projects/{projectID}/submissions.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	start := time.Now()

	projectID, err := projectIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict, err := h.service.Submit(ctx, projectID, req.Records())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			// Another run holds the project; the caller should retry
			// after it completes.
			w.Header().Set("Retry-After", "5")
		}
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", requestID,
			"project_id", projectID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "submission evaluated",
		"request_id", requestID,
		"project_id", projectID.String(),
		"overall_status", string(verdict.OverallStatus),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromVerdict(verdict))
}

// HandleReopen handles POST /projects/{projectID}/reopen.
func (h *Handler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	projectID, err := projectIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReopenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Reopen(ctx, projectID, req.Reason); err != nil {
		h.logger.WarnContext(ctx, "reopen refused",
			"request_id", requestID,
			"project_id", projectID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReopenResponse{
		ProjectID: projectID.String(),
		State:     string(models.SessionPending),
	})
}

// HandleState handles GET /projects/{projectID}/session.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.service.State(r.Context(), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SessionStateResponse{
		ProjectID: projectID.String(),
		State:     string(state),
	})
}

// HandleHistory handles GET /projects/{projectID}/verdicts.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	history, err := h.service.History(r.Context(), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := HistoryResponse{
		ProjectID: projectID.String(),
		Verdicts:  make([]VerdictResponse, 0, len(history)),
	}
	for i := range history {
		resp.Verdicts = append(resp.Verdicts, FromVerdict(&history[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleLatest handles GET /projects/{projectID}/verdicts/latest.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	latest, err := h.service.Latest(r.Context(), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerdict(latest))
}
