package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fitgap/internal/signatory/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/requestcontext"
)

// Service records assessment signatories.
type Service interface {
	Record(ctx context.Context, assessmentID id.AssessmentID, req models.RecordRequest) (*models.Roster, error)
	Roster(ctx context.Context, assessmentID id.AssessmentID) (*models.Roster, error)
}

// Handler serves the signatory roster.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a signatory handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts signatory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assessments/{assessmentID}/signatories", h.HandleRecord)
	r.Get("/assessments/{assessmentID}/signatories", h.HandleRoster)
}

// HandleRecord handles POST /assessments/{assessmentID}/signatories.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[models.RecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	roster, err := h.service.Record(ctx, assessmentID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record signatory",
			"request_id", requestID,
			"assessment_id", assessmentID,
			"role", req.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "signatory recorded",
		"request_id", requestID,
		"assessment_id", assessmentID,
		"role", req.Role,
		"roster_complete", roster.Complete,
	)
	httputil.WriteJSON(w, http.StatusCreated, roster)
}

// HandleRoster handles GET /assessments/{assessmentID}/signatories.
func (h *Handler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	roster, err := h.service.Roster(r.Context(), assessmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roster)
}
