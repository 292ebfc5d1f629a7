package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fitgap/internal/decisionlog/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/requestcontext"
)

// Service defines the read side of the decision log.
type Service interface {
	Query(ctx context.Context, assessmentID id.AssessmentID, filter models.Filter, cursor string, limit int) (*models.Page, error)
}

// Handler serves decision log queries.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a decision log handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts decision log endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/assessments/{assessmentID}/decision-log", h.HandleQuery)
}

// HandleQuery handles GET /assessments/{assessmentID}/decision-log.
//
// Query parameters: entityType, actorId, cursor, limit.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	q := r.URL.Query()
	filter := models.Filter{EntityType: models.EntityType(q.Get("entityType"))}
	if raw := q.Get("actorId"); raw != "" {
		actorID, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.ActorID = actorID
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
	}

	page, err := h.service.Query(ctx, assessmentID, filter, q.Get("cursor"), limit)
	if err != nil {
		h.logger.WarnContext(ctx, "decision log query failed",
			"request_id", requestID,
			"assessment_id", assessmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}
