package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/requestcontext"
)

// Service computes or fetches snapshot comparisons.
type Service interface {
	Compare(ctx context.Context, baseID, compareID id.SnapshotID, refresh bool) (*models.Comparison, error)
}

// Handler serves snapshot comparisons.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a comparison handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts comparison endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/snapshots/{baseID}/compare/{compareID}", h.HandleCompare)
}

// HandleCompare handles GET /snapshots/{baseID}/compare/{compareID}?refresh=true.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	baseID, err := id.ParseSnapshotID(chi.URLParam(r, "baseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	compareID, err := id.ParseSnapshotID(chi.URLParam(r, "compareID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "refresh must be a boolean"))
			return
		}
	}

	comparison, err := h.service.Compare(ctx, baseID, compareID, refresh)
	if err != nil {
		h.logger.WarnContext(ctx, "snapshot comparison failed",
			"request_id", requestID,
			"base_snapshot_id", baseID,
			"compare_snapshot_id", compareID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "snapshot comparison served",
		"request_id", requestID,
		"base_snapshot_id", baseID,
		"compare_snapshot_id", compareID,
		"total_changes", comparison.Summary.TotalChanges,
		"refresh", refresh,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, comparison)
}
