package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fitgap/internal/platform/middleware"
	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/requestcontext"
)

// Roles allowed on each sign-off route. Admin may act in every role.
var (
	StartRoles     = []string{"executive", "admin"}
	ExecutiveRoles = []string{"executive", "admin"}
	PartnerRoles   = []string{"partner", "admin"}
	AreaRoles      = []string{"validator", "consultant", "admin"}
)

// Service defines the interface for sign-off operations.
type Service interface {
	Start(ctx context.Context, assessmentID id.AssessmentID, snapshotID id.SnapshotID) (*models.StartResult, error)
	SubmitAreaValidation(ctx context.Context, signOffID id.SignOffID, area string, req models.AreaValidationRequest) (*models.AreaSubmission, error)
	SignExecutive(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest) (*models.SignatureRecord, error)
	SignPartner(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest) (*models.SignatureRecord, error)
	Get(ctx context.Context, signOffID id.SignOffID) (*models.View, error)
	GetByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.View, error)
	VerifyToken(ctx context.Context, signOffID id.SignOffID, token string) (bool, error)
}

// Handler wires sign-off endpoints to the sign-off service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a sign-off handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts sign-off endpoints on the router. The router must already
// establish the actor.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(StartRoles...)).Post("/assessments/{assessmentID}/sign-off", h.HandleStart)
	r.Get("/assessments/{assessmentID}/sign-off", h.HandleGetByAssessment)
	r.Get("/sign-offs/{signOffID}", h.HandleGet)
	r.Post("/sign-offs/{signOffID}/verify", h.HandleVerifyToken)
	r.With(middleware.RequireRole(AreaRoles...)).Post("/sign-offs/{signOffID}/areas/{area}", h.HandleSubmitArea)
	r.With(middleware.RequireRole(ExecutiveRoles...)).Post("/sign-offs/{signOffID}/executive", h.HandleSignExecutive)
	r.With(middleware.RequireRole(PartnerRoles...)).Post("/sign-offs/{signOffID}/partner", h.HandleSignPartner)
}

// HandleStart handles POST /assessments/{assessmentID}/sign-off.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[models.StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	snapshotID, err := id.ParseSnapshotID(req.SnapshotID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Start(ctx, assessmentID, snapshotID)
	if err != nil {
		h.logger.ErrorContext(ctx, "sign-off initiation failed",
			"request_id", requestID,
			"assessment_id", assessmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sign-off initiated",
		"request_id", requestID,
		"assessment_id", assessmentID,
		"sign_off_id", result.Process.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleGet handles GET /sign-offs/{signOffID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	signOffID, err := id.ParseSignOffID(chi.URLParam(r, "signOffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.Get(ctx, signOffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleGetByAssessment handles GET /assessments/{assessmentID}/sign-off.
func (h *Handler) HandleGetByAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.GetByAssessment(ctx, assessmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleVerifyToken handles POST /sign-offs/{signOffID}/verify.
func (h *Handler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	signOffID, err := id.ParseSignOffID(chi.URLParam(r, "signOffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.VerifyTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	valid, err := h.service.VerifyToken(ctx, signOffID, req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !valid {
		h.logger.WarnContext(ctx, "verification token mismatch",
			"request_id", requestID,
			"sign_off_id", signOffID,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// HandleSubmitArea handles POST /sign-offs/{signOffID}/areas/{area}.
func (h *Handler) HandleSubmitArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	signOffID, err := id.ParseSignOffID(chi.URLParam(r, "signOffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	area := chi.URLParam(r, "area")

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[models.AreaValidationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitAreaValidation(ctx, signOffID, area, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "area validation failed",
			"request_id", requestID,
			"sign_off_id", signOffID,
			"area", area,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "area validation recorded",
		"request_id", requestID,
		"sign_off_id", signOffID,
		"area", result.Validation.FunctionalArea,
		"area_status", result.Validation.Status,
		"status", result.Process.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSignExecutive handles POST /sign-offs/{signOffID}/executive.
func (h *Handler) HandleSignExecutive(w http.ResponseWriter, r *http.Request) {
	h.handleSign(w, r, "executive", h.service.SignExecutive)
}

// HandleSignPartner handles POST /sign-offs/{signOffID}/partner.
func (h *Handler) HandleSignPartner(w http.ResponseWriter, r *http.Request) {
	h.handleSign(w, r, "partner", h.service.SignPartner)
}

type signFunc func(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest) (*models.SignatureRecord, error)

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request, kind string, sign signFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	signOffID, err := id.ParseSignOffID(chi.URLParam(r, "signOffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[models.AttestationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := sign(ctx, signOffID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, kind+" signature failed",
			"request_id", requestID,
			"sign_off_id", signOffID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, kind+" signature recorded",
		"request_id", requestID,
		"sign_off_id", signOffID,
		"signature_id", record.ID,
		"document_hash", record.DocumentHash,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}
