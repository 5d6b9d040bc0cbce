// Package handler exposes the duplicate workflow over HTTP: scan control,
// group review, and merge execution.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scolaris/internal/dedup/merge"
	"scolaris/internal/dedup/models"
	"scolaris/internal/platform/middleware"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/platform/httputil"
	"scolaris/pkg/requestcontext"
)

// Service is the duplicate-workflow surface the handler needs.
type Service interface {
	StartScan(ctx context.Context) domain.JobID
	StopScan(ctx context.Context, jobID domain.JobID) error
	ScanStatus(ctx context.Context, jobID domain.JobID) models.JobSnapshot
	ListGroups(ctx context.Context, page, limit int, status models.GroupStatus) (*models.GroupPage, error)
	GroupAction(ctx context.Context, groupID domain.GroupID, action models.GroupAction) (*models.Group, error)
	Merge(ctx context.Context, req merge.Request) error
}

// Handler handles the duplicates endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.JWTValidator
}

// New creates a duplicates Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the duplicates routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Post("/scan", h.handleStartScan)
	router.Post("/scan/{jobID}/stop", h.handleStopScan)
	router.Get("/scan/{jobID}", h.handleScanStatus)
	router.Get("/groups", h.handleListGroups)
	router.Post("/groups/{groupID}/action", h.handleGroupAction)
	router.Post("/merge", h.handleMerge)

	r.Mount("/api/v1/duplicates", router)
}

func (h *Handler) handleStartScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := h.service.StartScan(ctx)
	httputil.WriteJSON(w, http.StatusAccepted, jobResponse{JobID: jobID.String()})
}

func (h *Handler) handleStopScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := domain.JobID(chi.URLParam(r, "jobID"))

	if err := h.service.StopScan(ctx, jobID); err != nil {
		h.logger.WarnContext(ctx, "scan stop rejected",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, jobResponse{JobID: jobID.String()})
}

func (h *Handler) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := domain.JobID(chi.URLParam(r, "jobID"))

	snap := h.service.ScanStatus(ctx, jobID)
	httputil.WriteJSON(w, http.StatusOK, toJobStatusResponse(snap))
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	status := models.StatusDetected
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseGroupStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		status = parsed
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)

	result, err := h.service.ListGroups(ctx, page, limit, status)
	if err != nil {
		h.logger.ErrorContext(ctx, "list groups failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGroupPageResponse(result))
}

func (h *Handler) handleGroupAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "group id must be an integer"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	group, err := h.service.GroupAction(ctx, domain.GroupID(groupID), models.GroupAction(req.Action))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "group action failed",
				"request_id", requestID,
				"group_id", groupID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGroupResponse(*group))
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MergeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Merge(ctx, req.ToEngineRequest()); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "merge failed",
				"request_id", requestID,
				"master_id", req.MasterID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mergeResponse{
		MasterID:    req.MasterID,
		MergedCount: len(req.SlaveIDs),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
