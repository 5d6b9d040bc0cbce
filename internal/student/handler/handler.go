// Package handler exposes the student read endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"scolaris/internal/platform/middleware"
	"scolaris/internal/student/models"
	"scolaris/internal/student/service"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/platform/httputil"
	"scolaris/pkg/requestcontext"
)

// Service is the student read surface the handler needs.
type Service interface {
	List(ctx context.Context, page, limit int) (*service.Page, error)
	Get(ctx context.Context, id domain.StudentID) (*models.Student, error)
}

// Handler handles the student endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.JWTValidator
}

// New creates a student Handler.
func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, service: svc, jwtValidator: jwtValidator}
}

// Register mounts the student routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Get("/", h.handleList)
	router.Get("/{studentID}", h.handleGet)

	r.Mount("/api/v1/students", router)
}

type studentResponse struct {
	ID             string  `json:"id"`
	Nom            string  `json:"nom"`
	Prenoms        string  `json:"prenoms"`
	CIN            string  `json:"cin,omitempty"`
	DateNaissance  *string `json:"date_naissance,omitempty"`
	AnneeNaissance *int    `json:"annee_naissance,omitempty"`
}

type studentPageResponse struct {
	Students []studentResponse `json:"students"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
}

func toStudentResponse(s models.Student) studentResponse {
	resp := studentResponse{
		ID:             s.ID.String(),
		Nom:            s.Nom,
		Prenoms:        s.Prenoms,
		CIN:            s.CIN,
		AnneeNaissance: s.AnneeNaissance,
	}
	if s.DateNaissance != nil {
		formatted := s.DateNaissance.Format(time.DateOnly)
		resp.DateNaissance = &formatted
	}
	return resp
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.service.List(ctx, page, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list students failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := studentPageResponse{Students: []studentResponse{}, Total: result.Total, Page: result.Page}
	for _, s := range result.Students {
		resp.Students = append(resp.Students, toStudentResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseStudentID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	student, err := h.service.Get(ctx, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "get student failed",
				"request_id", requestcontext.RequestID(ctx),
				"student_id", id.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStudentResponse(*student))
}
