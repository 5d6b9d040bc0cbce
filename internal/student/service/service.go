// Package service exposes the student read operations the operator UI uses
// to inspect duplicate-group members.
package service

import (
	"context"
	"errors"
	"log/slog"

	"scolaris/internal/student/models"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/platform/sentinel"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Store is the student persistence the service needs.
type Store interface {
	ListPage(ctx context.Context, offset, limit int) ([]models.Student, error)
	Count(ctx context.Context) (int, error)
	FindByID(ctx context.Context, id domain.StudentID) (*models.Student, error)
}

// Page is one page of the student listing.
type Page struct {
	Students []models.Student
	Total    int
	Page     int
}

// Service provides read access to students.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New creates a student Service.
func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns one page of students in stable id order.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	students, err := s.store.ListPage(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list students")
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count students")
	}
	return &Page{Students: students, Total: total, Page: page}, nil
}

// Get fetches one student.
func (s *Service) Get(ctx context.Context, id domain.StudentID) (*models.Student, error) {
	student, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "student %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find student")
	}
	return student, nil
}
