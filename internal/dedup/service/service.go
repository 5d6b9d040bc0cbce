// Package service coordinates the duplicate workflow: scan lifecycle, group
// review, and confirmed merges. It translates store sentinels into coded
// domain errors and emits the operator audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scolaris/internal/audit"
	"scolaris/internal/dedup/merge"
	"scolaris/internal/dedup/metrics"
	"scolaris/internal/dedup/models"
	"scolaris/internal/dedup/scan"
	"scolaris/internal/dedup/store/dossiercache"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/platform/sentinel"
	"scolaris/pkg/requestcontext"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// GroupStore is the read/review surface of the group store.
type GroupStore interface {
	List(ctx context.Context, page, limit int, status models.GroupStatus) ([]models.GroupWithMembers, int, error)
	Find(ctx context.Context, id domain.GroupID) (*models.Group, error)
	UpdateStatus(ctx context.Context, id domain.GroupID, status models.GroupStatus) error
}

// Merger executes a confirmed merge. Satisfied by *merge.Engine.
type Merger interface {
	Merge(ctx context.Context, req merge.Request) error
}

// Service is the duplicate-workflow facade the HTTP handler talks to.
type Service struct {
	scanner  *scan.Scanner
	registry *scan.Registry
	groups   GroupStore
	counts   *dossiercache.Cache
	merger   Merger
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAuditor replaces the default no-op audit publisher.
func WithAuditor(p audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// New wires the duplicate service.
func New(scanner *scan.Scanner, registry *scan.Registry, groups GroupStore, counts *dossiercache.Cache, merger Merger, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		scanner:  scanner,
		registry: registry,
		groups:   groups,
		counts:   counts,
		merger:   merger,
		auditor:  audit.Nop{},
		metrics:  m,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartScan launches a background scan and returns its job id.
func (s *Service) StartScan(ctx context.Context) domain.JobID {
	jobID := s.scanner.Start(ctx)
	s.emit(ctx, audit.ActionScanStarted, map[string]any{"job_id": jobID.String()})
	return jobID
}

// StopScan requests cooperative cancellation. Stopping a job that already
// finished is acknowledged; an unknown id is a not-found error.
func (s *Service) StopScan(ctx context.Context, jobID domain.JobID) error {
	job := s.registry.Find(jobID)
	if job == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "scan job %s not found", jobID)
	}
	job.RequestStop()
	s.emit(ctx, audit.ActionScanStopped, map[string]any{"job_id": jobID.String()})
	return nil
}

// ScanStatus returns the job snapshot; unknown ids report status "unknown"
// rather than an error, so pollers survive janitor eviction.
func (s *Service) ScanStatus(_ context.Context, jobID domain.JobID) models.JobSnapshot {
	job := s.registry.Find(jobID)
	if job == nil {
		return models.JobSnapshot{ID: jobID, Status: models.JobUnknown}
	}
	return job.Snapshot()
}

// ListGroups pages the groups in the given status, best scores first, with
// each member decorated with its dossier count.
func (s *Service) ListGroups(ctx context.Context, page, limit int, status models.GroupStatus) (*models.GroupPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	groups, total, err := s.groups.List(ctx, page, limit, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list duplicate groups")
	}

	for gi := range groups {
		for mi := range groups[gi].Members {
			count, err := s.counts.Count(ctx, groups[gi].Members[mi].StudentID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count member dossiers")
			}
			groups[gi].Members[mi].DossierCount = count
		}
	}

	pageCount := (total + limit - 1) / limit
	return &models.GroupPage{Groups: groups, Total: total, Page: page, PageCount: pageCount}, nil
}

// GroupAction applies an operator review action and returns the updated
// group. Resolved groups are closed for review.
func (s *Service) GroupAction(ctx context.Context, groupID domain.GroupID, action models.GroupAction) (*models.Group, error) {
	status, err := action.StatusFor()
	if err != nil {
		return nil, err
	}

	group, err := s.groups.Find(ctx, groupID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "duplicate group %d not found", groupID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find duplicate group")
	}
	if group.Status == models.StatusResolved {
		return nil, dErrors.Newf(dErrors.CodeConflict, "duplicate group %d is already resolved", groupID)
	}

	if err := s.groups.UpdateStatus(ctx, groupID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "duplicate group %d not found", groupID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update duplicate group status")
	}
	group.Status = status

	s.emit(ctx, audit.ActionGroupUpdated, map[string]any{
		"group_id": int64(groupID),
		"action":   string(action),
		"status":   string(status),
	})
	return group, nil
}

// Merge runs the transactional merge and, on success, invalidates the
// master's cached dossier count (the relocated dossiers changed it).
func (s *Service) Merge(ctx context.Context, req merge.Request) error {
	start := time.Now()
	if err := s.merger.Merge(ctx, req); err != nil {
		s.metrics.ObserveMerge("failure", len(req.SlaveIDs), start)
		return err
	}
	s.metrics.ObserveMerge("success", len(req.SlaveIDs), start)
	s.counts.Invalidate(ctx, req.MasterID)

	slaves := make([]string, len(req.SlaveIDs))
	for i, id := range req.SlaveIDs {
		slaves[i] = id.String()
	}
	details := map[string]any{
		"master_id": req.MasterID.String(),
		"slave_ids": slaves,
	}
	if req.GroupID != nil {
		details["group_id"] = int64(*req.GroupID)
	}
	s.emit(ctx, audit.ActionMerge, details)
	return nil
}

func (s *Service) emit(ctx context.Context, action string, details map[string]any) {
	s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   requestcontext.ActorID(ctx),
		Action:    action,
		RequestID: requestcontext.RequestID(ctx),
		Details:   details,
	})
}
