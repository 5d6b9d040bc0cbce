package scan

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scolaris/internal/dedup/index"
	"scolaris/internal/dedup/match"
	"scolaris/internal/dedup/metrics"
	"scolaris/internal/dedup/models"
	"scolaris/internal/platform/config"
	"scolaris/pkg/domain"
)

// GroupStore is the persistence the worker needs: the known-signature preload
// and the batched group insert.
type GroupStore interface {
	LoadSignatures(ctx context.Context) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, groups []models.DetectedGroup) error
}

// Scanner runs duplicate scans as detached background jobs.
type Scanner struct {
	students index.Source
	groups   GroupStore
	registry *Registry
	cfg      config.ScanConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewScanner wires a scanner over the student source and group store.
func NewScanner(students index.Source, groups GroupStore, registry *Registry, cfg config.ScanConfig, logger *slog.Logger, m *metrics.Metrics) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 50
	}
	return &Scanner{
		students: students,
		groups:   groups,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("scolaris/dedup/scan"),
	}
}

// Start registers a pending job and launches its worker. The worker runs on a
// background context so it outlives the HTTP request that triggered it.
func (s *Scanner) Start(ctx context.Context) domain.JobID {
	job := s.registry.Create()
	s.metrics.ScansStarted.Inc()
	s.logger.InfoContext(ctx, "duplicate scan started", "job_id", job.ID().String())

	go s.run(job)
	return job.ID()
}

func (s *Scanner) run(job *Job) {
	ctx, span := s.tracer.Start(context.Background(), "dedup.scan",
		trace.WithAttributes(attribute.String("job.id", job.ID().String())))
	defer span.End()

	start := time.Now()
	status, err := s.scan(ctx, job)
	if err != nil {
		job.fail(err)
		status = models.JobFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		s.logger.ErrorContext(ctx, "duplicate scan failed",
			"job_id", job.ID().String(), "error", err)
	} else {
		job.finish(status)
	}

	snap := job.Snapshot()
	span.SetAttributes(
		attribute.String("job.status", string(status)),
		attribute.Int("job.found", snap.Found),
	)
	s.metrics.ObserveScan(string(status), start)
	s.logger.InfoContext(ctx, "duplicate scan finished",
		"job_id", job.ID().String(),
		"status", string(status),
		"found", snap.Found,
		"total", snap.Total,
	)
}

// scan is the worker loop. It returns the terminal status for the clean
// paths; any error transitions the job to failed and drops the pending batch.
func (s *Scanner) scan(ctx context.Context, job *Job) (models.JobStatus, error) {
	idx, err := index.Build(ctx, s.students, s.cfg.PageSize)
	if err != nil {
		return "", err
	}
	signatures, err := s.groups.LoadSignatures(ctx)
	if err != nil {
		return "", err
	}

	job.markProcessing(len(idx.Records))

	consumed := make([]bool, len(idx.Records))
	var pending []models.DetectedGroup

	commit := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.groups.InsertBatch(ctx, pending); err != nil {
			return err
		}
		pending = nil
		job.clearBuffer()
		return nil
	}

	for pos := range idx.Records {
		if job.stopRequested() {
			if err := commit(); err != nil {
				return "", err
			}
			return models.JobStopped, nil
		}
		if pos%s.cfg.ProgressEvery == 0 {
			job.refreshProgress(pos)
		}
		if consumed[pos] {
			continue
		}

		candidates := match.Collect(idx, pos, consumed)
		if len(candidates) == 0 {
			continue
		}

		group, snapshot, err := assemble(idx, pos, candidates)
		if err != nil {
			return "", err
		}
		if _, known := signatures[group.Signature]; known {
			continue
		}
		signatures[group.Signature] = struct{}{}

		consumed[pos] = true
		for _, c := range candidates {
			consumed[c.Pos] = true
		}

		job.recordFound(snapshot)
		s.metrics.GroupsFound.Inc()
		pending = append(pending, group)

		if len(pending) >= s.cfg.BatchSize {
			if err := commit(); err != nil {
				return "", err
			}
			select {
			case <-time.After(s.cfg.BatchPause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	if err := commit(); err != nil {
		return "", err
	}
	return models.JobCompleted, nil
}

// assemble turns a reference record and its candidates into the persistable
// group plus the UI snapshot. The reference is always the first member.
func assemble(idx *index.Index, pos int, candidates []match.Candidate) (models.DetectedGroup, models.GroupSnapshot, error) {
	ref := idx.Records[pos]

	members := make([]models.Member, 0, len(candidates)+1)
	snaps := make([]models.MemberSnapshot, 0, len(candidates)+1)
	ids := make([]domain.StudentID, 0, len(candidates)+1)

	members = append(members, models.Member{StudentID: ref.ID, Reason: match.ReasonReference})
	snaps = append(snaps, models.MemberSnapshot{
		StudentID: ref.ID, Nom: ref.Nom, Prenoms: ref.Prenoms, Reason: match.ReasonReference,
	})
	ids = append(ids, ref.ID)

	for _, c := range candidates {
		rec := idx.Records[c.Pos]
		members = append(members, models.Member{StudentID: rec.ID, Reason: c.Reason, Score: c.Score})
		snaps = append(snaps, models.MemberSnapshot{
			StudentID: rec.ID, Nom: rec.Nom, Prenoms: rec.Prenoms, Reason: c.Reason,
		})
		ids = append(ids, rec.ID)
	}

	group, err := models.NewDetectedGroup(match.Signature(ids), match.AverageScore(candidates), members)
	if err != nil {
		return models.DetectedGroup{}, models.GroupSnapshot{}, err
	}
	snapshot := models.GroupSnapshot{
		Signature:    group.Signature,
		AverageScore: group.AverageScore,
		Members:      snaps,
	}
	return group, snapshot, nil
}
