package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scolaris/internal/dedup/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
	txcontext "scolaris/pkg/platform/tx"
)

// Postgres persists duplicate groups and their member links.
//
// The signature column carries a unique index; batch inserts lean on it with
// ON CONFLICT DO NOTHING so a concurrent scanner losing the race drops the
// colliding group instead of failing the whole batch (the in-memory signature
// set is only a fast path, the index is authoritative).
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed group store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// LoadSignatures preloads every known signature, across all statuses, so
// rescans never resurface a group the operators already have.
func (s *Postgres) LoadSignatures(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT signature FROM duplicate_groups`)
	if err != nil {
		return nil, fmt.Errorf("load signatures: %w", err)
	}
	defer rows.Close()

	signatures := make(map[string]struct{})
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		signatures[sig] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return signatures, nil
}

// InsertBatch writes a batch of detected groups and their members in one
// transaction. Groups whose signature already exists are silently dropped.
func (s *Postgres) InsertBatch(ctx context.Context, groups []models.DetectedGroup) error {
	if len(groups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, g := range groups {
		var groupID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO duplicate_groups (signature, status, detection_date, average_score)
			VALUES ($1, $2, NOW(), $3)
			ON CONFLICT (signature) DO NOTHING
			RETURNING id
		`, g.Signature, string(models.StatusDetected), g.AverageScore).Scan(&groupID)
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a signature race to another scanner; the existing group wins.
			continue
		}
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		for _, m := range g.Members {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO duplicate_group_members (group_id, student_id, reason)
				VALUES ($1, $2, $3)
			`, groupID, m.StudentID.String(), m.Reason)
			if err != nil {
				return fmt.Errorf("insert group member: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// List returns one page of groups with their members, best scores first.
// Dossier counts are filled in by the service at read time.
func (s *Postgres) List(ctx context.Context, page, limit int, status models.GroupStatus) ([]models.GroupWithMembers, int, error) {
	var total int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM duplicate_groups WHERE status = $1`, string(status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, signature, status, detection_date, average_score
		FROM duplicate_groups
		WHERE status = $1
		ORDER BY average_score DESC, id
		OFFSET $2 LIMIT $3
	`, string(status), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var (
		groups []models.GroupWithMembers
		ids    []int64
		byID   = make(map[int64]int)
	)
	for rows.Next() {
		var g models.Group
		var st string
		if err := rows.Scan(&g.ID, &g.Signature, &st, &g.DetectionDate, &g.AverageScore); err != nil {
			return nil, 0, fmt.Errorf("scan group: %w", err)
		}
		g.Status = models.GroupStatus(st)
		byID[int64(g.ID)] = len(groups)
		ids = append(ids, int64(g.ID))
		groups = append(groups, models.GroupWithMembers{Group: g})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate groups: %w", err)
	}
	if len(groups) == 0 {
		return groups, total, nil
	}

	memberRows, err := s.q(ctx).QueryContext(ctx, `
		SELECT m.group_id, m.student_id, s.nom, s.prenoms, m.reason
		FROM duplicate_group_members m
		JOIN students s ON s.id = m.student_id
		WHERE m.group_id = ANY($1)
		ORDER BY m.group_id, m.id
	`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var (
			groupID   int64
			studentID string
			detail    models.MemberDetail
		)
		if err := memberRows.Scan(&groupID, &studentID, &detail.Nom, &detail.Prenoms, &detail.Reason); err != nil {
			return nil, 0, fmt.Errorf("scan group member: %w", err)
		}
		detail.StudentID = domain.StudentID(studentID)
		pos := byID[groupID]
		groups[pos].Members = append(groups[pos].Members, detail)
	}
	if err := memberRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate group members: %w", err)
	}

	return groups, total, nil
}

// Find fetches one group or sentinel.ErrNotFound.
func (s *Postgres) Find(ctx context.Context, id domain.GroupID) (*models.Group, error) {
	var (
		g  models.Group
		st string
	)
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, signature, status, detection_date, average_score
		FROM duplicate_groups
		WHERE id = $1
	`, int64(id)).Scan(&g.ID, &g.Signature, &st, &g.DetectionDate, &g.AverageScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	g.Status = models.GroupStatus(st)
	return &g, nil
}

// UpdateStatus mutates only the status field.
func (s *Postgres) UpdateStatus(ctx context.Context, id domain.GroupID, status models.GroupStatus) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE duplicate_groups SET status = $2 WHERE id = $1`, int64(id), string(status))
	if err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
