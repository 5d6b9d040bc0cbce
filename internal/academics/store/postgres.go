package store

import (
	"context"
	"database/sql"
	"fmt"

	"scolaris/internal/academics/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
	txcontext "scolaris/pkg/platform/tx"
)

// Postgres persists the academic-history ladder. Every mutation here is
// issued by the merge engine inside its transaction, so all statements go
// through the context-aware querier.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed academics store.
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

// ListDossiersByStudent returns the student's dossiers in creation order.
func (s *Postgres) ListDossiersByStudent(ctx context.Context, studentID domain.StudentID) ([]models.Dossier, error) {
	query := `
		SELECT id, student_id, mention_id, created_at
		FROM dossiers
		WHERE student_id = $1
		ORDER BY id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()

	var dossiers []models.Dossier
	for rows.Next() {
		var (
			d   models.Dossier
			sid string
		)
		if err := rows.Scan(&d.ID, &sid, &d.MentionID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		d.StudentID = domain.StudentID(sid)
		dossiers = append(dossiers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dossiers: %w", err)
	}
	return dossiers, nil
}

// CountDossiersByStudent powers the per-member dossier count in group listings.
func (s *Postgres) CountDossiersByStudent(ctx context.Context, studentID domain.StudentID) (int, error) {
	var count int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dossiers WHERE student_id = $1`, studentID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count dossiers: %w", err)
	}
	return count, nil
}

// UpdateDossierStudent reparents a dossier onto another student.
func (s *Postgres) UpdateDossierStudent(ctx context.Context, dossierID int64, studentID domain.StudentID) error {
	return s.exec(ctx, `UPDATE dossiers SET student_id = $2 WHERE id = $1`, dossierID, studentID.String())
}

// DeleteDossier removes an emptied dossier.
func (s *Postgres) DeleteDossier(ctx context.Context, dossierID int64) error {
	return s.exec(ctx, `DELETE FROM dossiers WHERE id = $1`, dossierID)
}

// ListRegistrationsByDossier returns the yearly registrations of a dossier.
func (s *Postgres) ListRegistrationsByDossier(ctx context.Context, dossierID int64) ([]models.Registration, error) {
	query := `
		SELECT id, dossier_id, annee_univ, parcours_id, niveau_id, regime_id
		FROM registrations
		WHERE dossier_id = $1
		ORDER BY id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, dossierID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		var r models.Registration
		if err := rows.Scan(&r.ID, &r.DossierID, &r.AnneeUniv, &r.ParcoursID, &r.NiveauID, &r.RegimeID); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

// UpdateRegistrationDossier reparents a yearly registration onto another dossier.
func (s *Postgres) UpdateRegistrationDossier(ctx context.Context, registrationID, dossierID int64) error {
	return s.exec(ctx, `UPDATE registrations SET dossier_id = $2 WHERE id = $1`, registrationID, dossierID)
}

// DeleteRegistration removes an emptied yearly registration.
func (s *Postgres) DeleteRegistration(ctx context.Context, registrationID int64) error {
	return s.exec(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID)
}

// ListSemesterRegistrations returns the semester rows under a registration.
func (s *Postgres) ListSemesterRegistrations(ctx context.Context, registrationID int64) ([]models.SemesterRegistration, error) {
	query := `
		SELECT id, registration_id, semestre_id, statut
		FROM semester_registrations
		WHERE registration_id = $1
		ORDER BY id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("list semester registrations: %w", err)
	}
	defer rows.Close()

	var sems []models.SemesterRegistration
	for rows.Next() {
		var sr models.SemesterRegistration
		if err := rows.Scan(&sr.ID, &sr.RegistrationID, &sr.SemestreID, &sr.Statut); err != nil {
			return nil, fmt.Errorf("scan semester registration: %w", err)
		}
		sems = append(sems, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semester registrations: %w", err)
	}
	return sems, nil
}

// UpdateSemesterRegistrationParent reparents a semester row onto another registration.
func (s *Postgres) UpdateSemesterRegistrationParent(ctx context.Context, semesterRegistrationID, registrationID int64) error {
	return s.exec(ctx, `UPDATE semester_registrations SET registration_id = $2 WHERE id = $1`,
		semesterRegistrationID, registrationID)
}

// DeleteSemesterRegistration discards a semester row superseded by the master side.
func (s *Postgres) DeleteSemesterRegistration(ctx context.Context, semesterRegistrationID int64) error {
	return s.exec(ctx, `DELETE FROM semester_registrations WHERE id = $1`, semesterRegistrationID)
}

// DeleteCreditTrackingByStudent removes every credit-tracking row a student owns.
func (s *Postgres) DeleteCreditTrackingByStudent(ctx context.Context, studentID domain.StudentID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM credit_trackings WHERE student_id = $1`, studentID.String())
	if err != nil {
		return fmt.Errorf("delete credit trackings: %w", err)
	}
	return nil
}

func (s *Postgres) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec academics mutation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
