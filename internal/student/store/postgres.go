package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scolaris/internal/student/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
	txcontext "scolaris/pkg/platform/tx"
)

// Postgres persists students. Reads and writes issued during a merge pick up
// the transaction from context.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed student store.
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

const studentColumns = `id, nom, prenoms, cin, date_naissance, annee_naissance, created_at`

// ListPage returns one page of students in stable id order.
func (s *Postgres) ListPage(ctx context.Context, offset, limit int) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY id OFFSET $1 LIMIT $2`
	rows, err := s.q(ctx).QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	return scanStudents(rows)
}

// Count returns the total number of students.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// FindByID fetches one student or sentinel.ErrNotFound.
func (s *Postgres) FindByID(ctx context.Context, id domain.StudentID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	row := s.q(ctx).QueryRowContext(ctx, query, id.String())

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return student, nil
}

// Update rewrites the mutable identity fields of a student.
func (s *Postgres) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET nom = $2, prenoms = $3, cin = $4, date_naissance = $5, annee_naissance = $6
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		student.ID.String(),
		student.Nom,
		student.Prenoms,
		student.CIN,
		student.DateNaissance,
		student.AnneeNaissance,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a student. Only the merge engine calls this, inside its
// transaction, after the student's academic history has been relocated.
func (s *Postgres) Delete(ctx context.Context, id domain.StudentID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		student models.Student
		id      string
	)
	err := row.Scan(
		&id,
		&student.Nom,
		&student.Prenoms,
		&student.CIN,
		&student.DateNaissance,
		&student.AnneeNaissance,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	student.ID = domain.StudentID(id)
	return &student, nil
}

func scanStudents(rows *sql.Rows) ([]models.Student, error) {
	var students []models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}
