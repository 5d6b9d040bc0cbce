// Package merge executes the operator-confirmed merge of duplicate students:
// one transactional rewrite that relocates the academic-history ladder from
// each slave onto the master, then removes the slaves.
package merge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	academics "scolaris/internal/academics/models"
	dedupmodels "scolaris/internal/dedup/models"
	student "scolaris/internal/student/models"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/platform/sentinel"
)

// StudentStore is the slice of the student store the engine needs.
type StudentStore interface {
	FindByID(ctx context.Context, id domain.StudentID) (*student.Student, error)
	Update(ctx context.Context, s *student.Student) error
	Delete(ctx context.Context, id domain.StudentID) error
}

// AcademicsStore rewrites the dossier ladder under the merge transaction.
type AcademicsStore interface {
	ListDossiersByStudent(ctx context.Context, studentID domain.StudentID) ([]academics.Dossier, error)
	UpdateDossierStudent(ctx context.Context, dossierID int64, studentID domain.StudentID) error
	DeleteDossier(ctx context.Context, dossierID int64) error
	ListRegistrationsByDossier(ctx context.Context, dossierID int64) ([]academics.Registration, error)
	UpdateRegistrationDossier(ctx context.Context, registrationID, dossierID int64) error
	DeleteRegistration(ctx context.Context, registrationID int64) error
	ListSemesterRegistrations(ctx context.Context, registrationID int64) ([]academics.SemesterRegistration, error)
	UpdateSemesterRegistrationParent(ctx context.Context, semesterRegistrationID, registrationID int64) error
	DeleteSemesterRegistration(ctx context.Context, semesterRegistrationID int64) error
	DeleteCreditTrackingByStudent(ctx context.Context, studentID domain.StudentID) error
}

// GroupStore closes the originating group once the merge lands.
type GroupStore interface {
	UpdateStatus(ctx context.Context, id domain.GroupID, status dedupmodels.GroupStatus) error
}

// TxRunner runs fn inside one database transaction; the transaction travels
// in the context so every store call participates.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Request is one merge order: the surviving master, the slaves to absorb,
// operator field overrides, and optionally the group being resolved.
type Request struct {
	MasterID  domain.StudentID
	SlaveIDs  []domain.StudentID
	Overrides map[string]any
	GroupID   *domain.GroupID
}

// Engine performs transactional student merges.
type Engine struct {
	students  StudentStore
	academics AcademicsStore
	groups    GroupStore
	runner    TxRunner
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewEngine wires a merge engine over the three stores and a transaction runner.
func NewEngine(students StudentStore, academicsStore AcademicsStore, groups GroupStore, runner TxRunner, logger *slog.Logger) *Engine {
	return &Engine{
		students:  students,
		academics: academicsStore,
		groups:    groups,
		runner:    runner,
		logger:    logger,
		tracer:    otel.Tracer("scolaris/dedup/merge"),
	}
}

// Merge runs the full rewrite in a single transaction. On error nothing is
// committed and the caller receives a coded domain error.
func (e *Engine) Merge(ctx context.Context, req Request) error {
	ctx, span := e.tracer.Start(ctx, "dedup.merge", trace.WithAttributes(
		attribute.String("master.id", req.MasterID.String()),
		attribute.Int("slave.count", len(req.SlaveIDs)),
	))
	defer span.End()

	err := e.runner.RunInTx(ctx, func(ctx context.Context) error {
		master, err := e.students.FindByID(ctx, req.MasterID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "master student %s not found", req.MasterID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load master student")
		}

		// Overrides land before the structural rewrite so collision logic
		// reading master fields sees the operator's final values.
		if err := applyOverrides(master, req.Overrides); err != nil {
			return err
		}
		if err := e.students.Update(ctx, master); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update master student")
		}

		for _, slaveID := range req.SlaveIDs {
			if _, err := e.students.FindByID(ctx, slaveID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "slave student %s not found", slaveID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "load slave student")
			}
			if err := e.absorb(ctx, master.ID, slaveID); err != nil {
				return err
			}
			if err := e.academics.DeleteCreditTrackingByStudent(ctx, slaveID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "delete slave credit tracking")
			}
			if err := e.students.Delete(ctx, slaveID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "delete slave student")
			}
		}

		if req.GroupID != nil {
			if err := e.groups.UpdateStatus(ctx, *req.GroupID, dedupmodels.StatusResolved); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "duplicate group %d not found", *req.GroupID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "resolve duplicate group")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return err
	}

	e.logger.InfoContext(ctx, "students merged",
		"master_id", req.MasterID.String(),
		"slave_count", len(req.SlaveIDs),
	)
	return nil
}

// absorb relocates one slave's dossiers onto the master, descending only as
// deep as uniqueness collisions require. The master side always survives.
func (e *Engine) absorb(ctx context.Context, masterID, slaveID domain.StudentID) error {
	masterDossiers, err := e.academics.ListDossiersByStudent(ctx, masterID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list master dossiers")
	}
	byMention := make(map[string]academics.Dossier, len(masterDossiers))
	for _, d := range masterDossiers {
		byMention[d.MentionID] = d
	}

	slaveDossiers, err := e.academics.ListDossiersByStudent(ctx, slaveID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list slave dossiers")
	}

	for _, sd := range slaveDossiers {
		masterDossier, collides := byMention[sd.MentionID]
		if !collides {
			if err := e.academics.UpdateDossierStudent(ctx, sd.ID, masterID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "reparent dossier")
			}
			sd.StudentID = masterID
			byMention[sd.MentionID] = sd
			continue
		}
		if err := e.mergeDossier(ctx, sd, masterDossier); err != nil {
			return err
		}
		if err := e.academics.DeleteDossier(ctx, sd.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete drained dossier")
		}
	}
	return nil
}

func (e *Engine) mergeDossier(ctx context.Context, slaveDossier, masterDossier academics.Dossier) error {
	masterRegs, err := e.academics.ListRegistrationsByDossier(ctx, masterDossier.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list master registrations")
	}
	byKey := make(map[academics.RegistrationKey]academics.Registration, len(masterRegs))
	for _, r := range masterRegs {
		byKey[r.Key()] = r
	}

	slaveRegs, err := e.academics.ListRegistrationsByDossier(ctx, slaveDossier.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list slave registrations")
	}

	for _, sr := range slaveRegs {
		masterReg, collides := byKey[sr.Key()]
		if !collides {
			if err := e.academics.UpdateRegistrationDossier(ctx, sr.ID, masterDossier.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "reparent registration")
			}
			sr.DossierID = masterDossier.ID
			byKey[sr.Key()] = sr
			continue
		}
		if err := e.mergeRegistration(ctx, sr, masterReg); err != nil {
			return err
		}
		if err := e.academics.DeleteRegistration(ctx, sr.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete drained registration")
		}
	}
	return nil
}

func (e *Engine) mergeRegistration(ctx context.Context, slaveReg, masterReg academics.Registration) error {
	masterSems, err := e.academics.ListSemesterRegistrations(ctx, masterReg.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list master semester registrations")
	}
	bySemester := make(map[string]struct{}, len(masterSems))
	for _, sr := range masterSems {
		bySemester[sr.SemestreID] = struct{}{}
	}

	slaveSems, err := e.academics.ListSemesterRegistrations(ctx, slaveReg.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list slave semester registrations")
	}

	for _, ss := range slaveSems {
		if _, collides := bySemester[ss.SemestreID]; !collides {
			if err := e.academics.UpdateSemesterRegistrationParent(ctx, ss.ID, masterReg.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "reparent semester registration")
			}
			bySemester[ss.SemestreID] = struct{}{}
			continue
		}
		// The master row is authoritative for a colliding semester.
		if err := e.academics.DeleteSemesterRegistration(ctx, ss.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete colliding semester registration")
		}
	}
	return nil
}

// applyOverrides assigns the operator's field choices onto the master.
// Unknown fields are ignored; the identifier is immutable and rejected
// upstream. Values arrive as decoded JSON, so numbers are float64.
func applyOverrides(master *student.Student, overrides map[string]any) error {
	for field, value := range overrides {
		switch field {
		case "nom":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			master.Nom = s
		case "prenoms":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			master.Prenoms = s
		case "cin":
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			master.CIN = s
		case "date_naissance":
			if value == nil {
				master.DateNaissance = nil
				continue
			}
			s, err := stringValue(field, value)
			if err != nil {
				return err
			}
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return dErrors.Newf(dErrors.CodeValidation, "override date_naissance must be YYYY-MM-DD, got %q", s)
			}
			master.DateNaissance = &t
		case "annee_naissance":
			if value == nil {
				master.AnneeNaissance = nil
				continue
			}
			f, ok := value.(float64)
			if !ok {
				return dErrors.Newf(dErrors.CodeValidation, "override annee_naissance must be a number")
			}
			year := int(f)
			master.AnneeNaissance = &year
		}
	}
	return nil
}

func stringValue(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "override %s must be a string", field)
	}
	return s, nil
}
