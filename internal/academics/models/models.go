// Package models holds the academic-history ladder the merge engine rewrites:
// Student -> Dossier -> Registration -> SemesterRegistration, each level
// unique on parent plus key.
package models

import (
	"time"

	"scolaris/pkg/domain"
)

// Dossier ties a student to a degree mention. Unique on (student, mention).
type Dossier struct {
	ID        int64
	StudentID domain.StudentID
	MentionID string
	CreatedAt time.Time
}

// Registration is one academic year inside a dossier. Unique within its
// dossier on (year, parcours, niveau).
type Registration struct {
	ID         int64
	DossierID  int64
	AnneeUniv  string
	ParcoursID string
	NiveauID   string
	RegimeID   string
}

// RegistrationKey is the collision key for registrations under one dossier.
type RegistrationKey struct {
	AnneeUniv  string
	ParcoursID string
	NiveauID   string
}

// Key returns the uniqueness key of the registration.
func (r Registration) Key() RegistrationKey {
	return RegistrationKey{AnneeUniv: r.AnneeUniv, ParcoursID: r.ParcoursID, NiveauID: r.NiveauID}
}

// SemesterRegistration is the per-semester row under a yearly registration.
// Unique within its registration on semester.
type SemesterRegistration struct {
	ID             int64
	RegistrationID int64
	SemestreID     string
	Statut         string
}

// CreditTracking accumulates validated credits per cycle, owned by one student.
type CreditTracking struct {
	ID             int64
	StudentID      domain.StudentID
	Cycle          string
	CreditsValides int
	CreditsRequis  int
}
