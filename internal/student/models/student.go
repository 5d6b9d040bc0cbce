package models

import (
	"time"

	"scolaris/pkg/domain"
)

// Student is the identity record enrollment workflows create. The scanner
// reads it; only a confirmed merge deletes one.
type Student struct {
	ID             domain.StudentID
	Nom            string
	Prenoms        string
	CIN            string
	DateNaissance  *time.Time
	AnneeNaissance *int
	CreatedAt      time.Time
}

// BirthYear resolves the year used for blocking: the explicit birth year when
// present, else the year of the birth date, else 0.
func (s Student) BirthYear() int {
	if s.AnneeNaissance != nil {
		return *s.AnneeNaissance
	}
	if s.DateNaissance != nil {
		return s.DateNaissance.Year()
	}
	return 0
}
