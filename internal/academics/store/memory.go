package store

import (
	"context"
	"sort"
	"sync"

	"scolaris/internal/academics/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
)

// InMemory is the test double for the academics store. Merge-engine tests
// seed a ladder, run the rewrite, then read the maps back for assertions.
type InMemory struct {
	mu       sync.RWMutex
	nextID   int64
	dossiers map[int64]models.Dossier
	regs     map[int64]models.Registration
	sems     map[int64]models.SemesterRegistration
	credits  map[int64]models.CreditTracking
}

// NewInMemory constructs an empty in-memory academics store.
func NewInMemory() *InMemory {
	return &InMemory{
		nextID:   1,
		dossiers: make(map[int64]models.Dossier),
		regs:     make(map[int64]models.Registration),
		sems:     make(map[int64]models.SemesterRegistration),
		credits:  make(map[int64]models.CreditTracking),
	}
}

func (s *InMemory) id() int64 {
	v := s.nextID
	s.nextID++
	return v
}

// SeedDossier inserts a dossier and returns its id.
func (s *InMemory) SeedDossier(d models.Dossier) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.id()
	}
	s.dossiers[d.ID] = d
	return d.ID
}

// SeedRegistration inserts a yearly registration and returns its id.
func (s *InMemory) SeedRegistration(r models.Registration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.regs[r.ID] = r
	return r.ID
}

// SeedSemesterRegistration inserts a semester row and returns its id.
func (s *InMemory) SeedSemesterRegistration(sr models.SemesterRegistration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr.ID == 0 {
		sr.ID = s.id()
	}
	s.sems[sr.ID] = sr
	return sr.ID
}

// SeedCreditTracking inserts a credit-tracking row and returns its id.
func (s *InMemory) SeedCreditTracking(ct models.CreditTracking) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ct.ID == 0 {
		ct.ID = s.id()
	}
	s.credits[ct.ID] = ct
	return ct.ID
}

// ListDossiersByStudent returns the student's dossiers in id order.
func (s *InMemory) ListDossiersByStudent(_ context.Context, studentID domain.StudentID) ([]models.Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Dossier
	for _, d := range s.dossiers {
		if d.StudentID == studentID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountDossiersByStudent counts the student's dossiers.
func (s *InMemory) CountDossiersByStudent(ctx context.Context, studentID domain.StudentID) (int, error) {
	dossiers, _ := s.ListDossiersByStudent(ctx, studentID)
	return len(dossiers), nil
}

// UpdateDossierStudent reparents a dossier onto another student.
func (s *InMemory) UpdateDossierStudent(_ context.Context, dossierID int64, studentID domain.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dossiers[dossierID]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.StudentID = studentID
	s.dossiers[dossierID] = d
	return nil
}

// DeleteDossier removes a dossier.
func (s *InMemory) DeleteDossier(_ context.Context, dossierID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dossiers[dossierID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.dossiers, dossierID)
	return nil
}

// ListRegistrationsByDossier returns the registrations under a dossier in id order.
func (s *InMemory) ListRegistrationsByDossier(_ context.Context, dossierID int64) ([]models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Registration
	for _, r := range s.regs {
		if r.DossierID == dossierID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateRegistrationDossier reparents a registration onto another dossier.
func (s *InMemory) UpdateRegistrationDossier(_ context.Context, registrationID, dossierID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.regs[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.DossierID = dossierID
	s.regs[registrationID] = r
	return nil
}

// DeleteRegistration removes a registration.
func (s *InMemory) DeleteRegistration(_ context.Context, registrationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.regs[registrationID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.regs, registrationID)
	return nil
}

// ListSemesterRegistrations returns the semester rows under a registration in id order.
func (s *InMemory) ListSemesterRegistrations(_ context.Context, registrationID int64) ([]models.SemesterRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SemesterRegistration
	for _, sr := range s.sems {
		if sr.RegistrationID == registrationID {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateSemesterRegistrationParent reparents a semester row.
func (s *InMemory) UpdateSemesterRegistrationParent(_ context.Context, semesterRegistrationID, registrationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.sems[semesterRegistrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sr.RegistrationID = registrationID
	s.sems[semesterRegistrationID] = sr
	return nil
}

// DeleteSemesterRegistration removes a semester row.
func (s *InMemory) DeleteSemesterRegistration(_ context.Context, semesterRegistrationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sems[semesterRegistrationID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sems, semesterRegistrationID)
	return nil
}

// DeleteCreditTrackingByStudent removes every credit row the student owns.
func (s *InMemory) DeleteCreditTrackingByStudent(_ context.Context, studentID domain.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ct := range s.credits {
		if ct.StudentID == studentID {
			delete(s.credits, id)
		}
	}
	return nil
}

// CreditTrackingsByStudent is a test helper to assert cleanup.
func (s *InMemory) CreditTrackingsByStudent(studentID domain.StudentID) []models.CreditTracking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CreditTracking
	for _, ct := range s.credits {
		if ct.StudentID == studentID {
			out = append(out, ct)
		}
	}
	return out
}
