package store

import (
	"context"
	"sort"
	"sync"

	"scolaris/internal/student/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
)

// InMemory is the test double for the student store. It keeps id order so
// paged listings are deterministic like the SQL ORDER BY.
type InMemory struct {
	mu       sync.RWMutex
	students map[domain.StudentID]models.Student
}

// NewInMemory constructs an empty in-memory student store.
func NewInMemory() *InMemory {
	return &InMemory{students: make(map[domain.StudentID]models.Student)}
}

// Seed inserts students directly, for tests.
func (s *InMemory) Seed(students ...models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range students {
		s.students[st.ID] = st
	}
}

func (s *InMemory) ordered() []models.Student {
	out := make([]models.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPage returns one page of students in id order.
func (s *InMemory) ListPage(_ context.Context, offset, limit int) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.ordered()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the number of stored students.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students), nil
}

// FindByID fetches one student or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, id domain.StudentID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &st, nil
}

// Update rewrites a stored student.
func (s *InMemory) Update(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[student.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.students[student.ID] = *student
	return nil
}

// Delete removes a student.
func (s *InMemory) Delete(_ context.Context, id domain.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.students, id)
	return nil
}
