package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"scolaris/internal/dedup/models"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
)

// InMemory is the test double for the group store. It enforces the same
// signature-uniqueness contract as the SQL index.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	groups map[domain.GroupID]models.Group
	member map[domain.GroupID][]models.Member

	// Names resolves student names for List, standing in for the SQL join.
	// Nil leaves the name fields empty.
	Names func(id domain.StudentID) (nom, prenoms string, ok bool)
}

// NewInMemory constructs an empty in-memory group store.
func NewInMemory() *InMemory {
	return &InMemory{
		nextID: 1,
		groups: make(map[domain.GroupID]models.Group),
		member: make(map[domain.GroupID][]models.Member),
	}
}

// LoadSignatures returns every known signature regardless of status.
func (s *InMemory) LoadSignatures(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signatures := make(map[string]struct{}, len(s.groups))
	for _, g := range s.groups {
		signatures[g.Signature] = struct{}{}
	}
	return signatures, nil
}

// InsertBatch stores detected groups, dropping any whose signature exists.
func (s *InMemory) InsertBatch(_ context.Context, groups []models.DetectedGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.groups))
	for _, g := range s.groups {
		known[g.Signature] = struct{}{}
	}

	for _, g := range groups {
		if _, exists := known[g.Signature]; exists {
			continue
		}
		known[g.Signature] = struct{}{}

		id := domain.GroupID(s.nextID)
		s.nextID++
		s.groups[id] = models.Group{
			ID:            id,
			Signature:     g.Signature,
			Status:        models.StatusDetected,
			DetectionDate: time.Now(),
			AverageScore:  g.AverageScore,
		}
		s.member[id] = append([]models.Member(nil), g.Members...)
	}
	return nil
}

// List pages groups by descending average score, then id.
func (s *InMemory) List(_ context.Context, page, limit int, status models.GroupStatus) ([]models.GroupWithMembers, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []models.Group
	for _, g := range s.groups {
		if g.Status == status {
			matching = append(matching, g)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].AverageScore != matching[j].AverageScore {
			return matching[i].AverageScore > matching[j].AverageScore
		}
		return matching[i].ID < matching[j].ID
	})

	total := len(matching)
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]models.GroupWithMembers, 0, end-offset)
	for _, g := range matching[offset:end] {
		gwm := models.GroupWithMembers{Group: g}
		for _, m := range s.member[g.ID] {
			detail := models.MemberDetail{StudentID: m.StudentID, Reason: m.Reason}
			if s.Names != nil {
				if nom, prenoms, ok := s.Names(m.StudentID); ok {
					detail.Nom = nom
					detail.Prenoms = prenoms
				}
			}
			gwm.Members = append(gwm.Members, detail)
		}
		out = append(out, gwm)
	}
	return out, total, nil
}

// Find fetches one group or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, id domain.GroupID) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &g, nil
}

// UpdateStatus mutates only the status field.
func (s *InMemory) UpdateStatus(_ context.Context, id domain.GroupID, status models.GroupStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	g.Status = status
	s.groups[id] = g
	return nil
}

// MembersOf is a test helper exposing the raw member links of a group.
func (s *InMemory) MembersOf(id domain.GroupID) []models.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Member(nil), s.member[id]...)
}
