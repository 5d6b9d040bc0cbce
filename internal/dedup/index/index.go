// Package index builds the in-memory student index the scanner walks: one
// compact record per student plus two blocking maps, so only intra-block
// pairs are ever scored.
package index

import (
	"context"
	"fmt"
	"strings"

	"scolaris/internal/student/models"
	"scolaris/pkg/domain"
)

// minUsableNationalID is the cleaned length below which a national id is too
// short to block on (stubs like "N/A" or partial entries).
const minUsableNationalID = 5

// Source streams students in pages so the builder never needs the whole
// table in memory beyond the index itself.
type Source interface {
	ListPage(ctx context.Context, offset, limit int) ([]models.Student, error)
}

// Record is the normalized, memoized view of one student.
type Record struct {
	ID         domain.StudentID
	Nom        string
	Prenoms    string
	NationalID string
	Year       int
	FullName   string
}

// UsableNationalID reports whether the cleaned national id is long enough to
// block on.
func (r Record) UsableNationalID() bool {
	return len(r.NationalID) > minUsableNationalID
}

// Index holds the records in table order plus the two blocking maps. Map
// values are offsets into Records to keep the blocks compact.
type Index struct {
	Records      []Record
	ByNationalID map[string][]int
	ByYear       map[int][]int
}

// Normalize applies the matching normalization rules once per student.
func Normalize(s models.Student) Record {
	nom := strings.ToLower(strings.TrimSpace(s.Nom))
	prenoms := strings.ToLower(strings.TrimSpace(s.Prenoms))

	cleaned := strings.ToUpper(s.CIN)
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")

	return Record{
		ID:         s.ID,
		Nom:        nom,
		Prenoms:    prenoms,
		NationalID: cleaned,
		Year:       s.BirthYear(),
		FullName:   nom + " " + prenoms,
	}
}

// Build streams the student table through Normalize and assembles the
// blocking maps. The year map keeps the 0 bucket: students with no known
// birth year are still compared with each other.
func Build(ctx context.Context, src Source, pageSize int) (*Index, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	idx := &Index{
		ByNationalID: make(map[string][]int),
		ByYear:       make(map[int][]int),
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := src.ListPage(ctx, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list students page at %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for _, s := range page {
			rec := Normalize(s)
			pos := len(idx.Records)
			idx.Records = append(idx.Records, rec)

			if rec.UsableNationalID() {
				idx.ByNationalID[rec.NationalID] = append(idx.ByNationalID[rec.NationalID], pos)
			}
			idx.ByYear[rec.Year] = append(idx.ByYear[rec.Year], pos)
		}

		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}

	return idx, nil
}
