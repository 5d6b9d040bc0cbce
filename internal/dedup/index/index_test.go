package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"scolaris/internal/dedup/index"
	"scolaris/internal/student/models"
	studentstore "scolaris/internal/student/store"
	"scolaris/pkg/domain"
)

type IndexSuite struct {
	suite.Suite
	ctx context.Context
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexSuite))
}

func (s *IndexSuite) SetupSuite() {
	s.ctx = context.Background()
}

func intPtr(v int) *int { return &v }

func (s *IndexSuite) TestNormalizeLowersAndTrimsNames() {
	rec := index.Normalize(models.Student{
		ID:      "S1",
		Nom:     "  DUPONT ",
		Prenoms: " Jean Pierre ",
	})

	s.Equal("dupont", rec.Nom)
	s.Equal("jean pierre", rec.Prenoms)
	s.Equal("dupont jean pierre", rec.FullName)
}

func (s *IndexSuite) TestNormalizeCleansNationalID() {
	rec := index.Normalize(models.Student{ID: "S1", CIN: " ab-12 34-cd "})
	s.Equal("AB1234CD", rec.NationalID)
	s.True(rec.UsableNationalID())
}

func (s *IndexSuite) TestShortNationalIDIsNotUsable() {
	// Five cleaned characters or fewer is treated as a stub entry.
	rec := index.Normalize(models.Student{ID: "S1", CIN: "A-B 12"})
	s.Equal("AB12", rec.NationalID)
	s.False(rec.UsableNationalID())
}

func (s *IndexSuite) TestBirthYearFallbackChain() {
	birth := time.Date(1999, 4, 12, 0, 0, 0, 0, time.UTC)

	s.Equal(1998, index.Normalize(models.Student{ID: "S1", AnneeNaissance: intPtr(1998), DateNaissance: &birth}).Year)
	s.Equal(1999, index.Normalize(models.Student{ID: "S2", DateNaissance: &birth}).Year)
	s.Equal(0, index.Normalize(models.Student{ID: "S3"}).Year)
}

func (s *IndexSuite) TestBuildAssemblesBlockingMaps() {
	store := studentstore.NewInMemory()
	store.Seed(
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", CIN: "101234567890", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Dupond", Prenoms: "Jean", CIN: "101234567890", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S3", Nom: "Rakoto", Prenoms: "Hery", AnneeNaissance: intPtr(2001)},
		models.Student{ID: "S4", Nom: "Rabe", Prenoms: "Lala"},
	)

	idx, err := index.Build(s.ctx, store, 2)
	s.Require().NoError(err)

	s.Len(idx.Records, 4)
	s.Len(idx.ByNationalID["101234567890"], 2)
	s.Len(idx.ByYear[1999], 2)
	s.Len(idx.ByYear[2001], 1)
	// Students with no known birth year still share the zero bucket.
	s.Len(idx.ByYear[0], 1)
}

func (s *IndexSuite) TestBuildStreamsAcrossPages() {
	store := studentstore.NewInMemory()
	for _, id := range []string{"S1", "S2", "S3", "S4", "S5"} {
		store.Seed(models.Student{ID: domain.StudentID(id), Nom: "n" + id, AnneeNaissance: intPtr(2000)})
	}

	idx, err := index.Build(s.ctx, store, 2)
	s.Require().NoError(err)
	s.Len(idx.Records, 5)
	s.Len(idx.ByYear[2000], 5)
}

func (s *IndexSuite) TestBuildHonoursCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	store := studentstore.NewInMemory()
	store.Seed(models.Student{ID: "S1", Nom: "a"})

	_, err := index.Build(ctx, store, 10)
	s.ErrorIs(err, context.Canceled)
}
