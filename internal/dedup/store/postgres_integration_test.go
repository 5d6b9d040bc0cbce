//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"scolaris/internal/dedup/models"
	"scolaris/internal/dedup/store"
	"scolaris/pkg/domain"
	"scolaris/pkg/platform/sentinel"
	"scolaris/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "duplicate_group_members", "duplicate_groups", "students")
	s.Require().NoError(err)

	// Members join the students table in List, so seed the referenced rows.
	for _, st := range []struct{ id, nom, prenoms string }{
		{"A", "Dupont", "Jean"},
		{"B", "Dupond", "Jean"},
		{"C", "Rakoto", "Hery"},
		{"D", "Rakotoa", "Hery"},
	} {
		_, err := s.postgres.DB.ExecContext(ctx,
			`INSERT INTO students (id, nom, prenoms) VALUES ($1, $2, $3)`, st.id, st.nom, st.prenoms)
		s.Require().NoError(err)
	}
}

func detectedGroup(signature string, score int, ids ...domain.StudentID) models.DetectedGroup {
	g := models.DetectedGroup{Signature: signature, AverageScore: score}
	for i, id := range ids {
		reason := "identical national-ID"
		if i == 0 {
			reason = "reference"
		}
		g.Members = append(g.Members, models.Member{StudentID: id, Reason: reason})
	}
	return g
}

func (s *PostgresStoreSuite) TestInsertBatchAndList() {
	ctx := context.Background()

	err := s.store.InsertBatch(ctx, []models.DetectedGroup{
		detectedGroup("A|B", 96, "A", "B"),
		detectedGroup("C|D", 91, "C", "D"),
	})
	s.Require().NoError(err)

	page, total, err := s.store.List(ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(page, 2)

	// Best score first.
	s.Equal("A|B", page[0].Signature)
	s.Require().Len(page[0].Members, 2)
	s.Equal("Dupont", page[0].Members[0].Nom)
	s.Equal("reference", page[0].Members[0].Reason)
}

func (s *PostgresStoreSuite) TestSignatureConflictDropsGroup() {
	ctx := context.Background()

	s.Require().NoError(s.store.InsertBatch(ctx, []models.DetectedGroup{detectedGroup("A|B", 96, "A", "B")}))
	// Same signature again: the first group wins, the batch still succeeds.
	s.Require().NoError(s.store.InsertBatch(ctx, []models.DetectedGroup{detectedGroup("A|B", 99, "A", "B")}))

	signatures, err := s.store.LoadSignatures(ctx)
	s.Require().NoError(err)
	s.Len(signatures, 1)

	_, total, err := s.store.List(ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *PostgresStoreSuite) TestConcurrentInsertsRespectSignatureIndex() {
	ctx := context.Background()
	const writers = 10

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.InsertBatch(ctx, []models.DetectedGroup{detectedGroup("A|B", 96, "A", "B")})
		}()
	}
	wg.Wait()

	_, total, err := s.store.List(ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	s.Equal(1, total, "the unique index must collapse concurrent duplicates")
}

func (s *PostgresStoreSuite) TestLoadSignaturesCoversAllStatuses() {
	ctx := context.Background()

	s.Require().NoError(s.store.InsertBatch(ctx, []models.DetectedGroup{
		detectedGroup("A|B", 96, "A", "B"),
		detectedGroup("C|D", 91, "C", "D"),
	}))

	page, _, err := s.store.List(ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateStatus(ctx, page[0].ID, models.StatusIgnored))

	signatures, err := s.store.LoadSignatures(ctx)
	s.Require().NoError(err)
	s.Len(signatures, 2, "ignored groups still suppress rediscovery")
}

func (s *PostgresStoreSuite) TestUpdateStatusAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.InsertBatch(ctx, []models.DetectedGroup{detectedGroup("A|B", 96, "A", "B")}))
	page, _, err := s.store.List(ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	groupID := page[0].ID

	s.Require().NoError(s.store.UpdateStatus(ctx, groupID, models.StatusResolved))

	group, err := s.store.Find(ctx, groupID)
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, group.Status)

	s.ErrorIs(s.store.UpdateStatus(ctx, 99999, models.StatusIgnored), sentinel.ErrNotFound)
	_, err = s.store.Find(ctx, 99999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
