package match_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"scolaris/internal/dedup/index"
	"scolaris/internal/dedup/match"
	"scolaris/internal/student/models"
	studentstore "scolaris/internal/student/store"
	"scolaris/pkg/domain"
)

type MatchSuite struct {
	suite.Suite
}

func TestMatchSuite(t *testing.T) {
	suite.Run(t, new(MatchSuite))
}

func intPtr(v int) *int { return &v }

func buildIndex(s *MatchSuite, students ...models.Student) *index.Index {
	store := studentstore.NewInMemory()
	store.Seed(students...)
	idx, err := index.Build(context.Background(), store, 100)
	s.Require().NoError(err)
	return idx
}

func (s *MatchSuite) TestIdenticalNationalIDMatchesAt100() {
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", CIN: "101 234 567 890", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Randria", Prenoms: "Koto", CIN: "101-234-567-890", AnneeNaissance: intPtr(1980)},
	)

	candidates := match.Collect(idx, 0, make([]bool, len(idx.Records)))
	s.Require().Len(candidates, 1)
	s.Equal(1, candidates[0].Pos)
	s.Equal(100, candidates[0].Score)
	s.Equal(match.ReasonNationalID, candidates[0].Reason)
}

func (s *MatchSuite) TestSimilarNamesInSameYearBlock() {
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Duponts", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
	)

	candidates := match.Collect(idx, 0, make([]bool, len(idx.Records)))
	s.Require().Len(candidates, 1)
	s.GreaterOrEqual(candidates[0].Score, 90)
	s.Less(candidates[0].Score, 100)
	s.Regexp(`^name similarity \(\d+%\)$`, candidates[0].Reason)
}

func (s *MatchSuite) TestDifferentYearsDoNotCompareNames() {
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Dupont", Prenoms: "Jean", AnneeNaissance: intPtr(1998)},
	)

	candidates := match.Collect(idx, 0, make([]bool, len(idx.Records)))
	s.Empty(candidates)
}

func (s *MatchSuite) TestDissimilarNamesStayBelowThreshold() {
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Rakotoarisoa", Prenoms: "Mamy", AnneeNaissance: intPtr(1999)},
	)

	candidates := match.Collect(idx, 0, make([]bool, len(idx.Records)))
	s.Empty(candidates)
}

func (s *MatchSuite) TestNationalIDMatchIsNotDuplicatedByNameBlock() {
	// Same id and same year: the peer must appear once, via the id block.
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", CIN: "101234567890", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Dupont", Prenoms: "Jean", CIN: "101234567890", AnneeNaissance: intPtr(1999)},
	)

	candidates := match.Collect(idx, 0, make([]bool, len(idx.Records)))
	s.Require().Len(candidates, 1)
	s.Equal(100, candidates[0].Score)
	s.Equal(match.ReasonNationalID, candidates[0].Reason)
}

func (s *MatchSuite) TestConsumedRecordsAreSkipped() {
	idx := buildIndex(s,
		models.Student{ID: "S1", Nom: "Dupont", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
		models.Student{ID: "S2", Nom: "Duponts", Prenoms: "Jean", AnneeNaissance: intPtr(1999)},
	)

	consumed := make([]bool, len(idx.Records))
	consumed[1] = true
	s.Empty(match.Collect(idx, 0, consumed))
}

func (s *MatchSuite) TestAverageScoreRounds() {
	s.Equal(0, match.AverageScore(nil))
	s.Equal(96, match.AverageScore([]match.Candidate{{Score: 100}, {Score: 91}}))
	s.Equal(95, match.AverageScore([]match.Candidate{{Score: 100}, {Score: 90}}))
}

func (s *MatchSuite) TestSignatureIsSortedAndStable() {
	a := match.Signature([]domain.StudentID{"S9", "S1", "S5"})
	b := match.Signature([]domain.StudentID{"S5", "S9", "S1"})

	s.Equal("S1|S5|S9", a)
	s.Equal(a, b)
}
