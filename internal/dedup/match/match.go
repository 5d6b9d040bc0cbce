// Package match scores candidate pairs out of the blocking index and derives
// the canonical group signature used for idempotent rescans.
package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"scolaris/internal/dedup/index"
	"scolaris/pkg/domain"
)

const (
	// nameThreshold is the minimum token-sort ratio for a name-only match.
	nameThreshold = 90

	// ReasonReference tags the record the group was built around.
	ReasonReference = "reference"
	// ReasonNationalID tags an exact national-id match.
	ReasonNationalID = "identical national-ID"

	signatureDelimiter = "|"
)

// Candidate is a peer of the reference record with its match evidence.
type Candidate struct {
	Pos    int
	Score  int
	Reason string
}

// Collect gathers the candidates for the reference record at pos. consumed
// marks records already absorbed by an earlier group in the same scan; they
// are skipped, as is the reference itself.
//
// National-id matches score 100. Year-block peers are scored with the
// token-sort ratio on the normalized full name and kept at or above the
// threshold; a record already matched by national id is not re-added.
func Collect(idx *index.Index, pos int, consumed []bool) []Candidate {
	ref := idx.Records[pos]
	var out []Candidate
	seen := map[int]bool{pos: true}

	if ref.UsableNationalID() {
		for _, peer := range idx.ByNationalID[ref.NationalID] {
			if seen[peer] || consumed[peer] {
				continue
			}
			seen[peer] = true
			out = append(out, Candidate{Pos: peer, Score: 100, Reason: ReasonNationalID})
		}
	}

	for _, peer := range idx.ByYear[ref.Year] {
		if seen[peer] || consumed[peer] {
			continue
		}
		seen[peer] = true
		score := fuzzy.TokenSortRatio(ref.FullName, idx.Records[peer].FullName)
		if score < nameThreshold {
			continue
		}
		out = append(out, Candidate{
			Pos:    peer,
			Score:  score,
			Reason: fmt.Sprintf("name similarity (%d%%)", score),
		})
	}

	return out
}

// AverageScore is the rounded arithmetic mean of the candidate scores (the
// reference contributes no score).
func AverageScore(candidates []Candidate) int {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0
	for _, c := range candidates {
		sum += c.Score
	}
	return int(math.Round(float64(sum) / float64(len(candidates))))
}

// Signature is the canonical identity of a member set: ids sorted ascending
// and joined with "|". Rescans use it as the idempotency key.
func Signature(ids []domain.StudentID) string {
	sorted := make([]string, len(ids))
	for i, id := range ids {
		sorted[i] = id.String()
	}
	sort.Strings(sorted)
	return strings.Join(sorted, signatureDelimiter)
}
