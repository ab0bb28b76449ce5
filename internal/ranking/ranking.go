// Package ranking orders candidate reviewers for a manuscript.
//
// The heuristic spreads review load and avoids pairing a reviewer with the
// same authors repeatedly: reviewers with fewer reviews overall, and far
// fewer reviews of these particular authors, rank first. Rank is a pure
// function; the reviewer directory that produces Candidates lives in the
// journal store.
package ranking

import (
	"math"
	"sort"
)

const (
	totalReviewsWeight  = -1.0
	authorReviewsWeight = -5.0
)

// Candidate is a potential reviewer with their review history counts.
type Candidate struct {
	ReviewerID int64
	// TotalReviews counts every review the reviewer has been assigned.
	TotalReviews int
	// AuthorReviews counts reviews of manuscripts by any of the authors
	// being matched.
	AuthorReviews int
}

// Ranked pairs a candidate with its heuristic score.
type Ranked struct {
	Candidate
	Score float64
}

// Score returns -1·ln(1+total) + -5·ln(1+author reviews). A reviewer with
// no history scores exactly 0, never negative zero.
func Score(c Candidate) float64 {
	score := totalReviewsWeight*math.Log1p(float64(max(c.TotalReviews, 0))) +
		authorReviewsWeight*math.Log1p(float64(max(c.AuthorReviews, 0)))
	if score == 0 {
		return 0
	}
	return score
}

// Rank scores candidates and sorts them from best to worst. Authors and
// already-assigned reviewers are always excluded. Equal scores keep their
// input order, so repeated calls with the same input give the same result.
func Rank(candidates []Candidate, authors, assigned []int64) []Ranked {
	excluded := make(map[int64]struct{}, len(authors)+len(assigned))
	for _, id := range authors {
		excluded[id] = struct{}{}
	}
	for _, id := range assigned {
		excluded[id] = struct{}{}
	}

	ranked := make([]Ranked, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		if _, skip := excluded[c.ReviewerID]; skip {
			continue
		}
		if _, dup := seen[c.ReviewerID]; dup {
			continue
		}
		seen[c.ReviewerID] = struct{}{}
		ranked = append(ranked, Ranked{Candidate: c, Score: Score(c)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Top returns the reviewer ids of the first n ranked candidates. ok is false
// when fewer than n candidates are available, in which case ids is nil.
func Top(ranked []Ranked, n int) (ids []int64, ok bool) {
	if n <= 0 {
		return nil, true
	}
	if len(ranked) < n {
		return nil, false
	}
	ids = make([]int64, 0, n)
	for _, r := range ranked[:n] {
		ids = append(ids, r.ReviewerID)
	}
	return ids, true
}
