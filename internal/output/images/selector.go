// Package images orders contributed images so the thread shows many contributors and
// favors a few curated themes.
package images

import (
	"math/rand"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

// RepeatPenalty is subtracted from a candidate's score per image already picked from its contributor.
const RepeatPenalty = 100

// DefaultThemeBonus returns the curated initial bonus per theme.
func DefaultThemeBonus() map[string]int {
	return map[string]int{
		"climbing":          1,
		"rainbow_crossings": 1,
		"binoculars":        2,
		"artwork":           2,
		"ghost_bikes":       1,
		"trees":             2,
		"bookcases":         1,
		"playgrounds":       1,
		"aed":               1,
		"benches":           1,
		"nature":            1,
	}
}

// selectionState is the scoped accumulator of one Select call.
type selectionState struct {
	themeBonus map[string]int
	picks      map[string]int
}

func newSelectionState(bonus map[string]int) selectionState {
	state := selectionState{
		themeBonus: make(map[string]int, len(bonus)),
		picks:      make(map[string]int),
	}

	for theme, b := range bonus {
		state.themeBonus[theme] = b
	}

	return state
}

func (s selectionState) score(c domain.ImageCandidate) int {
	return s.themeBonus[c.Theme] - RepeatPenalty*s.picks[c.ContributorID]
}

func (s selectionState) place(c domain.ImageCandidate) {
	s.themeBonus[c.Theme]--
	s.picks[c.ContributorID]++
}

// Select returns all candidates reordered: at each step the best-scoring unplaced candidate is
// appended. A candidate scores its theme bonus minus RepeatPenalty per earlier pick from the
// same contributor; each pick lowers its theme's bonus by one. bonus is not modified.
//
// Ties are not broken uniformly over all tied candidates. The tie set is first narrowed to
// candidates from a contributor other than the last placed one (see preferOtherContributor),
// and only when nobody else ties does the same contributor get two images in a row. rng then
// picks uniformly within the narrowed set.
func Select(candidates []domain.ImageCandidate, bonus map[string]int, rng *rand.Rand) []domain.ImageCandidate {
	state := newSelectionState(bonus)

	remaining := make([]domain.ImageCandidate, len(candidates))
	copy(remaining, candidates)

	result := make([]domain.ImageCandidate, 0, len(candidates))
	best := make([]int, 0, len(candidates))

	for len(remaining) > 0 {
		best = best[:0]
		bestScore := 0

		for i, c := range remaining {
			score := state.score(c)

			switch {
			case len(best) == 0 || score > bestScore:
				bestScore = score
				best = append(best[:0], i)
			case score == bestScore:
				best = append(best, i)
			}
		}

		if len(result) > 0 {
			best = preferOtherContributor(best, remaining, result[len(result)-1].ContributorID)
		}

		pick := best[0]
		if len(best) > 1 {
			pick = best[rng.Intn(len(best))]
		}

		chosen := remaining[pick]
		result = append(result, chosen)
		state.place(chosen)

		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}

	return result
}

// preferOtherContributor narrows tied candidates to those not sharing the last placed contributor,
// when there are any.
func preferOtherContributor(best []int, remaining []domain.ImageCandidate, last string) []int {
	n := 0

	for _, i := range best {
		if remaining[i].ContributorID != last {
			best[n] = i
			n++
		}
	}

	if n == 0 {
		return best
	}

	return best[:n]
}

// Candidates collects the image URLs of records, de-duplicated by URL in first-occurrence order.
func Candidates(records []domain.ActivityRecord) []domain.ImageCandidate {
	seen := make(map[string]bool)

	var out []domain.ImageCandidate

	for _, r := range records {
		for _, url := range r.ImageURLs {
			if url == "" || seen[url] {
				continue
			}

			seen[url] = true

			out = append(out, domain.ImageCandidate{
				URL:             url,
				ContributorID:   r.ContributorID,
				ContributorName: r.ContributorName,
				Theme:           r.Theme,
				ChangesetID:     r.ID,
			})
		}
	}

	return out
}

// ContributorCount returns the number of distinct contributors among candidates.
func ContributorCount(candidates []domain.ImageCandidate) int {
	seen := make(map[string]bool)
	for _, c := range candidates {
		seen[c.ContributorID] = true
	}

	return len(seen)
}
