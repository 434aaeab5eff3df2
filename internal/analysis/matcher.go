package analysis

import (
	"sort"
	"strings"

	"github.com/voca-app/voca/internal/analysis/strdist"
	"github.com/voca-app/voca/internal/catalog"
)

// substringBoost is added to a brand's similarity when the normalised
// transcript contains the normalised brand name or vice versa. A boosted
// score may exceed 1.0; only the comparison against the match threshold and
// against other candidates matters.
const substringBoost = 0.3

// bestMatch scores the transcript against every catalog brand and returns the
// highest-scoring one, provided its adjusted similarity exceeds the match
// threshold. Ties go to the brand that appears first in catalog order: a
// later brand must score strictly higher to displace an earlier one.
//
// A transcript that normalises to the empty string never matches.
func (a *Analyzer) bestMatch(transcript string) (catalog.Brand, bool) {
	norm := strdist.Normalize(transcript)
	if norm == "" {
		return catalog.Brand{}, false
	}

	var (
		best      catalog.Brand
		bestScore float64
		found     bool
	)
	for _, b := range a.brands {
		nb := strdist.Normalize(b.Name)
		sim := strdist.Similarity(norm, nb)

		if strings.Contains(norm, nb) || strings.Contains(nb, norm) {
			sim += substringBoost
		}

		if sim > a.matchThreshold && sim > bestScore {
			best = b
			bestScore = sim
			found = true
		}
	}
	return best, found
}

// fuzzyCandidate pairs a brand with its plain (unboosted) similarity to a
// transcript. Candidates exist only for the duration of one analysis call.
type fuzzyCandidate struct {
	brand      catalog.Brand
	similarity float64
}

// fuzzyCandidates returns up to limit brands whose similarity to the
// transcript exceeds floor, ordered by descending similarity. The sort is
// stable so equal scores keep catalog order. Used for the "did you mean"
// suggestions when no brand crossed the acceptance threshold.
func (a *Analyzer) fuzzyCandidates(transcript string, floor float64, limit int) []fuzzyCandidate {
	norm := strdist.Normalize(transcript)

	var out []fuzzyCandidate
	for _, b := range a.brands {
		sim := strdist.Similarity(norm, strdist.Normalize(b.Name))
		if sim > floor {
			out = append(out, fuzzyCandidate{brand: b, similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].similarity > out[j].similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
