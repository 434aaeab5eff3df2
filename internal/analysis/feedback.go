package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/voca-app/voca/internal/catalog"
)

// Brand tier name lists used for similar-brand scoring. Membership is decided
// by case-insensitive substring containment against the brand's display name,
// so "Rolls Royce" matches the "rolls" entry.
var (
	luxuryBrands = []string{
		"mercedes", "bmw", "audi", "lexus", "ferrari", "lamborghini",
		"porsche", "bentley", "rolls", "maserati", "jaguar", "aston",
	}
	mainstreamBrands = []string{
		"toyota", "honda", "nissan", "ford", "chevrolet", "hyundai",
		"kia", "mazda", "volkswagen",
	}
)

// feedbackMessage renders the tier-appropriate headline feedback for a scored
// attempt. Tiers are non-overlapping: >=85 outstanding, >=70 good, >=50 fair,
// otherwise needs practice.
func feedbackMessage(accuracy int, brand catalog.Brand) string {
	switch {
	case accuracy >= 85:
		return fmt.Sprintf("Outstanding pronunciation of %q! Your accuracy is %d%%. Your phoneme clarity is excellent, and your timing matches the natural rhythm perfectly.", brand.Name, accuracy)
	case accuracy >= 70:
		return fmt.Sprintf("Good pronunciation of %q! Your accuracy is %d%%. Your stress patterns are mostly correct, but some phonemes need refinement.", brand.Name, accuracy)
	case accuracy >= 50:
		return fmt.Sprintf("Fair attempt at %q. Your accuracy is %d%%. Focus on individual phonemes and syllable stress patterns.", brand.Name, accuracy)
	default:
		return fmt.Sprintf("Keep practicing %q. Your accuracy is %d%%. Start with basic phoneme pronunciation.", brand.Name, accuracy)
	}
}

// tierTips returns the headline-tier practice tips interpolating the brand's
// pronunciation guide.
func tierTips(accuracy int, brand catalog.Brand) []string {
	switch {
	case accuracy >= 85:
		return []string{
			"Excellent pronunciation!",
			"Try practicing other car brand names",
			`Try practicing other challenging car brands like "Lamborghini" or "Koenigsegg"`,
			"Focus on maintaining this quality with longer brand names",
		}
	case accuracy >= 70:
		return []string{
			"Almost perfect! Fine-tune your pronunciation",
			"Focus on the subtle sounds you might be missing",
			"Work on the sounds that scored below 70% confidence",
			fmt.Sprintf("Practice the pronunciation slowly: %s", brand.Pronunciation),
			"Record yourself and compare with the reference audio",
		}
	case accuracy >= 50:
		return []string{
			fmt.Sprintf("Good effort! Practice the pronunciation: %s", brand.Pronunciation),
			"Pay attention to stress patterns in the word",
			"Try speaking more slowly and deliberately",
			fmt.Sprintf("Break it down syllable by syllable: %s", brand.Pronunciation),
			"Practice each sound separately before combining them",
			"Listen to native speakers saying this brand name",
		}
	default:
		return []string{
			fmt.Sprintf("Practice saying %q slowly: %s", brand.Name, brand.Pronunciation),
			"Focus on pronouncing each syllable clearly",
			"Try recording yourself and playing it back",
			"Focus on mouth position for each sound",
			"Use a mirror to check your mouth movements",
			"Practice with shorter words first",
		}
	}
}

// suggestions assembles the full ordered suggestion list for a matched brand:
// tier tips first, then phoneme-specific tips naming the sounds that scored
// incorrect, then sub-score-driven rhythm and clarity tips. The list is never
// empty because every tier contributes at least one tip.
func suggestions(pa phonemeAnalysis, brand catalog.Brand) []string {
	tips := tierTips(pa.accuracy, brand)

	var wrong []string
	for _, p := range pa.userPhonemes {
		if !p.Correct {
			wrong = append(wrong, p.Symbol)
		}
	}
	if len(wrong) > 0 {
		tips = append(tips, fmt.Sprintf("Specific sounds to improve: %s", strings.Join(wrong, ", ")))
	}
	if pa.detailed.Timing < 70 {
		tips = append(tips, "Work on your speaking rhythm - try speaking more slowly and deliberately")
	}
	if pa.detailed.Clarity < 75 {
		tips = append(tips, "Focus on mouth opening and tongue position for clearer sounds")
	}
	return tips
}

// Similar-brand criterion weights.
const (
	weightSameCountry     = 30
	weightPhonemeCountEq  = 25
	weightPhonemeCountOff = 15
	weightPhonemeCountFar = 10
	weightFirstLetter     = 20
	weightLastTwoLetters  = 15
	weightSameTier        = 10
)

// similarBrands ranks every other catalog brand against current using the
// weighted criteria (country, phoneme-count proximity, first letter, ending,
// brand tier) and returns the top 3. The sort is stable, so ties keep catalog
// order. The result never contains current itself.
func (a *Analyzer) similarBrands(current catalog.Brand) []catalog.Brand {
	type scored struct {
		brand catalog.Brand
		score int
	}

	currentCount := len(current.PhonemeList())
	currentFirst := firstLetterLower(current.Name)
	currentEnd := lastTwoLower(current.Name)
	currentLuxury := inTier(current.Name, luxuryBrands)
	currentMainstream := inTier(current.Name, mainstreamBrands)

	var candidates []scored
	for _, b := range a.brands {
		if b.ID == current.ID {
			continue
		}

		score := 0
		if b.Country == current.Country {
			score += weightSameCountry
		}
		switch diff := absInt(len(b.PhonemeList()) - currentCount); diff {
		case 0:
			score += weightPhonemeCountEq
		case 1:
			score += weightPhonemeCountOff
		case 2:
			score += weightPhonemeCountFar
		}
		if firstLetterLower(b.Name) == currentFirst {
			score += weightFirstLetter
		}
		if lastTwoLower(b.Name) == currentEnd {
			score += weightLastTwoLetters
		}
		if (currentLuxury && inTier(b.Name, luxuryBrands)) ||
			(currentMainstream && inTier(b.Name, mainstreamBrands)) {
			score += weightSameTier
		}

		candidates = append(candidates, scored{brand: b, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := min(3, len(candidates))
	out := make([]catalog.Brand, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].brand
	}
	return out
}

// fallbackSimilarBrands returns the first n catalog entries, used when no
// brand matched so the caller still gets practice suggestions.
func (a *Analyzer) fallbackSimilarBrands(n int) []catalog.Brand {
	n = min(n, len(a.brands))
	out := make([]catalog.Brand, n)
	copy(out, a.brands[:n])
	return out
}

func inTier(name string, tier []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tier {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func firstLetterLower(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToLower(name[:1])
}

func lastTwoLower(name string) string {
	if len(name) < 2 {
		return strings.ToLower(name)
	}
	return strings.ToLower(name[len(name)-2:])
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
