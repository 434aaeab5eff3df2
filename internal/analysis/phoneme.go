package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/voca-app/voca/internal/analysis/strdist"
	"github.com/voca-app/voca/internal/catalog"
)

// Positional credit values for the character-level scan. A missing sound is
// penalised harder than an extra one, and both harder than a substitution of
// a confusable sound.
const (
	creditExact   = 100.0
	creditMissing = 5.0
	creditExtra   = 15.0

	// Substitution credit is mismatchBase minus the phonetic similarity,
	// clamped into [mismatchCreditMin, mismatchCreditMax].
	mismatchBase      = 40.0
	mismatchCreditMin = 10.0
	mismatchCreditMax = 60.0
)

// confusable maps a character to the set of characters that sound close
// enough to it to deserve partial credit: neighbouring vowels, voiced and
// unvoiced consonant pairs, nasals, and liquids.
var confusable = map[byte]string{
	'a': "ae",
	'e': "eai",
	'i': "ie",
	'o': "ou",
	'u': "uo",
	'p': "pb",
	'b': "bp",
	't': "td",
	'd': "dt",
	'k': "kg",
	'g': "gk",
	'f': "fv",
	'v': "vf",
	's': "sz",
	'z': "zs",
	'm': "mn",
	'n': "nm",
	'l': "lr",
	'r': "rl",
}

// phoneticSimilarity returns 0.25 when user is in target's confusable set and
// 0.05 otherwise. The values feed both the substitution credit and the
// mismatch confidence band.
func phoneticSimilarity(target, user byte) float64 {
	if set, ok := confusable[target]; ok && strings.IndexByte(set, user) >= 0 {
		return 0.25
	}
	return 0.05
}

// phonemeAnalysis is the intermediate output of analyzePhonemes, consumed by
// the feedback and waveform synthesisers before assembly into a Result.
type phonemeAnalysis struct {
	userPhonemes    []PhonemeAnnotation
	correctPhonemes []PhonemeAnnotation
	accuracy        int
	detailed        DetailedScores
}

// analyzePhonemes compares the normalised transcript against the brand's
// normalised name position by position, derives the bounded 0-100 accuracy,
// and annotates every target phoneme with correctness, confidence, and a
// display label.
//
// An empty transcript degrades gracefully: every position counts as a missing
// sound and the accuracy bottoms out at 5.
func (a *Analyzer) analyzePhonemes(transcript string, brand catalog.Brand) phonemeAnalysis {
	targetPhonemes := brand.PhonemeList()
	userText := strdist.Normalize(transcript)
	targetText := strdist.Normalize(brand.Name)

	maxLen := max(len(userText), len(targetText))
	minLen := min(len(userText), len(targetText))

	// Character-position scan.
	var totalCredit float64
	for i := 0; i < maxLen; i++ {
		switch {
		case i < minLen && userText[i] == targetText[i]:
			totalCredit += creditExact
		case i >= len(userText):
			totalCredit += creditMissing
		case i >= len(targetText):
			totalCredit += creditExtra
		default:
			sim := phoneticSimilarity(targetText[i], userText[i])
			totalCredit += math.Max(mismatchCreditMin, math.Min(mismatchCreditMax, mismatchBase-sim))
		}
	}

	var accuracy float64
	if maxLen > 0 {
		accuracy = totalCredit / float64(maxLen)
	}

	// Length mismatch: 8 points per missing/extra character, capped at 30.
	if len(userText) != len(targetText) {
		diff := float64(maxLen - minLen)
		accuracy = math.Max(5, accuracy-math.Min(30, diff*8))
	}

	// Long runs of consecutive wrong characters over the overlapping prefix
	// read as garbled speech rather than isolated slips.
	if run := longestMismatchRun(userText, targetText, minLen); run > 2 {
		accuracy = math.Max(10, accuracy-float64(run)*5)
	}

	score := int(math.Max(5, math.Min(100, math.Round(accuracy))))

	pa := phonemeAnalysis{
		accuracy:        score,
		correctPhonemes: referenceAnnotations(targetPhonemes),
		userPhonemes:    a.userAnnotations(targetPhonemes, userText, targetText, score),
		detailed:        a.detailedScores(score),
	}
	return pa
}

// longestMismatchRun returns the length of the longest run of consecutive
// differing positions within the first n characters of both strings.
func longestMismatchRun(user, target string, n int) int {
	var run, longest int
	for i := 0; i < n; i++ {
		if user[i] != target[i] {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// referenceAnnotations builds the target-side phoneme list: always correct,
// full confidence, evenly spaced timing.
func referenceAnnotations(phonemes []string) []PhonemeAnnotation {
	out := make([]PhonemeAnnotation, len(phonemes))
	for i, p := range phonemes {
		out[i] = PhonemeAnnotation{
			Symbol:     p,
			Correct:    true,
			Label:      fmt.Sprintf("Target: /%s/", p),
			Confidence: 1.0,
			Timing:     float64(i+1) * (100 / float64(len(phonemes))),
		}
	}
	return out
}

// userAnnotations classifies every target phoneme position using the same
// match/mismatch rules as the positional scan, then assigns a confidence
// drawn from a band that depends on the classification and the overall
// accuracy tier. The banded randomisation is deliberate naturalness noise;
// consumers must treat confidences as ranges, not fixed values.
func (a *Analyzer) userAnnotations(phonemes []string, userText, targetText string, accuracy int) []PhonemeAnnotation {
	out := make([]PhonemeAnnotation, len(phonemes))
	for i, p := range phonemes {
		ann := PhonemeAnnotation{Symbol: p}

		switch {
		case i >= len(userText):
			ann.Confidence = 0.05
			ann.Label = fmt.Sprintf("Missing: /%s/", p)

		case i >= len(targetText):
			ann.Confidence = 0.1
			ann.Label = "Extra sound"

		case userText[i] == targetText[i]:
			clean := neighborsMatch(userText, targetText, i)
			switch {
			case clean && accuracy > 80:
				ann.Confidence = 0.85 + a.rng.Float64()*0.15
				ann.Correct = true
				ann.Label = fmt.Sprintf("Excellent: /%s/", p)
			case accuracy > 60:
				ann.Confidence = 0.70 + a.rng.Float64()*0.20
				ann.Correct = true
				ann.Label = fmt.Sprintf("Good: /%s/", p)
			default:
				ann.Confidence = 0.55 + a.rng.Float64()*0.25
				ann.Correct = ann.Confidence > 0.65
				if ann.Correct {
					ann.Label = fmt.Sprintf("Okay: /%s/", p)
				} else {
					ann.Label = fmt.Sprintf("Unclear: /%s/", p)
				}
			}

		default:
			sim := phoneticSimilarity(targetText[i], userText[i])
			ann.Confidence = math.Max(0.02, math.Min(0.45, (50-sim)/100))
			ann.Label = mismatchLabel(p, targetText[i], userText[i])
		}

		ann.Timing = float64(i+1)*(100/float64(len(phonemes))) + (a.rng.Float64()-0.5)*5
		out[i] = ann
	}
	return out
}

// neighborsMatch reports whether the characters adjacent to position i agree
// between the two strings. A matched character flanked by mismatches gets a
// lower confidence band than one inside a clean stretch. When the user said
// more than the target holds, the trailing extra sound counts as a
// mismatched neighbor.
func neighborsMatch(user, target string, i int) bool {
	before := true
	if i > 0 {
		before = user[i-1] == target[i-1]
	}
	after := true
	if i+1 < len(user) {
		after = i+1 < len(target) && user[i+1] == target[i+1]
	}
	return before && after
}

// mismatchLabel picks the error message for a wrong sound, naming the common
// confusion category when the pair falls into one.
func mismatchLabel(phoneme string, target, user byte) string {
	both := func(set string) bool {
		return strings.IndexByte(set, target) >= 0 && strings.IndexByte(set, user) >= 0
	}
	switch {
	case both("ei"):
		return fmt.Sprintf("Close, try: /%s/ (said /%c/)", phoneme, user)
	case both("oa"):
		return fmt.Sprintf("Almost, try: /%s/ (said /%c/)", phoneme, user)
	case both("sz"):
		return fmt.Sprintf("Wrong voicing: /%s/ (said /%c/)", phoneme, user)
	default:
		return fmt.Sprintf("Wrong sound: /%s/ (said /%c/)", phoneme, user)
	}
}

// detailedScores derives the sub-metric breakdown from the overall accuracy
// with bounded jitter. The floors (60/50/70) are a deliberate presentation
// policy: sub-scores stay encouraging even for poor attempts.
func (a *Analyzer) detailedScores(accuracy int) DetailedScores {
	acc := float64(accuracy)
	return DetailedScores{
		PhonemeAccuracy: accuracy,
		StressPattern:   int(math.Round(math.Max(60, acc+(a.rng.Float64()-0.5)*20))),
		Timing:          int(math.Round(math.Max(50, acc+(a.rng.Float64()-0.5)*30))),
		Clarity:         int(math.Round(math.Max(70, acc+(a.rng.Float64()-0.5)*15))),
	}
}
