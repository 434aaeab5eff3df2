// Package analysis implements the pronunciation scoring engine: it takes a
// free-text transcript produced by a speech-to-text service, identifies the
// car brand the speaker most likely attempted, scores the attempt with
// positional and phonetic-class weighting, and synthesises structured
// feedback for the presentation layer.
//
// The engine is a pure computation over its inputs plus the static brand
// catalog: no I/O, no shared mutable state between calls, and every string
// input degrades gracefully to a low-score result instead of an error. The
// only randomness is the naturalness noise injected into confidences,
// sub-scores, and waveforms, which flows through an injectable [FloatSource]
// so tests can pin outputs deterministically.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/voca-app/voca/internal/catalog"
)

const (
	defaultMatchThreshold  = 0.4
	defaultSuggestionFloor = 0.2
)

// Option is a functional option for configuring an [Analyzer].
type Option func(*Analyzer)

// WithMatchThreshold sets the minimum adjusted similarity a brand must exceed
// to be accepted as the detected brand. Default: 0.4.
func WithMatchThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.matchThreshold = threshold
	}
}

// WithSuggestionFloor sets the minimum plain similarity for a brand to appear
// in "did you mean" suggestions when nothing crossed the match threshold.
// Default: 0.2.
func WithSuggestionFloor(floor float64) Option {
	return func(a *Analyzer) {
		a.suggestionFloor = floor
	}
}

// WithRand replaces the noise source used for confidence bands, sub-score
// jitter, and waveform deviation. The default draws from the process-wide
// math/rand/v2 generator and is safe for concurrent use; a seeded *rand.Rand
// passed here is not, so pin the source only in single-goroutine tests.
func WithRand(src FloatSource) Option {
	return func(a *Analyzer) {
		a.rng = src
	}
}

// Analyzer scores pronunciation attempts against a brand catalog. Construct
// one per catalog at startup and share it across requests; with the default
// noise source all methods are safe for concurrent use.
type Analyzer struct {
	brands          []catalog.Brand
	rng             FloatSource
	matchThreshold  float64
	suggestionFloor float64
}

// New returns an [Analyzer] over the given catalog, configured with the
// supplied options.
func New(cat *catalog.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		brands:          cat.Brands(),
		rng:             sharedSource{},
		matchThreshold:  defaultMatchThreshold,
		suggestionFloor: defaultSuggestionFloor,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze scores the transcript and returns the full structured result. It
// never fails: an empty or unrecognisable transcript produces a no-match
// result with zero accuracy and "did you mean" suggestions rather than an
// error.
func (a *Analyzer) Analyze(transcript string) *Result {
	brand, found := a.bestMatch(transcript)
	if !found {
		return a.noMatchResult(transcript)
	}

	pa := a.analyzePhonemes(transcript, brand)
	detailed := pa.detailed

	overall := int(math.Round(float64(pa.accuracy+detailed.Timing+detailed.Clarity) / 3))
	vendor := &VendorDetails{
		AccuracyScore:     pa.accuracy,
		FluencyScore:      detailed.Timing,
		CompletenessScore: detailed.Clarity,
		OverallScore:      overall,
		PhonemeAccuracy:   detailed.PhonemeAccuracy,
		StressPattern:     detailed.StressPattern,
	}

	return &Result{
		Transcript:            transcript,
		DetectedBrand:         brand.Name,
		Accuracy:              pa.accuracy,
		PronunciationFeedback: feedbackMessage(pa.accuracy, brand),
		CorrectPhonemes:       pa.correctPhonemes,
		UserPhonemes:          pa.userPhonemes,
		Suggestions:           suggestions(pa, brand),
		BrandFound:            true,
		Message:               "Pronunciation analysis completed successfully",
		BrandDescription:      brand.Description,
		VendorDetails:         vendor,
		WaveformComparison:    a.synthesizeWaveforms(brand.PhonemeList(), pa.userPhonemes),
		DetailedScores:        &detailed,
		SimilarBrands:         a.similarBrands(brand),
	}
}

// noMatchResult assembles the degraded result for transcripts that matched no
// brand: zero accuracy, empty phoneme lists, and a "did you mean" message
// built from the closest fuzzy candidates above the suggestion floor. The
// similar-brands list falls back to the leading catalog entries so the caller
// never receives an empty list from a non-empty catalog.
func (a *Analyzer) noMatchResult(transcript string) *Result {
	candidates := a.fuzzyCandidates(transcript, a.suggestionFloor, 3)

	feedback := fmt.Sprintf("I heard %q but couldn't match it to a known car brand.", transcript)
	if len(candidates) > 0 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.brand.Name
		}
		feedback += fmt.Sprintf(" Did you mean: %s?", strings.Join(names, ", "))
	}
	feedback += " Try saying a clear car brand name."

	tips := []string{
		"Speak more clearly and slowly",
		"Make sure you're saying a car brand name",
	}
	if len(candidates) > 0 {
		tips = append(tips, fmt.Sprintf("Maybe try: %q", candidates[0].brand.Name))
	} else {
		tips = append(tips, "Try popular brands like Tesla, BMW, Mercedes, Toyota")
	}

	similar := make([]catalog.Brand, 0, 3)
	for _, c := range candidates {
		similar = append(similar, c.brand)
	}
	if len(similar) == 0 {
		similar = a.fallbackSimilarBrands(3)
	}

	return &Result{
		Transcript:            transcript,
		DetectedBrand:         DetectedBrandUnknown,
		Accuracy:              0,
		PronunciationFeedback: feedback,
		CorrectPhonemes:       []PhonemeAnnotation{},
		UserPhonemes:          []PhonemeAnnotation{},
		Suggestions:           tips,
		BrandFound:            false,
		Message:               "Brand not recognized",
		SimilarBrands:         similar,
	}
}
