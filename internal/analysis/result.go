package analysis

import "github.com/voca-app/voca/internal/catalog"

// DetectedBrandUnknown is the sentinel DetectedBrand value reported when no
// catalog brand matched the transcript.
const DetectedBrandUnknown = "unknown"

// PhonemeAnnotation describes one phoneme position of an attempt. Confidence
// is a per-phoneme heuristic certainty in [0, 1] and is NOT on the same scale
// as the 0-100 accuracy. Timing is a synthetic position indicator in [0, 100]
// used only for display ordering; it carries no real temporal meaning.
type PhonemeAnnotation struct {
	Symbol     string  `json:"symbol"`
	Correct    bool    `json:"correct"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	Timing     float64 `json:"timing"`
}

// DetailedScores breaks the overall accuracy into sub-metrics. StressPattern,
// Timing, and Clarity are derived from the accuracy with bounded jitter and
// are floored at 60, 50, and 70 respectively: sub-scores deliberately never
// look catastrophic even when the overall accuracy is low.
type DetailedScores struct {
	PhonemeAccuracy int `json:"phonemeAccuracy"`
	StressPattern   int `json:"stressPattern"`
	Timing          int `json:"timing"`
	Clarity         int `json:"clarity"`
}

// WaveformComparison carries illustrative amplitude traces for the reference
// and user pronunciations. The data is synthesised from phoneme categories
// and confidence values; it is not derived from audio and must never be
// treated as an acoustic measurement.
type WaveformComparison struct {
	UserWaveform    []float64 `json:"userWaveform"`
	CorrectWaveform []float64 `json:"correctWaveform"`
	TimeLabels      []string  `json:"timeLabels"`
}

// VendorDetails mirrors the score breakdown shape of external pronunciation
// assessment vendors so the UI can render both sources uniformly. For locally
// analysed attempts every field is derived from the heuristic scores.
type VendorDetails struct {
	AccuracyScore     int `json:"accuracyScore"`
	FluencyScore      int `json:"fluencyScore"`
	CompletenessScore int `json:"completenessScore"`
	OverallScore      int `json:"overallScore"`
	PhonemeAccuracy   int `json:"phonemeAccuracy,omitempty"`
	StressPattern     int `json:"stressPattern,omitempty"`
}

// Result is the complete outcome of analysing one transcript. It is a pure
// value object: built once per call, never mutated, never persisted by the
// engine itself.
type Result struct {
	Transcript            string              `json:"transcript"`
	DetectedBrand         string              `json:"detectedBrand"`
	Accuracy              int                 `json:"accuracy"`
	PronunciationFeedback string              `json:"pronunciationFeedback"`
	CorrectPhonemes       []PhonemeAnnotation `json:"correctPhonemes"`
	UserPhonemes          []PhonemeAnnotation `json:"userPhonemes"`
	Suggestions           []string            `json:"suggestions"`
	BrandFound            bool                `json:"brandFound"`
	Message               string              `json:"message"`
	BrandDescription      string              `json:"brandDescription,omitempty"`
	VendorDetails         *VendorDetails      `json:"vendorDetails,omitempty"`
	WaveformComparison    *WaveformComparison `json:"waveformComparison,omitempty"`
	DetailedScores        *DetailedScores     `json:"detailedScores,omitempty"`
	SimilarBrands         []catalog.Brand     `json:"similarBrands,omitempty"`
}
