package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Waveform synthesis parameters. The traces are purely illustrative: they are
// generated from phoneme categories and confidence annotations, never from
// audio samples.
const (
	minWaveformSamples = 30
	samplesPerPhoneme  = 4
	secondsPerPhoneme  = 0.2
	maxTimeLabels      = 12
)

const (
	vowelPhonemes   = "aeiou"
	plosivePhonemes = "pbtdkg"
)

// synthesizeWaveforms produces the reference and user amplitude traces for a
// scored attempt. The reference trace shape depends on the phonetic class at
// each sample position (vowels smooth and loud, plosives sharply peaked,
// everything else moderate); the user trace is the reference scaled by the
// per-phoneme confidence, with larger random deviation where the phoneme was
// marked incorrect.
func (a *Analyzer) synthesizeWaveforms(targetPhonemes []string, userPhonemes []PhonemeAnnotation) *WaveformComparison {
	n := len(targetPhonemes)
	sampleCount := max(minWaveformSamples, n*samplesPerPhoneme)

	correct := make([]float64, sampleCount)
	for i := range correct {
		position := float64(i) / float64(sampleCount)
		phoneme := phonemeAt(targetPhonemes, position)

		var amplitude float64
		switch {
		case phonemeClass(phoneme, vowelPhonemes):
			amplitude = 0.6 + math.Sin(position*math.Pi*8)*0.2
		case phonemeClass(phoneme, plosivePhonemes):
			amplitude = 0.4 + math.Sin(position*math.Pi*12)*0.3
		default:
			amplitude = 0.5 + math.Sin(position*math.Pi*6)*0.15
		}
		correct[i] = clamp(amplitude+(a.rng.Float64()-0.5)*0.05, 0.1, 0.9)
	}

	user := make([]float64, sampleCount)
	for i, ref := range correct {
		position := float64(i) / float64(sampleCount)
		idx := int(position * float64(n))

		switch {
		case idx >= len(userPhonemes):
			// Sounds beyond the annotated phonemes: low noise.
			user[i] = math.Max(0.05, a.rng.Float64()*0.3)
		case !userPhonemes[idx].Correct:
			wrong := ref*(0.3+a.rng.Float64()*0.4) + (a.rng.Float64()-0.5)*0.3
			user[i] = clamp(wrong, 0.05, 0.95)
		default:
			conf := userPhonemes[idx].Confidence
			variation := (1 - conf) * (a.rng.Float64() - 0.5) * 0.4
			user[i] = clamp(ref*conf+variation, 0.1, 0.9)
		}
	}

	duration := float64(n) * secondsPerPhoneme
	labelCount := min(maxTimeLabels, sampleCount)
	labels := make([]string, labelCount)
	for i := range labels {
		point := float64(i) / float64(maxTimeLabels-1) * duration
		labels[i] = fmt.Sprintf("%.1fs", point)
	}

	return &WaveformComparison{
		UserWaveform:    user,
		CorrectWaveform: correct,
		TimeLabels:      labels,
	}
}

// phonemeAt maps a relative position in [0, 1) to the phoneme occupying that
// stretch of the trace.
func phonemeAt(phonemes []string, position float64) string {
	if len(phonemes) == 0 {
		return ""
	}
	idx := int(position * float64(len(phonemes)))
	if idx >= len(phonemes) {
		idx = len(phonemes) - 1
	}
	return phonemes[idx]
}

// phonemeClass reports whether the phoneme token belongs to the single-letter
// class set. Multi-letter tokens are classified by their first letter.
func phonemeClass(phoneme, set string) bool {
	if phoneme == "" {
		return false
	}
	return strings.IndexByte(set, phoneme[0]) >= 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
