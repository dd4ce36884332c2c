package scorer

import (
	"math"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Sub-metric names produced by the voice scorer. MetricStressLevel is
// shared with the facial scorer.
const (
	MetricPitchVariation      = "pitchVariation"
	MetricSpeechRateDeviation = "speechRateDeviation"
	MetricBackgroundVoices    = "backgroundVoices"
)

// VoiceBaseline holds the static parameters voice scoring is normalized
// against.
type VoiceBaseline struct {
	// ReferencePitchVariation is the pitch coefficient of variation
	// considered fully anomalous.
	ReferencePitchVariation float64
	// ReferenceWordsPerMinute is the expected steady speech rate.
	ReferenceWordsPerMinute float64
	// FullConfidenceSamples is the pitch sample count at which score
	// confidence saturates.
	FullConfidenceSamples int
}

func DefaultVoiceBaseline() VoiceBaseline {
	return VoiceBaseline{
		ReferencePitchVariation: 0.5,
		ReferenceWordsPerMinute: 160,
		FullConfidenceSamples:   30,
	}
}

type voicePayload struct {
	// PitchSeries is the fundamental-frequency series in Hz.
	PitchSeries []float64 `json:"pitch_series"`
	// WordsPerMinute is the measured speech rate, 0 when not tracked.
	WordsPerMinute float64 `json:"words_per_minute,omitempty"`
	// VoiceCount is the number of distinct voiceprints detected in the
	// audio window. More than one indicates another person speaking.
	VoiceCount int `json:"voice_count"`
}

// VoiceScorer scores vocal stress, pitch variation, speech-rate deviation,
// and background voice presence from audio features.
type VoiceScorer struct {
	baseline VoiceBaseline
}

func NewVoiceScorer(baseline VoiceBaseline) *VoiceScorer {
	return &VoiceScorer{baseline: baseline}
}

func (s *VoiceScorer) Category() models.Category {
	return models.CategoryVoice
}

func (s *VoiceScorer) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	var p voicePayload
	if err := decodePayload(batch, &p); err != nil {
		return nil, err
	}
	if len(p.PitchSeries) == 0 {
		return nil, &InvalidPayloadError{Field: "pitch_series", Reason: "non-empty audio feature series required"}
	}
	if p.VoiceCount < 0 {
		return nil, &InvalidPayloadError{Field: "voice_count", Reason: "must be non-negative"}
	}

	pitchVar := clamp(variation(p.PitchSeries) / s.baseline.ReferencePitchVariation)
	// Vocal stress tracks pitch instability but saturates faster.
	stress := clamp(1.5 * pitchVar)

	rateDev := 0.0
	if p.WordsPerMinute > 0 {
		rateDev = clamp(math.Abs(p.WordsPerMinute-s.baseline.ReferenceWordsPerMinute) / s.baseline.ReferenceWordsPerMinute)
	}

	// Any voice beyond the candidate's own maxes the metric, matching the
	// "more than one detected voice" trigger for signal 179.
	background := 0.0
	if p.VoiceCount > 1 {
		background = 1
	}

	overall := clamp(0.35*stress + 0.25*pitchVar + 0.15*rateDev + 0.25*background)

	return &models.ScoreResult{
		OverallScore: round4(overall),
		SubMetrics: map[string]float64{
			MetricStressLevel:         round4(stress),
			MetricPitchVariation:      round4(pitchVar),
			MetricSpeechRateDeviation: round4(rateDev),
			MetricBackgroundVoices:    background,
		},
		Confidence: round4(confidenceFor(len(p.PitchSeries), s.baseline.FullConfidenceSamples)),
		ComputedAt: time.Now().UTC(),
	}, nil
}
