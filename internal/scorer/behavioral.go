package scorer

import (
	"strconv"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Sub-metric names produced by the behavioral scorer.
const (
	MetricSpeedAnomaly             = "speedAnomaly"
	MetricPerformanceInconsistency = "performanceInconsistency"
	MetricCognitiveLoad            = "cognitiveLoad"
)

// BehavioralBaseline holds the static parameters behavioral scoring is
// normalized against.
type BehavioralBaseline struct {
	// ReferenceVariation is the answer-timing coefficient of variation
	// considered fully anomalous.
	ReferenceVariation float64
	// ReferenceGapSeconds is the interaction gap considered fully
	// indicative of cognitive overload.
	ReferenceGapSeconds float64
	// FullConfidenceSamples is the timing sample count at which score
	// confidence saturates.
	FullConfidenceSamples int
}

// DefaultBehavioralBaseline returns parameters tuned for per-question
// assessment timings.
func DefaultBehavioralBaseline() BehavioralBaseline {
	return BehavioralBaseline{
		ReferenceVariation:    1.5,
		ReferenceGapSeconds:   30,
		FullConfidenceSamples: 20,
	}
}

type behavioralPayload struct {
	// AnswerTimings is the per-question response time series in seconds.
	AnswerTimings []float64 `json:"answer_timings"`
	// Correct marks each answered question right or wrong, aligned with
	// AnswerTimings where provided.
	Correct []bool `json:"correct,omitempty"`
	// InteractionGaps is the idle time between interactions in seconds.
	InteractionGaps []float64 `json:"interaction_gaps,omitempty"`
}

// BehavioralScorer scores answering-speed, performance-consistency, and
// cognitive-load patterns from assessment interaction telemetry.
type BehavioralScorer struct {
	baseline BehavioralBaseline
}

func NewBehavioralScorer(baseline BehavioralBaseline) *BehavioralScorer {
	return &BehavioralScorer{baseline: baseline}
}

func (s *BehavioralScorer) Category() models.Category {
	return models.CategoryBehavioral
}

func (s *BehavioralScorer) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	var p behavioralPayload
	if err := decodePayload(batch, &p); err != nil {
		return nil, err
	}
	if len(p.AnswerTimings) == 0 {
		return nil, &InvalidPayloadError{Field: "answer_timings", Reason: "non-empty timing series required"}
	}
	for i, t := range p.AnswerTimings {
		if t < 0 {
			return nil, &InvalidPayloadError{Field: "answer_timings", Reason: "negative timing at index " + strconv.Itoa(i)}
		}
	}

	speedAnomaly := clamp(variation(p.AnswerTimings) / s.baseline.ReferenceVariation)
	inconsistency := performanceInconsistency(p.Correct)
	load := clamp(mean(p.InteractionGaps) / s.baseline.ReferenceGapSeconds)

	overall := clamp(0.5*speedAnomaly + 0.3*inconsistency + 0.2*load)

	return &models.ScoreResult{
		OverallScore: round4(overall),
		SubMetrics: map[string]float64{
			MetricSpeedAnomaly:             round4(speedAnomaly),
			MetricPerformanceInconsistency: round4(inconsistency),
			MetricCognitiveLoad:            round4(load),
		},
		Confidence: round4(confidenceFor(len(p.AnswerTimings), s.baseline.FullConfidenceSamples)),
		ComputedAt: time.Now().UTC(),
	}, nil
}

// performanceInconsistency measures how often correctness alternates:
// steady streaks score low, erratic right-wrong flapping scores high.
func performanceInconsistency(correct []bool) float64 {
	if len(correct) < 2 {
		return 0
	}
	flips := 0
	for i := 1; i < len(correct); i++ {
		if correct[i] != correct[i-1] {
			flips++
		}
	}
	return clamp(float64(flips) / float64(len(correct)-1))
}
