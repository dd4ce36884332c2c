package scorer

import (
	"math"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Sub-metric names produced by the eye-tracking scorer.
const (
	MetricGazeVelocity    = "gazeVelocity"
	MetricFixationAnomaly = "fixationAnomaly"
	MetricPupilVariation  = "pupilVariation"
)

// EyeTrackingBaseline holds the static parameters gaze scoring is
// normalized against. Coordinates are expected in normalized screen space
// ([0,1] on both axes).
type EyeTrackingBaseline struct {
	// ReferenceStep is the per-sample gaze travel distance considered a
	// fully saccadic jump.
	ReferenceStep float64
	// FixationRadius is the distance from the rolling gaze centroid
	// within which a sample counts as fixated.
	FixationRadius float64
	// ReferencePupilVariation is the pupil-diameter coefficient of
	// variation considered fully anomalous.
	ReferencePupilVariation float64
	// FullConfidenceSamples is the gaze sample count at which score
	// confidence saturates.
	FullConfidenceSamples int
}

func DefaultEyeTrackingBaseline() EyeTrackingBaseline {
	return EyeTrackingBaseline{
		ReferenceStep:           0.5,
		FixationRadius:          0.15,
		ReferencePupilVariation: 0.4,
		FullConfidenceSamples:   50,
	}
}

type gazeSample struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Pupil float64 `json:"pupil,omitempty"`
}

type eyeTrackingPayload struct {
	GazeSamples []gazeSample `json:"gaze_samples"`
}

// EyeTrackingScorer scores saccade velocity, fixation stability, and pupil
// variation from a gaze sample series.
type EyeTrackingScorer struct {
	baseline EyeTrackingBaseline
}

func NewEyeTrackingScorer(baseline EyeTrackingBaseline) *EyeTrackingScorer {
	return &EyeTrackingScorer{baseline: baseline}
}

func (s *EyeTrackingScorer) Category() models.Category {
	return models.CategoryEyeTracking
}

func (s *EyeTrackingScorer) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	var p eyeTrackingPayload
	if err := decodePayload(batch, &p); err != nil {
		return nil, err
	}
	if len(p.GazeSamples) == 0 {
		return nil, &InvalidPayloadError{Field: "gaze_samples", Reason: "non-empty gaze sample series required"}
	}

	velocity := s.gazeVelocity(p.GazeSamples)
	fixation := s.fixationAnomaly(p.GazeSamples)

	pupils := make([]float64, 0, len(p.GazeSamples))
	for _, g := range p.GazeSamples {
		if g.Pupil > 0 {
			pupils = append(pupils, g.Pupil)
		}
	}
	pupilVar := clamp(variation(pupils) / s.baseline.ReferencePupilVariation)

	overall := clamp(0.4*velocity + 0.4*fixation + 0.2*pupilVar)

	return &models.ScoreResult{
		OverallScore: round4(overall),
		SubMetrics: map[string]float64{
			MetricGazeVelocity:    round4(velocity),
			MetricFixationAnomaly: round4(fixation),
			MetricPupilVariation:  round4(pupilVar),
		},
		Confidence: round4(confidenceFor(len(p.GazeSamples), s.baseline.FullConfidenceSamples)),
		ComputedAt: time.Now().UTC(),
	}, nil
}

// gazeVelocity is the mean per-sample travel distance normalized by the
// baseline saccade step.
func (s *EyeTrackingScorer) gazeVelocity(samples []gazeSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(samples); i++ {
		dx := samples[i].X - samples[i-1].X
		dy := samples[i].Y - samples[i-1].Y
		total += math.Hypot(dx, dy)
	}
	avg := total / float64(len(samples)-1)
	return clamp(avg / s.baseline.ReferenceStep)
}

// fixationAnomaly is the fraction of samples that fall outside the
// fixation radius around the gaze centroid.
func (s *EyeTrackingScorer) fixationAnomaly(samples []gazeSample) float64 {
	cx, cy := 0.0, 0.0
	for _, g := range samples {
		cx += g.X
		cy += g.Y
	}
	cx /= float64(len(samples))
	cy /= float64(len(samples))

	outside := 0
	for _, g := range samples {
		if math.Hypot(g.X-cx, g.Y-cy) > s.baseline.FixationRadius {
			outside++
		}
	}
	return clamp(float64(outside) / float64(len(samples)))
}
