package scorer

import (
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Sub-metric names produced by the facial scorer.
const (
	MetricStressLevel          = "stressLevel"
	MetricExpressionVolatility = "expressionVolatility"
	MetricFocusLoss            = "focusLoss"
)

const facialFullConfidenceSamples = 10

type expressionSample struct {
	// Per-frame expression intensities, each in [0,1], as emitted by the
	// client-side expression model.
	Stress float64 `json:"stress"`
	Focus  float64 `json:"focus"`
}

type facialPayload struct {
	Expressions []expressionSample `json:"expressions"`
}

// FacialScorer scores stress, expression volatility, and focus loss from a
// series of per-frame expression intensities.
type FacialScorer struct{}

func NewFacialScorer() *FacialScorer {
	return &FacialScorer{}
}

func (s *FacialScorer) Category() models.Category {
	return models.CategoryFacial
}

func (s *FacialScorer) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	var p facialPayload
	if err := decodePayload(batch, &p); err != nil {
		return nil, err
	}
	if len(p.Expressions) == 0 {
		return nil, &InvalidPayloadError{Field: "expressions", Reason: "non-empty expression series required"}
	}

	stresses := make([]float64, len(p.Expressions))
	focuses := make([]float64, 0, len(p.Expressions))
	for i, e := range p.Expressions {
		if e.Stress < 0 || e.Stress > 1 {
			return nil, &InvalidPayloadError{Field: "expressions", Reason: "stress values must be in [0,1]"}
		}
		stresses[i] = e.Stress
		if e.Focus > 0 {
			focuses = append(focuses, clamp(e.Focus))
		}
	}

	stress := mean(stresses)
	// Expression swings between consecutive frames; a steady face scores 0.
	volatility := 0.0
	if len(stresses) > 1 {
		total := 0.0
		for i := 1; i < len(stresses); i++ {
			d := stresses[i] - stresses[i-1]
			if d < 0 {
				d = -d
			}
			total += d
		}
		volatility = clamp(2 * total / float64(len(stresses)-1))
	}
	// Untracked focus is no signal, not total focus loss.
	focusLoss := 0.0
	if len(focuses) > 0 {
		focusLoss = clamp(1 - mean(focuses))
	}

	overall := clamp(0.5*stress + 0.3*volatility + 0.2*focusLoss)

	return &models.ScoreResult{
		OverallScore: round4(overall),
		SubMetrics: map[string]float64{
			MetricStressLevel:          round4(stress),
			MetricExpressionVolatility: round4(volatility),
			MetricFocusLoss:            round4(focusLoss),
		},
		Confidence: round4(confidenceFor(len(p.Expressions), facialFullConfidenceSamples)),
		ComputedAt: time.Now().UTC(),
	}, nil
}
