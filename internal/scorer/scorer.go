// Package scorer turns category-specific observation batches into
// normalized score results. Every scorer is a pure function of its payload
// plus static baseline parameters, so identical input always yields an
// identical score.
package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// ErrUnsupportedCategory is returned when no scorer is registered for the
// batch's category.
var ErrUnsupportedCategory = errors.New("unsupported category")

// InvalidPayloadError names the payload field that was missing or malformed.
type InvalidPayloadError struct {
	Field  string
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Reason)
}

// CategoryScorer computes a ScoreResult for one analysis category.
// Implementations must be deterministic and produce overall score and
// confidence in [0,1] with at least one sub-metric.
type CategoryScorer interface {
	Category() models.Category
	Score(batch *models.ObservationBatch) (*models.ScoreResult, error)
}

// Registry dispatches batches to the scorer registered for their category.
type Registry struct {
	scorers map[models.Category]CategoryScorer
}

// NewRegistry builds a registry from the given scorers. Later entries for
// the same category replace earlier ones.
func NewRegistry(scorers ...CategoryScorer) *Registry {
	r := &Registry{scorers: make(map[models.Category]CategoryScorer, len(scorers))}
	for _, s := range scorers {
		r.scorers[s.Category()] = s
	}
	return r
}

// DefaultRegistry returns a registry with the built-in scorer for every
// recognized category, using default baselines.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewBehavioralScorer(DefaultBehavioralBaseline()),
		NewEyeTrackingScorer(DefaultEyeTrackingBaseline()),
		NewFacialScorer(),
		NewVoiceScorer(DefaultVoiceBaseline()),
		NewSystemScorer(DefaultSystemBaseline()),
	)
}

// Score validates the batch category and dispatches to the registered
// scorer. Unknown categories fail with ErrUnsupportedCategory.
func (r *Registry) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	s, ok := r.scorers[batch.Category]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", batch.Category, ErrUnsupportedCategory)
	}

	result, err := s.Score(batch)
	if err != nil {
		return nil, err
	}

	result.SessionID = batch.SessionID
	result.Category = batch.Category
	if result.ComputedAt.IsZero() {
		result.ComputedAt = time.Now().UTC()
	}
	return result, nil
}

func decodePayload(batch *models.ObservationBatch, dst any) error {
	if len(batch.Payload) == 0 {
		return &InvalidPayloadError{Field: "payload", Reason: "missing"}
	}
	if err := json.Unmarshal(batch.Payload, dst); err != nil {
		return &InvalidPayloadError{Field: "payload", Reason: err.Error()}
	}
	return nil
}

// confidenceFor derives score reliability from sample volume: a batch with
// fewer samples than fullSamples is proportionally less trustworthy.
func confidenceFor(samples, fullSamples int) float64 {
	if fullSamples <= 0 {
		return 1
	}
	return clamp(float64(samples) / float64(fullSamples))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// variation is the coefficient of variation, a scale-free spread measure.
func variation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return math.Abs(stddev(values) / m)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
