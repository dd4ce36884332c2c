package scorer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

func batch(t *testing.T, category models.Category, payload any) *models.ObservationBatch {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.ObservationBatch{
		SessionID: "session-1",
		Category:  category,
		Payload:   data,
	}
}

func TestRegistryUnsupportedCategory(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Score(&models.ObservationBatch{
		SessionID: "session-1",
		Category:  "astrology",
		Payload:   json.RawMessage(`{}`),
	})
	assert.True(t, errors.Is(err, ErrUnsupportedCategory))
}

func TestRegistryStampsSessionAndCategory(t *testing.T) {
	r := DefaultRegistry()

	b := batch(t, models.CategoryBehavioral, map[string]any{
		"answer_timings": []float64{10, 12, 11},
	})
	result, err := r.Score(b)
	require.NoError(t, err)

	assert.Equal(t, "session-1", result.SessionID)
	assert.Equal(t, models.CategoryBehavioral, result.Category)
	assert.False(t, result.ComputedAt.IsZero())
}

func TestScoringIsDeterministic(t *testing.T) {
	r := DefaultRegistry()

	payloads := map[models.Category]any{
		models.CategoryBehavioral: map[string]any{
			"answer_timings":   []float64{5, 40, 3, 60, 8},
			"correct":          []bool{true, false, true, false, true},
			"interaction_gaps": []float64{12, 45, 3},
		},
		models.CategoryEyeTracking: map[string]any{
			"gaze_samples": []map[string]float64{
				{"x": 0.1, "y": 0.2, "pupil": 3.1},
				{"x": 0.8, "y": 0.9, "pupil": 4.5},
				{"x": 0.2, "y": 0.1, "pupil": 2.9},
			},
		},
		models.CategoryFacial: map[string]any{
			"expressions": []map[string]float64{
				{"stress": 0.2, "focus": 0.9},
				{"stress": 0.8, "focus": 0.4},
				{"stress": 0.3, "focus": 0.7},
			},
		},
		models.CategoryVoice: map[string]any{
			"pitch_series":     []float64{120, 180, 90, 240},
			"words_per_minute": 210,
			"voice_count":      2,
		},
		models.CategorySystem: map[string]any{
			"samples": []map[string]float64{
				{"cpu_percent": 85, "memory_percent": 70, "latency_ms": 900},
				{"cpu_percent": 92, "memory_percent": 75, "latency_ms": 1100},
			},
			"vm_indicators": []string{"hypervisor-present"},
		},
	}

	for category, payload := range payloads {
		first, err := r.Score(batch(t, category, payload))
		require.NoError(t, err, "category %s", category)
		second, err := r.Score(batch(t, category, payload))
		require.NoError(t, err, "category %s", category)

		assert.Equal(t, first.OverallScore, second.OverallScore, "category %s", category)
		assert.Equal(t, first.SubMetrics, second.SubMetrics, "category %s", category)
		assert.Equal(t, first.Confidence, second.Confidence, "category %s", category)
	}
}

func TestScoresAndConfidenceInRange(t *testing.T) {
	r := DefaultRegistry()

	b := batch(t, models.CategoryVoice, map[string]any{
		"pitch_series":     []float64{50, 500, 50, 500, 50, 500},
		"words_per_minute": 400,
		"voice_count":      5,
	})
	result, err := r.Score(b)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.OverallScore, 0.0)
	assert.LessOrEqual(t, result.OverallScore, 1.0)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	for name, v := range result.SubMetrics {
		assert.GreaterOrEqual(t, v, 0.0, "metric %s", name)
		assert.LessOrEqual(t, v, 1.0, "metric %s", name)
	}
}

func TestBehavioralPayloadValidation(t *testing.T) {
	s := NewBehavioralScorer(DefaultBehavioralBaseline())

	_, err := s.Score(&models.ObservationBatch{Category: models.CategoryBehavioral})
	var invalid *InvalidPayloadError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "payload", invalid.Field)

	_, err = s.Score(batch(t, models.CategoryBehavioral, map[string]any{"answer_timings": []float64{}}))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "answer_timings", invalid.Field)

	_, err = s.Score(batch(t, models.CategoryBehavioral, map[string]any{"answer_timings": []float64{10, -2}}))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "answer_timings", invalid.Field)
	assert.Contains(t, invalid.Reason, "index 1")
}

func TestBehavioralSteadyVersusErratic(t *testing.T) {
	s := NewBehavioralScorer(DefaultBehavioralBaseline())

	steady, err := s.Score(batch(t, models.CategoryBehavioral, map[string]any{
		"answer_timings": []float64{20, 20, 20, 20},
		"correct":        []bool{true, true, true, true},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, steady.SubMetrics[MetricSpeedAnomaly])
	assert.Equal(t, 0.0, steady.SubMetrics[MetricPerformanceInconsistency])

	erratic, err := s.Score(batch(t, models.CategoryBehavioral, map[string]any{
		"answer_timings":   []float64{10, 10, 10, 10},
		"correct":          []bool{true, false, true, false},
		"interaction_gaps": []float64{30, 30},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, erratic.SubMetrics[MetricPerformanceInconsistency])
	assert.Equal(t, 1.0, erratic.SubMetrics[MetricCognitiveLoad])
	assert.InDelta(t, 0.5, erratic.OverallScore, 1e-9)
	assert.Greater(t, erratic.OverallScore, steady.OverallScore)
}

func TestBehavioralConfidenceScalesWithSamples(t *testing.T) {
	s := NewBehavioralScorer(DefaultBehavioralBaseline())

	few, err := s.Score(batch(t, models.CategoryBehavioral, map[string]any{
		"answer_timings": []float64{10, 12, 11, 13},
	}))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, few.Confidence, 1e-9)

	timings := make([]float64, 40)
	for i := range timings {
		timings[i] = 15
	}
	many, err := s.Score(batch(t, models.CategoryBehavioral, map[string]any{"answer_timings": timings}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, many.Confidence)
}

func TestEyeTrackingStableVersusSaccadic(t *testing.T) {
	s := NewEyeTrackingScorer(DefaultEyeTrackingBaseline())

	stable, err := s.Score(batch(t, models.CategoryEyeTracking, map[string]any{
		"gaze_samples": []map[string]float64{
			{"x": 0.50, "y": 0.50},
			{"x": 0.51, "y": 0.49},
			{"x": 0.50, "y": 0.51},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, stable.SubMetrics[MetricFixationAnomaly])
	assert.Less(t, stable.SubMetrics[MetricGazeVelocity], 0.1)

	saccadic, err := s.Score(batch(t, models.CategoryEyeTracking, map[string]any{
		"gaze_samples": []map[string]float64{
			{"x": 0, "y": 0},
			{"x": 1, "y": 1},
			{"x": 0, "y": 0},
			{"x": 1, "y": 1},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, saccadic.SubMetrics[MetricGazeVelocity])
	assert.Equal(t, 1.0, saccadic.SubMetrics[MetricFixationAnomaly])
	assert.InDelta(t, 0.8, saccadic.OverallScore, 1e-9)
}

func TestEyeTrackingRequiresSamples(t *testing.T) {
	s := NewEyeTrackingScorer(DefaultEyeTrackingBaseline())

	_, err := s.Score(batch(t, models.CategoryEyeTracking, map[string]any{"gaze_samples": []any{}}))
	var invalid *InvalidPayloadError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "gaze_samples", invalid.Field)
}

func TestFacialStressValidationAndVolatility(t *testing.T) {
	s := NewFacialScorer()

	_, err := s.Score(batch(t, models.CategoryFacial, map[string]any{
		"expressions": []map[string]float64{{"stress": 1.3, "focus": 0.5}},
	}))
	var invalid *InvalidPayloadError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "expressions", invalid.Field)

	calm, err := s.Score(batch(t, models.CategoryFacial, map[string]any{
		"expressions": []map[string]float64{
			{"stress": 0.1, "focus": 1},
			{"stress": 0.1, "focus": 1},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, calm.SubMetrics[MetricExpressionVolatility])
	assert.Equal(t, 0.0, calm.SubMetrics[MetricFocusLoss])
	assert.InDelta(t, 0.1, calm.SubMetrics[MetricStressLevel], 1e-9)

	// A payload that never reports focus must not register focus loss.
	untracked, err := s.Score(batch(t, models.CategoryFacial, map[string]any{
		"expressions": []map[string]float64{
			{"stress": 0.2},
			{"stress": 0.3},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, untracked.SubMetrics[MetricFocusLoss])

	flapping, err := s.Score(batch(t, models.CategoryFacial, map[string]any{
		"expressions": []map[string]float64{
			{"stress": 0, "focus": 0.5},
			{"stress": 1, "focus": 0.5},
			{"stress": 0, "focus": 0.5},
			{"stress": 1, "focus": 0.5},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, flapping.SubMetrics[MetricExpressionVolatility])
}

func TestVoiceBackgroundVoices(t *testing.T) {
	s := NewVoiceScorer(DefaultVoiceBaseline())

	alone, err := s.Score(batch(t, models.CategoryVoice, map[string]any{
		"pitch_series": []float64{130, 130, 130},
		"voice_count":  1,
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, alone.SubMetrics[MetricBackgroundVoices])
	assert.Equal(t, 0.0, alone.SubMetrics[MetricPitchVariation])

	crowded, err := s.Score(batch(t, models.CategoryVoice, map[string]any{
		"pitch_series": []float64{130, 130, 130},
		"voice_count":  2,
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, crowded.SubMetrics[MetricBackgroundVoices])
	assert.Greater(t, crowded.OverallScore, alone.OverallScore)
}

func TestVoicePayloadValidation(t *testing.T) {
	s := NewVoiceScorer(DefaultVoiceBaseline())

	var invalid *InvalidPayloadError

	_, err := s.Score(batch(t, models.CategoryVoice, map[string]any{"pitch_series": []float64{}}))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "pitch_series", invalid.Field)

	_, err = s.Score(batch(t, models.CategoryVoice, map[string]any{
		"pitch_series": []float64{120},
		"voice_count":  -1,
	}))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "voice_count", invalid.Field)
}

func TestVoiceSpeechRateDeviation(t *testing.T) {
	s := NewVoiceScorer(DefaultVoiceBaseline())

	onPace, err := s.Score(batch(t, models.CategoryVoice, map[string]any{
		"pitch_series":     []float64{130, 130},
		"words_per_minute": 160,
		"voice_count":      1,
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, onPace.SubMetrics[MetricSpeechRateDeviation])

	racing, err := s.Score(batch(t, models.CategoryVoice, map[string]any{
		"pitch_series":     []float64{130, 130},
		"words_per_minute": 320,
		"voice_count":      1,
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, racing.SubMetrics[MetricSpeechRateDeviation])
}

func TestSystemAnomalies(t *testing.T) {
	s := NewSystemScorer(DefaultSystemBaseline())

	idle, err := s.Score(batch(t, models.CategorySystem, map[string]any{
		"samples": []map[string]float64{
			{"cpu_percent": 20, "memory_percent": 40, "latency_ms": 50},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, idle.SubMetrics[MetricCPUAnomaly])
	assert.Equal(t, 0.0, idle.SubMetrics[MetricMemoryAnomaly])
	assert.Equal(t, 0.0, idle.SubMetrics[MetricVMSignature])

	virtualized, err := s.Score(batch(t, models.CategorySystem, map[string]any{
		"samples": []map[string]float64{
			{"cpu_percent": 100, "memory_percent": 100, "latency_ms": 1000},
		},
		"vm_indicators": []string{"hypervisor-present", "container-cgroup"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, virtualized.SubMetrics[MetricCPUAnomaly])
	assert.Equal(t, 1.0, virtualized.SubMetrics[MetricMemoryAnomaly])
	assert.Equal(t, 1.0, virtualized.SubMetrics[MetricLatencyAnomaly])
	assert.Equal(t, 1.0, virtualized.SubMetrics[MetricVMSignature])
	assert.Equal(t, 1.0, virtualized.OverallScore)
}

func TestSystemCPURangeValidation(t *testing.T) {
	s := NewSystemScorer(DefaultSystemBaseline())

	_, err := s.Score(batch(t, models.CategorySystem, map[string]any{
		"samples": []map[string]float64{{"cpu_percent": 140}},
	}))
	var invalid *InvalidPayloadError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "samples", invalid.Field)
}
