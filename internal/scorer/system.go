package scorer

import (
	"time"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Sub-metric names produced by the system scorer.
const (
	MetricCPUAnomaly     = "cpuAnomaly"
	MetricMemoryAnomaly  = "memoryAnomaly"
	MetricLatencyAnomaly = "latencyAnomaly"
	MetricVMSignature    = "vmSignature"
)

// SystemBaseline holds the static parameters host telemetry scoring is
// normalized against.
type SystemBaseline struct {
	// ExpectedCPUPercent is normal exam-client CPU load; usage beyond it
	// scales toward fully anomalous at 100%.
	ExpectedCPUPercent float64
	// ExpectedMemoryPercent is normal exam-client memory pressure.
	ExpectedMemoryPercent float64
	// ReferenceLatencyMs is the round-trip latency considered fully
	// anomalous.
	ReferenceLatencyMs float64
	// FullConfidenceSamples is the telemetry sample count at which score
	// confidence saturates.
	FullConfidenceSamples int
}

func DefaultSystemBaseline() SystemBaseline {
	return SystemBaseline{
		ExpectedCPUPercent:    40,
		ExpectedMemoryPercent: 50,
		ReferenceLatencyMs:    500,
		FullConfidenceSamples: 12,
	}
}

type systemSample struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent,omitempty"`
	LatencyMs     float64 `json:"latency_ms,omitempty"`
}

type systemPayload struct {
	Samples []systemSample `json:"samples"`
	// VMIndicators lists virtualization or container markers detected on
	// the host (hypervisor CPUID leaves, container cgroups, and so on).
	VMIndicators []string `json:"vm_indicators,omitempty"`
}

// SystemScorer scores host resource and network telemetry plus
// virtualization signatures.
type SystemScorer struct {
	baseline SystemBaseline
}

func NewSystemScorer(baseline SystemBaseline) *SystemScorer {
	return &SystemScorer{baseline: baseline}
}

func (s *SystemScorer) Category() models.Category {
	return models.CategorySystem
}

func (s *SystemScorer) Score(batch *models.ObservationBatch) (*models.ScoreResult, error) {
	var p systemPayload
	if err := decodePayload(batch, &p); err != nil {
		return nil, err
	}
	if len(p.Samples) == 0 {
		return nil, &InvalidPayloadError{Field: "samples", Reason: "non-empty telemetry sample series required"}
	}

	cpus := make([]float64, len(p.Samples))
	mems := make([]float64, 0, len(p.Samples))
	lats := make([]float64, 0, len(p.Samples))
	for i, sm := range p.Samples {
		if sm.CPUPercent < 0 || sm.CPUPercent > 100 {
			return nil, &InvalidPayloadError{Field: "samples", Reason: "cpu_percent must be in [0,100]"}
		}
		cpus[i] = sm.CPUPercent
		if sm.MemoryPercent > 0 {
			mems = append(mems, sm.MemoryPercent)
		}
		if sm.LatencyMs > 0 {
			lats = append(lats, sm.LatencyMs)
		}
	}

	cpuAnomaly := excessRatio(mean(cpus), s.baseline.ExpectedCPUPercent, 100)
	memAnomaly := excessRatio(mean(mems), s.baseline.ExpectedMemoryPercent, 100)
	latAnomaly := clamp(mean(lats) / s.baseline.ReferenceLatencyMs)

	vmSignature := 0.0
	if len(p.VMIndicators) > 0 {
		vmSignature = 1
	}

	overall := clamp(0.25*cpuAnomaly + 0.15*memAnomaly + 0.25*latAnomaly + 0.35*vmSignature)

	return &models.ScoreResult{
		OverallScore: round4(overall),
		SubMetrics: map[string]float64{
			MetricCPUAnomaly:     round4(cpuAnomaly),
			MetricMemoryAnomaly:  round4(memAnomaly),
			MetricLatencyAnomaly: round4(latAnomaly),
			MetricVMSignature:    vmSignature,
		},
		Confidence: round4(confidenceFor(len(p.Samples), s.baseline.FullConfidenceSamples)),
		ComputedAt: time.Now().UTC(),
	}, nil
}

// excessRatio maps value into [0,1] as its excess over expected, scaled by
// the remaining headroom up to max. Values at or below expected score 0.
func excessRatio(value, expected, max float64) float64 {
	if value <= expected || max <= expected {
		return 0
	}
	return clamp((value - expected) / (max - expected))
}
