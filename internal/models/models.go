package models

import (
	"encoding/json"
	"time"
)

// Category identifies one of the five analysis domains an observation
// batch can feed.
type Category string

const (
	CategoryBehavioral  Category = "behavioral"
	CategoryEyeTracking Category = "eye-tracking"
	CategoryFacial      Category = "facial"
	CategoryVoice       Category = "voice"
	CategorySystem      Category = "system"
)

// Categories lists every recognized analysis category.
var Categories = []Category{
	CategoryBehavioral,
	CategoryEyeTracking,
	CategoryFacial,
	CategoryVoice,
	CategorySystem,
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBehavioral, CategoryEyeTracking, CategoryFacial, CategoryVoice, CategorySystem:
		return true
	}
	return false
}

// Severity is the static classification assigned to a signal in the catalog.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a sortable weight for the severity; higher is more severe.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Valid reports whether s is one of the recognized severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// MonitorOverallScore is the monitors binding for signals keyed off the
// batch's overall score rather than a named sub-metric.
const MonitorOverallScore = "overallScore"

// SignalDefinition is one entry in the signal catalog. Definitions are
// immutable after catalog load.
type SignalDefinition struct {
	ID        int      `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Category  Category `json:"category" yaml:"category"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
	// Monitors names the sub-metric this signal watches, or
	// MonitorOverallScore. An empty value defaults to the overall score.
	Monitors string `json:"monitors,omitempty" yaml:"monitors,omitempty"`
}

// MonitoredValue returns the effective monitors binding.
func (d SignalDefinition) MonitoredValue() string {
	if d.Monitors == "" {
		return MonitorOverallScore
	}
	return d.Monitors
}

// ObservationBatch is one client submission of raw measurements for a
// single session and category. Payload shape is category specific and is
// validated by that category's scorer.
type ObservationBatch struct {
	SessionID   string          `json:"session_id"`
	Category    Category        `json:"category"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// ScoreResult is the scorer's normalized output for one batch.
type ScoreResult struct {
	SessionID    string             `json:"session_id"`
	Category     Category           `json:"category"`
	OverallScore float64            `json:"overall_score"`
	SubMetrics   map[string]float64 `json:"sub_metrics"`
	Confidence   float64            `json:"confidence"`
	ComputedAt   time.Time          `json:"computed_at"`
}

// Value returns the named sub-metric, or the overall score for
// MonitorOverallScore. The second return is false when the result does not
// carry that metric.
func (r *ScoreResult) Value(name string) (float64, bool) {
	if name == "" || name == MonitorOverallScore {
		return r.OverallScore, true
	}
	v, ok := r.SubMetrics[name]
	return v, ok
}

// Flag is a durable, append-only record that a signal's threshold was
// crossed for a session. Severity is copied from the catalog at creation
// time so later catalog edits never rewrite history.
type Flag struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	SignalID    int            `json:"signal_id"`
	SignalName  string         `json:"signal_name"`
	Severity    Severity       `json:"severity"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RaisedAt    time.Time      `json:"raised_at"`
}

// SessionSnapshot is the short-TTL cached view of a session's latest
// scores and recently raised flags. It is overwritten wholesale on every
// processed batch and must be treated as absent once expired.
type SessionSnapshot struct {
	SessionID    string                    `json:"session_id"`
	LatestScores map[Category]*ScoreResult `json:"latest_scores_by_category"`
	ActiveFlags  []*Flag                   `json:"active_flags"`
	RiskLevel    float64                   `json:"risk_level"`
	LastUpdated  time.Time                 `json:"last_updated"`
}

// ScoreRequest is the body of POST /api/v1/signals/score/{category}.
type ScoreRequest struct {
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

// ScoreResponse is the reply to a score request. Stale indicates the
// snapshot cache write failed and real-time readers may see old data.
type ScoreResponse struct {
	Success     bool         `json:"success"`
	Stale       bool         `json:"stale,omitempty"`
	ScoreResult *ScoreResult `json:"score_result"`
	Flags       []*Flag      `json:"flags"`
}

// MonitorRequest is the body of POST /api/v1/signals/monitor.
type MonitorRequest struct {
	SessionID      string          `json:"session_id"`
	MonitoringData json.RawMessage `json:"monitoring_data,omitempty"`
}

// MonitorResponse carries the current snapshot and its ordered alerts.
type MonitorResponse struct {
	Success  bool             `json:"success"`
	Stale    bool             `json:"stale,omitempty"`
	Snapshot *SessionSnapshot `json:"snapshot"`
	Alerts   []*Flag          `json:"alerts"`
}

// ListFlagsResponse is the paginated reply for a session's durable flag
// history.
type ListFlagsResponse struct {
	Flags      []*Flag    `json:"flags"`
	Pagination Pagination `json:"pagination"`
}

// Pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HealthResponse is the reply to GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	SignalCount int    `json:"signal_count"`
}
