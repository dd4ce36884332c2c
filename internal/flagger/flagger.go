// Package flagger decides which catalog signals a score result triggers
// and materializes the resulting flags.
package flagger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skyward-systems/proctorwatch/internal/logging"
	"github.com/skyward-systems/proctorwatch/internal/models"
)

// SignalSource is the subset of the catalog the generator reads. It is an
// interface so evaluation against a live, reloadable catalog behaves the
// same as against the immutable built-in one.
type SignalSource interface {
	SignalsFor(category models.Category) []models.SignalDefinition
	Get(id int) (models.SignalDefinition, error)
}

// Generator evaluates score results against the signal catalog.
type Generator struct {
	catalog SignalSource
	log     *logging.Logger
}

// New creates a Generator over the given signal source.
func New(cat SignalSource, log *logging.Logger) *Generator {
	if log == nil {
		log = logging.Default()
	}
	return &Generator{catalog: cat, log: log}
}

// Generate returns the flags triggered by result, ordered by descending
// severity then ascending signal id. A signal triggers when its monitored
// value meets or exceeds its threshold (>=, not >). Zero flags is a valid
// outcome.
//
// A catalog lookup failure for one signal is logged and skipped rather
// than failing the batch: fewer flags beat no flags.
func (g *Generator) Generate(result *models.ScoreResult) []*models.Flag {
	defs := g.catalog.SignalsFor(result.Category)
	flags := make([]*models.Flag, 0, len(defs))

	for _, def := range defs {
		sig, err := g.catalog.Get(def.ID)
		if err != nil {
			g.log.Warn("skipping signal removed from catalog",
				logging.SignalID(def.ID),
				logging.SessionID(result.SessionID),
				logging.Error(err),
			)
			continue
		}

		monitors := sig.MonitoredValue()
		value, ok := result.Value(monitors)
		if !ok {
			// The scorer did not produce this metric; the signal cannot
			// apply to this batch.
			continue
		}
		if value < sig.Threshold {
			continue
		}

		flags = append(flags, g.materialize(result, sig, monitors, value))
	}

	sortFlags(flags)
	return flags
}

func (g *Generator) materialize(result *models.ScoreResult, sig models.SignalDefinition, monitors string, value float64) *models.Flag {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &models.Flag{
		ID:         id.String(),
		SessionID:  result.SessionID,
		SignalID:   sig.ID,
		SignalName: sig.Name,
		// Severity is snapshotted here so later catalog edits never
		// rewrite flag history.
		Severity:    sig.Severity,
		Confidence:  result.Confidence,
		Description: fmt.Sprintf("%s: %s %.2f crossed threshold %.2f", sig.Name, monitors, value, sig.Threshold),
		Metadata: map[string]any{
			"monitors":      monitors,
			"value":         value,
			"threshold":     sig.Threshold,
			"overall_score": result.OverallScore,
			"category":      string(result.Category),
		},
		RaisedAt: time.Now().UTC(),
	}
}

// sortFlags orders by descending severity, ties broken by ascending
// signal id, for deterministic client-facing ordering.
func sortFlags(flags []*models.Flag) {
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Severity.Rank() != flags[j].Severity.Rank() {
			return flags[i].Severity.Rank() > flags[j].Severity.Rank()
		}
		return flags[i].SignalID < flags[j].SignalID
	})
}

// SortFlags exposes the canonical flag ordering for callers assembling
// alert lists from multiple sources.
func SortFlags(flags []*models.Flag) {
	sortFlags(flags)
}
