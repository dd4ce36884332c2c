package flagger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-systems/proctorwatch/internal/catalog"
	"github.com/skyward-systems/proctorwatch/internal/models"
)

func testCatalog(t *testing.T, defs ...models.SignalDefinition) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(defs)
	require.NoError(t, err)
	return c
}

func result(category models.Category, overall float64, sub map[string]float64) *models.ScoreResult {
	return &models.ScoreResult{
		SessionID:    "session-1",
		Category:     category,
		OverallScore: overall,
		SubMetrics:   sub,
		Confidence:   0.9,
		ComputedAt:   time.Now().UTC(),
	}
}

func TestGenerateTriggersAtOrAboveThreshold(t *testing.T) {
	cat := testCatalog(t, models.SignalDefinition{
		ID: 103, Name: "Inconsistent Performance Patterns",
		Category: models.CategoryBehavioral, Severity: models.SeverityHigh, Threshold: 0.7,
	})
	g := New(cat, nil)

	flags := g.Generate(result(models.CategoryBehavioral, 0.75, nil))
	require.Len(t, flags, 1)

	f := flags[0]
	assert.Equal(t, 103, f.SignalID)
	assert.Equal(t, "session-1", f.SessionID)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, "Inconsistent Performance Patterns", f.SignalName)
	assert.NotEmpty(t, f.ID)
	assert.InDelta(t, 0.9, f.Confidence, 1e-9)
	assert.Equal(t, 0.7, f.Metadata["threshold"])
	assert.Equal(t, 0.75, f.Metadata["value"])
	assert.WithinDuration(t, time.Now(), f.RaisedAt, time.Second)
}

func TestGenerateExactThresholdTriggers(t *testing.T) {
	cat := testCatalog(t, models.SignalDefinition{
		ID: 103, Name: "X", Category: models.CategoryBehavioral, Severity: models.SeverityHigh, Threshold: 0.7,
	})
	g := New(cat, nil)

	flags := g.Generate(result(models.CategoryBehavioral, 0.7, nil))
	assert.Len(t, flags, 1)
}

func TestGenerateBelowThresholdNoFlags(t *testing.T) {
	cat := testCatalog(t, models.SignalDefinition{
		ID: 103, Name: "X", Category: models.CategoryBehavioral, Severity: models.SeverityHigh, Threshold: 0.7,
	})
	g := New(cat, nil)

	flags := g.Generate(result(models.CategoryBehavioral, 0.65, nil))
	assert.Empty(t, flags)
}

func TestGenerateSubMetricBinding(t *testing.T) {
	cat := testCatalog(t,
		models.SignalDefinition{
			ID: 153, Name: "Stress Level Fluctuations", Category: models.CategoryFacial,
			Severity: models.SeverityMedium, Threshold: 0.62, Monitors: "stressLevel",
		},
	)
	g := New(cat, nil)

	// High stress sub-metric with a low overall score still triggers.
	flags := g.Generate(result(models.CategoryFacial, 0.3, map[string]float64{"stressLevel": 0.8}))
	require.Len(t, flags, 1)
	assert.Equal(t, 153, flags[0].SignalID)
	assert.Equal(t, "stressLevel", flags[0].Metadata["monitors"])

	// Missing sub-metric means the signal cannot apply.
	flags = g.Generate(result(models.CategoryFacial, 0.99, map[string]float64{}))
	assert.Empty(t, flags)
}

func TestGenerateOrdersBySeverityThenID(t *testing.T) {
	cat := testCatalog(t,
		models.SignalDefinition{ID: 110, Name: "A", Category: models.CategorySystem, Severity: models.SeverityLow, Threshold: 0.1},
		models.SignalDefinition{ID: 120, Name: "B", Category: models.CategorySystem, Severity: models.SeverityCritical, Threshold: 0.1},
		models.SignalDefinition{ID: 115, Name: "C", Category: models.CategorySystem, Severity: models.SeverityMedium, Threshold: 0.1},
		models.SignalDefinition{ID: 112, Name: "D", Category: models.CategorySystem, Severity: models.SeverityHigh, Threshold: 0.1},
		models.SignalDefinition{ID: 111, Name: "E", Category: models.CategorySystem, Severity: models.SeverityHigh, Threshold: 0.1},
	)
	g := New(cat, nil)

	flags := g.Generate(result(models.CategorySystem, 0.9, nil))
	require.Len(t, flags, 5)

	got := make([]int, len(flags))
	for i, f := range flags {
		got[i] = f.SignalID
	}
	assert.Equal(t, []int{120, 111, 112, 115, 110}, got)
}

// vanishingSource drops a signal between the category listing and the
// per-id lookup, as a live catalog reload would.
type vanishingSource struct {
	inner   *catalog.Catalog
	removed int
}

func (v *vanishingSource) SignalsFor(category models.Category) []models.SignalDefinition {
	return v.inner.SignalsFor(category)
}

func (v *vanishingSource) Get(id int) (models.SignalDefinition, error) {
	if id == v.removed {
		return models.SignalDefinition{}, catalog.ErrSignalNotFound
	}
	return v.inner.Get(id)
}

func TestGenerateSkipsSignalRemovedMidEvaluation(t *testing.T) {
	inner := testCatalog(t,
		models.SignalDefinition{ID: 101, Name: "A", Category: models.CategoryVoice, Severity: models.SeverityHigh, Threshold: 0.5},
		models.SignalDefinition{ID: 102, Name: "B", Category: models.CategoryVoice, Severity: models.SeverityMedium, Threshold: 0.5},
	)
	g := New(&vanishingSource{inner: inner, removed: 101}, nil)

	flags := g.Generate(result(models.CategoryVoice, 0.9, nil))
	require.Len(t, flags, 1)
	assert.Equal(t, 102, flags[0].SignalID)
}

func TestGenerateUnknownCategoryYieldsNoFlags(t *testing.T) {
	cat := testCatalog(t, models.SignalDefinition{
		ID: 101, Name: "A", Category: models.CategoryVoice, Severity: models.SeverityHigh, Threshold: 0.5,
	})
	g := New(cat, nil)

	flags := g.Generate(result(models.CategoryFacial, 0.99, nil))
	assert.Empty(t, flags)
}

func TestSortFlagsStable(t *testing.T) {
	flags := []*models.Flag{
		{SignalID: 5, Severity: models.SeverityLow},
		{SignalID: 3, Severity: models.SeverityCritical},
		{SignalID: 4, Severity: models.SeverityMedium},
		{SignalID: 1, Severity: models.SeverityHigh},
		{SignalID: 2, Severity: models.SeverityCritical},
	}
	SortFlags(flags)

	got := make([]int, len(flags))
	for i, f := range flags {
		got[i] = f.SignalID
	}
	assert.Equal(t, []int{2, 3, 1, 4, 5}, got)
}
