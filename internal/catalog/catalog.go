// Package catalog holds the definitive set of monitored signal
// definitions. A Catalog is validated once at load and read-only
// afterwards, so it is safe for unlimited concurrent readers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// ErrSignalNotFound is returned by Get for ids absent from the catalog.
var ErrSignalNotFound = errors.New("signal not found")

// ValidationError describes why a set of signal definitions was rejected
// at load time. The process must not start with an invalid catalog.
type ValidationError struct {
	SignalID int
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid signal definition %d: %s", e.SignalID, e.Reason)
}

// Catalog answers "which signals apply to category X" and "what is the
// threshold/severity for signal Y".
type Catalog struct {
	byID       map[int]models.SignalDefinition
	byCategory map[models.Category][]models.SignalDefinition
}

// Load validates definitions and builds an immutable catalog. It fails
// with a *ValidationError on duplicate ids, thresholds outside [0,1],
// unknown categories, or unknown severities.
func Load(defs []models.SignalDefinition) (*Catalog, error) {
	c := &Catalog{
		byID:       make(map[int]models.SignalDefinition, len(defs)),
		byCategory: make(map[models.Category][]models.SignalDefinition),
	}

	for _, d := range defs {
		if _, exists := c.byID[d.ID]; exists {
			return nil, &ValidationError{SignalID: d.ID, Reason: "duplicate id"}
		}
		if d.Threshold < 0 || d.Threshold > 1 {
			return nil, &ValidationError{SignalID: d.ID, Reason: fmt.Sprintf("threshold %v outside [0,1]", d.Threshold)}
		}
		if !d.Category.Valid() {
			return nil, &ValidationError{SignalID: d.ID, Reason: fmt.Sprintf("unknown category %q", d.Category)}
		}
		if !d.Severity.Valid() {
			return nil, &ValidationError{SignalID: d.ID, Reason: fmt.Sprintf("unknown severity %q", d.Severity)}
		}

		c.byID[d.ID] = d
		c.byCategory[d.Category] = append(c.byCategory[d.Category], d)
	}

	for cat := range c.byCategory {
		sort.Slice(c.byCategory[cat], func(i, j int) bool {
			return c.byCategory[cat][i].ID < c.byCategory[cat][j].ID
		})
	}

	return c, nil
}

// SignalsFor returns all signals in the category ordered by ascending id.
// Unknown categories yield an empty slice, never an error: callers treat
// "no signals" as "no flags possible".
func (c *Catalog) SignalsFor(category models.Category) []models.SignalDefinition {
	defs := c.byCategory[category]
	out := make([]models.SignalDefinition, len(defs))
	copy(out, defs)
	return out
}

// Get returns the definition for id or ErrSignalNotFound.
func (c *Catalog) Get(id int) (models.SignalDefinition, error) {
	d, ok := c.byID[id]
	if !ok {
		return models.SignalDefinition{}, fmt.Errorf("signal %d: %w", id, ErrSignalNotFound)
	}
	return d, nil
}

// Size returns the number of signal definitions loaded.
func (c *Catalog) Size() int {
	return len(c.byID)
}

// signalFile is the on-disk YAML catalog format.
type signalFile struct {
	Signals []models.SignalDefinition `yaml:"signals"`
}

// LoadFile reads a YAML catalog from path and validates it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f signalFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(f.Signals) == 0 {
		return nil, fmt.Errorf("catalog file contains no signals")
	}
	return Load(f.Signals)
}
