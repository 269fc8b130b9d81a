package metrics

import (
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/equity-cli/internal/model"
)

// Tolerance bounds how far two readings of the same metric may drift
// before they count as a conflict. The allowed gap is the larger of
// Absolute and Relative times the larger magnitude of the two readings.
type Tolerance struct {
	Relative float64 `yaml:"relative"`
	Absolute float64 `yaml:"absolute"`
}

// Limit returns the largest allowed |a-b|.
func (t Tolerance) Limit(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Max(t.Absolute, t.Relative*scale)
}

// Comparison is the outcome of comparing two readings.
type Comparison struct {
	Diff         float64
	RelativeDiff float64
	Limit        float64
	Conflict     bool
	Severity     model.Severity
}

// Compare grades the gap between a and b. The result does not depend on
// argument order. A conflict more than twice over the limit is major.
func (t Tolerance) Compare(a, b float64) Comparison {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	c := Comparison{
		Diff:     diff,
		Limit:    t.Limit(a, b),
		Severity: model.SeverityNone,
	}
	if scale > 0 {
		c.RelativeDiff = diff / scale
	}
	if diff > c.Limit {
		c.Conflict = true
		c.Severity = model.SeverityMinor
		if diff > 2*c.Limit {
			c.Severity = model.SeverityMajor
		}
	}
	return c
}

func (t Tolerance) validate() error {
	if t.Relative < 0 || t.Absolute < 0 || math.IsNaN(t.Relative) || math.IsNaN(t.Absolute) {
		return eris.Errorf("metrics: tolerance must be non-negative, got relative=%v absolute=%v", t.Relative, t.Absolute)
	}
	return nil
}

// Policy selects a Tolerance per metric: a per-key override first, then the
// metric's class default.
type Policy struct {
	classes map[Class]Tolerance
	metrics map[string]Tolerance
}

// DefaultClassTolerances are the class-level defaults. Every class allows
// 10% relative drift. Ratios are decimal fractions that often sit near
// zero, so they also allow an absolute gap of 0.02 (two percentage points).
func DefaultClassTolerances() map[Class]Tolerance {
	return map[Class]Tolerance{
		ClassCurrency: {Relative: 0.10},
		ClassMultiple: {Relative: 0.10},
		ClassRatio:    {Relative: 0.10, Absolute: 0.02},
		ClassLeverage: {Relative: 0.10},
	}
}

// DefaultPolicy returns the class defaults with no per-metric overrides.
func DefaultPolicy() *Policy {
	return &Policy{
		classes: DefaultClassTolerances(),
		metrics: map[string]Tolerance{},
	}
}

// NewPolicy builds a policy from class defaults merged with overrides.
func NewPolicy(classes map[Class]Tolerance, perMetric map[string]Tolerance) (*Policy, error) {
	p := DefaultPolicy()
	for c, t := range classes {
		if !c.valid() || c == ClassBundle {
			return nil, eris.Errorf("metrics: no tolerance applies to class %q", c)
		}
		if err := t.validate(); err != nil {
			return nil, eris.Wrapf(err, "metrics: class %s", c)
		}
		p.classes[c] = t
	}
	for key, t := range perMetric {
		if err := t.validate(); err != nil {
			return nil, eris.Wrapf(err, "metrics: metric %s", key)
		}
		p.metrics[key] = t
	}
	return p, nil
}

// For returns the tolerance that applies to m.
func (p *Policy) For(m Metric) Tolerance {
	if t, ok := p.metrics[m.Key]; ok {
		return t
	}
	if t, ok := p.classes[m.Class]; ok {
		return t
	}
	return Tolerance{Relative: 0.10}
}

// LoadPolicy reads tolerance overrides from a YAML file with a top-level
// "tolerances" key.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metrics: read tolerances %s", path)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses YAML tolerance overrides.
func ParsePolicy(data []byte) (*Policy, error) {
	var wrapper struct {
		Tolerances struct {
			Classes map[Class]Tolerance  `yaml:"classes"`
			Metrics map[string]Tolerance `yaml:"metrics"`
		} `yaml:"tolerances"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "metrics: parse tolerances")
	}
	return NewPolicy(wrapper.Tolerances.Classes, wrapper.Tolerances.Metrics)
}
