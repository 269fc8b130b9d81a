// Package metrics defines the recognized metric vocabulary, its tiers, and
// the cross-source tolerance policy.
package metrics

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/equity-cli/internal/model"
)

// Tier groups metrics by how much an analysis depends on them.
type Tier string

const (
	Critical Tier = "critical"
	Optional Tier = "optional"
	Advanced Tier = "advanced"
)

// Tiers lists every tier in iteration order.
var Tiers = []Tier{Critical, Optional, Advanced}

// Class describes the unit convention of a metric. It selects the default
// tolerance used when two sources disagree.
type Class string

const (
	ClassCurrency Class = "currency" // absolute money amounts
	ClassMultiple Class = "multiple" // valuation multiples such as P/E
	ClassRatio    Class = "ratio"    // decimal fractions such as margins
	ClassLeverage Class = "leverage" // percentage-point ratios such as D/E
	ClassBundle   Class = "bundle"   // nested sub-metrics
)

func (c Class) valid() bool {
	switch c {
	case ClassCurrency, ClassMultiple, ClassRatio, ClassLeverage, ClassBundle:
		return true
	}
	return false
}

// Metric is a single recognized metric.
type Metric struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Class   Class    `yaml:"class"`
	Aliases []string `yaml:"aliases,omitempty"`
	Tier    Tier     `yaml:"-"`
}

// Scalar reports whether the metric holds a single value rather than a bundle.
func (m Metric) Scalar() bool { return m.Class != ClassBundle }

// Vocabulary is an immutable, validated set of tiered metrics.
type Vocabulary struct {
	tiers map[Tier][]Metric
	byKey map[string]Metric
	alias map[string]string
}

// New validates the tier definitions and builds a Vocabulary. Every key
// must belong to exactly one tier and every alias must resolve to one key.
// A tier with no entry is treated as empty.
func New(tiers map[Tier][]Metric) (*Vocabulary, error) {
	v := &Vocabulary{
		tiers: make(map[Tier][]Metric, len(Tiers)),
		byKey: make(map[string]Metric),
		alias: make(map[string]string),
	}
	for tier := range tiers {
		if !knownTier(tier) {
			return nil, eris.Errorf("metrics: unknown tier %q", tier)
		}
	}
	for _, tier := range Tiers {
		for _, m := range tiers[tier] {
			if m.Key == "" {
				return nil, eris.Errorf("metrics: empty key in tier %s", tier)
			}
			if prev, ok := v.byKey[m.Key]; ok {
				return nil, eris.Errorf("metrics: key %q in both %s and %s", m.Key, prev.Tier, tier)
			}
			if m.Class == "" {
				m.Class = ClassCurrency
			}
			if !m.Class.valid() {
				return nil, eris.Errorf("metrics: key %q has unknown class %q", m.Key, m.Class)
			}
			if m.Label == "" {
				m.Label = m.Key
			}
			m.Tier = tier
			m.Aliases = append([]string(nil), m.Aliases...)
			v.byKey[m.Key] = m
			v.tiers[tier] = append(v.tiers[tier], m)
		}
	}
	for _, m := range v.byKey {
		for _, a := range m.Aliases {
			if _, clash := v.byKey[a]; clash {
				return nil, eris.Errorf("metrics: alias %q of %q shadows a metric key", a, m.Key)
			}
			if owner, dup := v.alias[a]; dup {
				return nil, eris.Errorf("metrics: alias %q claimed by %q and %q", a, owner, m.Key)
			}
			v.alias[a] = m.Key
		}
	}
	return v, nil
}

func knownTier(t Tier) bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

// Tier returns the metrics of a tier in definition order.
func (v *Vocabulary) Tier(t Tier) []Metric {
	return append([]Metric(nil), v.tiers[t]...)
}

// Keys returns the keys of a tier in definition order.
func (v *Vocabulary) Keys(t Tier) []string {
	keys := make([]string, len(v.tiers[t]))
	for i, m := range v.tiers[t] {
		keys[i] = m.Key
	}
	return keys
}

// Metrics returns every metric in tier order.
func (v *Vocabulary) Metrics() []Metric {
	var all []Metric
	for _, t := range Tiers {
		all = append(all, v.tiers[t]...)
	}
	return all
}

// Total returns the number of recognized metrics.
func (v *Vocabulary) Total() int { return len(v.byKey) }

// Lookup returns the metric for a canonical key.
func (v *Vocabulary) Lookup(key string) (Metric, bool) {
	m, ok := v.byKey[key]
	return m, ok
}

// Resolve maps a key or alias to its canonical key.
func (v *Vocabulary) Resolve(name string) (string, bool) {
	if _, ok := v.byKey[name]; ok {
		return name, true
	}
	key, ok := v.alias[name]
	return key, ok
}

// Label returns the display label for key, or key itself when unknown.
func (v *Vocabulary) Label(key string) string {
	if m, ok := v.byKey[key]; ok {
		return m.Label
	}
	return key
}

// Canonicalize rewrites aliased keys in r to their canonical names. When a
// record carries both a canonical key and one of its aliases, the canonical
// value wins unless it is unavailable. Unrecognized keys are kept as-is.
func (v *Vocabulary) Canonicalize(r model.Record) model.Record {
	out := make(map[string]model.Value, r.Len())
	for _, k := range r.Keys() {
		if _, isAlias := v.alias[k]; !isAlias {
			out[k] = r.Get(k)
		}
	}
	for _, k := range r.Keys() {
		key, isAlias := v.alias[k]
		if !isAlias {
			continue
		}
		if existing, ok := out[key]; ok && existing.Available() {
			continue
		}
		out[key] = r.Get(k)
	}
	return model.NewRecord(out)
}

// File is the YAML shape of a vocabulary definition.
type File struct {
	Critical []Metric `yaml:"critical"`
	Optional []Metric `yaml:"optional"`
	Advanced []Metric `yaml:"advanced"`
}

// LoadVocabulary reads a vocabulary from a YAML file with a top-level
// "vocabulary" key.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metrics: read vocabulary %s", path)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary parses a YAML vocabulary definition.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var wrapper struct {
		Vocabulary File `yaml:"vocabulary"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "metrics: parse vocabulary")
	}
	f := wrapper.Vocabulary
	return New(map[Tier][]Metric{
		Critical: f.Critical,
		Optional: f.Optional,
		Advanced: f.Advanced,
	})
}
