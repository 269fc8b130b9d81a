package model

import "time"

// ConfidenceLevel is the coarse reliability label for a scored record.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// TierCount holds per-tier availability.
type TierCount struct {
	Tier      string   `json:"tier"`
	Total     int      `json:"total"`
	Available []string `json:"available"`
	Missing   []string `json:"missing"`
}

// ValidationResult is the completeness assessment of one record.
type ValidationResult struct {
	CompletenessScore  int             `json:"completeness_score"`
	Confidence         ConfidenceLevel `json:"confidence_level"`
	CriticalPercentage float64         `json:"critical_percentage"`
	TotalMetrics       int             `json:"total_metrics"`
	AvailableMetrics   int             `json:"available_metrics"`
	Tiers              []TierCount     `json:"tiers"`
	Warnings           []string        `json:"warnings"`
}

// Tier returns the counts for the named tier, or an empty TierCount.
func (r ValidationResult) Tier(name string) TierCount {
	for _, t := range r.Tiers {
		if t.Tier == name {
			return t
		}
	}
	return TierCount{Tier: name}
}

// MissingCritical lists the missing critical metric keys.
func (r ValidationResult) MissingCritical() []string { return r.Tier("critical").Missing }

// MissingOptional lists the missing optional metric keys.
func (r ValidationResult) MissingOptional() []string { return r.Tier("optional").Missing }

// Severity grades a cross-source disagreement.
type Severity string

const (
	SeverityNone  Severity = "none"
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// ConflictRecord is one metric compared across two sources.
type ConflictRecord struct {
	Key          string   `json:"key"`
	Primary      float64  `json:"primary"`
	Secondary    float64  `json:"secondary"`
	Diff         float64  `json:"diff"`
	RelativeDiff float64  `json:"relative_diff"`
	Limit        float64  `json:"limit"`
	Conflict     bool     `json:"conflict"`
	Severity     Severity `json:"severity"`
}

// SourceStatus distinguishes a source that answered from one that did not.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceEmpty       SourceStatus = "empty"
	SourceUnavailable SourceStatus = "unavailable"
)

// SourceRecord is a record together with where it came from and whether
// the source responded.
type SourceRecord struct {
	Name   string       `json:"name"`
	Status SourceStatus `json:"status"`
	Record Record       `json:"record"`
	Err    string       `json:"error,omitempty"`
}

// NewSource wraps r as a responding source. An empty record yields
// SourceEmpty.
func NewSource(name string, r Record) SourceRecord {
	status := SourceOK
	if r.Empty() {
		status = SourceEmpty
	}
	return SourceRecord{Name: name, Status: status, Record: r}
}

// Unavailable describes a source that failed to respond.
func Unavailable(name string, err error) SourceRecord {
	s := SourceRecord{Name: name, Status: SourceUnavailable}
	if err != nil {
		s.Err = err.Error()
	}
	return s
}

// Usable reports whether the source responded with at least one key.
func (s SourceRecord) Usable() bool {
	return s.Status == SourceOK && !s.Record.Empty()
}

// FilledMetric records a gap in the primary record filled from another source.
type FilledMetric struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	Value  Value  `json:"value"`
}

// Enrichment is the primary record after gap filling.
type Enrichment struct {
	Record  Record         `json:"record"`
	Filled  []FilledMetric `json:"filled"`
	Summary string         `json:"summary"`
}

// FilledKeys returns the keys of filled metrics in fill order.
func (e Enrichment) FilledKeys() []string {
	keys := make([]string, len(e.Filled))
	for i, f := range e.Filled {
		keys[i] = f.Key
	}
	return keys
}

// Verification is the outcome of comparing two sources.
type Verification struct {
	Source       string           `json:"source"`
	SourceStatus SourceStatus     `json:"source_status,omitempty"`
	Skipped      bool             `json:"skipped"`
	Comparisons  []ConflictRecord `json:"comparisons"`
	Conflicts    []ConflictRecord `json:"conflicts"`
	Report       string           `json:"report"`
}

// Route names the next step after validation.
type Route string

const (
	RouteAnalysis    Route = "analysis"
	RouteHumanReview Route = "human_review"
)

// Outcome is the full result of validating one ticker.
type Outcome struct {
	Ticker       string           `json:"ticker"`
	Enrichment   Enrichment       `json:"enrichment"`
	Result       ValidationResult `json:"result"`
	Verification Verification     `json:"verification"`
	Route        Route            `json:"route"`
	Report       string           `json:"report"`
}

// Run is a persisted validation outcome.
type Run struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
