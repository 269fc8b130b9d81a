// Package validation scores metric records for completeness and reconciles
// a primary record against a secondary source. Every operation is a pure
// function of its inputs and is safe for concurrent use.
package validation

import (
	"github.com/sells-group/equity-cli/internal/metrics"
	"github.com/sells-group/equity-cli/internal/model"
)

// Validator scores and reconciles records against one vocabulary and one
// tolerance policy.
type Validator struct {
	vocab                 *metrics.Vocabulary
	policy                *metrics.Policy
	reviewOnLowConfidence bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithVocabulary replaces the default metric vocabulary.
func WithVocabulary(v *metrics.Vocabulary) Option {
	return func(val *Validator) {
		if v != nil {
			val.vocab = v
		}
	}
}

// WithPolicy replaces the default tolerance policy.
func WithPolicy(p *metrics.Policy) Option {
	return func(val *Validator) {
		if p != nil {
			val.policy = p
		}
	}
}

// WithReviewOnLowConfidence routes Low-confidence results to human review
// even when no conflicts were found.
func WithReviewOnLowConfidence(enabled bool) Option {
	return func(val *Validator) {
		val.reviewOnLowConfidence = enabled
	}
}

// New creates a Validator using the default vocabulary and policy unless
// overridden.
func New(opts ...Option) *Validator {
	v := &Validator{
		vocab:  metrics.Default(),
		policy: metrics.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Vocabulary returns the vocabulary in use.
func (v *Validator) Vocabulary() *metrics.Vocabulary { return v.vocab }

var std = New()

// Score scores r with the default vocabulary.
func Score(r model.Record) model.ValidationResult { return std.Score(r) }

// Fill fills gaps in primary from secondary with the default vocabulary.
func Fill(primary model.Record, secondary model.SourceRecord) model.Enrichment {
	return std.Fill(primary, secondary)
}

// Verify compares primary and secondary with the default policy.
func Verify(primary model.Record, secondary model.SourceRecord) model.Verification {
	return std.Verify(primary, secondary)
}

// Validate runs the full reconciliation with the default configuration.
func Validate(ticker string, primary model.Record, secondary model.SourceRecord) model.Outcome {
	return std.Validate(ticker, primary, secondary)
}
