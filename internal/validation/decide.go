package validation

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-cli/internal/model"
)

// Route decides whether a validated record can flow straight to analysis
// or needs a human to confirm conflicting values first.
func (v *Validator) Route(res model.ValidationResult, ver model.Verification) model.Route {
	if len(ver.Conflicts) > 0 {
		return model.RouteHumanReview
	}
	if v.reviewOnLowConfidence && res.Confidence == model.ConfidenceLow {
		return model.RouteHumanReview
	}
	return model.RouteAnalysis
}

// Choice is a reviewer's decision for one conflicting metric.
type Choice string

const (
	ChoiceKeepPrimary  Choice = "keep_primary"
	ChoiceUseSecondary Choice = "use_secondary"
	ChoiceManual       Choice = "manual"
)

// Resolution resolves one conflict. Value is required for ChoiceManual.
type Resolution struct {
	Key    string   `json:"key"`
	Choice Choice   `json:"choice"`
	Value  *float64 `json:"value,omitempty"`
}

// ApplyResolutions returns a copy of r with reviewer decisions applied.
// Every resolution must name a metric that is in conflicts. Conflicts with
// no resolution keep the value already in r.
func ApplyResolutions(r model.Record, conflicts []model.ConflictRecord, resolutions []Resolution) (model.Record, error) {
	byKey := make(map[string]model.ConflictRecord, len(conflicts))
	for _, c := range conflicts {
		byKey[c.Key] = c
	}

	out := r
	for _, res := range resolutions {
		c, ok := byKey[res.Key]
		if !ok {
			return r, eris.Errorf("validation: no conflict for metric %q", res.Key)
		}
		switch res.Choice {
		case ChoiceKeepPrimary:
			out = out.With(c.Key, model.Number(c.Primary))
		case ChoiceUseSecondary:
			out = out.With(c.Key, model.Number(c.Secondary))
		case ChoiceManual:
			if res.Value == nil {
				return r, eris.Errorf("validation: manual resolution for %q needs a value", res.Key)
			}
			if math.IsNaN(*res.Value) || math.IsInf(*res.Value, 0) {
				return r, eris.Errorf("validation: manual resolution for %q must be finite", res.Key)
			}
			out = out.With(c.Key, model.Number(*res.Value))
		default:
			return r, eris.Errorf("validation: unknown resolution choice %q for %q", res.Choice, res.Key)
		}
	}
	return out, nil
}

// Resolve applies reviewer decisions to an outcome's enriched record,
// re-scores it and routes it to analysis. The report gains a section listing
// the decisions.
func (v *Validator) Resolve(out model.Outcome, resolutions []Resolution) (model.Outcome, error) {
	rec, err := ApplyResolutions(out.Enrichment.Record, out.Verification.Conflicts, resolutions)
	if err != nil {
		return out, err
	}

	out.Enrichment.Record = rec
	out.Result = v.Score(rec)
	out.Route = model.RouteAnalysis
	if len(resolutions) > 0 {
		out.Report += "\n\n" + formatResolutions(v.vocab, resolutions)
	}
	return out, nil
}
