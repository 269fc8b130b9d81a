package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/internal/validation"
)

// conflictPrompter asks a reviewer how to resolve one conflict.
type conflictPrompter func(label string, c model.ConflictRecord) (validation.Resolution, error)

const (
	optKeepPrimary  = "Keep primary value"
	optUseSecondary = "Use secondary value"
	optManual       = "Enter a value"
)

// surveyPrompter asks on the terminal.
func surveyPrompter(label string, c model.ConflictRecord) (validation.Resolution, error) {
	res := validation.Resolution{Key: c.Key}

	var choice string
	prompt := &survey.Select{
		Message: fmt.Sprintf("%s: primary %s vs secondary %s (%.1f%% apart)", label,
			validation.FormatNumber(c.Primary), validation.FormatNumber(c.Secondary), c.RelativeDiff*100),
		Options: []string{optKeepPrimary, optUseSecondary, optManual},
		Default: optKeepPrimary,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return res, eris.Wrapf(err, "prompt %s", c.Key)
	}

	switch choice {
	case optUseSecondary:
		res.Choice = validation.ChoiceUseSecondary
	case optManual:
		var raw string
		input := &survey.Input{
			Message: fmt.Sprintf("Value for %s:", label),
			Default: strconv.FormatFloat(c.Primary, 'f', -1, 64),
		}
		err := survey.AskOne(input, &raw, survey.WithValidator(func(val interface{}) error {
			_, err := parseManual(val.(string))
			return err
		}))
		if err != nil {
			return res, eris.Wrapf(err, "prompt %s", c.Key)
		}
		v, _ := parseManual(raw)
		res.Choice = validation.ChoiceManual
		res.Value = &v
	default:
		res.Choice = validation.ChoiceKeepPrimary
	}
	return res, nil
}

// parseManual accepts a finite number, with optional digit grouping.
func parseManual(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.New("enter a finite number")
	}
	return v, nil
}

// promptResolutions collects one resolution per conflict.
func promptResolutions(vocab labeler, conflicts []model.ConflictRecord, ask conflictPrompter) ([]validation.Resolution, error) {
	out := make([]validation.Resolution, 0, len(conflicts))
	for _, c := range conflicts {
		r, err := ask(vocab.Label(c.Key), c)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type labeler interface {
	Label(key string) string
}
