// Package classify categorizes a raw response into an outcome before any
// parsing is attempted. Cheap textual heuristics suffice since no script
// execution occurs; false negatives surface later as no_records_found.
package classify

import (
	"strings"

	"github.com/corpuslab/quantang-cli/internal/config"
	"github.com/corpuslab/quantang-cli/internal/model"
)

// Classifier checks a decoded response body against configured phrase
// sets. Evaluation order is fixed so overlapping signals classify
// deterministically: HTTP status, blocked phrases, captcha phrases,
// required keywords.
type Classifier struct {
	blocked  []string
	captcha  []string
	required []string
}

// New builds a classifier from the configured phrase sets. Blocked and
// captcha phrases are matched case-insensitively.
func New(cfg config.ClassifyConfig) *Classifier {
	return &Classifier{
		blocked:  lowerAll(cfg.BlockedPhrases),
		captcha:  lowerAll(cfg.CaptchaPhrases),
		required: cfg.RequiredKeywords,
	}
}

// Classify maps an HTTP status and entity-decoded body to an outcome.
// The second return is true when the body is a candidate for extraction;
// the outcome is meaningful only when it is false.
func (c *Classifier) Classify(status int, body string) (model.Outcome, bool) {
	if status != 200 {
		return model.Outcome{Kind: model.OutcomeHTTPError, HTTPStatus: status}, false
	}

	lower := strings.ToLower(body)
	for _, phrase := range c.blocked {
		if strings.Contains(lower, phrase) {
			return model.Outcome{Kind: model.OutcomeBlocked}, false
		}
	}
	for _, phrase := range c.captcha {
		if strings.Contains(lower, phrase) {
			return model.Outcome{Kind: model.OutcomeCaptcha}, false
		}
	}

	if len(c.required) > 0 {
		found := false
		for _, kw := range c.required {
			if strings.Contains(body, kw) {
				found = true
				break
			}
		}
		if !found {
			return model.Outcome{Kind: model.OutcomeInvalidContent}, false
		}
	}

	return model.Outcome{}, true
}

func lowerAll(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = strings.ToLower(p)
	}
	return out
}
