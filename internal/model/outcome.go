package model

import "fmt"

// OutcomeKind classifies the result of one fetch attempt.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeBlocked         OutcomeKind = "blocked"
	OutcomeCaptcha         OutcomeKind = "captcha"
	OutcomeHTTPError       OutcomeKind = "http_error"
	OutcomeTimeout         OutcomeKind = "timeout"
	OutcomeConnectionError OutcomeKind = "connection_error"
	OutcomeInvalidContent  OutcomeKind = "invalid_content"
	OutcomeNoRecordsFound  OutcomeKind = "no_records_found"
)

// Outcome is the classified result of one fetch attempt. Records is set
// only for OutcomeSuccess; HTTPStatus only for OutcomeHTTPError.
type Outcome struct {
	Kind       OutcomeKind
	HTTPStatus int
	Records    []Record
}

// String renders the outcome for ledger entries and log fields.
func (o Outcome) String() string {
	if o.Kind == OutcomeHTTPError {
		return fmt.Sprintf("http_error_%d", o.HTTPStatus)
	}
	return string(o.Kind)
}

// IsDefense reports whether the outcome is an anti-bot defense signal:
// a blocked page, a captcha challenge, or an HTTP 403. These force
// identity rotation plus an extended cooldown before the next attempt.
func (o Outcome) IsDefense() bool {
	switch o.Kind {
	case OutcomeBlocked, OutcomeCaptcha:
		return true
	case OutcomeHTTPError:
		return o.HTTPStatus == 403
	default:
		return false
	}
}

// IsTransport reports whether the outcome is a transport-level failure
// retried with a short backoff rather than a defense cooldown.
func (o Outcome) IsTransport() bool {
	return o.Kind == OutcomeTimeout || o.Kind == OutcomeConnectionError
}

// Retryable reports whether another attempt can change the result. Every
// non-success outcome is retryable within the per-target budget.
func (o Outcome) Retryable() bool {
	return o.Kind != OutcomeSuccess
}
