package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", Outcome{Kind: OutcomeSuccess}.String())
	assert.Equal(t, "http_error_404", Outcome{Kind: OutcomeHTTPError, HTTPStatus: 404}.String())
}

func TestOutcome_IsDefense(t *testing.T) {
	assert.True(t, Outcome{Kind: OutcomeBlocked}.IsDefense())
	assert.True(t, Outcome{Kind: OutcomeCaptcha}.IsDefense())
	assert.True(t, Outcome{Kind: OutcomeHTTPError, HTTPStatus: 403}.IsDefense())
	assert.False(t, Outcome{Kind: OutcomeHTTPError, HTTPStatus: 500}.IsDefense())
	assert.False(t, Outcome{Kind: OutcomeTimeout}.IsDefense())
}

func TestOutcome_IsTransport(t *testing.T) {
	assert.True(t, Outcome{Kind: OutcomeTimeout}.IsTransport())
	assert.True(t, Outcome{Kind: OutcomeConnectionError}.IsTransport())
	assert.False(t, Outcome{Kind: OutcomeBlocked}.IsTransport())
}

func TestStats_Exhausted(t *testing.T) {
	s := NewStats()
	s.ExhaustedByReason["captcha"] = 2
	s.ExhaustedByReason["timeout"] = 1
	assert.Equal(t, 3, s.Exhausted())
}
