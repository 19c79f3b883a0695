package retry

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusPaymentRequired, ErrQuotaExceeded},
		{http.StatusUnauthorized, ErrAuthentication},
		{http.StatusForbidden, ErrAuthentication},
		{http.StatusRequestTimeout, ErrTimeout},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusInternalServerError, ErrNetwork},
		{http.StatusBadGateway, ErrNetwork},
		{http.StatusNotFound, ErrInvalidResponse},
		{http.StatusBadRequest, ErrInvalidResponse},
	}
	for _, tc := range cases {
		got := NewHTTPError(tc.status, errors.Newf("status %d", tc.status))
		assert.Equal(t, tc.want, got.Type, "status %d", tc.status)
		assert.Equal(t, tc.status, got.StatusCode)
	}
}

func TestClassifyMessages(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorType
	}{
		{"GitHub secondary rate limit hit", ErrRateLimit},
		{"monthly quota exhausted", ErrQuotaExceeded},
		{"billing account suspended", ErrQuotaExceeded},
		{"request was unauthorized", ErrAuthentication},
		{"access forbidden for token", ErrAuthentication},
		{"operation timed out after 30s", ErrTimeout},
		{"dial tcp: connection refused", ErrNetwork},
		{"lookup api.example.com: no such host", ErrNetwork},
		{"validation failed on field tags", ErrValidation},
		{"invalid source identifier", ErrValidation},
		{"something unforeseen happened", ErrUnknown},
	}
	for _, tc := range cases {
		got := Classify(errors.New(tc.msg))
		assert.Equal(t, tc.want, got.Type, "message %q", tc.msg)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Every classification lands on exactly one taxonomy member with a
	// severity and a retryable decision.
	inputs := []error{
		errors.New(""),
		errors.New("rate limit and quota in one message"), // first rule wins
		context.DeadlineExceeded,
		&net.DNSError{Err: "no such host", Name: "x"},
	}
	for _, in := range inputs {
		ce := Classify(in)
		require.NotNil(t, ce)
		assert.NotEmpty(t, ce.Severity)
		_, known := retryableByType[ce.Type]
		assert.True(t, known, "type %s not in taxonomy", ce.Type)
	}

	// Rule order: rate limit beats quota when both substrings match.
	assert.Equal(t, ErrRateLimit, Classify(errors.New("rate limit, check quota")).Type)
}

func TestClassifyJSONErrors(t *testing.T) {
	var v struct{ X int }
	err := json.Unmarshal([]byte("{nope"), &v)
	require.Error(t, err)
	assert.Equal(t, ErrParsing, Classify(err).Type)

	err = json.Unmarshal([]byte(`{"X": "string"}`), &v)
	require.Error(t, err)
	assert.Equal(t, ErrParsing, Classify(err).Type)
}

func TestClassifyPassthrough(t *testing.T) {
	orig := NewError(ErrRateLimit, errors.New("429"))
	wrapped := errors.Wrap(orig, "fetching page")
	got := Classify(wrapped)
	assert.Equal(t, ErrRateLimit, got.Type)
}

func TestRetryableFlags(t *testing.T) {
	retryable := []ErrorType{ErrNetwork, ErrRateLimit, ErrTimeout, ErrUnknown}
	for _, tt := range retryable {
		assert.True(t, NewError(tt, nil).Retryable, "%s", tt)
	}
	nonRetryable := []ErrorType{ErrQuotaExceeded, ErrAuthentication, ErrParsing, ErrValidation, ErrInvalidResponse}
	for _, tt := range nonRetryable {
		assert.False(t, NewError(tt, nil).Retryable, "%s", tt)
	}
}
