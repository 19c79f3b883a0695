package retry

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
)

// ErrorType is the fixed failure taxonomy shared by every network-calling
// component in the pipeline.
type ErrorType string

const (
	ErrNetwork         ErrorType = "NETWORK_ERROR"
	ErrRateLimit       ErrorType = "API_RATE_LIMIT"
	ErrQuotaExceeded   ErrorType = "API_QUOTA_EXCEEDED"
	ErrAuthentication  ErrorType = "AUTHENTICATION_ERROR"
	ErrInvalidResponse ErrorType = "INVALID_RESPONSE"
	ErrTimeout         ErrorType = "TIMEOUT_ERROR"
	ErrParsing         ErrorType = "PARSING_ERROR"
	ErrValidation      ErrorType = "VALIDATION_ERROR"
	ErrUnknown         ErrorType = "UNKNOWN_ERROR"
)

// Severity grades how alarming a classified failure is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ClassifiedError wraps an underlying failure with its taxonomy membership.
type ClassifiedError struct {
	Type       ErrorType
	Severity   Severity
	StatusCode int
	Retryable  bool
	cause      error
}

func (e *ClassifiedError) Error() string {
	if e.cause == nil {
		return string(e.Type)
	}
	return string(e.Type) + ": " + e.cause.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

// Is lets callers match classified errors by type with errors.Is, using a
// bare &ClassifiedError{Type: ...} as the target.
func (e *ClassifiedError) Is(target error) bool {
	var ce *ClassifiedError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Type == e.Type
}

var severityByType = map[ErrorType]Severity{
	ErrNetwork:         SeverityMedium,
	ErrRateLimit:       SeverityMedium,
	ErrQuotaExceeded:   SeverityCritical,
	ErrAuthentication:  SeverityCritical,
	ErrInvalidResponse: SeverityMedium,
	ErrTimeout:         SeverityMedium,
	ErrParsing:         SeverityLow,
	ErrValidation:      SeverityLow,
	ErrUnknown:         SeverityHigh,
}

var retryableByType = map[ErrorType]bool{
	ErrNetwork:         true,
	ErrRateLimit:       true,
	ErrQuotaExceeded:   false,
	ErrAuthentication:  false,
	ErrInvalidResponse: false,
	ErrTimeout:         true,
	ErrParsing:         false,
	ErrValidation:      false,
	ErrUnknown:         true,
}

// NewError builds a ClassifiedError of a known type around a cause.
func NewError(t ErrorType, cause error) *ClassifiedError {
	return &ClassifiedError{
		Type:      t,
		Severity:  severityByType[t],
		Retryable: retryableByType[t],
		cause:     cause,
	}
}

// NewHTTPError classifies a non-2xx HTTP status directly, skipping the
// message-sniffing part of the cascade.
func NewHTTPError(status int, cause error) *ClassifiedError {
	e := NewError(classifyStatus(status), cause)
	e.StatusCode = status
	return e
}

// Classify maps any error onto exactly one taxonomy member. The cascade is
// ordered; the first matching rule wins. Already-classified errors pass
// through unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	// Connection-level failures before anything message-based.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return NewError(ErrNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewError(ErrTimeout, err)
		}
		return NewError(ErrNetwork, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrTimeout, err)
	}

	var jsonSyntaxErr *json.SyntaxError
	var jsonTypeErr *json.UnmarshalTypeError
	if errors.As(err, &jsonSyntaxErr) || errors.As(err, &jsonTypeErr) {
		return NewError(ErrParsing, err)
	}

	return NewError(classifyMessage(err.Error()), err)
}

func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrNetwork
	default:
		return ErrInvalidResponse
	}
}

// Ordered substring rules over the error message. Kept as a single table so
// the cascade stays exhaustively testable.
var messageRules = []struct {
	substrings []string
	errType    ErrorType
}{
	{[]string{"rate limit", "too many requests"}, ErrRateLimit},
	{[]string{"quota", "billing"}, ErrQuotaExceeded},
	{[]string{"unauthorized", "forbidden"}, ErrAuthentication},
	{[]string{"timeout", "timed out", "deadline exceeded"}, ErrTimeout},
	{[]string{"connection refused", "no such host", "connection reset"}, ErrNetwork},
	{[]string{"unexpected end of json", "invalid character"}, ErrParsing},
	{[]string{"validation", "invalid"}, ErrValidation},
}

func classifyMessage(msg string) ErrorType {
	lower := strings.ToLower(msg)
	for _, rule := range messageRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.errType
			}
		}
	}
	return ErrUnknown
}
