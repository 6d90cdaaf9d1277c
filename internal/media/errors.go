package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindAccessDenied
	KindNotFound
	KindRateLimited
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindTimeout:      "timeout",
	KindAccessDenied: "access_denied",
	KindNotFound:     "not_found",
	KindRateLimited:  "rate_limited",
	KindUnavailable:  "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// RetrievalError is the only error type strategies hand back to a chain.
type RetrievalError struct {
	Kind     Kind
	Message  string
	Strategy string
	Err      error
}

func (e *RetrievalError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Strategy, e.Kind, e.Message)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func Fail(strategy string, kind Kind, format string, args ...any) *RetrievalError {
	return &RetrievalError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Strategy: strategy,
	}
}

func Unavailable(strategy, reason string) *RetrievalError {
	return &RetrievalError{Kind: KindUnavailable, Message: reason, Strategy: strategy}
}

// Wrap classifies an arbitrary error into a RetrievalError attributed to
// strategy. Existing RetrievalErrors keep their kind.
func Wrap(strategy string, err error) *RetrievalError {
	if err == nil {
		return nil
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		if re.Strategy == "" {
			clone := *re
			clone.Strategy = strategy
			return &clone
		}
		return re
	}
	return &RetrievalError{
		Kind:     KindOf(err),
		Message:  err.Error(),
		Strategy: strategy,
		Err:      err,
	}
}

func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var se httpStatuser
	if errors.As(err, &se) {
		return ClassifyStatus(se.HTTPStatus())
	}
	return ClassifyMessage(err.Error())
}

type httpStatuser interface {
	error
	HTTPStatus() int
}

func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusUnavailableForLegalReasons:
		return KindAccessDenied
	case code == http.StatusNotFound, code == http.StatusGone:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return KindTimeout
	case code == http.StatusServiceUnavailable, code == http.StatusBadGateway:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

var messageMarkers = []struct {
	kind    Kind
	markers []string
}{
	{KindRateLimited, []string{"http error 429", "too many requests", "rate limit", "rate-limit"}},
	{KindAccessDenied, []string{
		"sign in to confirm", "login required", "private video", "this video is private",
		"members-only", "age-restricted", "confirm your age", "http error 403", "forbidden",
		"not available in your country", "geo restricted", "private account",
	}},
	{KindNotFound, []string{
		"http error 404", "not found", "video unavailable", "does not exist",
		"has been removed", "unsupported url", "no video formats found",
	}},
	{KindTimeout, []string{"timed out", "timeout", "deadline exceeded"}},
}

// ClassifyMessage maps the free-form text of an upstream failure to a Kind.
func ClassifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, group := range messageMarkers {
		for _, marker := range group.markers {
			if strings.Contains(lower, marker) {
				return group.kind
			}
		}
	}
	return KindUnknown
}
