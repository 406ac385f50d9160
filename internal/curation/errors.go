package curation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

// Kind classifies a caller-visible failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindBadRequest   Kind = "bad_request"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUpstream     Kind = "upstream"
	KindPersistence  Kind = "persistence"
)

// HTTPStatus maps the kind to the status code the API reports.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured failure returned by every curation operation.
type Error struct {
	Kind    Kind
	Message string

	// Set for KindUpstream when the analysis service replied.
	UpstreamStatus int
	UpstreamBody   string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a curation error, or KindPersistence for any
// other error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindPersistence
}

func unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: "Unauthorized: Invalid secret key."}
}

func badRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

// upstream folds the analysis service's status and body into the error.
func upstream(err error) *Error {
	e := &Error{Kind: KindUpstream, Message: "Analysis endpoint failed", Err: err}
	var se *analyzer.StatusError
	if errors.As(err, &se) {
		e.UpstreamStatus = se.StatusCode
		e.UpstreamBody = se.Body
		e.Message = fmt.Sprintf("Analysis endpoint failed (status %d): %s", se.StatusCode, se.Body)
	}
	return e
}
