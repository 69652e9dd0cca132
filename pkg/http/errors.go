package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AppError is an error carrying the status and details it is reported with.
type AppError struct {
	Status  int
	Details []ErrorDetail
	Err     error
}

func (e *AppError) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	msg := strings.Join(msgs, "; ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// NewError builds a single-detail AppError.
func NewError(status int, code, format string, a ...any) *AppError {
	return &AppError{
		Status:  status,
		Details: []ErrorDetail{{Code: code, Message: fmt.Sprintf(format, a...)}},
	}
}

// Invalid reports request validation failures as a 400.
func Invalid(details []ErrorDetail) *AppError {
	return &AppError{Status: http.StatusBadRequest, Details: details}
}

// Wrap keeps err as the cause; it is logged, never sent to the client.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

type errorRule struct {
	target error
	status int
	code   string
}

// ErrorMap translates domain errors into AppErrors by errors.Is.
type ErrorMap struct {
	rules    []errorRule
	fallback errorRule
}

func NewErrorMap() *ErrorMap {
	return &ErrorMap{fallback: errorRule{status: http.StatusInternalServerError, code: "ERR_INTERNAL"}}
}

func (m *ErrorMap) On(target error, status int, code string) *ErrorMap {
	m.rules = append(m.rules, errorRule{target: target, status: status, code: code})
	return m
}

// Otherwise sets the status used when no rule matches.
func (m *ErrorMap) Otherwise(status int, code string) *ErrorMap {
	m.fallback = errorRule{status: status, code: code}
	return m
}

func (m *ErrorMap) Map(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	r := m.fallback
	for _, rule := range m.rules {
		if errors.Is(err, rule.target) {
			r = rule
			break
		}
	}
	return fromStatus(r.status, r.code, err)
}

// fromStatus hides the cause of server-side failures from the client.
func fromStatus(status int, code string, err error) *AppError {
	msg := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	return NewError(status, code, "%s", msg).Wrap(err)
}

func statusCode(status int) string {
	return "ERR_" + strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func toAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return NewError(he.Code, statusCode(he.Code), "%v", he.Message).Wrap(he.Internal)
	}
	return fromStatus(http.StatusInternalServerError, "ERR_INTERNAL", err)
}
