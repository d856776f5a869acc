package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the error type services hand back to routes. It is
// JSON-marshalable and carries the HTTP status to respond with.
type ErrorResponse interface {
	error
	Code() int
}

type Simple struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func NewSimple(status int, message string) *Simple {
	return &Simple{Status: status, Message: message}
}

func (s *Simple) Code() int     { return s.Status }
func (s *Simple) Error() string { return s.Message }

var (
	InternalServerError   = NewSimple(http.StatusInternalServerError, "Internal server error")
	MalformedBodyError    = NewSimple(http.StatusBadRequest, "Malformed request body")
	NotFoundError         = NewSimple(http.StatusNotFound, "Resource not found")
	InvalidAuthTokenError = NewSimple(http.StatusUnauthorized, "Invalid or missing auth token")

	MalformedSlotError = NewSimple(http.StatusBadRequest,
		"Date must be YYYY-MM-DD and time must be HH:MM on a half-hour boundary")
	BookingUnavailableError = NewSimple(http.StatusServiceUnavailable,
		"Could not allocate a slot, please retry")
	NoAvailabilityError = NewSimple(http.StatusServiceUnavailable,
		"No available slot within the search horizon")
)

func NewMissingParamError(name string) *Simple {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Missing required parameter '%s'", name))
}

// FromValidationError flattens a validator.ValidationErrors into a single
// 400 response naming the offending fields.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}

	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed '%s' validation", fe.Field(), fe.Tag())
	}
	return NewSimple(http.StatusBadRequest, strings.Join(parts, "; "))
}
