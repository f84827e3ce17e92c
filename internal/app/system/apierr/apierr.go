// Package apierr defines the error taxonomy shared by every handler and
// service, and renders errors in the uniform JSON failure shape
//
//	{ "success": false, "message": "...", "errorKind": "..." }
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Kind is a stable, client-visible error identifier.
type Kind string

const (
	InvalidArgument    Kind = "InvalidArgument"
	MissingCredentials Kind = "MissingCredentials"
	InvalidCredentials Kind = "InvalidCredentials"
	TenantInactive     Kind = "TenantInactive"
	TenantNotFound     Kind = "TenantNotFound"
	NotConnected       Kind = "NotConnected"
	Unauthorized       Kind = "Unauthorized"
	Forbidden          Kind = "Forbidden"
	ServiceUnavailable Kind = "ServiceUnavailable"
	NotFound           Kind = "NotFound"
	Conflict           Kind = "Conflict"
	TooManyRequests    Kind = "TooManyRequests"
	Internal           Kind = "Internal"
)

// InvalidCredentialsMessage is returned for every credential failure,
// whichever lookup or comparison failed.
const InvalidCredentialsMessage = "Invalid email or password."

var defaultMessages = map[Kind]string{
	InvalidArgument:    "The request is invalid.",
	MissingCredentials: "Email and password are required.",
	InvalidCredentials: InvalidCredentialsMessage,
	TenantInactive:     "This school is currently inactive. Please contact the platform administrator.",
	TenantNotFound:     "School not found.",
	NotConnected:       "The database is not connected. Please try again shortly.",
	Unauthorized:       "Authentication required.",
	Forbidden:          "You do not have permission to perform this action.",
	ServiceUnavailable: "The service is temporarily unavailable. Please try again.",
	NotFound:           "Not found.",
	Conflict:           "The request conflicts with existing data.",
	TooManyRequests:    "Too many requests. Please wait and try again.",
	Internal:           "A server error occurred.",
}

var statuses = map[Kind]int{
	InvalidArgument:    http.StatusBadRequest,
	MissingCredentials: http.StatusBadRequest,
	InvalidCredentials: http.StatusUnauthorized,
	TenantInactive:     http.StatusForbidden,
	TenantNotFound:     http.StatusNotFound,
	NotConnected:       http.StatusServiceUnavailable,
	Unauthorized:       http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	ServiceUnavailable: http.StatusServiceUnavailable,
	NotFound:           http.StatusNotFound,
	Conflict:           http.StatusConflict,
	TooManyRequests:    http.StatusTooManyRequests,
	Internal:           http.StatusInternalServerError,
}

// Error carries a Kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // per-field validation messages, keyed by JSON name
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error with the given kind. An empty message selects the
// kind's default message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = defaultMessages[kind]
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap is New with a cause attached. The cause is logged, never rendered.
func Wrap(kind Kind, message string, err error) *Error {
	e := New(kind, message)
	e.Err = err
	return e
}

// KindOf classifies err. Typed errors keep their kind; deadline, driver
// timeout and network errors become ServiceUnavailable; anything else is
// Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if isUnavailable(err) {
		return ServiceUnavailable
	}
	return Internal
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromStore converts a raw store/driver error into a typed error.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if isUnavailable(err) {
		return Wrap(ServiceUnavailable, "", err)
	}
	return Wrap(Internal, "", err)
}

func isUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err)
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	if s, ok := statuses[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Body is the JSON failure shape.
type Body struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorKind Kind   `json:"errorKind,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
}

// BodyFor builds the failure body for err.
func BodyFor(err error) Body {
	kind := KindOf(err)
	msg := defaultMessages[kind]
	var fields map[string]string
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			msg = e.Message
		}
		fields = e.Fields
	}
	return Body{Success: false, Message: msg, ErrorKind: kind, Fields: fields}
}

// Write renders err as a JSON failure. Server-side kinds are logged with
// their cause; client-side kinds are not.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := KindOf(err)
	status := HTTPStatus(kind)
	if log != nil && status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("kind", string(kind)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(BodyFor(err))
}
