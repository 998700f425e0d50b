package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"go.vocdoni.io/dvote/log"
)

// Error is a coded error. Client side failures (network, decoding, input
// checks) leave HTTPstatus at zero; errors that the backend contract defines
// carry the HTTP status the backend answers with, so the same values can be
// written by a server and recognised by the client.
type Error struct {
	Err        error // Original error, its text is the user facing message
	Code       int   // Error code
	HTTPstatus int   // HTTP status code, zero for client side failures
}

// MarshalJSON returns the backend error envelope, {"detail": Err.Error()}.
// Code and HTTPstatus are not part of the wire format.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Detail string `json:"detail"`
	}{
		Detail: e.Err.Error(),
	})
}

// Error returns the message contained inside the Error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the wrapped error chain.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error with the same Code, so values derived
// with With, Withf, WithErr or WithMessage still match their sentinel.
func (e Error) Is(target error) bool {
	var t Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Write serializes the error envelope and passes it to http.Error() with
// HTTPstatus (500 when unset).
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	status := e.HTTPstatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		log.Warnw("error response", "status", status, "code", e.Code, "error", e.Error())
	} else {
		log.Debugw("error response", "status", status, "code", e.Code, "error", e.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(msg)
}

// Withf returns a copy of Error with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of Error with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of Error with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithMessage returns a copy of Error whose message is replaced by msg.
// It is used where the exact text is what the user must see, for example
// "Minimum amount is $0.50".
func (e Error) WithMessage(msg string) Error {
	return Error{
		Err:        stderrors.New(msg),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// APIError is returned by the client for any non-2xx backend response.
// Detail holds the backend's "detail" string when the body carried one.
type APIError struct {
	Status int
	Detail string
}

// Error returns Detail, or "HTTP <status>" when the backend sent no usable
// detail.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// NewAPIError builds an APIError from a response status and its raw body.
// The body is expected to be {"detail": "<string>"}; anything else (empty,
// not JSON, detail missing, empty or not a string) yields "HTTP <status>".
func NewAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		apiErr.Detail = detail
	}
	return apiErr
}

// Message returns the single user facing string for err: the backend detail
// for API errors, the coded message for Error values and err.Error()
// otherwise. A nil error yields an empty string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var coded Error
	if stderrors.As(err, &coded) {
		return coded.Error()
	}
	return err.Error()
}

// StatusCode returns the HTTP status of an APIError in err's chain, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
