package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/fhe-ballot/auth"
	"github.com/vocdoni/fhe-ballot/ledger"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/oracle"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"access denied","code":40012}
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually include the error string,
	// since it wouldn't be marshaled otherwise. (json.Marshal doesn't call Err.Error())
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Write serializes a JSON msg using APIerror.Message and APIerror.Code
// and passes that to ctx.Send()
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	// set the content type to JSON
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of APIerror with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of APIerror with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// ErrNotFound is the error clients get for unknown routes.
var ErrNotFound = ErrResourceNotFound.Err

// domainErrors maps the errors of the ledger, the authorization and the
// oracle to their API error.
var domainErrors = []struct {
	target error
	apiErr Error
}{
	{ledger.ErrInvalidInputProof, ErrInvalidInputProof},
	{ledger.ErrUnknownCandidate, ErrUnknownCandidate},
	{auth.ErrAuthorizationExpired, ErrAuthorizationExpired},
	{auth.ErrAuthorizationInvalid, ErrAuthorizationInvalid},
	{oracle.ErrAccessDenied, ErrAccessDenied},
	{oracle.ErrInvalidRequest, ErrInvalidRequest},
	{ErrNotFound, ErrResourceNotFound},
}

// errorFromDomain returns the API error matching err, or a generic internal
// server error.
func errorFromDomain(err error) Error {
	for _, de := range domainErrors {
		if errors.Is(err, de.target) {
			return de.apiErr.WithErr(err)
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}

// SentinelForCode returns the domain error matching an API error code, or
// nil if the code has no domain counterpart.
func SentinelForCode(code int) error {
	for _, de := range domainErrors {
		if de.apiErr.Code == code {
			return de.target
		}
	}
	return nil
}
