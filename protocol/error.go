// Defines the constants representing the results of
// the consistency checks a key transparency client performs,
// and the errors the log's transport may return.

package protocol

import (
	"errors"
	"fmt"
)

// An ErrorCode implements the built-in error interface type.
type ErrorCode int

// These codes indicate the result of a verification step performed by
// the client. Each failing check is reported as a *VerificationError
// carrying one of these codes.
const (
	CheckPassed ErrorCode = iota + 200
	CheckBadEpoch
	CheckBadSignature
	CheckBadProof
	CheckBadProofType
	CheckBadRevision
	CheckBadTimestamp
	CheckStaleEpoch
	CheckMissingField
	CheckBadKeyList
	CheckBadState
	CheckNotIncluded
)

// These codes indicate the status of a request to the log.
const (
	ReqSuccess ErrorCode = iota + 100
	ReqUnprocessable
	ReqNotFound
	ErrTransport
	ErrMalformedMessage
)

var errorMessages = map[ErrorCode]string{
	ReqSuccess:          "[kt] Successful request",
	ReqUnprocessable:    "[kt] Requested data is not available yet",
	ReqNotFound:         "[kt] Requested data was never set",
	ErrTransport:        "[kt] Transport error",
	ErrMalformedMessage: "[kt] Malformed log message",

	CheckPassed:       "[kt] Consistency checks passed",
	CheckBadEpoch:     "[kt] Epoch certificate is invalid",
	CheckBadSignature: "[kt] Signature is invalid",
	CheckBadProof:     "[kt] Merkle proof does not verify",
	CheckBadProofType: "[kt] Proof type is inconsistent with the signed key list",
	CheckBadRevision:  "[kt] Revision chain is inconsistent",
	CheckBadTimestamp: "[kt] Timestamp is out of the allowed window",
	CheckStaleEpoch:   "[kt] Epoch is too old",
	CheckMissingField: "[kt] Required field is missing",
	CheckBadKeyList:   "[kt] Signed key list does not match the address keys",
	CheckBadState:     "[kt] Unexpected verified state",
	CheckNotIncluded:  "[kt] Change was not included in time",
}

// Error returns the error message corresponding to the error code e.
func (e ErrorCode) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("[kt] Unknown error code %d", int(e))
}

// A VerificationError reports a broken invariant found while verifying
// data served by the log. It is the only error type the verification
// code raises for consistency failures; transport failures are reported
// as they come.
type VerificationError struct {
	Code ErrorCode
	Msg  string
}

func (e *VerificationError) Error() string {
	return e.Code.Error() + ": " + e.Msg
}

// Is makes errors.Is(err, code) match on the error code.
func (e *VerificationError) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// Check returns a *VerificationError with the given code and message
// if cond is false, and nil otherwise.
func Check(cond bool, code ErrorCode, msg string) error {
	if cond {
		return nil
	}
	return &VerificationError{Code: code, Msg: msg}
}

// CheckNotNil is Check for a required optional field.
func CheckNotNil[T any](v *T, msg string) (T, error) {
	if v == nil {
		var zero T
		return zero, &VerificationError{Code: CheckMissingField, Msg: msg}
	}
	return *v, nil
}

// IsVerificationError reports whether err (or any error it wraps) is a
// consistency failure rather than a transport failure.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// An APIError is returned by the log transport for a request that
// completed with a non-success status.
type APIError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Code.Error(), e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code.Error(), e.Status, e.Message)
}

// Is makes errors.Is(err, ErrUnprocessable) and errors.Is(err, ErrNotFound)
// work on transport errors.
func (e *APIError) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

var (
	// ErrUnprocessable is matched by transport errors meaning
	// "not available yet" (HTTP 422).
	ErrUnprocessable error = ReqUnprocessable
	// ErrNotFound is matched by transport errors meaning the requested
	// record was never set.
	ErrNotFound error = ReqNotFound
)

// UnverifiableSKLError is returned when the signature of a signed key list
// cannot be verified with any of the keys known for the address.
type UnverifiableSKLError struct {
	Err error
}

func (e *UnverifiableSKLError) Error() string {
	return "[kt] Signed key list could not be verified: " + e.Err.Error()
}

func (e *UnverifiableSKLError) Unwrap() error { return e.Err }
