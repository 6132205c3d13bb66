package vesting

import (
	"errors"
	"fmt"
)

// Code categorizes program errors.
type Code string

const (
	// CodeClaimNotAvailableYet indicates the cliff has not been reached.
	CodeClaimNotAvailableYet Code = "CLAIM_NOT_AVAILABLE_YET"

	// CodeInvalidVestingPeriod indicates start and end times are equal.
	CodeInvalidVestingPeriod Code = "INVALID_VESTING_PERIOD"

	// CodeCalculationOverflow indicates total * elapsed exceeds 64 bits.
	CodeCalculationOverflow Code = "CALCULATION_OVERFLOW"

	// CodeNothingToClaim indicates vested does not exceed withdrawn.
	CodeNothingToClaim Code = "NOTHING_TO_CLAIM"

	// CodeAlreadyExists indicates a derived address is already occupied.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeUnauthorized indicates the signer is not the required identity.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeAccountNotFound indicates a registry, grant or mint is missing.
	CodeAccountNotFound Code = "ACCOUNT_NOT_FOUND"

	// CodeAccountMismatch indicates stored account references disagree
	// with the derived ones.
	CodeAccountMismatch Code = "ACCOUNT_MISMATCH"

	// CodeInvalidOrganizationName indicates a name that cannot seed a registry.
	CodeInvalidOrganizationName Code = "INVALID_ORGANIZATION_NAME"

	// CodeTransferFailed indicates the token program refused the custody transfer.
	CodeTransferFailed Code = "TRANSFER_FAILED"
)

// Error is a program error with a stable code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is comparisons. Matching is by Code only.
var (
	ErrClaimNotAvailableYet    = &Error{Code: CodeClaimNotAvailableYet, Message: "claim not available yet"}
	ErrInvalidVestingPeriod    = &Error{Code: CodeInvalidVestingPeriod, Message: "invalid vesting period"}
	ErrCalculationOverflow     = &Error{Code: CodeCalculationOverflow, Message: "calculation overflow"}
	ErrNothingToClaim          = &Error{Code: CodeNothingToClaim, Message: "nothing to claim"}
	ErrAlreadyExists           = &Error{Code: CodeAlreadyExists, Message: "account already exists"}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrAccountNotFound         = &Error{Code: CodeAccountNotFound, Message: "account not found"}
	ErrAccountMismatch         = &Error{Code: CodeAccountMismatch, Message: "account mismatch"}
	ErrInvalidOrganizationName = &Error{Code: CodeInvalidOrganizationName, Message: "invalid organization name"}
	ErrTransferFailed          = &Error{Code: CodeTransferFailed, Message: "transfer failed"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode implements ledger.Coded so the host journals the code.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(sentinel *Error, cause error, kv ...string) *Error {
	e := &Error{Code: sentinel.Code, Message: sentinel.Message, Err: cause}
	if len(kv) > 0 {
		e.Details = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Details[kv[i]] = kv[i+1]
		}
	}
	return e
}
