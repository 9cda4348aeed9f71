// Package cerrs defines the stable error taxonomy of the SDK. Every error the
// core constructs carries a machine-readable Code; free-form text stays in the
// wrapped cause. Presentation-layer formatting is out of scope here.
package cerrs

import (
	"errors"
	"fmt"
)

type Code string

const (
	// CodeUnsupported covers configuration errors: unknown network, unknown
	// token, registry miss. Fatal, not retryable.
	CodeUnsupported Code = "UNSUPPORTED"

	// CodeUserDeclined marks a rejection by the wallet holder (intent,
	// allowance set, signature or transaction prompt).
	CodeUserDeclined Code = "USER_DECLINED"

	// CodeInsufficientBalance is surfaced when an accepted intent is executed
	// while the candidate sources cannot cover borrow plus fees. Never raised
	// at simulate/build time.
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// CodeTimeout marks an exceeded wait deadline (confirmation polling).
	CodeTimeout Code = "TIMEOUT"

	// CodeRelay marks a failed relay/middleware call. Retryable by rebuilding
	// the intent; the core never retries on its own.
	CodeRelay Code = "RELAY"

	// CodeGasPrice marks an unusable fee recommendation (a tier resolved to
	// zero).
	CodeGasPrice Code = "GAS_PRICE"

	// CodeAllowance marks an unresolvable allowance selection, e.g. fewer
	// choices supplied than there are sources needing one.
	CodeAllowance Code = "ALLOWANCE"

	// CodeOnChain marks a reverted or unconfirmable transaction. Carries the
	// network it happened on so a caller can direct the user there.
	CodeOnChain Code = "ONCHAIN"
)

// Error is the one concrete error type the core emits. NetworkID is zero when
// no single network is involved.
type Error struct {
	Code      Code
	NetworkID uint64
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	s := string(e.Code)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.NetworkID != 0 {
		s = fmt.Sprintf("%s (network %d)", s, e.NetworkID)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// OnNetwork attaches chain context to on-chain failures.
func OnNetwork(code Code, networkID uint64, msg string, err error) *Error {
	return &Error{Code: code, NetworkID: networkID, Msg: msg, Err: err}
}

// CodeOf extracts the taxonomy code from an error chain, or "" when the error
// did not originate in the core.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
