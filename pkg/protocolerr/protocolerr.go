// Package protocolerr defines the closed surface of error codes
// the library names, so callers can branch on outcome with errors.Is rather
// than string matching.
package protocolerr

import "fmt"

// Code is one of the fixed error codes the core surfaces.
type Code string

// The error codes this package names.
const (
	BadParameter    Code = "BadParameter"
	NotInGroup      Code = "NotInGroup"
	BadProof        Code = "BadProof"
	BadChannel      Code = "BadChannel"
	Timeout         Code = "Timeout"
	Unqualified     Code = "Unqualified"
	NotEnoughShares Code = "NotEnoughShares"
	Abort           Code = "Abort"
)

// Error wraps a Code with a human-readable message; it does not record
// an offending party. It implements error and supports
// errors.Is against a bare Code value.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, protocolerr.NotInGroup) work by comparing
// against a target constructed with New or a Code-valued error.
func (e *Error) Is(target error) bool {
	var other *Error
	if t, ok := target.(*Error); ok {
		other = t
	} else {
		return false
	}
	return e.Code == other.Code
}

// New builds an Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinel returns a bare Error carrying only a code, suitable as the
// target of errors.Is.
func Sentinel(code Code) *Error { return &Error{Code: code} }
