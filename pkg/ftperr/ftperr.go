// Package ftperr provides the explicit Result sum type propagated from
// VFS/policy/transfer code up to the command dispatcher, in place of an
// exception-carrying-a-reply-line pattern.
package ftperr

import (
	"errors"
	"fmt"
)

// Kind classifies the broad category a Result falls into.
type Kind int

const (
	// OK is not an error; commands that succeed don't need a Result at all,
	// but OK lets helper functions return Result uniformly when convenient.
	OK Kind = iota
	Protocol
	Authentication
	Authorization
	Policy
	VFS
	Transfer
	Resource
	Fatal
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case Protocol:
		return "Protocol"
	case Authentication:
		return "Authentication"
	case Authorization:
		return "Authorization"
	case Policy:
		return "Policy"
	case VFS:
		return "VFS"
	case Transfer:
		return "Transfer"
	case Resource:
		return "Resource"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Result is a typed outcome carrying the FTP reply code and a short,
// user-safe message. It implements error so it can be returned and
// wrapped like any other Go error, while still letting the dispatcher
// translate it directly into a wire reply without re-deriving a code
// from error string matching.
type Result struct {
	Kind    Kind
	Code    int // FTP reply code, e.g. 550
	Message string
	// CloseSession, when true, tells the session loop to close the
	// control connection after sending Message.
	CloseSession bool
}

func (r *Result) Error() string {
	return fmt.Sprintf("%d %s", r.Code, r.Message)
}

// New constructs a Result of the given kind.
func New(kind Kind, code int, message string) *Result {
	return &Result{Kind: kind, Code: code, Message: message}
}

// Protocolf builds a 500-class protocol error with reply code code.
func Protocolf(code int, format string, args...any) *Result {
	return &Result{Kind: Protocol, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Denied builds a 550 authorization/policy denial carrying reason.
func Denied(reason string) *Result {
	return &Result{Kind: Authorization, Code: 550, Message: reason}
}

// PolicyDenied builds a 550 policy-layer denial (ratio, FXP, read-only mount).
func PolicyDenied(reason string) *Result {
	return &Result{Kind: Policy, Code: 550, Message: reason}
}

// NotFound builds a 550 "no such file or directory" VFS error.
func NotFound(reason string) *Result {
	return &Result{Kind: VFS, Code: 550, Message: reason}
}

// LoginIncorrect builds the standard 530 authentication failure.
func LoginIncorrect() *Result {
	return &Result{Kind: Authentication, Code: 530, Message: "Login incorrect."}
}

// FatalErr builds a 421 fatal/resource error that closes the session.
func FatalErr(reason string) *Result {
	return &Result{Kind: Fatal, Code: 421, Message: reason, CloseSession: true}
}

// IsResult reports whether err is (or wraps) an *ftperr.Result and
// returns it.
func IsResult(err error) (*Result, bool) {
	var r *Result
	ok := errors.As(err, &r)
	return r, ok
}
