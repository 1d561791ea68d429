// Package errs defines the engine's error kinds. Every failure the engine
// surfaces to a caller is one of these kinds, carrying its cause and enough
// context to decide whether to retry at a checkpoint.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error per the propagation rules: Config,
// NotFound, RPC, Verification, and State surface as operation failures;
// NoOp reports success; Fatal is unrecoverable within the current process.
type Kind int

const (
	// Config covers missing credentials, invalid addresses, and other
	// misconfiguration caught before any RPC is attempted.
	Config Kind = iota
	// NotFound covers "no code at source address" and "unknown block".
	NotFound
	// RPC covers any node method failure.
	RPC
	// Verification covers local proof verification failure and an
	// on-chain migration flag that stays false after verifyMigrateContract.
	Verification
	// State covers an operation requested in the wrong state-machine state.
	State
	// NoOp is not an error: empty diff, or source block > target block.
	NoOp
	// Fatal covers unhandled failure inside bounded RPC fan-out, where a
	// gap in batched results would silently corrupt a diff or proof.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case NotFound:
		return "not_found"
	case RPC:
		return "rpc"
	case Verification:
		return "verification"
	case State:
		return "state"
	case NoOp:
		return "no_op"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the engine's single error type. Context is a flat key/value
// tail, following the same keyed idiom the facade uses for structured
// logging, so a caller can log an error the same way it logs anything else.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context []interface{}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, target) match when target is any *Error of the
// same Kind, so errors.Is(err, errs.Sentinel(NoOp)) checks the kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an *Error of the given kind with a message and optional
// keyed context (e.g. New(RPC, "getProof failed", "address", addr)).
func New(kind Kind, message string, context ...interface{}) *Error {
	return &Error{Kind: kind, Message: message, Context: context}
}

// Wrap builds an *Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, message string, context ...interface{}) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Context: context}
}

// Sentinel builds a zero-value marker of a given kind, useful for
// errors.Is(err, errs.Sentinel(NoOp)) comparisons in callers.
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
