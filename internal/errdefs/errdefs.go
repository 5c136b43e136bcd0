// Package errdefs defines the error taxonomy shared by the deployment
// pipeline. The session controller inspects the kind of a failure to decide
// between rollback, soft reporting, and exit-code policy; components return
// these instead of using panics or sentinel strings for control flow.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors.
	KindUnknown Kind = iota

	// KindPrecondition halts before any mutation: missing dependency,
	// failed identity check, region-state conflict. No rollback needed.
	KindPrecondition

	// KindValidation is bad user input, handled locally by re-prompting.
	KindValidation

	// KindExternalTool is a non-zero exit from terraform, helm, kubectl
	// or a cloud CLI. Triggers full rollback of mutated files.
	KindExternalTool

	// KindTimeout is a readiness poll that exceeded its deadline.
	KindTimeout

	// KindInterrupt is a user-initiated abort. Triggers full rollback.
	KindInterrupt
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindExternalTool:
		return "external tool"
	case KindTimeout:
		return "timeout"
	case KindInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error with an optional remediation hint.
type Error struct {
	Kind Kind

	// Op names the operation that failed, e.g. "terraform apply".
	Op string

	// Hint tells the user how to recover, printed alongside the failure.
	Hint string

	Err error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Precondition wraps err as a precondition failure.
func Precondition(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

// Validation wraps err as a user-input validation failure.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// ExternalTool wraps a failed tool invocation, keeping the captured output
// and a remediation hint for the user.
func ExternalTool(op, hint string, err error) error {
	return &Error{Kind: KindExternalTool, Op: op, Hint: hint, Err: err}
}

// Timeout wraps a readiness poll that exceeded its deadline.
func Timeout(op, hint string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Hint: hint, Err: err}
}

// Interrupt wraps a user-initiated abort.
func Interrupt(err error) error {
	if err == nil {
		err = errors.New("interrupted")
	}
	return &Error{Kind: KindInterrupt, Err: err}
}

// KindOf extracts the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HintOf returns the remediation hint attached to err, if any.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}

// IsInterrupt reports whether err is a user-initiated abort.
func IsInterrupt(err error) bool { return KindOf(err) == KindInterrupt }

// IsTimeout reports whether err is an exceeded readiness deadline.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsPrecondition reports whether err halted the run before any mutation.
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
