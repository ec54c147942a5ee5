// Package errs defines the typed error-kind taxonomy shared across the
// scheduler. Every failure mode a caller needs to distinguish (to decide
// whether to abort a session or just fail one job) is a Kind here rather
// than a string to match against.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind categorizes a failure so callers can switch on it instead of
// pattern-matching error text.
type Kind string

const (
	ConfigParseError         Kind = "config-parse-error"
	ConfigNoParser           Kind = "config-no-parser"
	SchemaInvalid            Kind = "schema-invalid"
	JobNotFound              Kind = "job-not-found"
	MissingEngine            Kind = "missing-engine"
	AmbiguousEngine          Kind = "ambiguous-engine"
	AmbiguousInput           Kind = "ambiguous-input"
	ExternalInputUnsupported Kind = "external-input-unsupported"
	SweepLengthMismatch      Kind = "sweep-length-mismatch"
	DuplicateRegistration    Kind = "duplicate-registration"
	UnknownKey               Kind = "unknown-key"
	UnresolvableTarget       Kind = "unresolvable-target"
	PluginBuildFailed        Kind = "plugin-build-failed"
	EngineInitFailed         Kind = "engine-init-failed"
	ResultContractViolation  Kind = "result-contract-violation"
	RuntimeIOError           Kind = "runtime-io-error"
	RuntimeEngineError       Kind = "runtime-engine-error"
)

// codes assigns a stable numeric code to each kind, in the style of the
// "[NNN]" prefixes the system this was adapted from attaches to its own
// exception hierarchy.
var codes = map[Kind]int{
	ConfigParseError:         100,
	ConfigNoParser:           101,
	SchemaInvalid:            110,
	JobNotFound:              120,
	MissingEngine:            130,
	AmbiguousEngine:          131,
	AmbiguousInput:           140,
	ExternalInputUnsupported: 141,
	SweepLengthMismatch:      150,
	DuplicateRegistration:    160,
	UnknownKey:               161,
	UnresolvableTarget:       162,
	PluginBuildFailed:        170,
	EngineInitFailed:         171,
	ResultContractViolation:  172,
	RuntimeIOError:           180,
	RuntimeEngineError:       181,
}

// Error is the concrete error type carried through the scheduler. It wraps
// an underlying cause (via github.com/pkg/errors, so Cause()/StackTrace()
// keep working) and tags it with a stable Kind and numeric Code.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%03d] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%03d] %s", e.Code, e.Message)
}

// Cause implements the github.com/pkg/errors Causer interface so
// errors.Cause(err) unwraps to the underlying error.
func (e *Error) Cause() error { return e.cause }

// Unwrap supports errors.Is/errors.As from the standard library too.
func (e *Error) Unwrap() error { return e.cause }

// New creates an *Error of the given kind with a formatted message and no
// wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: codes[kind], Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind, wrapping cause. If cause is
// nil, Wrap returns nil, matching the errors.Wrap convention so callers can
// write `return errs.Wrap(kind, err, "doing X")` unconditionally.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Code: codes[kind], Message: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err (or any error it wraps) is an *Error of the given
// kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			if e.Kind == kind {
				return true
			}
			err = e.cause
			continue
		}
		cause := errors.Cause(err)
		if cause == err {
			return false
		}
		err = cause
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if as, ok := err.(*Error); ok {
			return as.Kind, true
		}
		cause := errors.Cause(err)
		if cause == err {
			return "", false
		}
		err = cause
	}
	return "", false
}

// ExitCode returns the process exit code implied by err: 0 if err is nil,
// 1 otherwise. Matches spec.md's exit-code contract (0 all green, 1 any
// job failure or configuration error).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
