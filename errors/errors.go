package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseGate     Phase = "gate"     // lifecycle enter/close
	PhaseDispatch Phase = "dispatch" // event fan-out
	PhaseAwait    Phase = "await"    // waiting on an async result
	PhaseEngine   Phase = "engine"   // calls into the native engine
	PhaseLoad     Phase = "load"     // engine module loading
	PhaseConfig   Phase = "config"   // configuration parsing
	PhaseRuntime  Phase = "runtime"  // everything else
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyClosed      Kind = "already_closed"
	KindTimeout            Kind = "timeout"
	KindCanceled           Kind = "canceled"
	KindCanceledByDisposal Kind = "canceled_by_disposal"
	KindHandlerFailure     Kind = "handler_failure"
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindEngineFailure      Kind = "engine_failure"
	KindNotInitialized     Kind = "not_initialized"
	KindUnsupported        Kind = "unsupported"
)

// Sentinels for errors.Is. They carry no phase and match any error of their kind.
var (
	ErrAlreadyClosed      = &Error{Kind: KindAlreadyClosed}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrCanceled           = &Error{Kind: KindCanceled}
	ErrCanceledByDisposal = &Error{Kind: KindCanceledByDisposal}
	ErrHandlerFailure     = &Error{Kind: KindHandlerFailure}
	ErrEngineFailure      = &Error{Kind: KindEngineFailure}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Object string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Object != "" {
		b.WriteString(" (")
		b.WriteString(e.Object)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Is forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library so callers need a single import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Object sets the name of the object the error relates to
func (b *Builder) Object(name string) *Builder {
	b.err.Object = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AlreadyClosed reports use of an object after its disposal started
func AlreadyClosed(phase Phase, object string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAlreadyClosed,
		Object: object,
		Detail: "object is already closed",
	}
}

// Timeout reports a wait that exceeded its deadline
func Timeout(phase Phase, after time.Duration, cause error) *Error {
	detail := "deadline exceeded"
	if after > 0 {
		detail = fmt.Sprintf("no result after %s", after)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindTimeout,
		Detail: detail,
		Value:  after,
		Cause:  cause,
	}
}

// Canceled reports a wait abandoned by its caller
func Canceled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		Detail: "wait canceled",
		Cause:  cause,
	}
}

// CanceledByDisposal reports a pending operation resolved because its owner closed first
func CanceledByDisposal(object string) *Error {
	return &Error{
		Phase:  PhaseAwait,
		Kind:   KindCanceledByDisposal,
		Object: object,
		Detail: "owner closed before the operation completed",
	}
}

// HandlerFailure wraps an error or panic raised by an event handler
func HandlerFailure(stream string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHandlerFailure,
		Object: stream,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// NotInitialized creates an error for use of an uninitialized component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("%s is not supported", what),
	}
}

// Engine wraps a failure reported by the native engine
func Engine(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindEngineFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module load error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindEngineFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
