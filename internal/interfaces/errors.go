package interfaces

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// Status is the closed error taxonomy every public operation returns.
// Success is represented by a nil error, matching normal Go convention;
// every other kind is surfaced as an *Error carrying one of these values.
// This lives in internal/interfaces (rather than the root package) so
// that internal/framing and internal/engine can construct and return
// taxonomy-correct errors without importing the root package, which
// would otherwise cycle back through them.
type Status string

const (
	StatusUnsupported  Status = "unsupported"   // backend does not implement the operation
	StatusTypeMismatch Status = "type mismatch" // handle was not produced by the called backend
	StatusInvalid      Status = "invalid"       // invalid argument or invariant violation
	StatusMemory       Status = "memory"        // allocation or buffer capacity failure
	StatusIO           Status = "io"            // transport-level failure
	StatusTimeout      Status = "timeout"       // expected response did not arrive in time
	StatusProtocol     Status = "protocol"      // framing, checksum, or sentinel mismatch
	StatusCancelled    Status = "cancelled"     // cancellation observed during a long operation
)

// Error is a structured error carrying the failing operation, the device
// family/backend it occurred in, and the underlying cause when there is one.
type Error struct {
	Op     string // operation that failed, e.g. "oceanic.read", "suunto.transfer"
	Family string // backend family, e.g. "oceanic_vtpro", "suunto_d9" (empty if n/a)
	Status Status
	Errno  syscall.Errno // underlying errno, if the failure came from a syscall
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Family != "" {
		parts = append(parts, fmt.Sprintf("family=%s", e.Family))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Status)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("godive: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("godive: %s", msg)
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports status-equality for errors.Is against another *Error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Status == te.Status
	}
	return false
}

// NewError creates a structured error for the given operation and status.
func NewError(op string, status Status, msg string) *Error {
	return &Error{Op: op, Status: status, Msg: msg}
}

// NewFamilyError creates a structured error scoped to a backend family.
func NewFamilyError(op, family string, status Status, msg string) *Error {
	return &Error{Op: op, Family: family, Status: status, Msg: msg}
}

// WrapErrno maps a raw syscall errno onto the closed taxonomy.
func WrapErrno(op string, errno syscall.Errno) *Error {
	status := StatusIO
	switch errno {
	case syscall.ETIMEDOUT, syscall.EAGAIN:
		status = StatusTimeout
	case syscall.EINVAL, syscall.E2BIG:
		status = StatusInvalid
	case syscall.ENOMEM:
		status = StatusMemory
	}
	return &Error{Op: op, Status: status, Errno: errno, Msg: errno.Error(), Inner: errno}
}

// WrapError wraps an arbitrary error with operation context, preserving an
// existing *Error's status or defaulting to StatusIO.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ge, ok := inner.(*Error); ok {
		return &Error{Op: op, Family: ge.Family, Status: ge.Status, Errno: ge.Errno, Msg: ge.Msg, Inner: ge.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return WrapErrno(op, errno)
	}
	return &Error{Op: op, Status: StatusIO, Msg: inner.Error(), Inner: inner}
}

// CheckContext returns a StatusCancelled *Error if ctx has been
// cancelled, nil otherwise. internal/framing and internal/engine check
// this at the head of every retry/traversal loop iteration; the root
// package exposes the equivalent CheckCancelled so both layers honor
// spec §5's cancellation invariant without a framing/engine->root import.
func CheckContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &Error{Op: "transport", Status: StatusCancelled, Msg: "operation cancelled"}
	default:
		return nil
	}
}

// IsStatus reports whether err is an *Error carrying the given status.
func IsStatus(err error, status Status) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Status == status
	}
	return false
}
