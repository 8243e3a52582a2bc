// Package godive provides the generic dive-computer retrieval engine:
// ring-buffer arithmetic, transport framing, and the logbook/profile
// traversal shared by the Oceanic, Suunto, and Uwatec device families.
package godive

import "github.com/divewire/godive/internal/interfaces"

// Status is the closed error taxonomy every public operation returns.
// Success is represented by a nil error, matching normal Go convention;
// every other kind is surfaced as a *Error carrying one of these values.
// The taxonomy itself lives in internal/interfaces so that the framing
// and engine packages can construct it without importing this package.
type Status = interfaces.Status

const (
	StatusUnsupported  = interfaces.StatusUnsupported
	StatusTypeMismatch = interfaces.StatusTypeMismatch
	StatusInvalid      = interfaces.StatusInvalid
	StatusMemory       = interfaces.StatusMemory
	StatusIO           = interfaces.StatusIO
	StatusTimeout      = interfaces.StatusTimeout
	StatusProtocol     = interfaces.StatusProtocol
	StatusCancelled    = interfaces.StatusCancelled
)

// Error is a structured error carrying the failing operation, the device
// family/backend it occurred in, and the underlying cause when there is one.
type Error = interfaces.Error

// NewError creates a structured error for the given operation and status.
var NewError = interfaces.NewError

// NewFamilyError creates a structured error scoped to a backend family.
var NewFamilyError = interfaces.NewFamilyError

// WrapErrno maps a raw syscall errno onto the closed taxonomy.
var WrapErrno = interfaces.WrapErrno

// WrapError wraps an arbitrary error with operation context, preserving an
// existing *Error's status or defaulting to StatusIO.
var WrapError = interfaces.WrapError

// IsStatus reports whether err is a *Error carrying the given status.
var IsStatus = interfaces.IsStatus
