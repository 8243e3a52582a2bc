// Package interfaces provides internal interface definitions for godive.
// These are separate from the public package to avoid circular imports
// between the root package and the framing/engine/transport internals.
package interfaces

import "context"

// Transport is the primitive surface every concrete transport (serial,
// IrDA, HID) exposes to internal/framing. A framer never type-switches on
// the concrete transport; all three backends satisfy this one interface.
type Transport interface {
	// Read blocks for at most the configured timeout and returns the bytes
	// read. A timeout that elapses with zero bytes read is not an error;
	// callers distinguish it from EOF via err == nil, n == 0.
	Read(ctx context.Context, p []byte) (n int, err error)
	Write(ctx context.Context, p []byte) (n int, err error)

	// SetTimeout sets the per-Read deadline; timeout < 0 means infinite.
	SetTimeout(timeout int) error

	// SetDTR and SetRTS drive the serial handshake lines used by the
	// Oceanic/Aladin/Nemo open sequences; transports that have no such
	// lines (IrDA, HID) implement them as no-ops.
	SetDTR(value bool) error
	SetRTS(value bool) error

	// Flush discards queued, unread bytes.
	Flush() error

	Close() error
}

// Discoverer is implemented by transports that support peer discovery
// before a connection is established (IrDA's socket_discover).
type Discoverer interface {
	Discover(ctx context.Context) ([]DiscoveredPeer, error)
}

// DiscoveredPeer describes one device found during discovery.
type DiscoveredPeer struct {
	Name    string
	Address uint32
}

// Logger is the minimal leveled-logging surface internal packages depend
// on, satisfied by internal/logging.Logger without an import cycle.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventSink receives engine events (progress/wait/devinfo/clock) as they
// are emitted, synchronously, from inside the operation generating them.
// internal/engine and internal/framing depend only on this narrow,
// typed-argument interface; the root package's Device adapts its public
// Listener/event-payload types onto it, which is what lets engine code
// emit events without importing the root package (and thus cycling back).
type EventSink interface {
	Progress(current, maximum uint64)
	Waiting()
	DevInfo(model, firmware, serial string)
	Clock(hostTicks, deviceTicks int64)
}

// NoopEventSink discards every event; used when a caller configures no
// listener.
type NoopEventSink struct{}

func (NoopEventSink) Progress(current, maximum uint64)    {}
func (NoopEventSink) Waiting()                            {}
func (NoopEventSink) DevInfo(model, firmware, serial string) {}
func (NoopEventSink) Clock(hostTicks, deviceTicks int64)   {}

// DiveCallback receives one reconstructed dive during Foreach. Returning
// false halts traversal early. Defined here (rather than the root
// package) so internal/engine can implement Backend.Foreach without
// importing the root package.
type DiveCallback func(data []byte, fingerprint []byte) bool

// Backend is the polymorphic surface every device family (Oceanic, Suunto,
// Uwatec Aladin/Memomouse, Mares Nemo) implements. The root package's
// Device composes one Backend with the ambient event bus, metrics, and
// cancellation that are common to all of them; Backend itself only
// depends on internal/interfaces so internal/engine's concrete backends
// never import the root package.
type Backend interface {
	Family() string
	MemorySize() int
	SetFingerprint(fp []byte) error
	Dump(ctx context.Context, sink EventSink) ([]byte, error)
	Foreach(ctx context.Context, sink EventSink, cb DiveCallback) error
	Close() error
}

// Versioner is implemented by backends that expose a version/identity block.
type Versioner interface {
	Version(ctx context.Context, out []byte) error
}

// ReaderWriter is implemented by backends that expose flat address-space
// reads and writes in addition to Dump/Foreach.
type ReaderWriter interface {
	ReadAt(ctx context.Context, addr uint32, out []byte) error
	WriteAt(ctx context.Context, addr uint32, in []byte) error
}
