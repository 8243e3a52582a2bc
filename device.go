package godive

import (
	"context"
	"time"

	"github.com/divewire/godive/internal/interfaces"
)

// DiveCallback receives one reconstructed dive during Foreach. Returning
// false halts traversal early; Foreach then returns a nil error.
type DiveCallback = interfaces.DiveCallback

// Backend is the polymorphic surface every device family (Oceanic, Suunto,
// Uwatec Aladin/Memomouse, Mares Nemo) implements. Device composes one
// Backend with the ambient event bus, metrics, and cancellation that are
// common to all of them. The canonical definition lives in
// internal/interfaces so internal/engine's concrete backends can satisfy
// it without importing this package back.
//
// Rather than the vtable-pointer identity guard the underlying protocol
// implementation uses to catch a handle from the wrong backend, this
// interface is narrow by design: a family that does not support an
// operation simply is not asked to implement the optional counterpart
// below (Versioner, ReaderWriter), and Device.Version/Read/Write default
// to StatusUnsupported when the backing Backend doesn't satisfy them.
type Backend = interfaces.Backend

// Versioner is implemented by backends that expose a version/identity block.
type Versioner = interfaces.Versioner

// ReaderWriter is implemented by backends that expose flat address-space
// reads and writes in addition to Dump/Foreach.
type ReaderWriter = interfaces.ReaderWriter

// Device is the caller-facing handle returned by each family's Open
// function. It owns the backend, the event listener, metrics, and the
// cancellation flag; blocking operations check ctx before every loop head.
type Device struct {
	backend Backend
	bus     eventBus
	metrics *Metrics

	cancel context.CancelFunc
	ctx    context.Context
}

// OpenOptions carries the ambient configuration shared by every family's
// Open function: an optional listener, an optional metrics observer, and
// the parent context blocking operations are cancelled against. NewDevice
// uses Context and Listener; Observer is not consulted, and a Device
// records its metrics only into its own Metrics.
type OpenOptions struct {
	Context  context.Context
	Listener Listener
	Observer Observer
}

// NewDevice wraps a concrete backend (produced by a family's Open) into a
// Device. Family Open functions call this after probing the transport.
func NewDevice(backend Backend, opts *OpenOptions) *Device {
	if opts == nil {
		opts = &OpenOptions{}
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}

	d := &Device{backend: backend, metrics: NewMetrics()}
	d.ctx, d.cancel = context.WithCancel(parent)
	if opts.Listener != nil {
		d.bus.setListener(opts.Listener)
	}
	return d
}

// Family returns the backend family identifier, e.g. "oceanic_vtpro".
func (d *Device) Family() string {
	return d.backend.Family()
}

// SetFingerprint seeds the backend with the most recently seen dive's
// fingerprint so the next Foreach returns only newer dives. A zero-length
// fp clears it; any other length that doesn't match the backend's
// fingerprint size is rejected with StatusInvalid by the backend
// implementation (every family: Oceanic, Suunto, Aladin, Nemo).
func (d *Device) SetFingerprint(fp []byte) error {
	return d.backend.SetFingerprint(fp)
}

// Version fills out with the backend's version block. Backends that don't
// expose one return StatusUnsupported.
func (d *Device) Version(out []byte) error {
	v, ok := d.backend.(Versioner)
	if !ok {
		return NewFamilyError("device.version", d.backend.Family(), StatusUnsupported, "backend has no version block")
	}
	start := time.Now()
	err := v.Version(d.ctx, out)
	_ = start
	return err
}

// ReadAt reads len(out) bytes from addr in the backend's flat address
// space. Backends that don't expose random access return StatusUnsupported.
func (d *Device) ReadAt(addr uint32, out []byte) error {
	rw, ok := d.backend.(ReaderWriter)
	if !ok {
		return NewFamilyError("device.read", d.backend.Family(), StatusUnsupported, "backend has no random-access read")
	}
	start := time.Now()
	err := rw.ReadAt(d.ctx, addr, out)
	d.metrics.RecordRead(uint64(len(out)), uint64(time.Since(start)), err == nil)
	return err
}

// WriteAt writes in to addr in the backend's flat address space.
func (d *Device) WriteAt(addr uint32, in []byte) error {
	rw, ok := d.backend.(ReaderWriter)
	if !ok {
		return NewFamilyError("device.write", d.backend.Family(), StatusUnsupported, "backend has no random-access write")
	}
	start := time.Now()
	err := rw.WriteAt(d.ctx, addr, in)
	d.metrics.RecordWrite(uint64(len(in)), uint64(time.Since(start)), err == nil)
	return err
}

// Dump fills buf with the entire memory image, emitting progress events
// as it goes.
func (d *Device) Dump(buf *Buffer) error {
	start := time.Now()
	data, err := d.backend.Dump(d.ctx, sinkFor(d.bus.listener))
	if err == nil {
		buf.Clear()
		buf.Append(data)
	}
	d.metrics.RecordDump(uint64(len(data)), uint64(time.Since(start)), err == nil)
	return err
}

// Foreach streams every dive newer than the current fingerprint to cb,
// newest first. Returning false from cb halts traversal without error.
func (d *Device) Foreach(cb DiveCallback) error {
	wrapped := func(data, fingerprint []byte) bool {
		d.metrics.RecordDive()
		return cb(data, fingerprint)
	}
	return d.backend.Foreach(d.ctx, sinkFor(d.bus.listener), wrapped)
}

// Cancel requests cancellation of any in-flight blocking operation; it
// does not block. Subsequent operations return StatusCancelled.
func (d *Device) Cancel() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Close releases the backend's transport and any internal buffers. Safe
// to call after a prior operation returned an error.
func (d *Device) Close() error {
	d.metrics.Stop()
	if d.cancel != nil {
		d.cancel()
	}
	return d.backend.Close()
}

// Metrics returns the device's transfer-level metrics.
func (d *Device) Metrics() *Metrics {
	return d.metrics
}

// checkCancelled returns StatusCancelled if ctx has been cancelled, nil
// otherwise. Framers and engines call this at every loop head.
func checkCancelled(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return NewError(op, StatusCancelled, "operation cancelled")
	default:
		return nil
	}
}

// CheckCancelled is the exported form of checkCancelled, used by
// internal/framing and internal/engine to honor §5's cancellation
// invariant without importing the unexported helper.
func CheckCancelled(ctx context.Context, op string) error {
	return checkCancelled(ctx, op)
}
