package engine

import (
	"context"
	"sync"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/framing"
	"github.com/divewire/godive/internal/interfaces"
)

// OceanicVTProBackend composes internal/framing.VTProFramer (the wire
// protocol) with TraverseOceanic (the ring-buffer algorithm) into a
// interfaces.Backend for the Oceanic VTPro/Wisdom/Atmos family.
type OceanicVTProBackend struct {
	framer *framing.VTProFramer
	layout OceanicLayout
	family string

	mu          sync.Mutex
	fingerprint []byte
}

// openVTProFramer performs the DTR/RTS raise, MOD-mode handshake, and
// link calibration shared by every VTPro-family constructor
// (original_source/oceanic_vtpro.c's oceanic_vtpro_device_open).
func openVTProFramer(ctx context.Context, transport interfaces.Transport) (*framing.VTProFramer, error) {
	f := &framing.VTProFramer{Transport: transport}
	if err := transport.SetDTR(true); err != nil {
		return nil, err
	}
	if err := transport.SetRTS(true); err != nil {
		return nil, err
	}
	if err := f.Init(ctx); err != nil {
		return nil, err
	}
	if err := f.Calibrate(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// NewOceanicVTPro opens the MOD-mode handshake and calibrates the link,
// then returns a ready-to-use backend under the caller-supplied layout
// and family label. Use NewOceanicVTProAutoDetect to have the model
// identified from the device's own version block instead.
func NewOceanicVTPro(ctx context.Context, transport interfaces.Transport, layout OceanicLayout, family string) (*OceanicVTProBackend, error) {
	f, err := openVTProFramer(ctx, transport)
	if err != nil {
		return nil, err
	}
	return &OceanicVTProBackend{framer: f, layout: layout, family: family}, nil
}

// NewOceanicVTProAutoDetect performs the same handshake as
// NewOceanicVTPro, then reads the identification block and matches it
// against the VTPro/Wisdom family patterns (spec §9's VTPro-identity
// Open Question) to select between VTProLayout and WisdomLayout, the way
// oceanic_vtpro_device_open selects between the two compiled-in layout
// constants by comparing device->version against oceanic_wisdom_version.
func NewOceanicVTProAutoDetect(ctx context.Context, transport interfaces.Transport) (*OceanicVTProBackend, error) {
	f, err := openVTProFramer(ctx, transport)
	if err != nil {
		return nil, err
	}
	model, err := f.Identify(ctx)
	if err != nil {
		return nil, err
	}
	layout := VTProLayout()
	if model == "oceanic_wisdom" {
		layout = WisdomLayout()
	}
	return &OceanicVTProBackend{framer: f, layout: layout, family: model}, nil
}

func (b *OceanicVTProBackend) Family() string  { return b.family }
func (b *OceanicVTProBackend) MemorySize() int { return int(b.layout.MemSize) }

// SetFingerprint stores the fixed-width logbook-entry prefix identifying
// the newest dive already retrieved; Foreach stops there. fp must be
// either empty (clearing the fingerprint) or exactly EntrySize() bytes
// long (spec §4.D).
func (b *OceanicVTProBackend) SetFingerprint(fp []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(fp) == 0 {
		b.fingerprint = nil
		return nil
	}
	pageSize := b.layout.PageSize
	if pageSize == 0 {
		pageSize = constants.PageSize
	}
	if uint32(len(fp)) != pageSize/2 {
		return interfaces.NewFamilyError("oceanic.fingerprint", b.family, interfaces.StatusInvalid, "fingerprint length must equal the logbook entry size")
	}
	b.fingerprint = append([]byte(nil), fp...)
	return nil
}

// Version returns the two-packet identification block.
func (b *OceanicVTProBackend) Version(ctx context.Context, out []byte) error {
	data, err := b.framer.Version(ctx)
	if err != nil {
		return err
	}
	if len(out) < len(data) {
		return interfaces.NewFamilyError("oceanic.version", b.family, interfaces.StatusInvalid, "output buffer too small")
	}
	copy(out, data)
	return nil
}

// Dump reads the entire memory image page by page from address 0.
func (b *OceanicVTProBackend) Dump(ctx context.Context, sink interfaces.EventSink) ([]byte, error) {
	if sink == nil {
		sink = interfaces.NoopEventSink{}
	}
	data := make([]byte, b.layout.MemSize)
	pageSize := b.layout.PageSize
	if pageSize == 0 {
		pageSize = constants.PageSize
	}
	multipage := b.layout.Multipage
	if multipage == 0 {
		multipage = constants.Multipage
	}
	chunk := pageSize * multipage
	var nbytes uint32
	for nbytes < uint32(len(data)) {
		remain := uint32(len(data)) - nbytes
		n := chunk
		if n > remain {
			n = remain
		}
		if err := b.framer.ReadPages(ctx, nbytes, data[nbytes:nbytes+n]); err != nil {
			return nil, err
		}
		nbytes += n
		sink.Progress(uint64(nbytes), uint64(len(data)))
	}
	return data, nil
}

// Foreach runs the backward ring-buffer traversal seeded by the
// currently-configured fingerprint.
func (b *OceanicVTProBackend) Foreach(ctx context.Context, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	b.mu.Lock()
	fp := append([]byte(nil), b.fingerprint...)
	b.mu.Unlock()
	return TraverseOceanic(ctx, b.framer, b.layout, fp, sink, cb)
}

// Close switches the device back to surface mode and releases the
// transport.
func (b *OceanicVTProBackend) Close() error {
	_ = b.framer.Quit(context.Background())
	return b.framer.Transport.Close()
}
