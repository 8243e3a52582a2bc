package engine

import (
	"context"
	"sync"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/framing"
	"github.com/divewire/godive/internal/interfaces"
)

// SuuntoBackend composes internal/framing.SuuntoFramer with
// TraverseSuunto into a interfaces.Backend for the Vyper2/Cobra/D9
// family.
type SuuntoBackend struct {
	framer *framing.SuuntoFramer
	layout SuuntoLayout
	family string

	mu          sync.Mutex
	fingerprint []byte
}

// NewSuunto returns a backend over an already-open transport; the
// Suunto protocol has no open handshake beyond the packet framing
// itself (original_source/suunto_common2.c never calls anything from
// device_open besides storing the layout).
func NewSuunto(transport interfaces.Transport, layout SuuntoLayout, family string) *SuuntoBackend {
	return &SuuntoBackend{framer: &framing.SuuntoFramer{Transport: transport}, layout: layout, family: family}
}

func (b *SuuntoBackend) Family() string  { return b.family }
func (b *SuuntoBackend) MemorySize() int { return int(b.layout.MemSize) }

// SetFingerprint stores the fixed-width dive-header prefix identifying
// the newest dive already retrieved. fp must be either empty (clearing
// the fingerprint) or exactly suuntoFingerprintSize bytes long (spec
// §4.D), matching the width TraverseSuunto compares against.
func (b *SuuntoBackend) SetFingerprint(fp []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(fp) == 0 {
		b.fingerprint = nil
		return nil
	}
	if len(fp) != suuntoFingerprintSize {
		return interfaces.NewFamilyError("suunto.fingerprint", b.family, interfaces.StatusInvalid, "fingerprint length must equal the dive-header fingerprint size")
	}
	b.fingerprint = append([]byte(nil), fp...)
	return nil
}

// Version returns the 4-byte firmware version block.
func (b *SuuntoBackend) Version(ctx context.Context, out []byte) error {
	data, err := b.framer.Version(ctx)
	if err != nil {
		return err
	}
	if len(out) < len(data) {
		return interfaces.NewFamilyError("suunto.version", b.family, interfaces.StatusInvalid, "output buffer too small")
	}
	copy(out, data)
	return nil
}

// ReadAt exposes the flat address space directly.
func (b *SuuntoBackend) ReadAt(ctx context.Context, addr uint32, out []byte) error {
	return b.framer.ReadAt(ctx, addr, out)
}

// WriteAt exposes the flat address space directly.
func (b *SuuntoBackend) WriteAt(ctx context.Context, addr uint32, in []byte) error {
	return b.framer.WriteAt(ctx, addr, in)
}

// Dump reads the entire memory image from address 0.
func (b *SuuntoBackend) Dump(ctx context.Context, sink interfaces.EventSink) ([]byte, error) {
	if sink == nil {
		sink = interfaces.NoopEventSink{}
	}
	data := make([]byte, b.layout.MemSize)
	packetSize := b.layout.PacketSize
	if packetSize == 0 {
		packetSize = constants.SuuntoPacketSize
	}
	var nbytes uint32
	for nbytes < uint32(len(data)) {
		remain := uint32(len(data)) - nbytes
		n := packetSize
		if n > remain {
			n = remain
		}
		if err := b.framer.ReadAt(ctx, nbytes, data[nbytes:nbytes+n]); err != nil {
			return nil, err
		}
		nbytes += n
		sink.Progress(uint64(nbytes), uint64(len(data)))
	}
	return data, nil
}

// Foreach walks the dive linked list backward from the header's last
// pointer, seeded by the currently-configured fingerprint.
func (b *SuuntoBackend) Foreach(ctx context.Context, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	b.mu.Lock()
	fp := append([]byte(nil), b.fingerprint...)
	b.mu.Unlock()
	return TraverseSuunto(ctx, b.framer, b.layout, fp, sink, cb)
}

func (b *SuuntoBackend) Close() error {
	return b.framer.Transport.Close()
}
