package engine

import (
	"context"
	"sync"

	"github.com/divewire/godive/internal/framing"
	"github.com/divewire/godive/internal/interfaces"
)

// NemoBackend composes internal/framing.NemoFramer (the single-shot dump
// protocol) with ExtractNemo (the backward profile-ring scan) into a
// interfaces.Backend for the Mares Nemo family. Like Aladin, every
// Foreach re-downloads the image since there is no random-access read.
type NemoBackend struct {
	framer *framing.NemoFramer
	layout NemoLayout
	family string

	mu        sync.Mutex
	watermark int64
}

// NewNemo returns a backend over an already-open transport.
func NewNemo(transport interfaces.Transport, layout NemoLayout, family string) *NemoBackend {
	return &NemoBackend{framer: &framing.NemoFramer{Transport: transport}, layout: layout, family: family}
}

func (b *NemoBackend) Family() string  { return b.family }
func (b *NemoBackend) MemorySize() int { return int(b.layout.MemSize) }

// SetFingerprint accepts the 4-byte little-endian dive timestamp
// produced by ExtractNemo's callback.
func (b *NemoBackend) SetFingerprint(fp []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(fp) == 0 {
		b.watermark = 0
		return nil
	}
	if len(fp) != 4 {
		return interfaces.NewFamilyError("nemo.fingerprint", b.family, interfaces.StatusInvalid, "fingerprint must be 4 bytes")
	}
	b.watermark = int64(uint32(fp[0]) | uint32(fp[1])<<8 | uint32(fp[2])<<16 | uint32(fp[3])<<24)
	return nil
}

// Dump downloads the preamble-synced memory image.
func (b *NemoBackend) Dump(ctx context.Context, sink interfaces.EventSink) ([]byte, error) {
	return b.framer.Dump(ctx, int(b.layout.MemSize), sink)
}

// Foreach re-downloads the image and scans its profile ring backward.
func (b *NemoBackend) Foreach(ctx context.Context, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	data, err := b.Dump(ctx, sink)
	if err != nil {
		return err
	}
	b.mu.Lock()
	watermark := b.watermark
	b.mu.Unlock()
	return ExtractNemo(data, b.layout, watermark, cb)
}

func (b *NemoBackend) Close() error {
	return b.framer.Transport.Close()
}
