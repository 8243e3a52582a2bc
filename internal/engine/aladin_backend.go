package engine

import (
	"context"
	"sync"

	"github.com/divewire/godive/internal/framing"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

// AladinBackend composes internal/framing.AladinFramer (the single-shot
// dump protocol) with ExtractAladin (the in-memory logbook/profile
// directory walk) into a interfaces.Backend for the Uwatec Aladin and
// Memomouse family. Unlike Oceanic/Suunto, a fresh download happens on
// every Foreach (original_source/uwatec_aladin.c's
// uwatec_aladin_device_foreach: dump, then extract_dives against the
// freshly dumped image) since the wire protocol exposes no random access.
type AladinBackend struct {
	framer *framing.AladinFramer
	layout AladinLayout
	family string

	mu        sync.Mutex
	watermark int64
}

// NewAladin returns a backend over an already-open transport.
func NewAladin(transport interfaces.Transport, layout AladinLayout, family string) *AladinBackend {
	return &AladinBackend{framer: &framing.AladinFramer{Transport: transport}, layout: layout, family: family}
}

func (b *AladinBackend) Family() string  { return b.family }
func (b *AladinBackend) MemorySize() int { return int(b.layout.MemSize) }

// SetFingerprint accepts the 4-byte little-endian dive timestamp
// produced by ExtractAladin's callback; Foreach stops at a dive whose
// timestamp is not newer than this watermark.
func (b *AladinBackend) SetFingerprint(fp []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(fp) == 0 {
		b.watermark = 0
		return nil
	}
	if len(fp) != 4 {
		return interfaces.NewFamilyError("aladin.fingerprint", b.family, interfaces.StatusInvalid, "fingerprint must be 4 bytes")
	}
	b.watermark = int64(proto.U32LE(fp))
	return nil
}

// Dump downloads the preamble-synced memory image and returns it with
// the trailing checksum bytes stripped.
func (b *AladinBackend) Dump(ctx context.Context, sink interfaces.EventSink) ([]byte, error) {
	data, devtime, hostTicks, err := b.framer.Dump(ctx, int(b.layout.MemSize), int(b.layout.HeaderSize+b.layout.ClockOffset), sink)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.Clock(hostTicks, int64(devtime))
	}
	return data, nil
}

// Foreach re-downloads the image and walks its logbook directory
// backward, newest first.
func (b *AladinBackend) Foreach(ctx context.Context, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	data, err := b.Dump(ctx, sink)
	if err != nil {
		return err
	}
	b.mu.Lock()
	watermark := b.watermark
	b.mu.Unlock()
	return ExtractAladin(data, b.layout, watermark, cb)
}

func (b *AladinBackend) Close() error {
	return b.framer.Transport.Close()
}
