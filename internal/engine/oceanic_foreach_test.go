package engine

import (
	"context"
	"testing"

	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/mock"
	"github.com/stretchr/testify/require"
)

// buildOceanicForeachImage constructs a synthetic testOceanicLayout()
// image with a full, page-unaligned logbook ring: the first/last
// pointers (slot7 oldest, slot6 newest) place the newest/oldest split 8
// bytes short of a page boundary, so win.full && win.unaligned both hold
// and TraverseOceanic must take the single-chunk rotation fix-up path.
// Real dives live at slot6 (newest) and slot5; slot4 is an all-0xFF
// terminator that stops the backward scan there, the way a partially
// filled full ring does on real hardware.
func buildOceanicForeachImage() []byte {
	layout := testOceanicLayout()
	data := make([]byte, layout.MemSize)
	lo := layout.RBLogbookBegin

	// first = slot7 (oldest), last = slot6 (newest).
	data[layout.PointersAddr+layout.PointersFirstOffset] = 0x38
	data[layout.PointersAddr+layout.PointersFirstOffset+1] = 0x00
	data[layout.PointersAddr+layout.PointersLastOffset] = 0x30
	data[layout.PointersAddr+layout.PointersLastOffset+1] = 0x00

	slot := func(i uint32) uint32 { return lo + i*8 }

	for b := slot(4); b < slot(4)+8; b++ {
		data[b] = 0xFF
	}

	// slot5 (second-newest): profileFirst raw=0 (-> 0x80), profileLast
	// raw=16 (-> 0x90), a two-page profile.
	s5 := slot(5)
	data[s5+0] = 0x05
	data[s5+7] = 0x01

	// slot6 (newest): profileFirst raw=32 (-> 0xA0), profileLast raw=32
	// (-> 0xA0, a single page), immediately following slot5's profile.
	s6 := slot(6)
	data[s6+0] = 0x06
	data[s6+5] = 32
	data[s6+7] = 2

	for i := 0x80; i < 0xA0; i++ {
		data[i] = 0xC5
	}
	for i := 0xA0; i < 0xB0; i++ {
		data[i] = 0xC6
	}

	return data
}

func oceanicEntryFingerprint(data []byte, layout OceanicLayout, slotIndex uint32) []byte {
	start := layout.RBLogbookBegin + slotIndex*8
	return append([]byte(nil), data[start:start+8]...)
}

// TestOceanicVTProForeachFullUnalignedRing exercises one of spec §8's
// named Oceanic scenarios (full ring, page-unaligned newest/oldest
// split) end to end through OceanicVTProBackend.Foreach, and property P4
// (newest dive streamed first).
func TestOceanicVTProForeachFullUnalignedRing(t *testing.T) {
	layout := testOceanicLayout()
	data := buildOceanicForeachImage()
	tr := mock.NewOceanicVTPro(data, layout, make([]byte, 16))
	backend, err := NewOceanicVTPro(context.Background(), tr, layout, "oceanic_test")
	require.NoError(t, err)
	defer backend.Close()

	var blocks [][]byte
	err = backend.Foreach(context.Background(), interfaces.NoopEventSink{}, func(block, fp []byte) bool {
		blocks = append(blocks, append([]byte(nil), block...))
		return true
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2, "the all-0xFF slot4 entry must stop the backward scan after the two real dives")

	require.Equal(t, byte(0x06), blocks[0][0], "newest dive (slot6) must be streamed first")
	require.Len(t, blocks[0], 8+16)
	require.Equal(t, byte(0xC6), blocks[0][8], "slot6's single-page profile")

	require.Equal(t, byte(0x05), blocks[1][0], "second dive (slot5)")
	require.Len(t, blocks[1], 8+32)
	require.Equal(t, byte(0xC5), blocks[1][8], "slot5's two-page profile")
}

// TestOceanicVTProForeachFingerprintCutsPartial seeds the second-newest
// dive's fingerprint and expects traversal to stop after the newest one.
func TestOceanicVTProForeachFingerprintCutsPartial(t *testing.T) {
	layout := testOceanicLayout()
	data := buildOceanicForeachImage()
	tr := mock.NewOceanicVTPro(data, layout, make([]byte, 16))
	backend, err := NewOceanicVTPro(context.Background(), tr, layout, "oceanic_test")
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.SetFingerprint(oceanicEntryFingerprint(data, layout, 5)))

	var blocks [][]byte
	err = backend.Foreach(context.Background(), interfaces.NoopEventSink{}, func(block, fp []byte) bool {
		blocks = append(blocks, append([]byte(nil), block...))
		return true
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1, "seeding the second-newest dive's fingerprint must cut traversal to just the newest")
	require.Equal(t, byte(0x06), blocks[0][0])
}

// TestOceanicVTProForeachFingerprintCutsFully exercises property P3: a
// second run seeded with the newest dive's own fingerprint must stream
// zero dives.
func TestOceanicVTProForeachFingerprintCutsFully(t *testing.T) {
	layout := testOceanicLayout()
	data := buildOceanicForeachImage()
	tr := mock.NewOceanicVTPro(data, layout, make([]byte, 16))
	backend, err := NewOceanicVTPro(context.Background(), tr, layout, "oceanic_test")
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.SetFingerprint(oceanicEntryFingerprint(data, layout, 6)))

	var seen int
	err = backend.Foreach(context.Background(), interfaces.NoopEventSink{}, func(block, fp []byte) bool {
		seen++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 0, seen)
}
