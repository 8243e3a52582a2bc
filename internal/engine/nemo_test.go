package engine

import (
	"context"
	"testing"

	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/mock"
	"github.com/stretchr/testify/require"
)

// buildNemoImage lays out two non-overlapping profiles in a 100-byte
// ring: [51,100) for the newest dive (timestamp 2000) and [11,50) for
// the older one (timestamp 1000), each preceded by a 0xFF marker.
func buildNemoImage() ([]byte, NemoLayout) {
	layout := NemoLayout{ProfileBegin: 0, ProfileEnd: 100, SerialOffset: 0, MaxDives: 10, MemSize: 100}
	data := make([]byte, 100)

	data[50] = 0xFF
	data[51], data[52], data[53], data[54] = 0xD0, 0x07, 0x00, 0x00 // 2000 LE
	for i := 55; i < 100; i++ {
		data[i] = 0xAB
	}

	data[10] = 0xFF
	data[11], data[12], data[13], data[14] = 0xE8, 0x03, 0x00, 0x00 // 1000 LE
	for i := 15; i < 50; i++ {
		data[i] = 0xCD
	}

	return data, layout
}

func TestExtractNemoOrdersNewestFirstWithoutOverlap(t *testing.T) {
	data, layout := buildNemoImage()

	var timestamps []int64
	var lens []int
	err := ExtractNemo(data, layout, 0, func(profile, fingerprint []byte) bool {
		timestamps = append(timestamps, int64(uint32(fingerprint[0])|uint32(fingerprint[1])<<8|uint32(fingerprint[2])<<16|uint32(fingerprint[3])<<24))
		lens = append(lens, len(profile))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []int64{2000, 1000}, timestamps)
	require.Equal(t, []int{49, 39}, lens, "each dive's profile must stop at its own marker, not bleed into the older dive's region")
}

func TestExtractNemoStopsAtWatermark(t *testing.T) {
	data, layout := buildNemoImage()

	var seen int
	err := ExtractNemo(data, layout, 1500, func(profile, fingerprint []byte) bool {
		seen++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
}

func TestNemoDumpRoundTrips(t *testing.T) {
	layout := NemoLayout{ProfileBegin: 0, ProfileEnd: 256, SerialOffset: 0, MaxDives: 10, MemSize: 256}
	image := make([]byte, layout.MemSize)
	for i := range image {
		image[i] = byte(i * 7)
	}
	tr := mock.NewNemo(image)
	backend := NewNemo(tr, layout, "nemo_test")
	defer backend.Close()

	data, err := backend.Dump(context.Background(), interfaces.NoopEventSink{})
	require.NoError(t, err)
	require.Equal(t, image, data)
}
