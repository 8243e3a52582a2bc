package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildAladinImage constructs a synthetic DefaultAladinLayout() image
// with exactly two logbook entries (newest first: timestamps 2000 and
// 1000), their profiles delimited by 0xFF markers, for direct exercise
// of ExtractAladin without any transport involved.
func buildAladinImage(t *testing.T) []byte {
	t.Helper()
	layout := DefaultAladinLayout()
	data := make([]byte, layout.MemSize)
	h := layout.HeaderSize

	// eol raw byte: eol = (raw + 36) % 37; raw=2 -> eol=1.
	data[h+layout.EOLOffset] = 2
	// ndives = 2.
	data[h+layout.NDivesOffset] = 0x00
	data[h+layout.NDivesOffset+1] = 0x02
	// eop: Increment(x,1,0,1536)=200 requires x=199.
	data[h+layout.EOPLowOffset] = 199
	data[h+layout.EOPHighOffset] = 0x00

	// Device serial/model, shared by every logbook entry.
	data[h+layout.SerialOffset] = 0x12
	data[h+layout.SerialOffset+1] = 0x34
	data[h+layout.SerialOffset+2] = 0x56
	data[h+layout.ModelOffset] = 0x01

	// slot 1 (eol): newest dive, timestamp 2000 = 0x000007D0.
	slot1 := uint32(1)*layout.LogbookEntrySize + layout.LogbookAddr
	data[h+slot1+7] = 0x00
	data[h+slot1+8] = 0x00
	data[h+slot1+9] = 0x07
	data[h+slot1+10] = 0xD0

	// slot 0: older dive, timestamp 1000 = 0x000003E8.
	slot0 := uint32(0)*layout.LogbookEntrySize + layout.LogbookAddr
	data[h+slot0+7] = 0x00
	data[h+slot0+8] = 0x00
	data[h+slot0+9] = 0x03
	data[h+slot0+10] = 0xE8

	// Profile ring: [101,150) belongs to the older dive, [151,200) to
	// the newest, each delimited by a leading 0xFF marker byte.
	for i := 151; i < 200; i++ {
		data[h+uint32(i)] = 0xAB
	}
	data[h+150] = 0xFF
	for i := 101; i < 150; i++ {
		data[h+uint32(i)] = 0xCD
	}
	data[h+100] = 0xFF

	return data
}

func TestExtractAladinOrdersNewestFirst(t *testing.T) {
	data := buildAladinImage(t)
	layout := DefaultAladinLayout()

	var timestamps []int64
	var profiles [][]byte
	err := ExtractAladin(data, layout, 0, func(block, fingerprint []byte) bool {
		timestamps = append(timestamps, int64(uint32(fingerprint[0])|uint32(fingerprint[1])<<8|uint32(fingerprint[2])<<16|uint32(fingerprint[3])<<24))
		profiles = append(profiles, append([]byte(nil), block[18:]...))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []int64{2000, 1000}, timestamps)
	require.Len(t, profiles, 2)
	require.Equal(t, 49, len(profiles[0]))
	require.Equal(t, byte(0xAB), profiles[0][0])
	require.Equal(t, 49, len(profiles[1]))
	require.Equal(t, byte(0xCD), profiles[1][0])
}

func TestExtractAladinStopsAtWatermark(t *testing.T) {
	data := buildAladinImage(t)
	layout := DefaultAladinLayout()

	var seen int
	err := ExtractAladin(data, layout, 1500, func(block, fingerprint []byte) bool {
		seen++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen, "watermark between the two timestamps should stop after the newest dive")
}

func TestExtractAladinCallbackCanStopEarly(t *testing.T) {
	data := buildAladinImage(t)
	layout := DefaultAladinLayout()

	var seen int
	err := ExtractAladin(data, layout, 0, func(block, fingerprint []byte) bool {
		seen++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
}
