package engine

import (
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

// AladinLayout describes the fixed Uwatec Aladin/Memomouse memory image
// (spec §4.H), grounded on original_source/uwatec_aladin.c's
// uwatec_aladin_extract_dives. All offsets are relative to the payload
// start, i.e. after the preamble's HeaderSize bytes have been consumed.
type AladinLayout struct {
	HeaderSize       uint32
	ProfileBegin     uint32
	ProfileEnd       uint32
	LogbookSlots     uint32
	LogbookEntrySize uint32
	LogbookAddr      uint32 // RB_PROFILE_END in the original: logbook directory follows the profile ring
	NDivesOffset     uint32 // 2 bytes, big-endian
	EOLOffset        uint32 // 1 byte
	EOPLowOffset     uint32 // 1 byte
	EOPHighOffset    uint32 // 1 byte, low nibble contributes the high bits of eop
	SerialOffset     uint32 // 3 bytes, big-endian
	ModelOffset      uint32 // 1 byte
	ClockOffset      uint32 // 4 bytes, big-endian device clock ticks
	MemSize          uint32
}

// DefaultAladinLayout is the Uwatec Aladin Air/Pro/Sport layout used by
// uwatec_aladin.c: a 2048-byte payload with a 37-slot, 12-byte-entry
// logbook directory packed at the top of the image.
func DefaultAladinLayout() AladinLayout {
	return AladinLayout{
		HeaderSize:       4,
		ProfileBegin:     0x000,
		ProfileEnd:       0x600,
		LogbookSlots:     37,
		LogbookEntrySize: 12,
		LogbookAddr:      0x600,
		NDivesOffset:     0x7f2,
		EOLOffset:        0x7f4,
		EOPLowOffset:     0x7f6,
		EOPHighOffset:    0x7f7,
		SerialOffset:     0x7ed,
		ModelOffset:      0x7bc,
		ClockOffset:      0x7f8,
		MemSize:          2048,
	}
}

// ExtractAladin reconstructs each dive from an already-dumped Aladin
// image, newest first, aborting a dive older than (or equal to)
// watermark and streaming everything newer to cb (spec §4.H). This is
// the "in-process extraction function" referenced by property P2: the
// same function the single-shot Dump driver calls after downloading the
// image, and the one a property test can call directly against a
// synthetic image without any transport at all.
func ExtractAladin(data []byte, layout AladinLayout, watermark int64, cb interfaces.DiveCallback) error {
	h := layout.HeaderSize

	ndives := proto.U16BE(data[h+layout.NDivesOffset : h+layout.NDivesOffset+2])
	if ndives > layout.LogbookSlots {
		ndives = layout.LogbookSlots
	}

	// eol (the newest logbook slot) only seeds the scan order; the dive
	// count is the clamped ndives above, never derived from eol.
	eol := (uint32(data[h+layout.EOLOffset]) + layout.LogbookSlots - 1) % layout.LogbookSlots

	eop := proto.Increment(
		uint32(data[h+layout.EOPLowOffset])+((uint32(data[h+layout.EOPHighOffset]&0x0F)>>1)<<8),
		1, layout.ProfileBegin, layout.ProfileEnd,
	)

	scanning := true
	previous := eop
	current := eop

	for i := uint32(0); i < ndives; i++ {
		slot := (eol + layout.LogbookSlots - i) % layout.LogbookSlots
		offset := slot*layout.LogbookEntrySize + layout.LogbookAddr

		block := make([]byte, 18)
		copy(block[0:3], data[h+layout.SerialOffset:h+layout.SerialOffset+3])
		block[3] = data[h+layout.ModelOffset]
		copy(block[4:16], data[h+offset:h+offset+layout.LogbookEntrySize])
		proto.ReverseBytes(block[11:15]) // Aladin (big-endian) -> little-endian timestamp

		var profileLen uint32
		if scanning {
			for {
				if current == layout.ProfileBegin {
					current = layout.ProfileEnd
				}
				current--
				if data[h+current] == 0xFF {
					profileLen = proto.Distance(current, previous, layout.ProfileBegin, layout.ProfileEnd, false)
					previous = current
					break
				}
				if current == eop {
					break
				}
			}

			if profileLen >= 1 {
				profileLen--
				begin := proto.Increment(current, 1, layout.ProfileBegin, layout.ProfileEnd)
				profile := make([]byte, profileLen)
				if begin+profileLen > layout.ProfileEnd {
					a := layout.ProfileEnd - begin
					b := (begin + profileLen) - layout.ProfileEnd
					copy(profile[0:a], data[h+begin:h+layout.ProfileEnd])
					copy(profile[a:a+b], data[h:h+b])
				} else {
					copy(profile, data[h+begin:h+begin+profileLen])
				}
				block = append(block[:16], byte(profileLen), byte(profileLen>>8))
				block = append(block, profile...)
			} else {
				block = append(block[:16], 0, 0)
			}

			if current == eop {
				scanning = false
			}
		} else {
			block = append(block[:16], 0, 0)
		}

		timestamp := int64(proto.U32LE(block[11:15]))
		if timestamp <= watermark {
			return nil
		}
		if !cb(block, append([]byte(nil), block[11:15]...)) {
			return nil
		}
	}

	return nil
}
