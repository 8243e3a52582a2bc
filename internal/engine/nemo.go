package engine

import "github.com/divewire/godive/internal/interfaces"

// NemoLayout describes the Mares Nemo single-shot memory image. Mares
// shares the Aladin/Memomouse family's single-shot-dump shape (spec
// §4.H, "common_device_t"-embedding in the original), but
// mares_common.c's logbook/profile directory format wasn't part of the
// retrieved original_source set, so extraction here is a direct backward
// 0xFF-marker scan of the profile ring (the same primitive Aladin uses
// once its logbook indirection is stripped away) rather than a literal
// port of mares_common_extract_dives.
type NemoLayout struct {
	ProfileBegin uint32
	ProfileEnd   uint32
	SerialOffset uint32
	MaxDives     uint32
	MemSize      uint32
}

// DefaultNemoLayout matches mares_nemo.c's mares_nemo_layout constants.
func DefaultNemoLayout() NemoLayout {
	return NemoLayout{
		ProfileBegin: 0x0070,
		ProfileEnd:   0x3400,
		SerialOffset: 0x0008,
		MaxDives:     64,
		MemSize:      0x4000,
	}
}

// ExtractNemo walks the Nemo profile ring backward from its end,
// delimiting each dive by the next 0xFF start marker, aborting a dive
// older than (or equal to) watermark.
func ExtractNemo(data []byte, layout NemoLayout, watermark int64, cb interfaces.DiveCallback) error {
	lo, hi := layout.ProfileBegin, layout.ProfileEnd
	previous := hi
	current := hi

	for i := uint32(0); i < layout.MaxDives && current != lo; i++ {
		found := false
		for current != lo {
			current--
			if data[current] == 0xFF {
				found = true
				break
			}
		}
		if !found {
			break
		}

		profileLen := previous - (current + 1)
		profile := append([]byte(nil), data[current+1:current+1+profileLen]...)
		previous = current

		if len(profile) < 4 {
			continue
		}
		timestamp := int64(uint32(profile[0]) | uint32(profile[1])<<8 | uint32(profile[2])<<16 | uint32(profile[3])<<24)
		if timestamp <= watermark {
			return nil
		}
		if !cb(profile, profile[:4]) {
			return nil
		}
	}

	return nil
}
