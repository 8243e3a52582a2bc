// Package engine implements the ring-buffer traversal algorithms shared
// by the Oceanic, Suunto, and Uwatec Aladin/Memomouse/Nemo families: the
// logbook+profile backward walk, fingerprint early-exit, page alignment,
// and the single-shot dump-then-extract shape of the simpler families.
package engine

import "context"

// PointerModeGlobal selects how the two ring-header pointers are
// interpreted (spec §3, pt_mode_global).
type PointerModeGlobal int

const (
	// PointerFirstLast: the two pointers name the first and last entry.
	PointerFirstLast PointerModeGlobal = iota
	// PointerBeginEnd: the two pointers are a begin/end pair.
	PointerBeginEnd
)

// PointerModeLogbook selects how a logbook entry packs its profile
// pointers (spec §3, pt_mode_logbook).
type PointerModeLogbook int

const (
	// PointerPacked12: two 12/13-bit values sharing a byte.
	PointerPacked12 PointerModeLogbook = iota
	// PointerPadded16: two 16-bit values, 4 padding bits each, scaled by
	// PAGESIZE to a byte offset.
	PointerPadded16
)

// OceanicLayout is the immutable per-model memory layout descriptor (spec
// §3 "Memory layout descriptor") for the Oceanic ring-buffer family.
type OceanicLayout struct {
	MemSize uint32

	RBLogbookBegin, RBLogbookEnd uint32
	RBProfileBegin, RBProfileEnd uint32

	PtModeGlobal  PointerModeGlobal
	PtModeLogbook PointerModeLogbook

	DevInfoAddr  uint32
	PointersAddr uint32

	// Offsets, within the pointers page, of the first/last 16-bit
	// little-endian ring pointers.
	PointersFirstOffset uint32
	PointersLastOffset  uint32

	// PageSize/Multipage override the package defaults for models that
	// read a different unit (all current families use the constants
	// defaults; the fields exist so a future model isn't a layout change).
	PageSize  uint32
	Multipage uint32
}

// EntrySize returns the fixed logbook-entry size, PAGESIZE/2.
func (l OceanicLayout) EntrySize() uint32 {
	return l.PageSize / 2
}

// PageReader is the minimal surface the Oceanic engine needs from a
// framer: a page-aligned, possibly-multipage read starting at address.
// internal/framing.VTProFramer satisfies this structurally; so does the
// in-memory imageReader used by tests and the direct-extraction path of
// property P2.
type PageReader interface {
	ReadPages(ctx context.Context, address uint32, out []byte) error
}

// VTProLayout is the Oceanic VTPro/Atmos memory layout
// (original_source/oceanic_vtpro.c's oceanic_vtpro_layout), the default
// selected when the device's identification block doesn't match the
// Wisdom pattern.
func VTProLayout() OceanicLayout {
	return OceanicLayout{
		MemSize:             0x8000,
		RBLogbookBegin:      0x0240,
		RBLogbookEnd:        0x0440,
		RBProfileBegin:      0x0440,
		RBProfileEnd:        0x8000,
		PtModeGlobal:        PointerFirstLast,
		PtModeLogbook:       PointerPacked12,
		DevInfoAddr:         0x00,
		PointersAddr:        0x10,
		PointersFirstOffset: 0,
		PointersLastOffset:  2,
		PageSize:            16,
		Multipage:           4,
	}
}

// WisdomLayout is the Oceanic Wisdom memory layout
// (original_source/oceanic_vtpro.c's oceanic_wisdom_layout), selected
// when the identification block matches the Wisdom pattern. It differs
// from VTProLayout only in the logbook ring's bounds and the profile
// ring's start.
func WisdomLayout() OceanicLayout {
	l := VTProLayout()
	l.RBLogbookBegin = 0x03D0
	l.RBLogbookEnd = 0x05D0
	l.RBProfileBegin = 0x05D0
	return l
}
