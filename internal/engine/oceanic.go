package engine

import (
	"bytes"
	"context"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

func floorP(x, p uint32) uint32 { return (x / p) * p }
func ceilP(x, p uint32) uint32  { return ((x + p - 1) / p) * p }

func allFF(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}

// oceanicWindow is the result of spec §4.F steps 1-3: the normalized
// begin/end/size of the currently-occupied logbook ring, and the
// page-aligned window that must be read to cover it.
type oceanicWindow struct {
	begin, end, size uint32
	full, unaligned  bool
	pageBegin, pageEnd, pageSize uint32
}

// normalizeOceanicWindow implements spec §4.F steps 2-3.
func normalizeOceanicWindow(layout OceanicLayout, first, last uint32) (oceanicWindow, bool) {
	lo, hi := layout.RBLogbookBegin, layout.RBLogbookEnd
	L := hi - lo
	U := layout.EntrySize()
	P := layout.PageSize

	if first < lo || first >= hi || last < lo || last >= hi {
		return oceanicWindow{}, false
	}

	var w oceanicWindow
	switch layout.PtModeGlobal {
	case PointerFirstLast:
		w.begin = first
		w.end = proto.Increment(last, U, lo, hi)
		w.size = proto.Distance(first, last, lo, hi, false) + U
	case PointerBeginEnd:
		w.begin = first
		w.end = last
		if first == last {
			// Open Question (spec §9): first==last is ambiguous between
			// empty and full; the chosen policy is *full*, with emptiness
			// later detected by the uninitialised-entry scan.
			w.size = L
		} else {
			w.size = proto.Distance(first, last, lo, hi, false)
		}
	}
	w.full = w.size == L

	if w.full {
		w.pageBegin = ceilP(w.end, P)
		w.pageEnd = w.pageBegin
		w.pageSize = w.size
	} else {
		w.pageBegin = floorP(w.begin, P)
		w.pageEnd = ceilP(w.end, P)
		w.pageSize = w.size + (w.begin - w.pageBegin) + (w.pageEnd - w.end)
	}
	w.unaligned = w.end != w.pageEnd
	return w, true
}

// oceanicEntry views a fixed-size logbook entry and extracts its profile
// pointers according to the model's pointer-packing mode.
type oceanicEntry []byte

func (e oceanicEntry) profileFirst(layout OceanicLayout) uint32 {
	return decodeOceanicPointer(e, layout, true)
}

func (e oceanicEntry) profileLast(layout OceanicLayout) uint32 {
	return decodeOceanicPointer(e, layout, false)
}

func decodeOceanicPointer(e oceanicEntry, layout OceanicLayout, first bool) uint32 {
	mask := uint32(0x0FFF)
	if layout.MemSize > 64*1024 {
		mask = 0x1FFF
	}

	var raw uint32
	switch layout.PtModeLogbook {
	case PointerPacked12:
		if first {
			raw = proto.U16LE(e[5:7]) & mask
		} else {
			raw = (proto.U16LE(e[6:8]) >> 4) & mask
		}
		return layout.RBProfileBegin + raw
	case PointerPadded16:
		if first {
			raw = proto.U16LE(e[4:6]) & mask
		} else {
			raw = proto.U16LE(e[6:8]) & mask
		}
		return layout.RBProfileBegin + raw*layout.PageSize
	}
	return layout.RBProfileBegin
}

// TraverseOceanic walks the Oceanic logbook+profile ring backward from
// newest to oldest, streaming every dive newer than fingerprint to cb
// (spec §4.F). reader is the page-aligned, possibly-multipage source: it
// is satisfied both by internal/framing.VTProFramer (the real transport)
// and by an in-memory image reader for the direct-extraction half of
// property P2.
func TraverseOceanic(ctx context.Context, reader PageReader, layout OceanicLayout, fingerprint []byte, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	if sink == nil {
		sink = interfaces.NoopEventSink{}
	}

	pageSize := layout.PageSize
	if pageSize == 0 {
		pageSize = constants.PageSize
	}
	layout.PageSize = pageSize
	multipage := layout.Multipage
	if multipage == 0 {
		multipage = constants.Multipage
	}
	U := layout.EntrySize()
	lo, hi := layout.RBLogbookBegin, layout.RBLogbookEnd

	if err := interfaces.CheckContext(ctx); err != nil {
		return err
	}

	// Step 1: device-info and pointers pages.
	devinfo := make([]byte, pageSize)
	if err := reader.ReadPages(ctx, layout.DevInfoAddr, devinfo); err != nil {
		return err
	}
	pointers := make([]byte, pageSize)
	if err := reader.ReadPages(ctx, layout.PointersAddr, pointers); err != nil {
		return err
	}
	first := proto.U16LE(pointers[layout.PointersFirstOffset:]) + lo
	last := proto.U16LE(pointers[layout.PointersLastOffset:]) + lo

	win, ok := normalizeOceanicWindow(layout, first, last)
	if !ok {
		return nil // empty logbook
	}
	if win.size == 0 {
		return nil
	}

	// Step 4/5/6: backward page read loop with entry scan.
	buf := make([]byte, win.pageSize)
	maxChunk := pageSize * multipage

	var current0 uint32
	var beginPos uint32
	if win.full {
		current0 = win.pageSize
		beginPos = 0
	} else {
		current0 = win.pageSize - (win.pageEnd - win.end)
		beginPos = win.begin - win.pageBegin
	}
	current := current0

	addrCursor := win.pageEnd
	var nbytes uint32
	firstIter := true
	fpFound := false

	for nbytes < win.pageSize {
		if err := interfaces.CheckContext(ctx); err != nil {
			return err
		}

		remain := win.pageSize - nbytes
		chunklen := maxChunk
		if chunklen > remain {
			chunklen = remain
		}
		if addrCursor-lo < chunklen {
			chunklen = addrCursor - lo
		}
		if chunklen == 0 {
			addrCursor = hi
			continue
		}
		addrCursor -= chunklen

		chunk := make([]byte, chunklen)
		if err := reader.ReadPages(ctx, addrCursor, chunk); err != nil {
			return err
		}

		var filledLo uint32
		if firstIter && win.full && win.unaligned {
			// Step 5: this chunk straddles the single newest/oldest split
			// point `end`; rotate so the oldest tail lands at the front
			// of the linear buffer and the newest tail at the back.
			oldestLen := win.pageEnd - win.end
			newestLen := chunklen - oldestLen
			copy(buf[0:oldestLen], chunk[newestLen:chunklen])
			copy(buf[win.pageSize-newestLen:win.pageSize], chunk[0:newestLen])
			filledLo = win.pageSize - newestLen
		} else {
			dest := win.pageSize - nbytes - chunklen
			copy(buf[dest:dest+chunklen], chunk)
			filledLo = dest
		}
		nbytes += chunklen
		sink.Progress(uint64(nbytes), uint64(win.pageSize))
		firstIter = false
		if addrCursor == lo {
			addrCursor = hi
		}

		for current > filledLo && current > beginPos {
			entry := oceanicEntry(buf[current-U : current])
			if allFF(entry) {
				beginPos = current
				fpFound = true
				break
			}
			if len(fingerprint) > 0 && bytes.Equal([]byte(entry[:min32(U, uint32(len(fingerprint)))]), fingerprint) {
				beginPos = current
				fpFound = true
				break
			}
			current -= U
		}
		if fpFound {
			break
		}
	}

	if beginPos == current0 {
		return nil // no new dives
	}

	// Step 7: end of the profile window, one page past the newest entry's
	// last profile page; step 8 walks back from there to the oldest new
	// entry.
	newestEntry := oceanicEntry(buf[current0-U : current0])
	profileLast := newestEntry.profileLast(layout)
	profileEndAddr := proto.Increment(profileLast, pageSize, layout.RBProfileBegin, layout.RBProfileEnd)

	// Step 8: backward dive-by-dive profile read.
	pos := current0
	prevEntryFirst := profileEndAddr
	for pos > beginPos {
		if err := interfaces.CheckContext(ctx); err != nil {
			return err
		}
		entry := oceanicEntry(buf[pos-U : pos])
		entryFirst := entry.profileFirst(layout)
		entryLast := entry.profileLast(layout)
		entryEnd := proto.Increment(entryLast, pageSize, layout.RBProfileBegin, layout.RBProfileEnd)
		entrySize := proto.Distance(entryFirst, entryLast, layout.RBProfileBegin, layout.RBProfileEnd, false) + pageSize

		if entryEnd != prevEntryFirst {
			return interfaces.NewFamilyError("oceanic.foreach", "oceanic", interfaces.StatusInvalid, "profile continuity check failed")
		}

		profile, err := readRingBackward(ctx, reader, entryEnd, entrySize, layout.RBProfileBegin, layout.RBProfileEnd, maxChunk)
		if err != nil {
			return err
		}

		block := make([]byte, 0, int(U)+len(profile))
		block = append(block, []byte(entry)...)
		block = append(block, profile...)

		if !cb(block, append([]byte(nil), entry[:min32(U, uint32(len(entry)))]...)) {
			return nil
		}

		prevEntryFirst = entryFirst
		pos -= U
	}

	return nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// readRingBackward reads size bytes ending at end, within ring [lo,hi),
// in chunks of at most maxChunk, clipped so no single transport read
// crosses lo (wrapping the cursor to hi on under-run). The returned slice
// is in chronological (oldest-first) order.
func readRingBackward(ctx context.Context, reader PageReader, end, size, lo, hi, maxChunk uint32) ([]byte, error) {
	buf := make([]byte, size)
	addr := end
	var nbytes uint32
	for nbytes < size {
		if err := interfaces.CheckContext(ctx); err != nil {
			return nil, err
		}
		remain := size - nbytes
		chunklen := maxChunk
		if chunklen > remain {
			chunklen = remain
		}
		if addr-lo < chunklen {
			chunklen = addr - lo
		}
		if chunklen == 0 {
			addr = hi
			continue
		}
		addr -= chunklen
		chunk := make([]byte, chunklen)
		if err := reader.ReadPages(ctx, addr, chunk); err != nil {
			return nil, err
		}
		dest := size - nbytes - chunklen
		copy(buf[dest:dest+chunklen], chunk)
		nbytes += chunklen
		if addr == lo {
			addr = hi
		}
	}
	return buf, nil
}
