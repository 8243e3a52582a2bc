package engine

import (
	"bytes"
	"context"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

// suuntoFingerprintSize is the width of the fingerprint TraverseSuunto
// reads out of a dive header and hands to the callback (spec §4.D/§4.G).
const suuntoFingerprintSize = 8

// SuuntoLayout describes the fixed Suunto Vyper/Cobra/D9-family header and
// profile-ring geometry (spec §4.G).
type SuuntoLayout struct {
	MemSize        uint32
	HeaderAddr     uint32
	RBProfileBegin uint32
	RBProfileEnd   uint32
	FPOffset       uint32
	Model          byte
	PacketSize     uint32
	MinimumRead    uint32
}

// fpOffset returns the model-adjusted fingerprint offset within a dive
// block; model 0x15 (HelO2) shifts it 6 bytes further in, per
// original_source/suunto_common2.c.
func (l SuuntoLayout) fpOffset() uint32 {
	if l.Model == 0x15 {
		return l.FPOffset + constants.SuuntoFPOffsetHelO2Shift
	}
	return l.FPOffset
}

// RawReader is the transport surface the Suunto engine needs: an
// arbitrary-offset read of an arbitrary length, clipped by the caller to
// the packet-size policy. internal/framing.SuuntoFramer and an in-memory
// image reader both satisfy this.
type RawReader interface {
	ReadAt(ctx context.Context, address uint32, out []byte) error
}

// TraverseSuunto follows the Suunto dive linked list backward from the
// header's `last` pointer, streaming every dive newer than fingerprint to
// cb (spec §4.G).
func TraverseSuunto(ctx context.Context, reader RawReader, layout SuuntoLayout, fingerprint []byte, sink interfaces.EventSink, cb interfaces.DiveCallback) error {
	if sink == nil {
		sink = interfaces.NoopEventSink{}
	}

	packetSize := layout.PacketSize
	if packetSize == 0 {
		packetSize = constants.SuuntoPacketSize
	}
	minRead := layout.MinimumRead
	if minRead == 0 {
		minRead = constants.SuuntoMinimumRead
	}
	lo, hi := layout.RBProfileBegin, layout.RBProfileEnd

	if err := interfaces.CheckContext(ctx); err != nil {
		return err
	}

	header := make([]byte, 8)
	if err := reader.ReadAt(ctx, layout.HeaderAddr, header); err != nil {
		return err
	}
	last := proto.U16LE(header[0:2])
	count := proto.U16LE(header[2:4])
	end := proto.U16LE(header[4:6])
	begin := proto.U16LE(header[6:8])

	if count == 0 {
		return nil
	}

	cur := last
	expectedNext := end
	var total uint64

	for remaining := count; remaining > 0; remaining-- {
		if err := interfaces.CheckContext(ctx); err != nil {
			return err
		}

		// Read the block's (prev,next) header; expand backward to
		// SZ_MINIMUM when the natural window would be shorter, per
		// spec's hardware-minimum note.
		headLen := uint32(4)
		if headLen < minRead {
			headLen = minRead
		}
		if cur-lo < headLen {
			headLen = cur - lo
		}
		blockHead := make([]byte, headLen)
		if err := reader.ReadAt(ctx, cur-headLen, blockHead); err != nil {
			return err
		}
		prevNext := blockHead[headLen-4:]
		prev := proto.U16LE(prevNext[0:2])
		next := proto.U16LE(prevNext[2:4])

		if next != expectedNext {
			return interfaces.NewFamilyError("suunto.foreach", "suunto", interfaces.StatusInvalid, "dive linked-list continuity check failed")
		}

		diveSize := proto.Distance(prev, cur, lo, hi, false)
		if diveSize == 0 {
			break
		}

		data, err := readSuuntoBackward(ctx, reader, cur, diveSize, lo, hi, packetSize)
		if err != nil {
			return err
		}
		total += uint64(diveSize)
		sink.Progress(total, total)

		fpOff := layout.fpOffset()
		var fp []byte
		if fpOff+uint32(len(fingerprint)) <= uint32(len(data)) {
			fp = append([]byte(nil), data[fpOff:fpOff+uint32(len(fingerprint))]...)
		}
		if len(fingerprint) > 0 && fp != nil && bytes.Equal(fp, fingerprint) {
			break
		}

		if fpOff+suuntoFingerprintSize <= uint32(len(data)) {
			if !cb(data, append([]byte(nil), data[fpOff:min32(fpOff+suuntoFingerprintSize, uint32(len(data)))]...)) {
				return nil
			}
		} else if !cb(data, nil) {
			return nil
		}

		expectedNext = prev
		cur = prev
		if cur == begin {
			break
		}
	}

	return nil
}

// readSuuntoBackward reads a dive of size bytes ending at end, in chunks
// of at most packetSize, clipped at the profile ring's lo bound.
func readSuuntoBackward(ctx context.Context, reader RawReader, end, size, lo, hi, packetSize uint32) ([]byte, error) {
	buf := make([]byte, size)
	addr := end
	var nbytes uint32
	for nbytes < size {
		if err := interfaces.CheckContext(ctx); err != nil {
			return nil, err
		}
		remain := size - nbytes
		chunklen := packetSize
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
		if err := reader.ReadAt(ctx, addr, chunk); err != nil {
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
