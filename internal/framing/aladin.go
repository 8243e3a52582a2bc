package framing

import (
	"context"
	"time"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

// AladinFramer implements the Uwatec Aladin/Memomouse single-shot dump
// protocol, grounded on original_source/uwatec_aladin.c
// uwatec_aladin_device_dump: a `55 55 55 00` preamble (resynchronising on
// any mismatched byte), a fixed-size payload, bit-reversed on the wire,
// and a trailing little-endian Sum16 checksum.
type AladinFramer struct {
	Transport interfaces.Transport
}

// aladinPreamble is the Aladin/Memomouse sync sequence: three 0x55 bytes
// followed by 0x00.
var aladinPreamble = []byte{0x55, 0x55, 0x55, 0x00}

// Dump reads the preamble-synced image, reverses its bit order, and
// verifies the trailing checksum. It returns the MemSize-byte payload
// (checksum bytes excluded), the device-clock ticks embedded at
// clockOffset, and the host ticks (time.Now().UnixNano()) captured the
// instant the preamble completes, for the caller to emit a Clock event.
func (f *AladinFramer) Dump(ctx context.Context, memSize int, clockOffset int, sink interfaces.EventSink) ([]byte, uint32, int64, error) {
	total := memSize + 2 // trailing Sum16
	answer := make([]byte, total)

	i := 0
	for i < len(aladinPreamble) {
		if err := interfaces.CheckContext(ctx); err != nil {
			return nil, 0, 0, err
		}
		b := make([]byte, 1)
		n, err := f.Transport.Read(ctx, b)
		if err != nil {
			return nil, 0, 0, err
		}
		if n != 1 {
			return nil, 0, 0, errProtocol("aladin.dump", "short preamble read")
		}
		if b[0] == aladinPreamble[i] {
			answer[i] = b[0]
			i++
		} else {
			i = 0
			if sink != nil {
				sink.Waiting()
			}
		}
	}
	hostTicks := time.Now().UnixNano()
	if sink != nil {
		sink.Progress(uint64(len(aladinPreamble)), uint64(total))
	}

	n, err := f.Transport.Read(ctx, answer[len(aladinPreamble):])
	if err != nil {
		return nil, 0, 0, err
	}
	if n != len(answer)-len(aladinPreamble) {
		return nil, 0, 0, errProtocol("aladin.dump", "short payload read")
	}
	if sink != nil {
		sink.Progress(uint64(total), uint64(total))
	}

	proto.ReverseBits(answer)

	crc := uint16(proto.U16LE(answer[memSize : memSize+2]))
	ccrc := proto.Sum16(answer[:memSize], 0)
	if crc != ccrc {
		return nil, 0, 0, errProtocol("aladin.dump", "unexpected checksum")
	}

	devtime := proto.U32BE(answer[clockOffset : clockOffset+4])
	return answer[:memSize], devtime, hostTicks, nil
}

// NemoFramer implements the Mares Nemo single-shot dump protocol
// (original_source/mares_nemo.c): a 20-byte 0xEE preamble followed by
// dual-packet reads, each half carrying its own Sum8 checksum; a half
// with a valid checksum is kept even if the other half is corrupt.
type NemoFramer struct {
	Transport interfaces.Transport
}

func (f *NemoFramer) Dump(ctx context.Context, memSize int, sink interfaces.EventSink) ([]byte, error) {
	packetSize := constants.NemoPacketSize

	i := 0
	for i < 20 {
		if err := interfaces.CheckContext(ctx); err != nil {
			return nil, err
		}
		b := make([]byte, 1)
		n, err := f.Transport.Read(ctx, b)
		if err != nil {
			return nil, err
		}
		if n != 1 {
			return nil, errProtocol("nemo.dump", "short preamble read")
		}
		if b[0] == 0xEE {
			i++
		} else {
			i = 0
		}
	}
	if sink != nil {
		sink.Progress(20, uint64(memSize+20))
	}

	out := make([]byte, 0, memSize)
	var nbytes int
	for nbytes < memSize {
		packet := make([]byte, (packetSize+1)*2)
		n, err := f.Transport.Read(ctx, packet)
		if err != nil {
			return nil, err
		}
		if n != len(packet) {
			return nil, errProtocol("nemo.dump", "short packet read")
		}

		half1 := packet[:packetSize]
		crc1 := packet[packetSize]
		half2 := packet[packetSize+1 : packetSize*2+1]
		crc2 := packet[packetSize*2+1]
		ok1 := crc1 == proto.Sum8(half1, 0)
		ok2 := crc2 == proto.Sum8(half2, 0)

		switch {
		case ok1:
			out = append(out, half1...)
		case ok2:
			out = append(out, half2...)
		default:
			return nil, errProtocol("nemo.dump", "unexpected checksum")
		}

		nbytes += packetSize
		if sink != nil {
			sink.Progress(uint64(20+nbytes), uint64(memSize+20))
		}
	}
	return out, nil
}
