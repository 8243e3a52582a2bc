// Package mock provides a scriptable in-memory transport that plays an
// in-memory dive-computer image back through each family's exact wire
// protocol, used by unit tests, the property tests of spec §8, and the
// example CLI's --mock mode. Grounded on the teacher's backend/mem.go
// in-memory reference Backend, generalized from a flat byte array to a
// protocol-aware responder since every family here speaks a framed
// request/response protocol rather than ublk's flat block-device reads.
package mock

import (
	"context"

	"github.com/divewire/godive/internal/interfaces"
)

// ResponderFunc computes the bytes a device would send back in response
// to a single Write of cmd, or nil to send nothing until the next Write.
type ResponderFunc func(cmd []byte) []byte

// Transport is a queue-backed interfaces.Transport: each Write is handed
// to Responder, whose return value is appended to an internal byte
// queue that subsequent Reads drain from, one chunk at a time, matching
// however the caller sized its Read buffer (mirroring a real transport
// that has no concept of "message boundaries" beyond what the framing
// layer already knows to expect).
type Transport struct {
	Responder ResponderFunc

	queue []byte
	// Writes records every command written, for tests that assert on
	// the exact bytes a framer sent (retry counts, command encoding).
	Writes [][]byte

	// FailReads, when > 0, makes the next N reads return zero bytes
	// (simulating a timeout) before responding normally; used to drive
	// property P6's retry-bound scenarios.
	FailReads int
	// FailWithGarbage, when true, corrupts the next queued response
	// instead of withholding it, simulating a checksum/sentinel
	// mismatch (PROTOCOL) rather than a timeout.
	FailWithGarbage bool

	closed bool
}

var _ interfaces.Transport = (*Transport)(nil)

// New creates a Transport that answers every Write via responder.
func New(responder ResponderFunc) *Transport {
	return &Transport{Responder: responder}
}

func (t *Transport) Write(ctx context.Context, p []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	cmd := append([]byte(nil), p...)
	t.Writes = append(t.Writes, cmd)
	if t.Responder != nil {
		resp := t.Responder(cmd)
		if t.FailWithGarbage && len(resp) > 0 {
			resp = append([]byte(nil), resp...)
			resp[len(resp)-1] ^= 0xFF
			t.FailWithGarbage = false
		}
		t.queue = append(t.queue, resp...)
	}
	return len(p), nil
}

func (t *Transport) Read(ctx context.Context, p []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	if t.FailReads > 0 {
		t.FailReads--
		return 0, nil
	}
	n := copy(p, t.queue)
	t.queue = t.queue[n:]
	return n, nil
}

func (t *Transport) SetTimeout(int) error { return nil }
func (t *Transport) SetDTR(bool) error    { return nil }
func (t *Transport) SetRTS(bool) error    { return nil }
func (t *Transport) Flush() error         { t.queue = nil; return nil }
func (t *Transport) Close() error         { t.closed = true; return nil }

// Closed reports whether Close has been called, for tests asserting
// that a backend's Close releases its transport on every path.
func (t *Transport) Closed() bool { return t.closed }

// Inject appends p directly to the read queue without going through a
// Responder, for protocols (Aladin/Nemo) that stream a precomputed
// reply independent of what's written.
func (t *Transport) Inject(p []byte) {
	t.queue = append(t.queue, p...)
}
