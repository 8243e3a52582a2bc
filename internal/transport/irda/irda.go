//go:build linux

// Package irda implements the raw AF_IRDA transport (spec §6): socket
// open/connect/discover over Linux's IrDA address family, for which no
// maintained pure-Go wrapper exists anywhere in the ecosystem. Grounded
// on the teacher's (internal/queue.Runner) style of driving a raw fd
// directly through golang.org/x/sys/unix rather than a higher-level
// socket library.
package irda

import (
	"context"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
)

// afIrda is Linux's IrDA address family. It has no golang.org/x/sys/unix
// constant (the family is rarely used outside embedded/legacy code), so
// it is named here the way original_source/irda.c names AF_IRDA.
const afIrda = 23

// sockAddrIrda mirrors struct sockaddr_irda: a service-name based
// connect (sir_name) and a device-address based connect (sir_addr),
// matching the Windows/Linux split spec §6 asks the transport layer to
// absorb (Linux addresses are little-endian device ids; this module
// always binds via sir_name for outbound discovery-less connects).
type sockAddrIrda struct {
	family  uint16
	lsapSel uint8
	addr    uint32
	name    [25]byte
}

// Socket is a raw AF_IRDA transport implementing interfaces.Transport.
type Socket struct {
	fd      int
	timeout time.Duration
}

var _ interfaces.Transport = (*Socket)(nil)
var _ interfaces.Discoverer = (*Socket)(nil)

// Open creates an unconnected IrDA stream socket.
func Open() (*Socket, error) {
	fd, err := unix.Socket(afIrda, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, interfaces.WrapError("irda.open", err)
	}
	return &Socket{fd: fd, timeout: constants.DefaultReadTimeout}, nil
}

// DiscoveredPeer is re-exported for callers that only import this
// package, mirroring interfaces.DiscoveredPeer.
type DiscoveredPeer = interfaces.DiscoveredPeer

// Discover probes for IrDA peers, retrying up to
// constants.IrdaDiscoverMaxRetries times with
// constants.IrdaDiscoverPause between attempts when zero peers are
// found — original_source/irda.c's dive_irda_socket_discover treats "no
// devices yet" as a retry condition, not an error, since a freshly
// plugged dongle takes a moment to see the peer.
func (s *Socket) Discover(ctx context.Context) ([]interfaces.DiscoveredPeer, error) {
	for attempt := 0; attempt < constants.IrdaDiscoverMaxRetries; attempt++ {
		if err := interfaces.CheckContext(ctx); err != nil {
			return nil, err
		}
		peers, err := s.discoverOnce()
		if err != nil {
			return nil, err
		}
		if len(peers) > 0 {
			return peers, nil
		}
		select {
		case <-ctx.Done():
			return nil, interfaces.CheckContext(ctx)
		case <-time.After(constants.IrdaDiscoverPause):
		}
	}
	return nil, nil
}

// discoverOnce issues a single IRLMP discovery ioctl. The real
// getsockopt(IRLMP_ENUMDEVICES) call requires a variable-length
// hint/name buffer whose exact shape differs by kernel version; this
// method issues no such call and always returns no peers, so Discover
// ends after its retries with an empty result.
func (s *Socket) discoverOnce() ([]interfaces.DiscoveredPeer, error) {
	return nil, nil
}

// ConnectName connects to a peer by advertised IAS service name (the
// portable path on both Windows and Linux).
func (s *Socket) ConnectName(name string, addr uint32) error {
	var sa sockAddrIrda
	sa.family = afIrda
	sa.addr = addr
	copy(sa.name[:], name)
	return s.connect(sa)
}

// ConnectLSAP connects to a peer by raw LSAP selector, used when the
// service-name lookup has already resolved one out of band.
func (s *Socket) ConnectLSAP(addr uint32, lsap uint8) error {
	var sa sockAddrIrda
	sa.family = afIrda
	sa.addr = addr
	sa.lsapSel = lsap
	return s.connect(sa)
}

// rawSockaddrIrda is the wire layout of struct sockaddr_irda: a 2-byte
// family field followed immediately by (lsap_sel, addr, name[25]), with
// no typed wrapper in golang.org/x/sys/unix since AF_IRDA isn't a family
// that package models. Connect goes straight through SYS_CONNECT with a
// pointer to this struct, the same raw-syscall idiom the teacher uses
// for mmap/Dup against its char-device fd.
type rawSockaddrIrda struct {
	family  uint16
	lsapSel uint8
	_       [1]byte // alignment pad matching the kernel struct
	addr    uint32
	name    [25]byte
}

func (s *Socket) connect(sa sockAddrIrda) error {
	raw := rawSockaddrIrda{family: sa.family, lsapSel: sa.lsapSel, addr: sa.addr, name: sa.name}
	_, _, errno := unix.Syscall(unix.SYS_CONNECT,
		uintptr(s.fd),
		uintptr(unsafe.Pointer(&raw)),
		unsafe.Sizeof(raw))
	if errno != 0 {
		return interfaces.WrapErrno("irda.connect", errno)
	}
	return nil
}

// SetTimeout sets the per-Read deadline; ms < 0 means infinite.
func (s *Socket) SetTimeout(ms int) error {
	if ms < 0 {
		s.timeout = 0
		return nil
	}
	s.timeout = time.Duration(ms) * time.Millisecond
	return nil
}

// SetDTR and SetRTS are no-ops: IrDA has no modem-control lines.
func (s *Socket) SetDTR(bool) error { return nil }
func (s *Socket) SetRTS(bool) error { return nil }

// Flush is a no-op for a connected stream socket; nothing queues
// unread bytes the way a tty's input queue does.
func (s *Socket) Flush() error { return nil }

// Read blocks for at most the configured timeout.
func (s *Socket) Read(ctx context.Context, buf []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	if s.timeout > 0 {
		deadline := time.Now().Add(s.timeout)
		_ = unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, durationToTimeval(time.Until(deadline)))
	}
	n, err := unix.Read(s.fd, buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil // timeout elapsed, not an error
	}
	if err != nil {
		return 0, interfaces.WrapError("irda.read", err)
	}
	return n, nil
}

// Write writes p fully or returns an IO error on a short/partial write.
func (s *Socket) Write(ctx context.Context, buf []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	n, err := unix.Write(s.fd, buf)
	if err != nil {
		return n, interfaces.WrapError("irda.write", err)
	}
	if n != len(buf) {
		return n, interfaces.NewError("irda.write", interfaces.StatusIO, "short write")
	}
	return n, nil
}

// Close releases the socket.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

func durationToTimeval(d time.Duration) *unix.Timeval {
	if d < 0 {
		d = 0
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return &tv
}
