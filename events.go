package godive

import "github.com/divewire/godive/internal/interfaces"

// listenerSink adapts a Listener to the narrower interfaces.EventSink
// that internal/engine and internal/framing emit through, so those
// packages stay decoupled from this package's public event types.
type listenerSink struct {
	l Listener
}

// sinkFor returns an interfaces.EventSink wrapping l, or a no-op sink
// when l is nil.
func sinkFor(l Listener) interfaces.EventSink {
	if l == nil {
		return interfaces.NoopEventSink{}
	}
	return listenerSink{l: l}
}

func (s listenerSink) Progress(current, maximum uint64) {
	s.l.OnEvent(EventProgress, ProgressEvent{Current: current, Maximum: maximum})
}

func (s listenerSink) Waiting() {
	s.l.OnEvent(EventWaiting, WaitingEvent{})
}

func (s listenerSink) DevInfo(model, firmware, serial string) {
	s.l.OnEvent(EventDevInfo, DevInfoEvent{Model: model, Firmware: firmware, Serial: serial})
}

func (s listenerSink) Clock(hostTicks, deviceTicks int64) {
	s.l.OnEvent(EventClock, ClockEvent{HostTicks: hostTicks, DeviceTicks: deviceTicks})
}

// EventKind identifies the kind of payload carried by an Event.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventWaiting  EventKind = "wait"
	EventDevInfo  EventKind = "devinfo"
	EventClock    EventKind = "clock"
)

// ProgressEvent reports bytes transferred so far against an expected total.
type ProgressEvent struct {
	Current uint64
	Maximum uint64
}

// WaitingEvent is emitted while a backend resynchronises a framing state
// machine after a false start (e.g. the Aladin preamble scan).
type WaitingEvent struct{}

// DevInfoEvent reports the identification strings read during probe.
type DevInfoEvent struct {
	Model    string
	Firmware string
	Serial   string
}

// ClockEvent captures the host and device clocks at dump time, for
// callers that want to correct dive timestamps against clock drift.
type ClockEvent struct {
	HostTicks   int64
	DeviceTicks int64
}

// Listener receives events emitted by a Device. A device carries at most
// one listener; Emit delivers synchronously and the listener must not
// invoke other operations on the same device from within OnEvent.
type Listener interface {
	OnEvent(kind EventKind, payload any)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(kind EventKind, payload any)

func (f ListenerFunc) OnEvent(kind EventKind, payload any) {
	f(kind, payload)
}

// eventBus owns a device's single optional listener and delivers events
// synchronously. Events are advisory: nothing in the engines depends on
// them for correctness of the extracted data.
type eventBus struct {
	listener Listener
}

func (b *eventBus) setListener(l Listener) {
	b.listener = l
}

func (b *eventBus) emit(kind EventKind, payload any) {
	if b.listener == nil {
		return
	}
	b.listener.OnEvent(kind, payload)
}
