package godive

import "testing"

func TestEventBusDeliversSynchronously(t *testing.T) {
	var received []EventKind
	bus := &eventBus{}
	bus.setListener(ListenerFunc(func(kind EventKind, payload any) {
		received = append(received, kind)
	}))

	bus.emit(EventProgress, ProgressEvent{Current: 1, Maximum: 10})
	bus.emit(EventWaiting, WaitingEvent{})
	bus.emit(EventDevInfo, DevInfoEvent{Model: "VTPro"})
	bus.emit(EventClock, ClockEvent{HostTicks: 1, DeviceTicks: 2})

	want := []EventKind{EventProgress, EventWaiting, EventDevInfo, EventClock}
	if len(received) != len(want) {
		t.Fatalf("got %d events, want %d", len(received), len(want))
	}
	for i, k := range want {
		if received[i] != k {
			t.Errorf("event %d = %v, want %v", i, received[i], k)
		}
	}
}

func TestEventBusNoListenerIsNoop(t *testing.T) {
	bus := &eventBus{}
	bus.emit(EventProgress, ProgressEvent{Current: 1, Maximum: 1})
}
