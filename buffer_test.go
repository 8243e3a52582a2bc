package godive

import (
	"bytes"
	"testing"
)

func TestBufferAppendGrows(t *testing.T) {
	b := NewBuffer(0)
	b.Append([]byte("hello"))
	b.Append([]byte(" world"))

	if got := b.Data(); !bytes.Equal(got, []byte("hello world")) {
		t.Errorf("Data() = %q, want %q", got, "hello world")
	}
	if b.Size() != len("hello world") {
		t.Errorf("Size() = %d, want %d", b.Size(), len("hello world"))
	}
}

func TestBufferClearRetainsCapacity(t *testing.T) {
	b := NewBuffer(4)
	b.Append([]byte("data"))
	b.Clear()

	if b.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", b.Size())
	}
	if len(b.Data()) != 0 {
		t.Errorf("Data() after Clear() should be empty, got %q", b.Data())
	}
}

func TestBufferResizeZeroExtends(t *testing.T) {
	b := NewBuffer(0)
	b.Append([]byte("ab"))
	b.Resize(5)

	want := []byte{'a', 'b', 0, 0, 0}
	if !bytes.Equal(b.Data(), want) {
		t.Errorf("Data() after Resize(5) = %v, want %v", b.Data(), want)
	}

	b.Resize(1)
	if !bytes.Equal(b.Data(), []byte{'a'}) {
		t.Errorf("Data() after Resize(1) = %v, want [a]", b.Data())
	}

	// growing back must not reveal stale bytes from the shrink
	b.Resize(3)
	if !bytes.Equal(b.Data(), []byte{'a', 0, 0}) {
		t.Errorf("Data() after Resize(1) then Resize(3) = %v, want [a 0 0]", b.Data())
	}
}

func TestBufferReserveDoesNotChangeSize(t *testing.T) {
	b := NewBuffer(0)
	b.Append([]byte("x"))
	b.Reserve(1024)

	if b.Size() != 1 {
		t.Errorf("Reserve should not change Size(), got %d", b.Size())
	}
}
