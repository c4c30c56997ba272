package types

import (
	"strings"
	"testing"
)

// Test the empty checks
func TestIsEmpty(t *testing.T) {
	if !EmptyHash.IsEmpty() || !EmptyAddress.IsEmpty() || !EmptyHandle.IsEmpty() {
		t.Error("Zero values should report empty")
	}

	h := Hash{1}
	a := Address{1}
	hd := Handle{1}
	if h.IsEmpty() || a.IsEmpty() || hd.IsEmpty() {
		t.Error("Non-zero values should not report empty")
	}
}

// Test byte conversion truncation and padding
func TestFromBytes(t *testing.T) {
	long := make([]byte, HashSize+8)
	for i := range long {
		long[i] = byte(i + 1)
	}
	h := HashFromBytes(long)
	if h[0] != 1 || h[HashSize-1] != HashSize {
		t.Error("Oversized input should be truncated to the hash size")
	}

	// Undersized input is rejected, yielding the empty hash
	h = HashFromBytes([]byte{1, 2, 3})
	if !h.IsEmpty() {
		t.Error("Undersized input should yield the empty hash")
	}
}

// Test hex rendering
func TestString(t *testing.T) {
	h := Hash{0xAB}
	if !strings.HasPrefix(h.String(), "ab00") {
		t.Errorf("String should render lowercase hex, got %s", h.String())
	}
	if len(h.String()) != HashSize*2 {
		t.Errorf("String should render every byte, got %s", h.String())
	}
}

// Test the packet zero value
func TestPacketZeroValue(t *testing.T) {
	var p Packet
	if p.Exists {
		t.Error("Zero packet should not exist")
	}
	if p.Status != PacketActive {
		// Active is the zero status; absence is signalled by Exists, not Status
		t.Error("Zero status should be active")
	}
}
