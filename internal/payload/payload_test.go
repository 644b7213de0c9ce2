package payload

import (
	"errors"
	"strings"
	"testing"
)

// TestWriterReaderRoundTrip writes one value of every primitive kind and
// reads them back in order.
func TestWriterReaderRoundTrip(t *testing.T) {
	w := &Writer{}
	w.WriteBool(true).WriteUint8(200).WriteInt16(-12345).WriteInt32(1 << 30).WriteInt64(-1)
	w.WriteFloat32(3.5).WriteFloat64(-0.25)
	if err := w.WriteString("héllo"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}

	r := NewReader(w.Bytes())

	if v, err := r.ReadBool(); err != nil || v != true {
		t.Errorf("ReadBool: got %v, %v", v, err)
	}
	if v, err := r.ReadUint8(); err != nil || v != 200 {
		t.Errorf("ReadUint8: got %v, %v", v, err)
	}
	if v, err := r.ReadInt16(); err != nil || v != -12345 {
		t.Errorf("ReadInt16: got %v, %v", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != 1<<30 {
		t.Errorf("ReadInt32: got %v, %v", v, err)
	}
	if v, err := r.ReadInt64(); err != nil || v != -1 {
		t.Errorf("ReadInt64: got %v, %v", v, err)
	}
	if v, err := r.ReadFloat32(); err != nil || v != 3.5 {
		t.Errorf("ReadFloat32: got %v, %v", v, err)
	}
	if v, err := r.ReadFloat64(); err != nil || v != -0.25 {
		t.Errorf("ReadFloat64: got %v, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "héllo" {
		t.Errorf("ReadString: got %q, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected no remaining bytes, have %d", r.Remaining())
	}
}

// TestReaderShortPayload verifies that reading past the end reports
// ErrShortPayload rather than panicking.
func TestReaderShortPayload(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01})

	if _, err := r.ReadInt32(); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}

	// A truncated string body must also fail: length prefix says 5 bytes
	// but none follow.
	r = NewReader([]byte{0x00, 0x05})
	if _, err := r.ReadString(); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

// TestWriteStringTooLong verifies the message-size guard on strings.
func TestWriteStringTooLong(t *testing.T) {
	w := &Writer{}
	if err := w.WriteString(strings.Repeat("x", 59)); err == nil {
		t.Fatal("expected error for string that cannot fit one message")
	}
	if err := w.WriteString(strings.Repeat("x", 58)); err != nil {
		t.Fatalf("58-byte string should fit: %v", err)
	}
}
