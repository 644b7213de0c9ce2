// Package payload builds and parses message payloads from primitive values.
// All integers are big-endian; strings are UTF-8 prefixed with a 2-byte
// length. The encoding round-trips between any two peers of the link.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/1ureka/udplink/internal/protocol"
)

// ErrShortPayload is returned by Reader methods when the remaining bytes
// cannot satisfy the requested primitive.
var ErrShortPayload = errors.New("payload too short")

// Writer concatenates primitives into a payload byte slice.
// The zero value is ready to use.
type Writer struct {
	buf []byte
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current payload length in bytes.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) WriteBool(v bool) *Writer {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *Writer) WriteUint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) WriteInt16(v int16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
	return w
}

func (w *Writer) WriteInt32(v int32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return w
}

func (w *Writer) WriteInt64(v int64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
	return w
}

func (w *Writer) WriteFloat32(v float32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

func (w *Writer) WriteFloat64(v float64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
	return w
}

// WriteString appends a UTF-8 string with a 2-byte length prefix. Strings
// that cannot fit a single message alongside their prefix are rejected here
// rather than at send time.
func (w *Writer) WriteString(v string) error {
	if len(v) > protocol.MaxMessageSize-2 {
		return fmt.Errorf("string too long for one message: %d bytes", len(v))
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(v)))
	w.buf = append(w.buf, v...)
	return nil
}

// Reader consumes primitives from a payload byte slice in write order.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over buf. The slice is not copied.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortPayload, n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadString() (string, error) {
	lb, err := r.take(2)
	if err != nil {
		return "", err
	}
	b, err := r.take(int(binary.BigEndian.Uint16(lb)))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
