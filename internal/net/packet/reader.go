package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTruncated is reported when a packet carries fewer bytes than a field
// read requested. Handlers must check Err() before mutating any state.
var ErrTruncated = errors.New("truncated packet")

// Reader is a cursor over one inbound frame. Byte 0 is the packet id; the
// cursor starts right after it. Reads past the end set a sticky error and
// return zero values instead of panicking, so a malicious short packet can
// never crash the session goroutine.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1}
}

// ID returns the packet id (byte 0 of the frame).
func (r *Reader) ID() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// Err returns ErrTruncated if any read ran past the frame end.
func (r *Reader) Err() error {
	return r.err
}

// Off returns the number of bytes consumed so far, including the id byte.
func (r *Reader) Off() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.data) {
		r.err = ErrTruncated
		return false
	}
	return true
}

// Byte reads one unsigned byte.
func (r *Reader) Byte() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// Int16 reads 2 bytes little-endian.
func (r *Reader) Int16() int16 {
	if !r.need(2) {
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

// Uint16 reads 2 bytes little-endian unsigned.
func (r *Reader) Uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// Int32 reads 4 bytes little-endian.
func (r *Reader) Int32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// Float32 reads 4 bytes little-endian IEEE 754.
func (r *Reader) Float32() float32 {
	if !r.need(4) {
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// String reads a UTF-8 string prefixed by a 2-byte little-endian length.
func (r *Reader) String() string {
	n := int(r.Uint16())
	if r.err != nil {
		return ""
	}
	if !r.need(n) {
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

// Skip discards n bytes (client-compat padding).
func (r *Reader) Skip(n int) {
	if !r.need(n) {
		return
	}
	r.off += n
}
