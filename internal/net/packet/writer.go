package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds one outbound frame. All multi-byte fields are little-endian;
// strings are UTF-8 with a 2-byte length prefix. There is no outer frame
// length: the client parses bodies by packet id, so field order in the
// senders must match the protocol tables exactly.
type Writer struct {
	buf []byte
}

func NewWriter(id byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 32)}
	w.buf = append(w.buf, id)
	return w
}

func (w *Writer) PutByte(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) PutBool(v bool) *Writer {
	if v {
		return w.PutByte(1)
	}
	return w.PutByte(0)
}

func (w *Writer) PutInt16(v int16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) PutInt32(v int32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) PutFloat32(v float32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) PutString(s string) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	w.buf = append(w.buf, b[:]...)
	w.buf = append(w.buf, s...)
	return w
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}
