package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds an outbound frame. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func NewWriterWithTag(tag byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.WriteU8(tag)
	return w
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *Writer) WriteF64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// WriteRGB writes a 0xRRGGBB color as three bytes.
func (w *Writer) WriteRGB(c uint32) {
	w.buf = append(w.buf, byte(c>>16), byte(c>>8), byte(c))
}

// WriteZTUTF8 writes s followed by a zero byte.
func (w *Writer) WriteZTUTF8(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteZTUCS2 writes s as little-endian UTF-16 followed by a zero unit.
func (w *Writer) WriteZTUCS2(s string) {
	if len(s) > 0 {
		encoded, err := ucs2.NewEncoder().Bytes([]byte(s))
		if err == nil {
			w.buf = append(w.buf, encoded...)
		}
	}
	w.buf = append(w.buf, 0, 0)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutU16At overwrites two bytes at off, for counts known only after the
// entries were written.
func (w *Writer) PutU16At(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}

// PutU32At overwrites four bytes at off.
func (w *Writer) PutU32At(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// Bytes returns the frame built so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the writer, keeping its buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}
