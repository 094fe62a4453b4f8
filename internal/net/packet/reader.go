package packet

import (
	"encoding/binary"
	"errors"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// ErrShortFrame is reported when a frame ends before a field it declares.
var ErrShortFrame = errors.New("packet: frame too short")

var ucs2 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Reader reads little-endian fields from one inbound frame. Byte 0 is the
// message tag. Reads past the end return zero values and latch
// ErrShortFrame, which Err reports.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip tag byte
}

// NewRawReader reads from offset 0, for frames without a tag.
func NewRawReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Tag() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// Len is the full frame length, tag included.
func (r *Reader) Len() int { return len(r.data) }

// Err returns ErrShortFrame once any read ran past the end.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// need reports whether n more bytes are available, latching the error when
// they are not.
func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.data) {
		r.err = ErrShortFrame
		r.off = len(r.data)
		return false
	}
	return true
}

func (r *Reader) ReadU8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *Reader) ReadU16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }

func (r *Reader) ReadU32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *Reader) ReadF32() float32 { return math.Float32frombits(r.ReadU32()) }

func (r *Reader) ReadF64() float64 {
	if !r.need(8) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.off:]))
	r.off += 8
	return v
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

// ReadZTUTF8 reads a zero-terminated UTF-8 string. A missing terminator
// yields the rest of the frame.
func (r *Reader) ReadZTUTF8() string {
	if r.err != nil {
		return ""
	}
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			s := string(r.data[start:r.off])
			r.off++
			return s
		}
		r.off++
	}
	return string(r.data[start:r.off])
}

// ReadZTUCS2 reads a string of little-endian 16-bit code units terminated by
// a zero unit and returns it as UTF-8.
func (r *Reader) ReadZTUCS2() string {
	if r.err != nil {
		return ""
	}
	start := r.off
	for r.off+1 < len(r.data) {
		if r.data[r.off] == 0 && r.data[r.off+1] == 0 {
			raw := r.data[start:r.off]
			r.off += 2
			return ucs2ToUTF8(raw)
		}
		r.off += 2
	}
	raw := r.data[start:r.off]
	r.off = len(r.data)
	return ucs2ToUTF8(raw)
}

func ucs2ToUTF8(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	decoded, err := ucs2.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}
