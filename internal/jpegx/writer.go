package jpegx

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Slot is a reserved, not yet written, fixed-width field inside a Writer.
type Slot struct {
	off   int
	width int
}

// Offset returns the position of the slot in the output.
func (s Slot) Offset() int { return s.off }

// Writer is an append-only byte sink with typed big/little-endian writers.
//
// Fields whose value depends on bytes emitted later are reserved first and
// back-filled once the value is measured. Bytes refuses to hand out a buffer
// that still has unfilled slots.
type Writer struct {
	buf     []byte
	pending map[int]int
}

// NewWriter creates a Writer with the given capacity hint.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written so far, reserved slots included.
func (w *Writer) Len() int { return len(w.buf) }

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v byte) { w.buf = append(w.buf, v) }

// WriteU16BE appends v in big-endian order.
func (w *Writer) WriteU16BE(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

// WriteU16LE appends v in little-endian order.
func (w *Writer) WriteU16LE(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

// WriteU32BE appends v in big-endian order.
func (w *Writer) WriteU32BE(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

// WriteU32LE appends v in little-endian order.
func (w *Writer) WriteU32LE(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

// WriteBytes appends p as is.
func (w *Writer) WriteBytes(p []byte) { w.buf = append(w.buf, p...) }

// Reserve appends width zero bytes and returns a slot to back-fill them later.
func (w *Writer) Reserve(width int) Slot {
	s := Slot{off: len(w.buf), width: width}
	w.buf = append(w.buf, make([]byte, width)...)
	if w.pending == nil {
		w.pending = make(map[int]int)
	}
	w.pending[s.off] = width
	return s
}

// ReserveU16 reserves a 2-byte field.
func (w *Writer) ReserveU16() Slot { return w.Reserve(2) }

// ReserveU32 reserves a 4-byte field.
func (w *Writer) ReserveU32() Slot { return w.Reserve(4) }

func (w *Writer) fill(s Slot, width int) ([]byte, error) {
	if s.width != width {
		return nil, errors.Errorf("jpegx: slot at %d is %d bytes wide, not %d", s.off, s.width, width)
	}
	if _, ok := w.pending[s.off]; !ok {
		return nil, errors.Errorf("jpegx: slot at %d is not pending", s.off)
	}
	delete(w.pending, s.off)
	return w.buf[s.off : s.off+width], nil
}

// BackfillU16BE writes v big-endian into a reserved 2-byte slot.
func (w *Writer) BackfillU16BE(s Slot, v uint16) error {
	b, err := w.fill(s, 2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

// BackfillU32LE writes v little-endian into a reserved 4-byte slot.
func (w *Writer) BackfillU32LE(s Slot, v uint32) error {
	b, err := w.fill(s, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// BackfillU32BE writes v big-endian into a reserved 4-byte slot.
func (w *Writer) BackfillU32BE(s Slot, v uint32) error {
	b, err := w.fill(s, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

// Pending returns the number of reserved slots not yet back-filled.
func (w *Writer) Pending() int { return len(w.pending) }

// Bytes returns the written bytes, failing if any reserved slot is still unfilled.
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.pending) > 0 {
		return nil, errors.Errorf("jpegx: %d reserved fields were never filled", len(w.pending))
	}
	return w.buf, nil
}
