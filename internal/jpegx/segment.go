package jpegx

import "github.com/pkg/errors"

// WriteSOI writes the Start Of Image marker.
func WriteSOI(w *Writer) {
	w.WriteU8(MarkerStart)
	w.WriteU8(SOI)
}

// SegmentSize returns the number of bytes a marker segment with the given payload occupies,
// marker and length included.
func SegmentSize(payloadLen int) int {
	return 4 + payloadLen
}

// WriteSegment writes a complete marker segment: marker, big-endian length
// (payload plus the two length bytes) and payload.
func WriteSegment(w *Writer, marker byte, payload []byte) error {
	if len(payload) > MaxSegmentPayload {
		return errors.Errorf("jpegx: segment 0x%02X payload of %d bytes exceeds %d", marker, len(payload), MaxSegmentPayload)
	}
	w.WriteU8(MarkerStart)
	w.WriteU8(marker)
	w.WriteU16BE(uint16(len(payload) + 2))
	w.WriteBytes(payload)
	return nil
}

// OpenSegment starts a marker segment whose payload is written directly into w.
// The length field is reserved and filled by Close.
func OpenSegment(w *Writer, marker byte) *OpenedSegment {
	w.WriteU8(MarkerStart)
	w.WriteU8(marker)
	return &OpenedSegment{w: w, marker: marker, length: w.ReserveU16()}
}

// OpenedSegment is a marker segment with a pending length field.
type OpenedSegment struct {
	w      *Writer
	marker byte
	length Slot
}

// PayloadStart returns the output offset of the first payload byte.
func (s *OpenedSegment) PayloadStart() int {
	return s.length.Offset() + 2
}

// Close measures the payload written since OpenSegment and back-fills the length.
func (s *OpenedSegment) Close() error {
	n := s.w.Len() - s.length.Offset()
	if n-2 > MaxSegmentPayload {
		return errors.Errorf("jpegx: segment 0x%02X payload of %d bytes exceeds %d", s.marker, n-2, MaxSegmentPayload)
	}
	return s.w.BackfillU16BE(s.length, uint16(n))
}

// StripSOI returns data without its leading SOI marker.
func StripSOI(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != MarkerStart || data[1] != SOI {
		return nil, errors.New("jpegx: data does not start with SOI")
	}
	return data[2:], nil
}
