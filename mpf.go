package uhdrgen

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

const (
	mpfNumPictures = 2
	mpfEndianSize  = 4
	mpfTagCount    = 3
	mpfTagSize     = 12

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag          = 0xB000
	mpfVersionCount        = 4
	mpfNumberOfImagesTag   = 0xB001
	mpfNumberOfImagesCount = 1
	mpfEntryTag            = 0xB002
	mpfEntrySize           = 16

	mpfAttrFormatJpeg  = 0x0000000
	mpfAttrTypePrimary = 0x030000

	// mpfEntryOffset is the position of the first MP entry relative to the TIFF header.
	mpfEntryOffset = mpfEndianSize + 4 + 2 + mpfTagCount*mpfTagSize + 4

	// mpfTIFFHeaderOffset is the distance from the APP2 marker to the TIFF header:
	// marker, length and signature.
	mpfTIFFHeaderOffset = 2 + 2 + 4
)

var (
	mpfSig          = []byte{'M', 'P', 'F', 0}
	mpfLittleEndian = []byte{0x49, 0x49, 0x2A, 0x00}
	mpfVersion      = []byte{'0', '1', '0', '0'}
)

// MPFEntry is one 16-byte record of the MP entry array.
type MPFEntry struct {
	Attribute  uint32 `json:"attribute"`
	Size       uint32 `json:"size"`
	Offset     uint32 `json:"offset"`
	Dependent1 uint16 `json:"dependent1,omitempty"`
	Dependent2 uint16 `json:"dependent2,omitempty"`
}

// Primary reports whether the entry is flagged as the primary image.
func (e MPFEntry) Primary() bool {
	return e.Attribute&mpfAttrTypePrimary != 0
}

// MPFIndex is a decoded MPF APP2 payload.
type MPFIndex struct {
	BigEndian bool       `json:"big_endian"`
	Version   string     `json:"version"`
	Entries   []MPFEntry `json:"entries"`
}

// mpfPayloadSize is the byte size of the MPF APP2 payload.
func mpfPayloadSize() int {
	return len(mpfSig) + mpfEndianSize + 4 + 2 + mpfTagCount*mpfTagSize + 4 + mpfNumPictures*mpfEntrySize
}

// mpfSegmentSize is the byte size of the whole MPF APP2 segment, marker included.
func mpfSegmentSize() int {
	return jpegx.SegmentSize(mpfPayloadSize())
}

// mpfSlots are the fields of an MPF payload that depend on the final layout.
type mpfSlots struct {
	primarySize     jpegx.Slot
	secondarySize   jpegx.Slot
	secondaryOffset jpegx.Slot
}

func (s mpfSlots) backfill(w *jpegx.Writer, primarySize, secondarySize, secondaryOffset uint32) error {
	if err := w.BackfillU32LE(s.primarySize, primarySize); err != nil {
		return errors.Wrap(err, "mpf primary size")
	}
	if err := w.BackfillU32LE(s.secondarySize, secondarySize); err != nil {
		return errors.Wrap(err, "mpf secondary size")
	}
	if err := w.BackfillU32LE(s.secondaryOffset, secondaryOffset); err != nil {
		return errors.Wrap(err, "mpf secondary offset")
	}
	return nil
}

// writeMPFPayload writes a little-endian MPF index for two images and reserves
// the size and offset fields.
func writeMPFPayload(w *jpegx.Writer) mpfSlots {
	var s mpfSlots

	w.WriteBytes(mpfSig)
	w.WriteBytes(mpfLittleEndian)
	w.WriteU32LE(mpfEndianSize + 4) // first IFD right after the TIFF header

	w.WriteU16LE(mpfTagCount)

	// Version tag
	w.WriteU16LE(mpfVersionTag)
	w.WriteU16LE(mpfTypeUndefined)
	w.WriteU32LE(mpfVersionCount)
	w.WriteBytes(mpfVersion)

	// Number of images
	w.WriteU16LE(mpfNumberOfImagesTag)
	w.WriteU16LE(mpfTypeLong)
	w.WriteU32LE(mpfNumberOfImagesCount)
	w.WriteU32LE(mpfNumPictures)

	// MP entries
	w.WriteU16LE(mpfEntryTag)
	w.WriteU16LE(mpfTypeUndefined)
	w.WriteU32LE(mpfEntrySize * mpfNumPictures)
	w.WriteU32LE(mpfEntryOffset)

	// Next IFD offset (none)
	w.WriteU32LE(0)

	// Primary entry, offset is zero by definition.
	w.WriteU32LE(mpfAttrFormatJpeg | mpfAttrTypePrimary)
	s.primarySize = w.ReserveU32()
	w.WriteU32LE(0)
	w.WriteU16LE(0)
	w.WriteU16LE(0)

	// Secondary entry
	w.WriteU32LE(mpfAttrFormatJpeg)
	s.secondarySize = w.ReserveU32()
	s.secondaryOffset = w.ReserveU32()
	w.WriteU16LE(0)
	w.WriteU16LE(0)

	return s
}

// encodeMPF renders a complete MPF APP2 payload with known fields.
// secondaryOffset is relative to the TIFF header of the payload.
func encodeMPF(primarySize, secondarySize, secondaryOffset uint32) ([]byte, error) {
	w := jpegx.NewWriter(mpfPayloadSize())
	s := writeMPFPayload(w)
	if err := s.backfill(w, primarySize, secondarySize, secondaryOffset); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// parseMPF decodes an MPF APP2 payload in either byte order.
func parseMPF(payload []byte) (*MPFIndex, error) {
	if len(payload) < len(mpfSig)+8 || !bytes.HasPrefix(payload, mpfSig) {
		return nil, errors.New("mpf signature missing")
	}
	tiff := payload[len(mpfSig):]

	idx := &MPFIndex{}
	var order binary.ByteOrder
	switch {
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		order = binary.BigEndian
		idx.BigEndian = true
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		order = binary.LittleEndian
	default:
		return nil, errors.New("mpf endian invalid")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return nil, errors.New("mpf tiff magic invalid")
	}

	ifdPos := int(order.Uint32(tiff[4:8]))
	if ifdPos < 0 || ifdPos+2 > len(tiff) {
		return nil, errors.New("mpf ifd offset invalid")
	}
	tagCount := int(order.Uint16(tiff[ifdPos : ifdPos+2]))
	ifdPos += 2

	entryOffset, entryCount := -1, 0
	for i := 0; i < tagCount; i++ {
		if ifdPos+mpfTagSize > len(tiff) {
			return nil, errors.New("mpf ifd truncated")
		}
		tag := order.Uint16(tiff[ifdPos : ifdPos+2])
		typ := order.Uint16(tiff[ifdPos+2 : ifdPos+4])
		count := order.Uint32(tiff[ifdPos+4 : ifdPos+8])
		value := tiff[ifdPos+8 : ifdPos+12]

		switch {
		case tag == mpfVersionTag && count == mpfVersionCount:
			idx.Version = string(value)
		case tag == mpfEntryTag && typ == mpfTypeUndefined && count >= mpfEntrySize:
			entryOffset = int(order.Uint32(value))
			entryCount = int(count) / mpfEntrySize
		}
		ifdPos += mpfTagSize
	}
	if entryOffset < 0 || entryOffset+mpfEntrySize*entryCount > len(tiff) {
		return nil, errors.New("mpf entry offset invalid")
	}

	for i := 0; i < entryCount; i++ {
		e := tiff[entryOffset+i*mpfEntrySize:]
		idx.Entries = append(idx.Entries, MPFEntry{
			Attribute:  order.Uint32(e[0:4]),
			Size:       order.Uint32(e[4:8]),
			Offset:     order.Uint32(e[8:12]),
			Dependent1: order.Uint16(e[12:14]),
			Dependent2: order.Uint16(e[14:16]),
		})
	}
	return idx, nil
}

// images returns the primary and the first secondary entry.
func (idx *MPFIndex) images() (primary, secondary MPFEntry, err error) {
	var hasPrimary, hasSecondary bool
	for _, e := range idx.Entries {
		switch {
		case e.Primary() && !hasPrimary:
			primary, hasPrimary = e, true
		case !e.Primary() && !hasSecondary:
			secondary, hasSecondary = e, true
		}
	}
	if !hasPrimary || !hasSecondary || primary.Size == 0 || secondary.Size == 0 {
		return primary, secondary, errors.New("mpf sizes missing")
	}
	return primary, secondary, nil
}
