package uhdrgen

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

// jpegRange is a [start, end) byte range of one JPEG image inside a larger stream.
type jpegRange struct {
	start int
	end   int
}

func (r jpegRange) size() int { return r.end - r.start }

// appSegment is a marker segment located in a JPEG header.
type appSegment struct {
	marker  byte
	offset  int // absolute offset of the 0xFF marker byte
	end     int // absolute offset right after the payload
	payload []byte
}

func hasSOI(data []byte, pos int) bool {
	return pos >= 0 && pos+1 < len(data) && data[pos] == jpegx.MarkerStart && data[pos+1] == jpegx.SOI
}

// walkHeaderSegments visits marker segments of the JPEG starting at start until
// SOS or EOI. Visiting stops early when fn returns false.
func walkHeaderSegments(data []byte, start int, fn func(seg appSegment) bool) error {
	if !hasSOI(data, start) {
		return errors.New("not a JPEG SOI")
	}
	pos := start + 2
	for pos+3 < len(data) {
		if data[pos] != jpegx.MarkerStart {
			pos++
			continue
		}
		markerPos := pos
		for pos < len(data) && data[pos] == jpegx.MarkerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == jpegx.SOS || marker == jpegx.EOI {
			return nil
		}
		if jpegx.IsRST(marker) || marker == 0x01 {
			continue
		}
		if pos+1 >= len(data) {
			return errors.New("truncated marker")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return errors.Errorf("invalid segment length %d at %d", segLen, markerPos)
		}
		if !fn(appSegment{marker: marker, offset: markerPos, end: pos + segLen, payload: data[pos+2 : pos+segLen]}) {
			return nil
		}
		pos += segLen
	}
	return nil
}

// headerSegments returns copies of the APP segments preceding the first scan.
func headerSegments(jpegData []byte) ([]appSegment, error) {
	var segs []appSegment
	err := walkHeaderSegments(jpegData, 0, func(seg appSegment) bool {
		if jpegx.IsAPP(seg.marker) {
			seg.payload = append([]byte(nil), seg.payload...)
			segs = append(segs, seg)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return segs, nil
}

var gainMapXMPMarker = []byte("hdrgm:")

// isUltraHDRSegment matches the segments AssembleContainer writes: the MPF index and
// XMP packets carrying a gain map descriptor or a container directory.
func isUltraHDRSegment(seg appSegment) bool {
	switch {
	case seg.marker == jpegx.APP1 && bytes.HasPrefix(seg.payload, xmpPrefix):
		return bytes.Contains(seg.payload, gainMapXMPMarker) || bytes.Contains(seg.payload, containerDirectoryTag)
	case seg.marker == jpegx.APP2:
		return bytes.HasPrefix(seg.payload, mpfSig)
	}
	return false
}

// dropSegments returns a copy of jpegData without the header segments matched by drop.
func dropSegments(jpegData []byte, drop func(seg appSegment) bool) ([]byte, error) {
	out := make([]byte, 0, len(jpegData))
	last := 0
	err := walkHeaderSegments(jpegData, 0, func(seg appSegment) bool {
		if drop(seg) {
			out = append(out, jpegData[last:seg.offset]...)
			last = seg.end
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return append(out, jpegData[last:]...), nil
}

// findXMP returns the first XMP payload containing marker.
func findXMP(segs []appSegment, marker []byte) []byte {
	for _, seg := range segs {
		if seg.marker == jpegx.APP1 && bytes.HasPrefix(seg.payload, xmpPrefix) && bytes.Contains(seg.payload, marker) {
			return seg.payload
		}
	}
	return nil
}

func findMPFPayload(segs []appSegment) (appSegment, bool) {
	for _, seg := range segs {
		if seg.marker == jpegx.APP2 && bytes.HasPrefix(seg.payload, mpfSig) {
			return seg, true
		}
	}
	return appSegment{}, false
}

// findMPF locates and decodes the MPF index of the JPEG starting at start.
// tiffHeader is the absolute offset MPF offsets are relative to.
func findMPF(data []byte, start int) (idx *MPFIndex, tiffHeader int, ok bool) {
	var mpf appSegment
	found := false
	err := walkHeaderSegments(data, start, func(seg appSegment) bool {
		if seg.marker == jpegx.APP2 && bytes.HasPrefix(seg.payload, mpfSig) {
			mpf, found = seg, true
			return false
		}
		return true
	})
	if err != nil || !found {
		return nil, 0, false
	}
	idx, err = parseMPF(mpf.payload)
	if err != nil {
		return nil, 0, false
	}
	return idx, mpf.offset + mpfTIFFHeaderOffset, true
}

// scanJPEGs finds the images of a multi-picture stream, trusting the MPF index
// when it is consistent and falling back to an SOI/EOI walk.
func scanJPEGs(data []byte) ([]jpegRange, error) {
	if ranges, ok := scanJPEGsByMPF(data); ok {
		return ranges, nil
	}
	var ranges []jpegRange
	i := 0
	for i+1 < len(data) {
		if hasSOI(data, i) {
			end, err := findJPEGEnd(data, i)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, jpegRange{start: i, end: end})
			i = end
			continue
		}
		i++
	}
	if len(ranges) == 0 {
		return nil, errors.New("no JPEG images found")
	}
	return ranges, nil
}

func scanJPEGsByMPF(data []byte) ([]jpegRange, bool) {
	idx, tiffHeader, ok := findMPF(data, 0)
	if !ok {
		return nil, false
	}
	primary, secondary, err := idx.images()
	if err != nil {
		return nil, false
	}
	p := jpegRange{start: 0, end: int(primary.Size)}
	s := jpegRange{start: tiffHeader + int(secondary.Offset)}
	s.end = s.start + int(secondary.Size)
	if p.end > len(data) || s.end > len(data) || !hasSOI(data, s.start) {
		return nil, false
	}
	return []jpegRange{p, s}, true
}

// findJPEGEnd returns the offset right after the EOI of the JPEG starting at start.
func findJPEGEnd(data []byte, start int) (int, error) {
	if !hasSOI(data, start) {
		return 0, errors.New("not a JPEG SOI")
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if !inScan {
			if data[pos] != jpegx.MarkerStart {
				pos++
				continue
			}
			for pos < len(data) && data[pos] == jpegx.MarkerStart {
				pos++
			}
			if pos >= len(data) {
				break
			}
			marker := data[pos]
			pos++
			switch {
			case marker == jpegx.SOI, jpegx.IsRST(marker), marker == 0x01:
				continue
			case marker == jpegx.EOI:
				return pos, nil
			}
			if pos+1 >= len(data) {
				return 0, errors.New("truncated marker segment")
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, errors.New("invalid marker length")
			}
			pos += segLen
			inScan = marker == jpegx.SOS
			continue
		}

		// Entropy-coded data: only stuffed bytes and restart markers may appear.
		if data[pos] == jpegx.MarkerStart {
			next := data[pos+1]
			switch {
			case next == 0x00, jpegx.IsRST(next):
				pos += 2
				continue
			case next == jpegx.EOI:
				return pos + 2, nil
			default:
				// Next scan header of a progressive image.
				inScan = false
				continue
			}
		}
		pos++
	}
	return 0, errors.New("no EOI found")
}
