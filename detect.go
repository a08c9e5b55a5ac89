package uhdrgen

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

var (
	containerDirectoryTag = []byte("Container:Directory")
	gainMapVersionAttr    = []byte("hdrgm:Version=")
)

// ProbeResult lists the UltraHDR markers found in a stream.
type ProbeResult struct {
	ContainerXMP bool `json:"container_xmp"` // primary image declares a container directory
	MPF          bool `json:"mpf"`           // primary image has an MPF index
	Secondary    bool `json:"secondary"`     // a second JPEG image follows the primary
	GainMapXMP   bool `json:"gain_map_xmp"`  // second image carries an hdrgm descriptor
}

// UltraHDR reports whether the stream is a complete UltraHDR container.
func (p ProbeResult) UltraHDR() bool {
	return p.MPF && p.Secondary && p.GainMapXMP
}

// IsUltraHDR performs a streaming UltraHDR check without loading the full image.
func IsUltraHDR(r io.Reader) (bool, error) {
	res, err := Probe(r)
	if err != nil {
		return false, err
	}
	return res.UltraHDR(), nil
}

// Probe streams through the primary image header, skips its entropy-coded data
// and inspects the header of the following image.
func Probe(r io.Reader) (*ProbeResult, error) {
	br := bufio.NewReader(r)
	res := &ProbeResult{}

	found, err := findSOI(br)
	if err != nil || !found {
		return res, err
	}

	err = walkStreamHeader(br, func(marker byte, payload []byte) {
		switch {
		case marker == jpegx.APP1 && bytes.HasPrefix(payload, xmpPrefix):
			res.ContainerXMP = res.ContainerXMP || bytes.Contains(payload, containerDirectoryTag)
		case marker == jpegx.APP2 && bytes.HasPrefix(payload, mpfSig):
			res.MPF = true
		}
	})
	if err != nil {
		return res, err
	}
	if err := skipScanToEOI(br); err != nil {
		return res, noEOF(err)
	}

	if found, err = findSOI(br); err != nil || !found {
		return res, err
	}
	res.Secondary = true

	err = walkStreamHeader(br, func(marker byte, payload []byte) {
		if marker == jpegx.APP1 && bytes.HasPrefix(payload, xmpPrefix) && bytes.Contains(payload, gainMapVersionAttr) {
			res.GainMapXMP = true
		}
	})
	return res, err
}

// noEOF treats a stream that ends inside image data as a non-match.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

func findSOI(br *bufio.Reader) (bool, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return false, noEOF(err)
		}
		if prev == jpegx.MarkerStart && b == jpegx.SOI {
			return true, nil
		}
		prev = b
	}
}

// walkStreamHeader reads marker segments until SOS, passing APP payloads to fn.
// The SOS segment itself is consumed.
func walkStreamHeader(br *bufio.Reader, fn func(marker byte, payload []byte)) error {
	for {
		marker, err := readMarker(br)
		if err != nil {
			return noEOF(err)
		}
		switch {
		case marker == jpegx.EOI:
			return errors.New("image without scan data")
		case jpegx.IsRST(marker), marker == 0x01:
			continue
		case jpegx.IsAPP(marker):
			payload, err := readSegment(br)
			if err != nil {
				return noEOF(err)
			}
			fn(marker, payload)
		default:
			if err := discardSegment(br); err != nil {
				return noEOF(err)
			}
			if marker == jpegx.SOS {
				return nil
			}
		}
	}
}

func readMarker(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != jpegx.MarkerStart {
			continue
		}
		for {
			m, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			if m != jpegx.MarkerStart {
				return m, nil
			}
		}
	}
}

func segmentLength(br *bufio.Reader) (int, error) {
	hi, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	length := int(hi)<<8 | int(lo)
	if length < 2 {
		return 0, errors.New("invalid segment length")
	}
	return length - 2, nil
}

func readSegment(br *bufio.Reader) ([]byte, error) {
	n, err := segmentLength(br)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func discardSegment(br *bufio.Reader) error {
	n, err := segmentLength(br)
	if err != nil {
		return err
	}
	_, err = br.Discard(n)
	return err
}

// skipScanToEOI consumes entropy-coded data, including further progressive scans, up to EOI.
func skipScanToEOI(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b != jpegx.MarkerStart {
			continue
		}
		m, err := br.ReadByte()
		if err != nil {
			return err
		}
		for m == jpegx.MarkerStart {
			if m, err = br.ReadByte(); err != nil {
				return err
			}
		}
		switch {
		case m == 0x00, jpegx.IsRST(m):
			continue
		case m == jpegx.EOI:
			return nil
		}
	}
}
