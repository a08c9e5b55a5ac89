package uhdrgen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

// testJPEG encodes a w x h image of a single color with image/jpeg.
func testJPEG(t testing.TB, w, h int, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: c.R + uint8(x), G: c.G + uint8(y), B: c.B, A: 0xFF})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))

	return buf.Bytes()
}

func testContainer(t testing.TB, opts ...func(o *AssembleOptions)) (*Container, []byte, []byte) {
	t.Helper()

	primary := testJPEG(t, 64, 48, color.RGBA{R: 30, G: 90, B: 150})
	gainmap := testJPEG(t, 16, 12, color.RGBA{R: 10, G: 20, B: 30})

	c, err := AssembleContainer(primary, gainmap, NewGainMapParameters(3.2), opts...)
	require.NoError(t, err)

	return c, primary, gainmap
}

func TestSplitJoinRoundTrip(t *testing.T) {
	c, primary, gainmap := testContainer(t)

	split, err := Split(c.Data)
	require.NoError(t, err)

	assert.Equal(t, c.Data[:c.Layout.PrimaryImageSize], split.PrimaryJPEG)
	assert.Equal(t, c.Data[c.Layout.SecondaryStart():], split.GainmapJPEG)
	assert.Equal(t, primary[2:], split.PrimaryJPEG[c.Layout.HeaderSize+c.Layout.MPFSegmentSize:])
	assert.True(t, bytes.HasSuffix(split.GainmapJPEG, gainmap[2:]))
	assert.Equal(t, NewGainMapParameters(3.2), split.Params)
	assert.Equal(t, c.Items, split.Items)
	require.NotNil(t, split.MPF)
	assert.Len(t, split.MPF.Entries, 2)

	joined, err := Join(split.PrimaryJPEG, split.GainmapJPEG, split.Params)
	require.NoError(t, err)
	assert.Equal(t, c.Data, joined)

	seq, err := markerSequence(joined)
	require.NoError(t, err)
	assert.Regexp(t, `^APP1:XMP;APP2:MPF;(DQT;)+SOF0;(DHT;)+SOS;EOI;$`, seq)

	seq, err = markerSequence(split.GainmapJPEG)
	require.NoError(t, err)
	assert.Regexp(t, `^APP1:XMP;(DQT;)+SOF0;`, seq)
}

func TestJoin_keepsPhotoXMP(t *testing.T) {
	photoXMP := append(append([]byte(nil), xmpPrefix...),
		`<x:xmpmeta xmlns:x="adobe:ns:meta/"><dc:title>Dunes</dc:title></x:xmpmeta>`...)

	plain := testJPEG(t, 32, 24, color.RGBA{R: 120, G: 80, B: 40})
	w := jpegx.NewWriter(len(plain) + len(photoXMP) + 4)
	jpegx.WriteSOI(w)
	require.NoError(t, jpegx.WriteSegment(w, jpegx.APP1, photoXMP))
	w.WriteBytes(plain[2:])
	primary, err := w.Bytes()
	require.NoError(t, err)

	gainmap := testJPEG(t, 8, 6, color.RGBA{G: 60})
	p := NewGainMapParameters(2.5)

	joined, err := Join(primary, gainmap, p)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(joined, []byte("<dc:title>Dunes</dc:title>")))

	seq, err := markerSequence(joined)
	require.NoError(t, err)
	assert.Regexp(t, `^APP1:XMP;APP2:MPF;APP1:XMP;`, seq)

	split, err := Split(joined)
	require.NoError(t, err)
	assert.Equal(t, p, split.Params)
	require.Len(t, split.Items, 2)

	rejoined, err := Join(split.PrimaryJPEG, split.GainmapJPEG, split.Params)
	require.NoError(t, err)
	assert.Equal(t, joined, rejoined)

	stripped, err := dropSegments(split.PrimaryJPEG, isUltraHDRSegment)
	require.NoError(t, err)
	assert.Equal(t, primary, stripped)
}

func TestSplit_withoutMPF(t *testing.T) {
	c, _, _ := testContainer(t)

	data := append([]byte(nil), c.Data...)
	mpfStart, _, err := findMpfPayload(data)
	require.NoError(t, err)
	data[mpfStart] = 'X'

	split, err := Split(data)
	require.NoError(t, err)
	assert.Nil(t, split.MPF)
	assert.Len(t, split.PrimaryJPEG, c.Layout.PrimaryImageSize)
	assert.Len(t, split.GainmapJPEG, c.Layout.SecondaryImageSize)
	assert.Equal(t, NewGainMapParameters(3.2), split.Params)
}

func TestSplit_errors(t *testing.T) {
	_, err := Split([]byte("not a jpeg"))
	assert.Error(t, err)

	_, err = Split(testJPEG(t, 8, 8, color.RGBA{}))
	assert.Error(t, err, "single image")

	two := append(testJPEG(t, 8, 8, color.RGBA{}), testJPEG(t, 4, 4, color.RGBA{})...)
	_, err = Split(two)
	assert.Error(t, err, "no gain map metadata")
}

func TestJoin_invalidInput(t *testing.T) {
	_, err := Join([]byte{1, 2, 3, 4}, testJPEG(t, 4, 4, color.RGBA{}), NewGainMapParameters(2))
	assert.Error(t, err)
}

func TestDropSegments(t *testing.T) {
	c, primary, _ := testContainer(t)

	stripped, err := dropSegments(c.Data[:c.Layout.PrimaryImageSize], isUltraHDRSegment)
	require.NoError(t, err)
	assert.Equal(t, primary, stripped)

	same, err := dropSegments(primary, isUltraHDRSegment)
	require.NoError(t, err)
	assert.Equal(t, primary, same)
}

func markerSequence(data []byte) (string, error) {
	if len(data) < 2 || data[0] != jpegx.MarkerStart || data[1] != jpegx.SOI {
		return "", errors.New("jpeg missing SOI")
	}
	i := 2
	var out []byte
	for i < len(data) {
		if data[i] != jpegx.MarkerStart {
			return "", errors.New("jpeg marker expected")
		}
		for i < len(data) && data[i] == jpegx.MarkerStart {
			i++
		}
		if i >= len(data) {
			break
		}
		marker := data[i]
		i++
		if marker == jpegx.EOI {
			out = append(out, "EOI;"...)
			break
		}
		if marker == jpegx.SOS {
			// Entropy-coded data has every 0xFF stuffed, the first FF D9 ends the image.
			if bytes.Index(data[i:], []byte{jpegx.MarkerStart, jpegx.EOI}) < 0 {
				return "", errors.New("jpeg missing EOI")
			}
			out = append(out, "SOS;EOI;"...)
			break
		}
		if jpegx.IsRST(marker) {
			out = append(out, "RST;"...)
			continue
		}
		if i+2 > len(data) {
			return "", errors.New("jpeg truncated segment")
		}
		ln := int(binary.BigEndian.Uint16(data[i : i+2]))
		if ln < 2 || i+ln > len(data) {
			return "", errors.New("jpeg invalid segment length")
		}
		out = append(out, markerLabel(marker, data[i+2:i+ln])...)
		out = append(out, ';')
		i += ln
	}
	return string(out), nil
}

func markerLabel(marker byte, payload []byte) string {
	switch marker {
	case jpegx.APP1:
		if bytes.HasPrefix(payload, xmpPrefix) {
			return "APP1:XMP"
		}
		return "APP1"
	case jpegx.APP2:
		if bytes.HasPrefix(payload, mpfSig) {
			return "APP2:MPF"
		}
		return "APP2"
	case 0xDB:
		return "DQT"
	case 0xC4:
		return "DHT"
	case 0xC0:
		return "SOF0"
	default:
		return "M"
	}
}

// findMpfPayload returns the absolute payload offset and the payload of the first MPF segment.
func findMpfPayload(data []byte) (int, []byte, error) {
	segs, err := headerSegments(data)
	if err != nil {
		return 0, nil, err
	}
	seg, ok := findMPFPayload(segs)
	if !ok {
		return 0, nil, errors.New("mpf segment not found")
	}
	return seg.offset + 4, data[seg.offset+4 : seg.end], nil
}
