package uhdrgen

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// testRadiance encodes a gradient with a highlight above SDR white as Radiance RGBE.
func testRadiance(t testing.TB, w, h int) []byte {
	t.Helper()

	m := hdr.NewRGB(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 4 * float64(x) / float64(w-1)
			m.SetRGB(x, y, hdrcolor.RGB{R: v, G: v * 0.5, B: 0.25 + float64(y)/float64(h)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, rgbe.Encode(&buf, m))

	return buf.Bytes()
}

func TestDecodeHDR_radiance(t *testing.T) {
	r, err := DecodeHDR(testRadiance(t, 16, 8))
	require.NoError(t, err)

	assert.Equal(t, 16, r.Width)
	assert.Equal(t, 8, r.Height)

	cr, cg, _ := r.At(15, 0)
	assert.InDelta(t, 4, cr, 0.05)
	assert.InDelta(t, 2, cg, 0.05)
	assert.InDelta(t, 4, PeakSample(r), 0.05)
}

func TestDecodeHDR_tiff16(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA64(x, y, color.RGBA64{R: 0xFFFF, G: 0x8000, B: 0, A: 0xFFFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))

	r, err := DecodeHDR(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, r.Width)

	cr, cg, cb := r.At(2, 2)
	assert.InDelta(t, 1, cr, 1e-3)
	assert.InDelta(t, 0.5, cg, 1e-3)
	assert.InDelta(t, 0, cb, 1e-3)
}

func TestDecodeHDR_errors(t *testing.T) {
	_, err := DecodeHDR(nil)
	assert.True(t, errors.Is(err, ErrMissingInput))

	_, err = DecodeHDR([]byte("P6\n1 1\n255\n"))
	assert.EqualError(t, err, "unsupported HDR format")

	_, err = DecodeHDR([]byte{0x76, 0x2F, 0x31, 0x01, 0, 0})
	assert.Error(t, err)

	_, err = DecodeHDR([]byte("#?RADIANCE\ngarbage"))
	assert.Error(t, err)
}

func TestDecodeHDRFile(t *testing.T) {
	dir := t.TempDir()

	p := filepath.Join(dir, "in.hdr")
	require.NoError(t, os.WriteFile(p, testRadiance(t, 8, 8), 0o600))

	r, err := DecodeHDRFile(p)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Width)

	_, err = DecodeHDRFile(filepath.Join(dir, "missing.hdr"))
	assert.True(t, errors.Is(err, ErrMissingInput))

	_, err = DecodeHDRFile(filepath.Join(dir, "missing.exr"))
	assert.Error(t, err)
}

func TestLinearRaster_HDRImage(t *testing.T) {
	src := NewLinearRaster(3, 2)
	src.Set(2, 1, 1.5, 0.25, 7)

	m, err := src.HDRImage()
	require.NoError(t, err)

	back := LinearRasterFromHDR(m)
	assert.Equal(t, src, back)
}
