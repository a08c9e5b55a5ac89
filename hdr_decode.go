package uhdrgen

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/pkg/errors"
)

var (
	rgbeMagic   = []byte("#?")
	tiffMagicLE = []byte{'I', 'I', 0x2A, 0}
	tiffMagicBE = []byte{'M', 'M', 0, 0x2A}
	exrMagic    = []byte{0x76, 0x2F, 0x31, 0x01}
)

// DecodeHDR decodes a Radiance RGBE or TIFF image into a linear raster.
// OpenEXR input is read from disk, use DecodeHDRFile.
func DecodeHDR(data []byte) (*LinearRaster, error) {
	var (
		r   *LinearRaster
		err error
	)
	switch {
	case bytes.HasPrefix(data, rgbeMagic):
		r, err = decodeRGBE(data)
	case bytes.HasPrefix(data, tiffMagicLE), bytes.HasPrefix(data, tiffMagicBE):
		r, err = decodeTIFF(data)
	case bytes.HasPrefix(data, exrMagic):
		return nil, errors.New("OpenEXR data must be decoded from a file")
	case len(data) == 0:
		return nil, errors.Wrap(ErrMissingInput, "empty HDR data")
	default:
		return nil, errors.New("unsupported HDR format")
	}
	if err != nil {
		return nil, err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, errors.Errorf("invalid HDR dimensions %dx%d", r.Width, r.Height)
	}
	return r, nil
}

// DecodeHDRFile decodes an HDR image file: Radiance .hdr, TIFF or OpenEXR.
func DecodeHDRFile(path string) (*LinearRaster, error) {
	if strings.EqualFold(filepath.Ext(path), ".exr") {
		return decodeEXRFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrMissingInput, err.Error())
	}
	if bytes.HasPrefix(data, exrMagic) {
		return decodeEXRFile(path)
	}
	return DecodeHDR(data)
}

func decodeRGBE(data []byte) (*LinearRaster, error) {
	img, err := rgbe.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode Radiance RGBE")
	}
	m, ok := img.(hdr.Image)
	if !ok {
		return nil, errors.Errorf("unexpected RGBE image type %T", img)
	}
	return LinearRasterFromHDR(m), nil
}

// linearRasterFromImage converts an integer image, scaling full range to SDR white.
func linearRasterFromImage(img image.Image) *LinearRaster {
	b := img.Bounds()
	out := NewLinearRaster(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(x, y, float32(r)/65535.0, float32(g)/65535.0, float32(bl)/65535.0)
		}
	}
	return out
}

// HDRImage converts the raster into an hdr.Image.
func (r *LinearRaster) HDRImage() (hdr.Image, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	m := hdr.NewRGB(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			cr, cg, cb := r.At(x, y)
			m.SetRGB(x, y, hdrcolor.RGB{R: float64(cr), G: float64(cg), B: float64(cb)})
		}
	}
	return m, nil
}

// LinearRasterFromHDR copies an hdr.Image into a linear raster.
func LinearRasterFromHDR(m hdr.Image) *LinearRaster {
	b := m.Bounds()
	out := NewLinearRaster(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			cr, cg, cb, _ := m.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			out.Set(x, y, float32(cr), float32(cg), float32(cb))
		}
	}
	return out
}
