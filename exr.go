package uhdrgen

import (
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/pkg/errors"
)

// decodeEXRFile reads the RGBA layer of an OpenEXR file. Luminance-only files
// are expanded to gray by the RGBA interface.
func decodeEXRFile(path string) (*LinearRaster, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open OpenEXR")
	}
	if f.Header(0) == nil {
		return nil, errors.New("OpenEXR file has no header")
	}

	rgba, err := exr.NewRGBAInputFile(f)
	if err != nil {
		return nil, errors.Wrap(err, "OpenEXR RGBA input")
	}
	img, err := rgba.ReadRGBA()
	if err != nil {
		return nil, errors.Wrap(err, "read OpenEXR pixels")
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("invalid OpenEXR dimensions %dx%d", w, h)
	}
	out := NewLinearRaster(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.RGBA(x, y)
			out.Set(x, y, float32(r), float32(g), float32(b))
		}
	}
	return out, nil
}
