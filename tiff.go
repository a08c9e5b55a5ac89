package uhdrgen

import (
	"bytes"

	"github.com/mdouchement/hdr"
	mtiff "github.com/mdouchement/tiff"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// decodeTIFF decodes float TIFFs (RGB32, LogLuv, LogL) as radiance and
// 8/16-bit integer TIFFs as full range relative to SDR white.
func decodeTIFF(data []byte) (*LinearRaster, error) {
	img, err := mtiff.Decode(bytes.NewReader(data))
	if err == nil {
		if m, ok := img.(hdr.Image); ok {
			return LinearRasterFromHDR(m), nil
		}
		return linearRasterFromImage(img), nil
	}

	img, stdErr := tiff.Decode(bytes.NewReader(data))
	if stdErr != nil {
		return nil, errors.Wrapf(stdErr, "decode TIFF (hdr decoder: %v)", err)
	}
	return linearRasterFromImage(img), nil
}
