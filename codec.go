package uhdrgen

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	"github.com/gen2brain/jpegli"
	"github.com/pkg/errors"
)

// JPEGEncoder compresses an 8-bit image into a baseline-compatible JPEG stream.
type JPEGEncoder interface {
	EncodeJPEG(w io.Writer, img image.Image, quality int) error
}

// JpegliEncoder encodes with jpegli, the default encoder.
// Zero Subsampling means 4:2:0.
type JpegliEncoder struct {
	Subsampling image.YCbCrSubsampleRatio
}

// EncodeJPEG implements JPEGEncoder.
func (e JpegliEncoder) EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	ratio := e.Subsampling
	if ratio == 0 {
		ratio = image.YCbCrSubsampleRatio420
	}
	return jpegli.Encode(w, img, &jpegli.EncodingOptions{
		Quality:           quality,
		ChromaSubsampling: ratio,
	})
}

// StdEncoder encodes with image/jpeg, always 4:2:0.
type StdEncoder struct{}

// EncodeJPEG implements JPEGEncoder.
func (StdEncoder) EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// encodeJPEG runs enc and maps failures to ErrEncodingFailure.
func encodeJPEG(enc JPEGEncoder, img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.EncodeJPEG(&buf, img, quality); err != nil {
		return nil, errors.Wrapf(ErrEncodingFailure, "%v", err)
	}
	if buf.Len() < 4 {
		return nil, errors.Wrap(ErrEncodingFailure, "encoder produced no data")
	}
	return buf.Bytes(), nil
}

// DecodeSDR decodes an sRGB JPEG into a linear-light 8-bit raster, the SDR
// reference gain maps are computed against.
func DecodeSDR(jpegData []byte) (*ByteRaster, error) {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, errors.Wrap(err, "decode SDR JPEG")
	}

	out := ByteRasterFromImage(img)

	var lut [256]uint8
	for i := range lut {
		lut[i] = toByte(srgbInvOetf(float64(i) / 255))
	}
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out, nil
}
