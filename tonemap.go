package uhdrgen

import (
	"image"
	"image/color"

	"github.com/mdouchement/hdr/tmo"
	"github.com/pkg/errors"
)

// ToneMapper renders an HDR raster as a display-referred sRGB image.
type ToneMapper interface {
	ToneMap(src *LinearRaster) (image.Image, error)
}

// ClampToneMapper clips samples to SDR white and applies the sRGB transfer function.
type ClampToneMapper struct{}

// ToneMap implements ToneMapper.
func (ClampToneMapper) ToneMap(src *LinearRaster) (image.Image, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			r, g, b := src.At(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: toByte(srgbOetf(clamp01(float64(r)))),
				G: toByte(srgbOetf(clamp01(float64(g)))),
				B: toByte(srgbOetf(clamp01(float64(b)))),
				A: 0xFF,
			})
		}
	}
	return out, nil
}

// Operator names a global tone mapping operator of github.com/mdouchement/hdr/tmo.
type Operator string

// Supported operators.
const (
	OperatorLinear     Operator = "linear"
	OperatorReinhard05 Operator = "reinhard05"
	OperatorDrago03    Operator = "drago03"
)

// TMOToneMapper tone maps with a github.com/mdouchement/hdr/tmo operator.
type TMOToneMapper struct {
	Operator Operator
}

// ToneMap implements ToneMapper.
func (t TMOToneMapper) ToneMap(src *LinearRaster) (image.Image, error) {
	m, err := src.HDRImage()
	if err != nil {
		return nil, err
	}

	var op interface{ Perform() image.Image }
	switch t.Operator {
	case OperatorLinear, "":
		op = tmo.NewLinear(m)
	case OperatorReinhard05:
		op = tmo.NewDefaultReinhard05(m)
	case OperatorDrago03:
		op = tmo.NewDefaultDrago03(m)
	default:
		return nil, errors.Errorf("unknown tone mapping operator %q", t.Operator)
	}
	return op.Perform(), nil
}

// ToneMapperByName returns the tone mapper for a CLI name: clamp or an Operator.
func ToneMapperByName(name string) (ToneMapper, error) {
	switch Operator(name) {
	case "", "clamp":
		return ClampToneMapper{}, nil
	case OperatorLinear, OperatorReinhard05, OperatorDrago03:
		return TMOToneMapper{Operator: Operator(name)}, nil
	default:
		return nil, errors.Errorf("unknown tone mapper %q", name)
	}
}
