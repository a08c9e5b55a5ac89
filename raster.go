package uhdrgen

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

type rgb struct {
	r, g, b float64
}

// SamplerOptions controls how raw samples are normalized.
type SamplerOptions struct {
	// HalfFloat rounds HDR samples to IEEE half precision before use, the precision
	// the samples have when loaded as half-float textures.
	HalfFloat bool
}

// Sampler reads HDR and SDR rasters of identical size in lock-step.
// It is a read-only view over caller-owned buffers.
type Sampler struct {
	hdr  *LinearRaster
	sdr  *ByteRaster
	half bool
}

// NewSampler validates both rasters and returns a pixel accessor.
func NewSampler(hdr *LinearRaster, sdr *ByteRaster, opts ...func(o *SamplerOptions)) (*Sampler, error) {
	if hdr == nil || sdr == nil {
		return nil, errors.Wrap(ErrMissingInput, "sampler")
	}
	if hdr.Width != sdr.Width || hdr.Height != sdr.Height {
		return nil, errors.Wrapf(ErrDimensionMismatch, "HDR %dx%d vs SDR %dx%d",
			hdr.Width, hdr.Height, sdr.Width, sdr.Height)
	}
	if err := hdr.validate(); err != nil {
		return nil, err
	}
	if err := sdr.validate(); err != nil {
		return nil, err
	}
	if sdr.Channels < 3 {
		return nil, errors.New("sampler: SDR raster must have color channels")
	}

	var o SamplerOptions
	for _, applyOpt := range opts {
		applyOpt(&o)
	}

	return &Sampler{hdr: hdr, sdr: sdr, half: o.HalfFloat}, nil
}

// Width returns the raster width.
func (s *Sampler) Width() int { return s.hdr.Width }

// Height returns the raster height.
func (s *Sampler) Height() int { return s.hdr.Height }

// At returns normalized HDR and SDR color triples of a pixel.
func (s *Sampler) At(x, y int) (hdr, sdr rgb) {
	i := (y*s.hdr.Width + x) * s.hdr.Channels
	hr, hg, hb := nonNegative(s.hdr.Pix[i]), nonNegative(s.hdr.Pix[i+1]), nonNegative(s.hdr.Pix[i+2])
	if s.half {
		hr = float16.Fromfloat32(hr).Float32()
		hg = float16.Fromfloat32(hg).Float32()
		hb = float16.Fromfloat32(hb).Float32()
	}

	j := (y*s.sdr.Width + x) * s.sdr.Channels
	return rgb{r: float64(hr), g: float64(hg), b: float64(hb)},
		rgb{
			r: float64(s.sdr.Pix[j]) / 255,
			g: float64(s.sdr.Pix[j+1]) / 255,
			b: float64(s.sdr.Pix[j+2]) / 255,
		}
}

// nonNegative maps negative and NaN samples to 0.
func nonNegative(v float32) float32 {
	if v > 0 {
		return v
	}
	return 0
}

// PeakSample returns the largest color sample of the raster.
func PeakSample(hdr *LinearRaster) float64 {
	if hdr == nil {
		return 0
	}
	peak := float32(0)
	for i := 0; i+2 < len(hdr.Pix) && i < hdr.Width*hdr.Height*hdr.Channels; i += hdr.Channels {
		peak = max(peak, hdr.Pix[i], hdr.Pix[i+1], hdr.Pix[i+2])
	}
	return float64(peak)
}

// ContentBoost converts a linear peak sample into the maximum content boost.
// The peak is sRGB encoded, expressed in 16-bit quantum units and taken relative to 2^15,
// which puts SDR white at a boost of about 2.
func ContentBoost(peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return srgbOetf(peak) * quantumRange / quantumHalf
}
