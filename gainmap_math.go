package uhdrgen

import (
	"math"

	"github.com/pkg/errors"
)

// pixelGain is the ratio of offset HDR to offset SDR sample. With non-negative
// samples and positive offsets it is always strictly positive.
func pixelGain(hdr, sdr float64, p *GainMapParameters) float64 {
	return (hdr + p.OffsetHDR) / (sdr + p.OffsetSDR)
}

// logRecovery normalizes log2(gain) into the parameter range, unclamped.
func logRecovery(gain float64, p *GainMapParameters) float64 {
	return (log2(gain) - p.MinLog2Gain) / (p.MaxLog2Gain - p.MinLog2Gain)
}

func encodeGain(hdr, sdr float64, p *GainMapParameters) uint8 {
	rec := clamp01(logRecovery(pixelGain(hdr, sdr, p), p))
	if p.Gamma != 1 {
		rec = math.Pow(rec, p.Gamma)
	}
	return uint8(math.Round(rec * 255))
}

// decodeGain returns the linear gain factor stored as v.
func decodeGain(v uint8, p *GainMapParameters) float64 {
	rec := float64(v) / 255
	if p.Gamma != 1 {
		rec = math.Pow(rec, 1/p.Gamma)
	}
	return exp2(p.MinLog2Gain*(1-rec) + p.MaxLog2Gain*rec)
}

func applyGain(sdr float64, gainFactor float64, p *GainMapParameters) float64 {
	return (sdr+p.OffsetSDR)*gainFactor - p.OffsetHDR
}

// ApplyGainMap reconstructs linear HDR samples from an SDR raster (linear, 8-bit) and a gain map.
// The gain map is upsampled with nearest neighbor to the SDR size.
func ApplyGainMap(sdr, gainmap *ByteRaster, p GainMapParameters) (*LinearRaster, error) {
	if sdr == nil || gainmap == nil {
		return nil, errors.Wrap(ErrMissingInput, "apply gain map")
	}
	if err := sdr.validate(); err != nil {
		return nil, err
	}
	if err := gainmap.validate(); err != nil {
		return nil, err
	}
	if sdr.Channels < 3 {
		return nil, errors.New("apply gain map: SDR raster must have color channels")
	}
	out := NewLinearRaster(sdr.Width, sdr.Height)
	if sdr.Empty() {
		return out, nil
	}
	if gainmap.Empty() {
		return nil, errors.New("apply gain map: empty gain map")
	}

	var lut [256]float64
	for i := range lut {
		lut[i] = decodeGain(uint8(i), &p)
	}

	for y := 0; y < sdr.Height; y++ {
		gy := y * gainmap.Height / sdr.Height
		for x := 0; x < sdr.Width; x++ {
			gx := x * gainmap.Width / sdr.Width
			gi := (gy*gainmap.Width + gx) * gainmap.Channels
			si := (y*sdr.Width + x) * sdr.Channels

			var gr, gg, gb float64
			if gainmap.Channels == 1 {
				gr = lut[gainmap.Pix[gi]]
				gg, gb = gr, gr
			} else {
				gr, gg, gb = lut[gainmap.Pix[gi]], lut[gainmap.Pix[gi+1]], lut[gainmap.Pix[gi+2]]
			}

			out.Set(x, y,
				float32(applyGain(float64(sdr.Pix[si])/255, gr, &p)),
				float32(applyGain(float64(sdr.Pix[si+1])/255, gg, &p)),
				float32(applyGain(float64(sdr.Pix[si+2])/255, gb, &p)),
			)
		}
	}
	return out, nil
}
