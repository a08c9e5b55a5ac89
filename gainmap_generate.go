package uhdrgen

import (
	"runtime"
	"sync"
)

// GainMapOptions controls gain map computation.
type GainMapOptions struct {
	Scale     int    // downscale factor per dimension (default 4)
	Filter    Filter // reduction filter (default exact nearest-neighbor decimation)
	Workers   int    // row workers (default GOMAXPROCS)
	HalfFloat bool   // round HDR samples to half precision
}

// ComputeGainMap derives an 8-bit RGB gain map from paired HDR and SDR rasters.
//
// For every pixel and channel the gain (hdr+offsetHDR)/(sdr+offsetSDR) is log2
// encoded, normalized to the [minLog2, maxLog2] range of the parameters derived
// from maxContentBoost, clamped and stored as round(recovery*255). The full
// resolution map is then reduced by Scale.
//
// The returned parameters are the ones used for encoding and must be written
// to the gain map metadata unchanged.
func ComputeGainMap(hdr *LinearRaster, sdr *ByteRaster, maxContentBoost float64, opts ...func(o *GainMapOptions)) (*ByteRaster, GainMapParameters, error) {
	o := GainMapOptions{
		Scale:   defaultGainMapScale,
		Workers: runtime.GOMAXPROCS(0),
	}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}

	params := NewGainMapParameters(maxContentBoost)

	s, err := NewSampler(hdr, sdr, func(so *SamplerOptions) {
		so.HalfFloat = o.HalfFloat
	})
	if err != nil {
		return nil, params, err
	}

	full := NewByteRaster(s.Width(), s.Height(), 3)
	if full.Empty() {
		return NewByteRaster(0, 0, 3), params, nil
	}

	forEachRowRange(s.Height(), o.Workers, func(y0, y1 int) {
		encodeRows(s, full, &params, y0, y1)
	})

	return downsample(full, o.Scale, o.Filter), params, nil
}

func encodeRows(s *Sampler, dst *ByteRaster, p *GainMapParameters, y0, y1 int) {
	for y := y0; y < y1; y++ {
		row := dst.Pix[y*dst.Width*3 : (y+1)*dst.Width*3]
		for x := 0; x < dst.Width; x++ {
			h, sd := s.At(x, y)
			row[x*3] = encodeGain(h.r, sd.r, p)
			row[x*3+1] = encodeGain(h.g, sd.g, p)
			row[x*3+2] = encodeGain(h.b, sd.b, p)
		}
	}
}

// forEachRowRange splits [0, height) into contiguous ranges, one per worker.
// Workers only touch their own rows, so no synchronization beyond the final wait is needed.
func forEachRowRange(height, workers int, fn func(y0, y1 int)) {
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		fn(0, height)
		return
	}

	chunk := (height + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += chunk {
		y1 := min(y0+chunk, height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(y0, y1)
		}()
	}
	wg.Wait()
}
