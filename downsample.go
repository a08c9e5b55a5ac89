package uhdrgen

import (
	"github.com/nfnt/resize"
)

// Filter selects how the full resolution gain map is reduced.
type Filter int

// Gain map reduction filters. FilterNearest is exact decimation, the others
// are resampling kernels of github.com/nfnt/resize.
const (
	FilterNearest Filter = iota
	FilterBilinear
	FilterBicubic
	FilterMitchellNetravali
	FilterLanczos2
	FilterLanczos3
)

// String implements fmt.Stringer.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterBicubic:
		return "bicubic"
	case FilterMitchellNetravali:
		return "mitchell"
	case FilterLanczos2:
		return "lanczos2"
	case FilterLanczos3:
		return "lanczos3"
	default:
		return "unknown"
	}
}

// ParseFilter maps a filter name back to its value.
func ParseFilter(name string) (Filter, bool) {
	for f := FilterNearest; f <= FilterLanczos3; f++ {
		if f.String() == name {
			return f, true
		}
	}
	return FilterNearest, false
}

func (f Filter) interpolation() resize.InterpolationFunction {
	switch f {
	case FilterBilinear:
		return resize.Bilinear
	case FilterBicubic:
		return resize.Bicubic
	case FilterMitchellNetravali:
		return resize.MitchellNetravali
	case FilterLanczos2:
		return resize.Lanczos2
	case FilterLanczos3:
		return resize.Lanczos3
	default:
		return resize.NearestNeighbor
	}
}

// reducedSize divides a dimension by scale, keeping non-empty rasters non-empty.
func reducedSize(v, scale int) int {
	if v <= 0 {
		return 0
	}
	if scale <= 1 {
		return v
	}
	if n := v / scale; n > 0 {
		return n
	}
	return 1
}

// downsample reduces src by scale in each dimension.
func downsample(src *ByteRaster, scale int, filter Filter) *ByteRaster {
	w, h := reducedSize(src.Width, scale), reducedSize(src.Height, scale)
	if w == 0 || h == 0 {
		return NewByteRaster(w, h, src.Channels)
	}
	if w == src.Width && h == src.Height {
		return src
	}
	if filter == FilterNearest {
		return decimate(src, w, h)
	}

	out := ByteRasterFromImage(resize.Resize(uint(w), uint(h), src.Image(), filter.interpolation()))
	if src.Channels == 1 {
		return keepFirstChannel(out)
	}
	return out
}

// decimate picks src pixel floor(dst*srcDim/dstDim) for every destination pixel.
func decimate(src *ByteRaster, w, h int) *ByteRaster {
	out := NewByteRaster(w, h, src.Channels)
	c := src.Channels
	for y := 0; y < h; y++ {
		sy := y * src.Height / h
		for x := 0; x < w; x++ {
			sx := x * src.Width / w
			copy(out.Pix[(y*w+x)*c:(y*w+x+1)*c], src.Pix[(sy*src.Width+sx)*c:])
		}
	}
	return out
}

func keepFirstChannel(src *ByteRaster) *ByteRaster {
	out := NewByteRaster(src.Width, src.Height, 1)
	for i := range out.Pix {
		out.Pix[i] = src.Pix[i*src.Channels]
	}
	return out
}
