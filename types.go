package uhdrgen

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// LinearRaster stores linear-light HDR samples, row-major and channel-interleaved.
// Values are relative to SDR white (1.0 = SDR white).
type LinearRaster struct {
	Width    int
	Height   int
	Channels int // 3 (RGB) or 4 (RGBA, alpha ignored)
	Pix      []float32
}

// NewLinearRaster allocates a zeroed RGB raster.
func NewLinearRaster(w, h int) *LinearRaster {
	return &LinearRaster{Width: w, Height: h, Channels: 3, Pix: make([]float32, w*h*3)}
}

// At returns the color samples of a pixel.
func (r *LinearRaster) At(x, y int) (float32, float32, float32) {
	i := (y*r.Width + x) * r.Channels
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set stores the color samples of a pixel.
func (r *LinearRaster) Set(x, y int, cr, cg, cb float32) {
	i := (y*r.Width + x) * r.Channels
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = cr, cg, cb
}

func (r *LinearRaster) validate() error {
	if r.Channels != 3 && r.Channels != 4 {
		return errors.Errorf("linear raster: unsupported channel count %d", r.Channels)
	}
	if len(r.Pix) < r.Width*r.Height*r.Channels {
		return errors.Errorf("linear raster: %d samples for %dx%dx%d", len(r.Pix), r.Width, r.Height, r.Channels)
	}
	return nil
}

// ByteRaster stores 8-bit samples: SDR renditions and gain maps.
type ByteRaster struct {
	Width    int
	Height   int
	Channels int // 1, 3 or 4
	Pix      []uint8
}

// NewByteRaster allocates a zeroed raster.
func NewByteRaster(w, h, channels int) *ByteRaster {
	return &ByteRaster{Width: w, Height: h, Channels: channels, Pix: make([]uint8, w*h*channels)}
}

// Empty reports whether the raster has no pixels.
func (r *ByteRaster) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r *ByteRaster) validate() error {
	if r.Channels != 1 && r.Channels != 3 && r.Channels != 4 {
		return errors.Errorf("byte raster: unsupported channel count %d", r.Channels)
	}
	if len(r.Pix) < r.Width*r.Height*r.Channels {
		return errors.Errorf("byte raster: %d samples for %dx%dx%d", len(r.Pix), r.Width, r.Height, r.Channels)
	}
	return nil
}

// Image exposes the raster as *image.Gray or *image.RGBA for JPEG encoders.
func (r *ByteRaster) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	if r.Channels == 1 {
		out := image.NewGray(rect)
		copy(out.Pix, r.Pix)
		return out
	}
	out := image.NewRGBA(rect)
	for i, j := 0, 0; i < r.Width*r.Height; i++ {
		out.Pix[j] = r.Pix[i*r.Channels]
		out.Pix[j+1] = r.Pix[i*r.Channels+1]
		out.Pix[j+2] = r.Pix[i*r.Channels+2]
		out.Pix[j+3] = 0xFF
		j += 4
	}
	return out
}

// ByteRasterFromImage converts any image to a 3-channel raster.
func ByteRasterFromImage(img image.Image) *ByteRaster {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	out := NewByteRaster(b.Dx(), b.Dy(), 3)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := rgba.RGBAAt(x, y)
			i := (y*out.Width + x) * 3
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
		}
	}
	return out
}

// GainMapParameters describes how gain map values were encoded.
// The same value is used by the gain map engine and written into the XMP descriptor.
type GainMapParameters struct {
	MinLog2Gain    float64 `json:"gain_map_min"`
	MaxLog2Gain    float64 `json:"gain_map_max"`
	Gamma          float64 `json:"gamma"`
	OffsetSDR      float64 `json:"offset_sdr"`
	OffsetHDR      float64 `json:"offset_hdr"`
	HDRCapacityMin float64 `json:"hdr_capacity_min"`
	HDRCapacityMax float64 `json:"hdr_capacity_max"`
	BaseIsHDR      bool    `json:"base_is_hdr"`
}

// NewGainMapParameters derives parameters from the maximum content boost of an HDR image.
// Boost values below 1.0001 are floored so the log range never collapses.
func NewGainMapParameters(maxContentBoost float64) GainMapParameters {
	minLog2 := log2(1.0)
	maxLog2 := log2(max(maxContentBoost, minBoostFloor))
	return GainMapParameters{
		MinLog2Gain:    minLog2,
		MaxLog2Gain:    maxLog2,
		Gamma:          defaultGamma,
		OffsetSDR:      defaultOffsetSDR,
		OffsetHDR:      defaultOffsetHDR,
		HDRCapacityMin: minLog2,
		HDRCapacityMax: maxLog2,
		BaseIsHDR:      false,
	}
}

// MaxContentBoost returns the linear boost at gain map value 255.
func (p GainMapParameters) MaxContentBoost() float64 {
	return exp2(p.MaxLog2Gain)
}

// Role identifies an image inside the container directory.
type Role string

// Container directory roles.
const (
	RolePrimary Role = "Primary"
	RoleGainMap Role = "GainMap"
)

// ContainerItem describes one embedded JPEG in the container directory.
// Length is zero for the primary item, its size is implied by the layout.
type ContainerItem struct {
	Role   Role   `json:"semantic"`
	Mime   string `json:"mime"`
	Length int    `json:"length,omitempty"`
}
