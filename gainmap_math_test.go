package uhdrgen

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelGain_positive(t *testing.T) {
	p := NewGainMapParameters(4)
	for _, pair := range [][2]float64{{0, 0}, {0, 1}, {1, 0}, {65504, 0}} {
		g := pixelGain(pair[0], pair[1], &p)
		assert.Greater(t, g, 0.0)
		assert.False(t, math.IsNaN(logRecovery(g, &p)))
		assert.False(t, math.IsInf(logRecovery(g, &p), 0))
	}
	assert.Equal(t, 1.0, pixelGain(0, 0, &p))
}

func TestLogRecovery_bounds(t *testing.T) {
	p := NewGainMapParameters(4)
	assert.Equal(t, 0.0, logRecovery(1, &p))
	assert.Equal(t, 1.0, logRecovery(4, &p))
	assert.Equal(t, 0.5, logRecovery(2, &p))
	assert.Less(t, logRecovery(0.5, &p), 0.0, "unclamped")

	for _, boost := range []float64{1, 0.2} {
		p := NewGainMapParameters(boost)
		r := logRecovery(2, &p)
		assert.False(t, math.IsInf(r, 0))
		assert.False(t, math.IsNaN(r))
	}
}

func TestEncodeDecodeGain(t *testing.T) {
	p := NewGainMapParameters(8)
	assert.Equal(t, uint8(0), encodeGain(0.1, 0.5, &p), "darker HDR clamps to no boost")
	assert.Equal(t, uint8(255), encodeGain(100, 0, &p))

	for v := 0; v < 256; v++ {
		g := decodeGain(uint8(v), &p)
		sdr := 0.25
		hdr := applyGain(sdr, g, &p)
		require.Equal(t, uint8(v), encodeGain(hdr, sdr, &p), "value %d", v)
	}

	p.Gamma = 2.2
	for _, v := range []uint8{0, 17, 128, 255} {
		g := decodeGain(v, &p)
		assert.Equal(t, v, encodeGain(applyGain(0.5, g, &p), 0.5, &p))
	}
}

func TestApplyGainMap(t *testing.T) {
	const boost = 4.0
	hdr, sdr := gradientRasters(32, 24)
	for i := range hdr.Pix {
		hdr.Pix[i] = min(hdr.Pix[i], 2)
	}
	for i := range sdr.Pix {
		sdr.Pix[i] = max(sdr.Pix[i], 64)
	}

	gm, p, err := ComputeGainMap(hdr, sdr, boost, func(o *GainMapOptions) { o.Scale = 1 })
	require.NoError(t, err)

	rec, err := ApplyGainMap(sdr, gm, p)
	require.NoError(t, err)
	require.Equal(t, hdr.Width, rec.Width)
	require.Equal(t, hdr.Height, rec.Height)

	for i, v := range hdr.Pix {
		s := float64(sdr.Pix[i]) / 255
		want := float64(v)
		// Outside the encodable range the gain is clamped.
		want = min(max(want, s), boost*(s+p.OffsetSDR)-p.OffsetHDR)
		// One quantization step is a factor of 2^(2/255).
		assert.InEpsilon(t, want+p.OffsetHDR, float64(rec.Pix[i])+p.OffsetHDR, 0.006, "sample %d", i)
	}
}

func TestApplyGainMap_errors(t *testing.T) {
	p := NewGainMapParameters(2)

	_, err := ApplyGainMap(nil, NewByteRaster(1, 1, 1), p)
	assert.True(t, errors.Is(err, ErrMissingInput))

	_, err = ApplyGainMap(NewByteRaster(4, 4, 3), NewByteRaster(0, 0, 3), p)
	assert.Error(t, err)

	out, err := ApplyGainMap(NewByteRaster(0, 0, 3), NewByteRaster(0, 0, 3), p)
	require.NoError(t, err)
	assert.Empty(t, out.Pix)
}

func TestApplyGainMap_grayUpsample(t *testing.T) {
	p := NewGainMapParameters(4)
	gm := NewByteRaster(2, 1, 1)
	gm.Pix[1] = 255

	sdr := NewByteRaster(4, 1, 3)
	for i := range sdr.Pix {
		sdr.Pix[i] = 255
	}

	rec, err := ApplyGainMap(sdr, gm, p)
	require.NoError(t, err)

	r, g, b := rec.At(1, 0)
	assert.InDelta(t, 1.0, r, 1e-6)
	assert.Equal(t, r, g)
	assert.Equal(t, r, b)

	r, _, _ = rec.At(2, 0)
	assert.InDelta(t, 4*(1+p.OffsetSDR)-p.OffsetHDR, r, 1e-5)
}

func TestEncodeGain_NaN(t *testing.T) {
	p := NewGainMapParameters(4)
	assert.Equal(t, uint8(0), encodeGain(-0.5, 0.5, &p))
	assert.Equal(t, 0.0, clamp01(math.NaN()))
	assert.Equal(t, 1.0, clamp01(math.Inf(1)))
}
