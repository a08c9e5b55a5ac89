package uhdrgen

import "math"

func log2(v float64) float64 { return math.Log2(v) }
func exp2(v float64) float64 { return math.Exp2(v) }

func srgbInvOetf(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func srgbOetf(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1.0/2.4) - 0.055
}

// clamp01 limits v to [0,1], NaN becomes 0.
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// toByte maps [0,1] to [0,255] with rounding.
func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
