package uhdrgen

const (
	defaultOffsetSDR = 1.0 / 64.0
	defaultOffsetHDR = 1.0 / 64.0
	defaultGamma     = 1.0

	// minBoostFloor keeps log2(maxContentBoost) away from zero when the content has no boost.
	minBoostFloor = 1.0001
)

const (
	defaultGainMapScale   = 4
	defaultQuality        = 90
	defaultGainMapQuality = 90
)

const (
	// quantumRange and quantumHalf express the peak HDR sample the way a 16-bit HDRI
	// image tool reports it, the content boost is that value relative to 2^15.
	quantumRange = 65535.0
	quantumHalf  = 1 << 15
)

const (
	gainMapVersion = "1.0"
	mimeJPEG       = "image/jpeg"
)
