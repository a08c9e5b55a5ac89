package jpegx

// JPEG marker codes, the byte following the 0xFF prefix.
const (
	MarkerStart = 0xFF
	SOI         = 0xD8 // Start Of Image.
	EOI         = 0xD9 // End Of Image.
	SOS         = 0xDA // Start Of Scan.
	APP0        = 0xE0
	APP1        = 0xE1 // XMP, EXIF.
	APP2        = 0xE2 // MPF, ICC.
	APP15       = 0xEF
	COM         = 0xFE
	RST0        = 0xD0
	RST7        = 0xD7
)

// MaxSegmentPayload is the largest payload a length-prefixed marker segment can carry.
const MaxSegmentPayload = 0xFFFF - 2

// IsRST reports whether m is one of the restart markers, which carry no length.
func IsRST(m byte) bool {
	return m >= RST0 && m <= RST7
}

// IsAPP reports whether m is an application segment marker.
func IsAPP(m byte) bool {
	return m >= APP0 && m <= APP15
}
