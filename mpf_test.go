package uhdrgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

func TestEncodeMPF(t *testing.T) {
	payload, err := encodeMPF(0x01020304, 0x0A0B0C0D, 0x11223344)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		'M', 'P', 'F', 0,
		0x49, 0x49, 0x2A, 0x00, // II*\0
		0x08, 0x00, 0x00, 0x00, // IFD offset
		0x03, 0x00, // tag count
		0x00, 0xB0, 0x07, 0x00, 0x04, 0x00, 0x00, 0x00, '0', '1', '0', '0',
		0x01, 0xB0, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
		0x02, 0xB0, 0x07, 0x00, 0x20, 0x00, 0x00, 0x00, 0x32, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // next IFD
		0x00, 0x00, 0x03, 0x00, 0x04, 0x03, 0x02, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x0D, 0x0C, 0x0B, 0x0A, 0x44, 0x33, 0x22, 0x11, 0x00, 0x00, 0x00, 0x00,
	}, payload)
	assert.Len(t, payload, mpfPayloadSize())
	assert.Equal(t, 90, mpfSegmentSize())
}

func TestParseMPF_roundTrip(t *testing.T) {
	payload, err := encodeMPF(5000, 1200, 4900)
	require.NoError(t, err)

	idx, err := parseMPF(payload)
	require.NoError(t, err)
	assert.False(t, idx.BigEndian)
	assert.Equal(t, "0100", idx.Version)
	assert.Equal(t, []MPFEntry{
		{Attribute: mpfAttrTypePrimary, Size: 5000},
		{Attribute: mpfAttrFormatJpeg, Size: 1200, Offset: 4900},
	}, idx.Entries)

	primary, secondary, err := idx.images()
	require.NoError(t, err)
	assert.True(t, primary.Primary())
	assert.False(t, secondary.Primary())
	assert.Equal(t, uint32(4900), secondary.Offset)
}

func TestParseMPF_bigEndian(t *testing.T) {
	w := jpegx.NewWriter(0)
	w.WriteBytes(mpfSig)
	w.WriteBytes([]byte{0x4D, 0x4D, 0x00, 0x2A})
	w.WriteU32BE(8)
	w.WriteU16BE(1)
	w.WriteU16BE(mpfEntryTag)
	w.WriteU16BE(mpfTypeUndefined)
	w.WriteU32BE(2 * mpfEntrySize)
	w.WriteU32BE(8 + 2 + 12 + 4)
	w.WriteU32BE(0)
	for _, e := range [][3]uint32{{mpfAttrTypePrimary, 300, 0}, {0, 100, 280}} {
		w.WriteU32BE(e[0])
		w.WriteU32BE(e[1])
		w.WriteU32BE(e[2])
		w.WriteU32BE(0)
	}
	payload, err := w.Bytes()
	require.NoError(t, err)

	idx, err := parseMPF(payload)
	require.NoError(t, err)
	assert.True(t, idx.BigEndian)
	primary, secondary, err := idx.images()
	require.NoError(t, err)
	assert.Equal(t, uint32(300), primary.Size)
	assert.Equal(t, uint32(100), secondary.Size)
	assert.Equal(t, uint32(280), secondary.Offset)
}

func TestParseMPF_errors(t *testing.T) {
	valid, err := encodeMPF(1, 2, 3)
	require.NoError(t, err)

	_, err = parseMPF([]byte("MPF"))
	assert.Error(t, err)

	bad := append([]byte(nil), valid...)
	bad[4] = 'X'
	_, err = parseMPF(bad)
	assert.Error(t, err, "byte order")

	bad = append([]byte(nil), valid...)
	bad[6] = 0x2B
	_, err = parseMPF(bad)
	assert.Error(t, err, "magic")

	_, err = parseMPF(valid[:40])
	assert.Error(t, err, "truncated")

	idx, err := parseMPF(mustEncodeMPF(t, 0, 2, 3))
	require.NoError(t, err)
	_, _, err = idx.images()
	assert.Error(t, err, "zero primary size")
}

func mustEncodeMPF(t *testing.T, primarySize, secondarySize, secondaryOffset uint32) []byte {
	t.Helper()

	payload, err := encodeMPF(primarySize, secondarySize, secondaryOffset)
	require.NoError(t, err)

	return payload
}
