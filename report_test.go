package uhdrgen

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	c, _, _ := testContainer(t)

	r, err := BuildReport(c.Data)
	require.NoError(t, err)
	require.NoError(t, r.Validate())

	assert.Equal(t, len(c.Data), r.Size)
	assert.Equal(t, ImageInfo{Size: c.Layout.PrimaryImageSize, Width: 64, Height: 48}, r.Primary)
	assert.Equal(t, ImageInfo{Size: c.Layout.SecondaryImageSize, Width: 16, Height: 12}, r.Gainmap)
	assert.InDelta(t, 3.2, r.Boost, 1e-9)
	assert.True(t, r.Probe.UltraHDR())

	j, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(j), `"format":"uhdrgen-report-1"`)
	assert.Contains(t, string(j), `"semantic":"GainMap"`)
}

func TestReport_Validate(t *testing.T) {
	c, _, _ := testContainer(t)

	r, err := BuildReport(c.Data)
	require.NoError(t, err)
	r.Items[1].Length++
	assert.EqualError(t, r.Validate(),
		"Item:Length "+strconv.Itoa(c.Layout.SecondaryImageSize+1)+", gain map image has "+strconv.Itoa(c.Layout.SecondaryImageSize)+" bytes")

	r, err = BuildReport(c.Data)
	require.NoError(t, err)
	r.MPF.Entries[0].Size--
	assert.Error(t, r.Validate())

	r, err = BuildReport(c.Data)
	require.NoError(t, err)
	r.Format = "other"
	assert.Error(t, r.Validate())

	var nilReport *Report
	assert.Error(t, nilReport.Validate())
}

func TestBuildReport_plainJPEG(t *testing.T) {
	_, primary, _ := testContainer(t)

	_, err := BuildReport(primary)
	assert.Error(t, err)
}
