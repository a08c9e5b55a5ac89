package uhdrgen

import (
	"math"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/jpegx"
)

// AssembleOptions controls container assembly.
type AssembleOptions struct {
	// XMPPrecision is passed to BuildGainMapXMP, -1 for the shortest exact form.
	XMPPrecision int
}

// ContainerLayout is the byte plan of an UltraHDR container.
// Offsets are absolute unless noted otherwise.
type ContainerLayout struct {
	HeaderSize         int `json:"header_size"`          // SOI and container XMP segment
	MPFSegmentSize     int `json:"mpf_segment_size"`     // MPF APP2 segment, marker included
	PrimaryImageSize   int `json:"primary_image_size"`   // primary image as stored, MPF entry size
	SecondaryImageSize int `json:"secondary_image_size"` // gain map image as stored, MPF entry size and Item:Length
	TIFFHeaderOffset   int `json:"tiff_header_offset"`   // base of MPF offsets
	SecondaryOffset    int `json:"secondary_offset"`     // relative to TIFFHeaderOffset
	TotalSize          int `json:"total_size"`
}

// SecondaryStart is the absolute position of the gain map image SOI.
func (l ContainerLayout) SecondaryStart() int {
	return l.TIFFHeaderOffset + l.SecondaryOffset
}

// Container is an assembled UltraHDR JPEG.
type Container struct {
	Data   []byte
	Layout ContainerLayout
	Items  []ContainerItem
}

// containerPlan holds the materialized metadata payloads and the layout derived from their sizes.
type containerPlan struct {
	primaryBody  []byte // primary JPEG without SOI
	gainmapBody  []byte // gain map JPEG without SOI
	containerXMP []byte
	gainMapXMP   []byte
	layout       ContainerLayout
}

// planContainer resolves every length and offset before a byte is emitted.
//
// The dependencies are: gain map XMP -> secondary image size -> container XMP
// (declares it) -> header size -> primary image size -> secondary offset.
func planContainer(primaryJPEG, gainmapJPEG []byte, p GainMapParameters, precision int) (*containerPlan, error) {
	var (
		pl  containerPlan
		err error
	)

	if pl.primaryBody, err = jpegx.StripSOI(primaryJPEG); err != nil {
		return nil, errors.Wrapf(ErrEncodingFailure, "primary JPEG: %v", err)
	}
	if pl.gainmapBody, err = jpegx.StripSOI(gainmapJPEG); err != nil {
		return nil, errors.Wrapf(ErrEncodingFailure, "gain map JPEG: %v", err)
	}

	pl.gainMapXMP = BuildGainMapXMP(p, func(o *XMPOptions) { o.Precision = precision })

	l := &pl.layout
	l.SecondaryImageSize = 2 + jpegx.SegmentSize(len(pl.gainMapXMP)) + len(pl.gainmapBody)

	pl.containerXMP = BuildContainerXMP(l.SecondaryImageSize)
	l.HeaderSize = 2 + jpegx.SegmentSize(len(pl.containerXMP))
	l.MPFSegmentSize = mpfSegmentSize()
	l.PrimaryImageSize = l.HeaderSize + l.MPFSegmentSize + len(pl.primaryBody)
	l.TIFFHeaderOffset = l.HeaderSize + mpfTIFFHeaderOffset
	l.SecondaryOffset = l.PrimaryImageSize - l.HeaderSize - 8
	l.TotalSize = l.PrimaryImageSize + l.SecondaryImageSize

	if l.TotalSize > math.MaxUint32 {
		return nil, errors.Errorf("container of %d bytes exceeds MPF limits", l.TotalSize)
	}

	return &pl, nil
}

// AssembleContainer fuses a primary JPEG and a gain map JPEG into one UltraHDR container:
//
//	[SOI][APP1 container XMP][APP2 MPF][primary without SOI][SOI][APP1 gain map XMP][gain map without SOI]
//
// Both inputs must be complete JPEG streams, only their leading SOI is removed.
// The MPF size and offset fields are reserved while writing and back-filled from
// measured positions, which must match the plan.
func AssembleContainer(primaryJPEG, gainmapJPEG []byte, p GainMapParameters, opts ...func(o *AssembleOptions)) (*Container, error) {
	if len(primaryJPEG) == 0 || len(gainmapJPEG) == 0 {
		return nil, errors.Wrap(ErrMissingInput, "assemble")
	}

	o := AssembleOptions{XMPPrecision: -1}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}

	pl, err := planContainer(primaryJPEG, gainmapJPEG, p, o.XMPPrecision)
	if err != nil {
		return nil, err
	}
	plan := pl.layout

	w := jpegx.NewWriter(plan.TotalSize)

	// Primary image.
	jpegx.WriteSOI(w)
	if err := jpegx.WriteSegment(w, jpegx.APP1, pl.containerXMP); err != nil {
		return nil, errors.Wrap(err, "container xmp")
	}
	headerSize := w.Len()

	mpfSeg := jpegx.OpenSegment(w, jpegx.APP2)
	slots := writeMPFPayload(w)
	if err := mpfSeg.Close(); err != nil {
		return nil, errors.Wrap(err, "mpf")
	}
	tiffHeader := mpfSeg.PayloadStart() + len(mpfSig)
	mpfSegmentEnd := w.Len()

	w.WriteBytes(pl.primaryBody)
	primaryImageSize := w.Len()

	// Gain map image.
	secondaryStart := w.Len()
	jpegx.WriteSOI(w)
	if err := jpegx.WriteSegment(w, jpegx.APP1, pl.gainMapXMP); err != nil {
		return nil, errors.Wrap(err, "gain map xmp")
	}
	w.WriteBytes(pl.gainmapBody)

	measured := ContainerLayout{
		HeaderSize:         headerSize,
		MPFSegmentSize:     mpfSegmentEnd - headerSize,
		PrimaryImageSize:   primaryImageSize,
		SecondaryImageSize: w.Len() - secondaryStart,
		TIFFHeaderOffset:   tiffHeader,
		SecondaryOffset:    secondaryStart - tiffHeader,
		TotalSize:          w.Len(),
	}
	if measured != plan {
		return nil, errors.Wrapf(ErrLayoutMismatch, "planned %+v, measured %+v", plan, measured)
	}

	err = slots.backfill(w,
		uint32(measured.PrimaryImageSize),
		uint32(measured.SecondaryImageSize),
		uint32(measured.SecondaryOffset),
	)
	if err != nil {
		return nil, err
	}

	data, err := w.Bytes()
	if err != nil {
		return nil, err
	}

	return &Container{
		Data:   data,
		Layout: measured,
		Items: []ContainerItem{
			{Role: RolePrimary, Mime: mimeJPEG},
			{Role: RoleGainMap, Mime: mimeJPEG, Length: measured.SecondaryImageSize},
		},
	}, nil
}
