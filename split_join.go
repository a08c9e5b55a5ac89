package uhdrgen

import "github.com/pkg/errors"

// SplitResult holds the parts of an UltraHDR container.
type SplitResult struct {
	PrimaryJPEG []byte
	GainmapJPEG []byte
	Params      GainMapParameters
	Items       []ContainerItem // container directory of the primary image, nil if absent
	MPF         *MPFIndex       // nil when images were located by marker scan
}

// Split extracts the primary and gain map JPEG images and the gain map parameters
// from an UltraHDR container.
func Split(data []byte) (*SplitResult, error) {
	ranges, err := scanJPEGs(data)
	if err != nil {
		return nil, err
	}
	if len(ranges) < 2 {
		return nil, errors.New("gain map image not found")
	}

	res := &SplitResult{
		PrimaryJPEG: append([]byte(nil), data[ranges[0].start:ranges[0].end]...),
		GainmapJPEG: append([]byte(nil), data[ranges[1].start:ranges[1].end]...),
	}
	if idx, _, ok := findMPF(data, 0); ok {
		res.MPF = idx
	}

	primarySegs, err := headerSegments(res.PrimaryJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "primary image")
	}
	if xmp := findXMP(primarySegs, containerDirectoryTag); xmp != nil {
		if res.Items, err = parseContainerItems(xmp); err != nil {
			return nil, err
		}
	}

	gainmapSegs, err := headerSegments(res.GainmapJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "gain map image")
	}
	xmp := findXMP(gainmapSegs, gainMapVersionAttr)
	if xmp == nil {
		return nil, errors.New("no gain map metadata found")
	}
	p, err := parseGainMapXMP(xmp)
	if err != nil {
		return nil, err
	}
	res.Params = *p

	return res, nil
}

// Join assembles an UltraHDR container from the primary and gain map JPEG images.
// XMP and MPF segments left in the inputs by Split are replaced, other segments are kept.
func Join(primaryJPEG, gainmapJPEG []byte, p GainMapParameters, opts ...func(o *AssembleOptions)) ([]byte, error) {
	primary, err := dropSegments(primaryJPEG, isUltraHDRSegment)
	if err != nil {
		return nil, errors.Wrap(err, "primary image")
	}
	gainmap, err := dropSegments(gainmapJPEG, isUltraHDRSegment)
	if err != nil {
		return nil, errors.Wrap(err, "gain map image")
	}
	c, err := AssembleContainer(primary, gainmap, p, opts...)
	if err != nil {
		return nil, err
	}
	return c.Data, nil
}
