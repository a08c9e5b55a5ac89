package uhdrgen

import (
	"bytes"
	"image/jpeg"

	"github.com/pkg/errors"
)

const reportFormat = "uhdrgen-report-1"

// ImageInfo describes one JPEG image of a container.
type ImageInfo struct {
	Size   int `json:"size"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Report summarizes an UltraHDR container. It is JSON friendly.
type Report struct {
	Format  string            `json:"format"`
	Size    int               `json:"size"`
	Probe   ProbeResult       `json:"probe"`
	Primary ImageInfo         `json:"primary"`
	Gainmap ImageInfo         `json:"gainmap"`
	Params  GainMapParameters `json:"params"`
	Boost   float64           `json:"max_content_boost"`
	Items   []ContainerItem   `json:"items,omitempty"`
	MPF     *MPFIndex         `json:"mpf,omitempty"`
}

// BuildReport inspects an UltraHDR container.
func BuildReport(data []byte) (*Report, error) {
	probe, err := Probe(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	parts, err := Split(data)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Format: reportFormat,
		Size:   len(data),
		Probe:  *probe,
		Params: parts.Params,
		Boost:  parts.Params.MaxContentBoost(),
		Items:  parts.Items,
		MPF:    parts.MPF,
	}
	if r.Primary, err = imageInfo(parts.PrimaryJPEG); err != nil {
		return nil, errors.Wrap(err, "primary image")
	}
	if r.Gainmap, err = imageInfo(parts.GainmapJPEG); err != nil {
		return nil, errors.Wrap(err, "gain map image")
	}
	return r, nil
}

func imageInfo(jpegData []byte) (ImageInfo, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(jpegData))
	if err != nil {
		return ImageInfo{}, err
	}
	return ImageInfo{Size: len(jpegData), Width: cfg.Width, Height: cfg.Height}, nil
}

// Validate checks that the declared lengths agree with the stored images.
func (r *Report) Validate() error {
	if r == nil {
		return errors.New("report is nil")
	}
	if r.Format != reportFormat {
		return errors.Errorf("unsupported report format %q", r.Format)
	}
	if !r.Probe.UltraHDR() {
		return errors.New("not an UltraHDR container")
	}
	for _, item := range r.Items {
		if item.Role == RoleGainMap && item.Length != r.Gainmap.Size {
			return errors.Errorf("Item:Length %d, gain map image has %d bytes", item.Length, r.Gainmap.Size)
		}
	}
	if r.MPF != nil {
		primary, secondary, err := r.MPF.images()
		if err != nil {
			return err
		}
		if int(primary.Size) != r.Primary.Size {
			return errors.Errorf("MPF primary size %d, image has %d bytes", primary.Size, r.Primary.Size)
		}
		if int(secondary.Size) != r.Gainmap.Size {
			return errors.Errorf("MPF secondary size %d, image has %d bytes", secondary.Size, r.Gainmap.Size)
		}
	}
	return nil
}
