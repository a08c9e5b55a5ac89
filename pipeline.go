package uhdrgen

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// EncodeOptions configures Encode.
type EncodeOptions struct {
	Quality         int     // primary JPEG quality (default 90)
	GainMapQuality  int     // gain map JPEG quality (default 90)
	MaxContentBoost float64 // 0 derives the boost from the HDR peak with ContentBoost
	GainMapScale    int     // default 4
	GainMapFilter   Filter
	Workers         int  // gain map row workers, 0 for GOMAXPROCS
	HalfFloat       bool // default true
	XMPPrecision    int  // default -1
	ToneMapper      ToneMapper
	Encoder         JPEGEncoder
	Logger          *log.Logger // nil disables logging

	// PrimaryOut and GainmapOut, when set, receive the component JPEGs in EncodeFile.
	PrimaryOut string
	GainmapOut string
}

// DefaultEncodeOptions returns options reproducing the reference conversion.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Quality:        defaultQuality,
		GainMapQuality: defaultGainMapQuality,
		GainMapScale:   defaultGainMapScale,
		HalfFloat:      true,
		XMPPrecision:   -1,
		ToneMapper:     ClampToneMapper{},
		Encoder:        JpegliEncoder{},
	}
}

func (o *EncodeOptions) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Result is the outcome of Encode.
type Result struct {
	Container     []byte
	Primary       []byte // primary JPEG as encoded, before assembly
	Gainmap       []byte // gain map JPEG as encoded, before assembly
	GainmapRaster *ByteRaster
	Params        GainMapParameters
	Layout        ContainerLayout
}

// Encode converts a linear HDR raster into an UltraHDR JPEG.
//
// The raster is tone mapped and encoded as the primary image, which is then
// decoded back so the gain map is computed against the SDR pixels viewers will
// actually see. Failures are reported as *StageError.
func Encode(src *LinearRaster, opts ...func(o *EncodeOptions)) (*Result, error) {
	o := resolveEncodeOptions(opts)
	return encode(src, &o)
}

func resolveEncodeOptions(opts []func(o *EncodeOptions)) EncodeOptions {
	o := DefaultEncodeOptions()
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	if o.ToneMapper == nil {
		o.ToneMapper = ClampToneMapper{}
	}
	if o.Encoder == nil {
		o.Encoder = JpegliEncoder{}
	}
	return o
}

func encode(src *LinearRaster, o *EncodeOptions) (*Result, error) {
	if src == nil {
		return nil, stageErr(StageDecode, errors.Wrap(ErrMissingInput, "HDR raster"))
	}
	if err := src.validate(); err != nil {
		return nil, stageErr(StageDecode, err)
	}
	if src.Width <= 0 || src.Height <= 0 {
		return nil, stageErr(StageDecode, errors.Errorf("empty HDR raster %dx%d", src.Width, src.Height))
	}

	var (
		res   Result
		err   error
		start = time.Now()
	)

	sdrImage, err := o.ToneMapper.ToneMap(src)
	if err != nil {
		return nil, stageErr(StageToneMap, err)
	}
	o.logf("tone mapped %dx%d in %s", src.Width, src.Height, time.Since(start))

	if res.Primary, err = encodeJPEG(o.Encoder, sdrImage, o.Quality); err != nil {
		return nil, stageErr(StageEncode, errors.Wrap(err, "primary"))
	}
	o.logf("primary JPEG: %d bytes", len(res.Primary))

	sdr, err := DecodeSDR(res.Primary)
	if err != nil {
		return nil, stageErr(StageEncode, errors.Wrap(ErrEncodingFailure, err.Error()))
	}

	boost := o.MaxContentBoost
	if boost <= 0 {
		boost = ContentBoost(PeakSample(src))
	}

	gmStart := time.Now()
	res.GainmapRaster, res.Params, err = ComputeGainMap(src, sdr, boost, func(g *GainMapOptions) {
		g.Scale = o.GainMapScale
		g.Filter = o.GainMapFilter
		g.HalfFloat = o.HalfFloat
		if o.Workers > 0 {
			g.Workers = o.Workers
		}
	})
	if err != nil {
		return nil, stageErr(StageGainMap, err)
	}
	o.logf("gain map %dx%d, content boost %.4f, computed in %s",
		res.GainmapRaster.Width, res.GainmapRaster.Height, boost, time.Since(gmStart))

	if res.Gainmap, err = encodeGainMap(o.Encoder, res.GainmapRaster, o.GainMapQuality); err != nil {
		return nil, stageErr(StageEncode, errors.Wrap(err, "gain map"))
	}
	o.logf("gain map JPEG: %d bytes", len(res.Gainmap))

	// Lengths are derived from the final encoded bytes of both images.
	c, err := AssembleContainer(res.Primary, res.Gainmap, res.Params, func(a *AssembleOptions) {
		a.XMPPrecision = o.XMPPrecision
	})
	if err != nil {
		return nil, stageErr(StageAssemble, err)
	}
	res.Container = c.Data
	res.Layout = c.Layout
	o.logf("container: %d bytes, gain map at %d, total time %s", len(c.Data), c.Layout.SecondaryStart(), time.Since(start))

	return &res, nil
}

func encodeGainMap(enc JPEGEncoder, gm *ByteRaster, quality int) ([]byte, error) {
	if gm.Empty() {
		return nil, errors.Wrap(ErrEncodingFailure, "empty gain map")
	}
	return encodeJPEG(enc, gm.Image(), quality)
}

// EncodeFile decodes an HDR file, converts it and writes the container to outPath.
// Nothing is written to outPath unless the whole conversion succeeds: every output
// is staged next to its destination and the container is moved into place last.
func EncodeFile(inPath, outPath string, opts ...func(o *EncodeOptions)) (*Result, error) {
	o := resolveEncodeOptions(opts)

	src, err := DecodeHDRFile(inPath)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}

	res, err := encode(src, &o)
	if err != nil {
		return nil, err
	}

	var outputs []output
	if o.PrimaryOut != "" {
		outputs = append(outputs, output{name: "primary", path: o.PrimaryOut, data: res.Primary})
	}
	if o.GainmapOut != "" {
		outputs = append(outputs, output{name: "gain map", path: o.GainmapOut, data: res.Gainmap})
	}
	outputs = append(outputs, output{name: "container", path: outPath, data: res.Container})

	if err := writeOutputs(outputs); err != nil {
		return nil, stageErr(StageWrite, err)
	}
	o.logf("written %s", outPath)

	return res, nil
}

type output struct {
	name string
	path string
	data []byte
	tmp  string
}

// writeOutputs stages all outputs to temporary files and renames them in order.
// A failed staging leaves no file behind.
func writeOutputs(outputs []output) error {
	cleanup := func() {
		for _, out := range outputs {
			if out.tmp != "" {
				_ = os.Remove(out.tmp)
			}
		}
	}

	for i := range outputs {
		tmp, err := stageFile(outputs[i].path, outputs[i].data)
		if err != nil {
			cleanup()
			return errors.Wrapf(err, "write %s", outputs[i].name)
		}
		outputs[i].tmp = tmp
	}

	for i := range outputs {
		if err := os.Rename(outputs[i].tmp, filepath.Clean(outputs[i].path)); err != nil {
			cleanup()
			return errors.Wrapf(err, "write %s", outputs[i].name)
		}
		outputs[i].tmp = ""
	}
	return nil
}

// stageFile writes data to a temporary file in the directory of path.
func stageFile(path string, data []byte) (string, error) {
	path = filepath.Clean(path)
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
