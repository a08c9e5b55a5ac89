package uhdrgen_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vearutop/uhdrgen"
)

func ExampleComputeGainMap() {
	hdr := uhdrgen.NewLinearRaster(100, 100)
	sdr := uhdrgen.NewByteRaster(100, 100, 3)
	for i := range hdr.Pix {
		hdr.Pix[i] = 2
		sdr.Pix[i] = 255
	}

	gm, params, err := uhdrgen.ComputeGainMap(hdr, sdr, 4)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%dx%d, max log2 gain %.0f, first sample %d\n", gm.Width, gm.Height, params.MaxLog2Gain, gm.Pix[0])

	// Output:
	// 25x25, max log2 gain 2, first sample 126
}

func ExampleEncodeFile() {
	_, err := uhdrgen.EncodeFile(filepath.FromSlash("testdata/scene.hdr"), "scene.hdr.jpg", func(o *uhdrgen.EncodeOptions) {
		o.ToneMapper = uhdrgen.TMOToneMapper{Operator: uhdrgen.OperatorReinhard05}
		o.GainMapFilter = uhdrgen.FilterLanczos2
	})
	if err != nil {
		return
	}
}

func ExampleIsUltraHDR() {
	f, err := os.Open(filepath.FromSlash("testdata/scene.hdr.jpg"))
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = uhdrgen.IsUltraHDR(f)
}

func ExampleSplit() {
	data, err := os.ReadFile(filepath.FromSlash("testdata/scene.hdr.jpg"))
	if err != nil {
		return
	}
	parts, err := uhdrgen.Split(data)
	if err != nil {
		return
	}
	parts.Params.HDRCapacityMax = parts.Params.MaxLog2Gain / 2

	joined, err := uhdrgen.Join(parts.PrimaryJPEG, parts.GainmapJPEG, parts.Params)
	if err != nil {
		return
	}
	_, _ = uhdrgen.IsUltraHDR(bytes.NewReader(joined))
}
