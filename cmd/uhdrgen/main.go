package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vearutop/uhdrgen"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "split":
		err = runSplit(os.Args[2:])
	case "join":
		err = runJoin(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: uhdrgen <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  encode  -in input.hdr [-out output.hdr.jpg] [-q 90] [-gq 90] [-boost 0] [-scale 4] [-filter nearest]")
	fmt.Fprintln(os.Stderr, "          [-tonemap clamp|linear|reinhard05|drago03] [-std-jpeg] [-primary-out p.jpg] [-gainmap-out g.jpg] [-v]")
	fmt.Fprintln(os.Stderr, "  detect  -in input.jpg")
	fmt.Fprintln(os.Stderr, "  split   -in input.jpg -primary-out primary.jpg -gainmap-out gainmap.jpg [-meta-out params.json]")
	fmt.Fprintln(os.Stderr, "  join    -meta params.json -primary primary.jpg -gainmap gainmap.jpg -out output.jpg")
	fmt.Fprintln(os.Stderr, "          (or) join -template input.jpg -primary primary.jpg -gainmap gainmap.jpg -out output.jpg")
	fmt.Fprintln(os.Stderr, "  inspect -in input.jpg")
}

// defaultOutPath replaces the input extension with .hdr.jpg.
func defaultOutPath(inPath string) string {
	return strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".hdr.jpg"
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input HDR image (.hdr, .tif, .exr)")
	outPath := fs.String("out", "", "output UltraHDR JPEG (default: input with .hdr.jpg extension)")
	q := fs.Int("q", 90, "primary quality")
	gq := fs.Int("gq", 90, "gain map quality")
	boost := fs.Float64("boost", 0, "max content boost, 0 to derive from the HDR peak")
	scale := fs.Int("scale", 4, "gain map downscale factor")
	filterName := fs.String("filter", "nearest", "gain map filter: nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3")
	workers := fs.Int("workers", 0, "gain map workers, 0 for all CPUs")
	toneMap := fs.String("tonemap", "clamp", "tone mapper: clamp, linear, reinhard05, drago03")
	precision := fs.Int("precision", -1, "decimals of gain map XMP values, -1 for shortest")
	stdJPEG := fs.Bool("std-jpeg", false, "encode with image/jpeg instead of jpegli")
	primaryOut := fs.String("primary-out", "", "write primary JPEG")
	gainmapOut := fs.String("gainmap-out", "", "write gain map JPEG")
	verbose := fs.Bool("v", false, "log pipeline stages")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	if *outPath == "" {
		*outPath = defaultOutPath(*inPath)
	}
	filter, ok := uhdrgen.ParseFilter(*filterName)
	if !ok {
		return fmt.Errorf("unknown filter %q", *filterName)
	}
	tm, err := uhdrgen.ToneMapperByName(*toneMap)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := uhdrgen.EncodeFile(*inPath, *outPath, func(o *uhdrgen.EncodeOptions) {
		o.Quality = *q
		o.GainMapQuality = *gq
		o.MaxContentBoost = *boost
		o.GainMapScale = *scale
		o.GainMapFilter = filter
		o.Workers = *workers
		o.ToneMapper = tm
		o.XMPPrecision = *precision
		o.PrimaryOut = *primaryOut
		o.GainmapOut = *gainmapOut
		if *stdJPEG {
			o.Encoder = uhdrgen.StdEncoder{}
		}
		if *verbose {
			o.Logger = log.New(os.Stderr, "", log.LstdFlags)
		}
	})
	if err != nil {
		return err
	}

	in, err := os.Stat(*inPath)
	if err != nil {
		return err
	}
	inSize, outSize := in.Size(), int64(len(res.Container))
	fmt.Fprintf(os.Stdout, "Input: %d bytes\n", inSize)
	fmt.Fprintf(os.Stdout, "Output: %d bytes\n", outSize)
	if inSize > 0 {
		fmt.Fprintf(os.Stdout, "Compression: %.2f%%\n", (1-float64(outSize)/float64(inSize))*100)
	}
	fmt.Fprintf(os.Stdout, "Time: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stdout, "Written: %s\n", *outPath)
	return nil
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	f, err := os.Open(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := uhdrgen.IsUltraHDR(f)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(os.Stdout, "ultrahdr")
		return nil
	}
	fmt.Fprintln(os.Stdout, "not ultrahdr")
	return nil
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	inPath := fs.String("in", "", "input UltraHDR JPEG")
	primaryOut := fs.String("primary-out", "", "primary output JPEG")
	gainmapOut := fs.String("gainmap-out", "", "gain map output JPEG")
	metaOut := fs.String("meta-out", "", "gain map parameters json output")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *primaryOut == "" || *gainmapOut == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	split, err := uhdrgen.Split(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*primaryOut), split.PrimaryJPEG, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*gainmapOut), split.GainmapJPEG, 0o644); err != nil {
		return err
	}
	if *metaOut != "" {
		payload, err := json.MarshalIndent(split.Params, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Clean(*metaOut), payload, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func runJoin(args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	templatePath := fs.String("template", "", "template UltraHDR JPEG for gain map parameters")
	metaPath := fs.String("meta", "", "gain map parameters json")
	primaryPath := fs.String("primary", "", "primary JPEG")
	gainmapPath := fs.String("gainmap", "", "gain map JPEG")
	outPath := fs.String("out", "", "output UltraHDR JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *primaryPath == "" || *gainmapPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	primary, err := os.ReadFile(filepath.Clean(*primaryPath))
	if err != nil {
		return err
	}
	gainmap, err := os.ReadFile(filepath.Clean(*gainmapPath))
	if err != nil {
		return err
	}

	var params uhdrgen.GainMapParameters
	switch {
	case *metaPath != "":
		metaData, err := os.ReadFile(filepath.Clean(*metaPath))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(metaData, &params); err != nil {
			return err
		}
	case *templatePath != "":
		template, err := os.ReadFile(filepath.Clean(*templatePath))
		if err != nil {
			return err
		}
		split, err := uhdrgen.Split(template)
		if err != nil {
			return err
		}
		params = split.Params
	default:
		return errors.New("missing -meta or -template")
	}

	container, err := uhdrgen.Join(primary, gainmap, params)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*outPath), container, 0o644)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input UltraHDR JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	report, err := uhdrgen.BuildReport(data)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(payload))
	if err := report.Validate(); err != nil {
		return fmt.Errorf("inconsistent container: %w", err)
	}
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
