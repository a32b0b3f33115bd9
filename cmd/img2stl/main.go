// Command img2stl converts images into extruded STL solids without
// running the HTTP server.
//
// For every input image a foreground STL is written to the output
// directory, plus a background STL when -background-height is positive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/service"
	"github.com/TIANLI0/VoxelKit/utils"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		opts       cliOptions
	)
	flag.StringVar(&configPath, "config", "config.yaml", "YAML config file, defaults are used if it is missing")
	flag.StringVar(&opts.mode, "mode", "", "binarization mode: edge, adaptive, otsu or luma")
	flag.Float64Var(&opts.threshold, "threshold", 0, "edge magnitude threshold")
	flag.BoolVar(&opts.invert, "invert", false, "invert the mask before extrusion")
	flag.Float64Var(&opts.height, "height", 0, "foreground extrusion height")
	flag.Float64Var(&opts.base, "base", 0, "base thickness below the extrusion")
	flag.Float64Var(&opts.background, "background-height", 0, "background extrusion height, 0 to skip")
	flag.BoolVar(&opts.normals, "normals", false, "write face normals")
	flag.StringVar(&opts.out, "out", ".", "output directory")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "[flags] <image> [image...]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.Output.Dir = opts.out
	// only flags given on the command line override the config
	flag.Visit(func(f *flag.Flag) { opts.apply(cfg, f.Name) })

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer utils.Sync()

	source, err := service.NewMaskSource(cfg.Mask)
	if err != nil {
		utils.Logger.Fatal("invalid mask config", zap.Error(err))
	}
	var stlOpts []service.STLOption
	if cfg.Extrusion.Normals {
		stlOpts = append(stlOpts, service.WithNormals())
	}
	conv := service.NewConverter(source, &cfg.Convert, stlOpts...)

	failed := false
	for _, in := range flag.Args() {
		stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		res, err := conv.Convert(context.Background(), service.ImageSource{Path: in}, targets(cfg, stem))
		if err != nil {
			utils.Logger.Error("conversion failed", zap.String("input", in), zap.Error(err))
			failed = true
			if res == nil {
				continue
			}
		}
		for _, t := range res.Targets {
			if t.Status == model.TargetDone {
				fmt.Printf("%s\t%s\t%d faces\n", in, t.Destination, t.Faces)
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func targets(cfg *config.Config, stem string) []service.Target {
	ts := []service.Target{{
		Name: model.Foreground.String(),
		Spec: model.ExtrusionSpec{
			Height:        cfg.Extrusion.Height,
			BaseThickness: cfg.Extrusion.BaseThickness,
		},
		Destination: filepath.Join(cfg.Output.Dir, stem+"_foreground.stl"),
	}}
	if cfg.Extrusion.BackgroundHeight > 0 {
		ts = append(ts, service.Target{
			Name: model.Background.String(),
			Spec: model.ExtrusionSpec{
				Height:        cfg.Extrusion.BackgroundHeight,
				BaseThickness: cfg.Extrusion.BaseThickness,
				Polarity:      model.Background,
			},
			Destination: filepath.Join(cfg.Output.Dir, stem+"_background.stl"),
		})
	}
	return ts
}

type cliOptions struct {
	mode       string
	threshold  float64
	invert     bool
	height     float64
	base       float64
	background float64
	normals    bool
	out        string
}

func (o *cliOptions) apply(cfg *config.Config, name string) {
	switch name {
	case "mode":
		cfg.Mask.Mode = o.mode
	case "threshold":
		cfg.Mask.Threshold = o.threshold
	case "invert":
		cfg.Mask.Invert = o.invert
	case "height":
		cfg.Extrusion.Height = o.height
	case "base":
		cfg.Extrusion.BaseThickness = o.base
	case "background-height":
		cfg.Extrusion.BackgroundHeight = o.background
	case "normals":
		cfg.Extrusion.Normals = o.normals
	}
}
