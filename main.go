// parallax converts a folder of 2D frames into stereo 3D frames using a
// depth-estimation model and a horizontal-parallax warp.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stevecastle/parallax/appconfig"
	"github.com/stevecastle/parallax/compose"
	"github.com/stevecastle/parallax/depth"
	"github.com/stevecastle/parallax/ingest"
	"github.com/stevecastle/parallax/pipeline"
	"github.com/stevecastle/parallax/warp"
)

func main() {
	def := appconfig.Default()

	configPath := flag.String("config", "", "optional JSON config file; flags override file values")
	framesDir := flag.String("frames", "", "folder with source frames (required)")
	outputDir := flag.String("out", "", "output folder (default <frames>_3d)")
	archive := flag.String("ingest", "", "optional frame archive (.zip/.7z/.tar.gz) extracted into the frames folder first")
	modelDir := flag.String("model-dir", "", "folder containing the Depth Anything V2 ONNX models")
	variant := flag.String("variant", def.ModelVariant, "depth model variant: vits|vitb|vitl")
	ortLib := flag.String("ort-lib", "", "path to the onnxruntime shared library")
	scale := flag.Int("scale", def.ParallaxScale, "parallax scale in pixels (recommended 10 to 20)")
	interp := flag.String("interp", def.Interpolation, "warp interpolation: nearest|bilinear|bicubic|lanczos")
	layout := flag.String("layout", def.Layout, "stereo layout: HSBS|FSBS|HOU|FOU")
	eye := flag.String("eye", def.EyeOrder, "eye order: LEFT|RIGHT")
	width := flag.Int("width", def.TargetWidth, "target output width, 0 = no resize/pad")
	height := flag.Int("height", def.TargetHeight, "target output height, 0 = no resize/pad")
	chunk := flag.Int("chunk", def.ChunkSize, "frames per chunk")
	workers := flag.Int("workers", def.MaxWorkers, "maximum concurrent chunks")
	quality := flag.Int("quality", def.JPEGQuality, "output JPEG quality")
	keep := flag.Bool("keep-sources", def.KeepSources, "keep source frames instead of deleting them after conversion")
	serialize := flag.Bool("serialize-inference", def.SerializeInference, "serialize depth model calls (disable only if the runtime is known concurrency-safe)")
	ledger := flag.String("ledger", "", "optional SQLite chunk ledger path")
	flag.Parse()

	cfg := def
	if *configPath != "" {
		loaded, err := appconfig.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	// Explicitly set flags win over config file values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "frames":
			cfg.FramesDir = *framesDir
		case "out":
			cfg.OutputDir = *outputDir
		case "model-dir":
			cfg.ModelDir = *modelDir
		case "variant":
			cfg.ModelVariant = *variant
		case "ort-lib":
			cfg.ORTSharedLibraryPath = *ortLib
		case "scale":
			cfg.ParallaxScale = *scale
		case "interp":
			cfg.Interpolation = *interp
		case "layout":
			cfg.Layout = *layout
		case "eye":
			cfg.EyeOrder = *eye
		case "width":
			cfg.TargetWidth = *width
		case "height":
			cfg.TargetHeight = *height
		case "chunk":
			cfg.ChunkSize = *chunk
		case "workers":
			cfg.MaxWorkers = *workers
		case "quality":
			cfg.JPEGQuality = *quality
		case "keep-sources":
			cfg.KeepSources = *keep
		case "serialize-inference":
			cfg.SerializeInference = *serialize
		case "ledger":
			cfg.LedgerPath = *ledger
		}
	})
	if cfg.FramesDir == "" {
		fmt.Fprintln(os.Stderr, "usage: parallax --frames <folder> --model-dir <folder> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *archive != "" {
		log.Printf("Extracting frame archive %s into %s", *archive, cfg.FramesDir)
		if err := ingest.ExtractArchive(*archive, cfg.FramesDir); err != nil {
			log.Fatalf("ingest: %v", err)
		}
	}

	pcfg, err := buildPipelineConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	modelVariant, err := depth.ParseVariant(cfg.ModelVariant)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts := depth.DefaultOptions()
	opts.ModelDir = cfg.ModelDir
	opts.Variant = modelVariant
	opts.ORTSharedLibraryPath = cfg.ORTSharedLibraryPath
	estimator, err := depth.NewONNXEstimator(opts)
	if err != nil {
		log.Fatalf("depth model: %v", err)
	}
	defer estimator.Close()

	p, err := pipeline.New(pcfg, estimator)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	// SIGINT/SIGTERM stop the run at chunk granularity: in-flight
	// chunks finish, pending ones are cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	fmt.Printf("Converted %d/%d frames into %s\n", summary.Processed, summary.Total, p.OutputDir())
	if summary.Cancelled > 0 {
		fmt.Printf("%d chunks cancelled before running\n", summary.Cancelled)
	}
	if len(summary.Failures) > 0 {
		fmt.Printf("%d frames failed (sources retained):\n", len(summary.Failures))
		for _, f := range summary.Failures {
			fmt.Printf("  %s\n", f.Error())
		}
		os.Exit(1)
	}
}

// buildPipelineConfig parses the string-typed config fields and returns
// the pipeline configuration. Any invalid value is a fatal configuration
// error; nothing is processed.
func buildPipelineConfig(cfg appconfig.Config) (pipeline.Config, error) {
	interpolation, err := warp.ParseInterpolation(cfg.Interpolation)
	if err != nil {
		return pipeline.Config{}, err
	}
	layout, err := compose.ParseLayout(cfg.Layout)
	if err != nil {
		return pipeline.Config{}, err
	}
	order, err := compose.ParseEyeOrder(cfg.EyeOrder)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		FramesDir:          cfg.FramesDir,
		OutputDir:          cfg.OutputDir,
		ParallaxScale:      cfg.ParallaxScale,
		Interpolation:      interpolation,
		Layout:             layout,
		EyeOrder:           order,
		TargetWidth:        cfg.TargetWidth,
		TargetHeight:       cfg.TargetHeight,
		ChunkSize:          cfg.ChunkSize,
		MaxWorkers:         cfg.MaxWorkers,
		JPEGQuality:        cfg.JPEGQuality,
		KeepSources:        cfg.KeepSources,
		SerializeInference: cfg.SerializeInference,
		LedgerPath:         cfg.LedgerPath,
	}, nil
}
