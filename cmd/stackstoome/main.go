package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"stackstoome/internal/models"
	"stackstoome/pkg/config"
	"stackstoome/pkg/convert"
)

func main() {
	// Parse command line arguments
	imageDir := flag.String("input", "", "Directory containing 2D microscopy TIFF slices")
	labelDir := flag.String("labels", "", "Optional directory containing segmentation mask volumes")
	scanInfo := flag.String("scaninfo", "", "Optional path to the ScanInfo.xml sidecar")
	output := flag.String("output", "", "Output path (.zarr directory or .ome.tiff file)")
	format := flag.String("format", "", "Output format: zarr or ometiff (default: from config)")
	configPath := flag.String("config", "stackstoome.yaml", "Path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	overwrite := flag.Bool("overwrite", false, "Replace the output artifact if it already exists")
	strict := flag.Bool("strict", false, "Fail on channel codes missing from the channel map")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config file: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the configuration file
	if *imageDir == "" {
		*imageDir = cfg.Paths.ImageDir
	}
	if *labelDir == "" {
		*labelDir = cfg.Paths.LabelDir
	}
	if *scanInfo == "" {
		*scanInfo = cfg.Paths.ScanInfo
	}
	if *output == "" {
		*output = cfg.Paths.Output
	}
	if *format == "" {
		*format = cfg.Output.Format
	}
	if *overwrite {
		cfg.Output.Overwrite = true
	}
	if *strict {
		cfg.Output.Strict = true
	}
	if *quiet {
		cfg.Output.Verbose = false
	}

	// Validate inputs
	if *imageDir == "" || *output == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("STACKSTOOME - MICROSCOPY SLICE STACKS TO OME-ZARR / OME-TIFF")
	fmt.Println("================================")

	params := &convert.Params{
		ImageDir:     *imageDir,
		LabelDir:     *labelDir,
		ScanInfoPath: *scanInfo,
		OutputPath:   *output,
		ChannelMap:   cfg.Channels,
		Scaling: models.Scaling{
			Z: cfg.Scaling.Z,
			Y: cfg.Scaling.Y,
			X: cfg.Scaling.X,
		},
		Overwrite: cfg.Output.Overwrite,
		Strict:    cfg.Output.Strict,
		Verbose:   cfg.Output.Verbose,
	}

	converter := convert.NewConverter(params)

	fmt.Printf("Starting %s conversion...\n", *format)
	startTime := time.Now()

	var outputPath string
	switch *format {
	case "zarr":
		outputPath, err = converter.ToZarr()
	case "ometiff":
		outputPath, err = converter.ToOMETIFF()
	default:
		log.Fatalf("Unknown output format %q (expected zarr or ometiff)", *format)
	}
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nConversion completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output written to: %s\n\n", outputPath)

	scaling := converter.Scaling().ZYX()
	fmt.Printf("Voxel scaling (Z, Y, X): %.4f x %.4f x %.4f micrometers\n\n", scaling[0], scaling[1], scaling[2])

	fmt.Println("Channel summary:")
	fmt.Println("================")
	for _, report := range converter.Reports() {
		fmt.Printf("%-28s %3d files  (%d, %d, %d)  intensity %d..%d  mean %.1f\n",
			report.Name, report.Files,
			report.Depth, report.Height, report.Width,
			report.Stats.Min, report.Stats.Max, report.Stats.Mean)
	}
}
