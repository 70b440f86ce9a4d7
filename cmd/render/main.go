package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"meshview/internal/archive"
	"meshview/internal/batch"
	"meshview/internal/config"
	"meshview/internal/logging"
	"meshview/internal/material"
	"meshview/internal/metrics"
	"meshview/internal/preview"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.toml or .json)")
	listFile := flag.String("list", "", "File with one archive URL per line (url<TAB>label<TAB>proxy path)")
	sourceURL := flag.String("url", "", "Render a single archive URL")
	label := flag.String("label", "", "Label for -url")
	proxyURL := flag.String("proxy", "", "Proxy endpoint for archive fetches")
	outputDir := flag.String("output", "", "Output directory (default: previews)")
	size := flag.Int("size", 0, "Preview edge in pixels (default: 512)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	mode := flag.String("mode", "", "Material mode: full, texture, basic")
	blend := flag.String("blend", "", "Blend mode: white, mtl, auto")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	testN := flag.Int("test", 0, "Render only first N sources for testing")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		ProxyURL:     *proxyURL,
		OutputDir:    *outputDir,
		MaterialMode: *mode,
		BlendMode:    *blend,
		LogLevel:     *logLevel,
		RenderSize:   *size,
		Workers:      *workers,
	})
	logging.SetLevel(cfg.LogLevel)

	matMode, err := material.ParseMode(cfg.MaterialMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	blendMode, err := material.ParseBlendMode(cfg.BlendMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Collect sources
	var sources []archive.Source
	if *listFile != "" {
		f, err := os.Open(*listFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening source list: %v\n", err)
			os.Exit(1)
		}
		sources, err = batch.ReadSources(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading source list: %v\n", err)
			os.Exit(1)
		}
	}
	if *sourceURL != "" {
		sources = append(sources, archive.Source{URL: *sourceURL, Label: *label})
	}

	// Limit for testing
	if *testN > 0 && *testN < len(sources) {
		sources = sources[:*testN]
	}

	if len(sources) == 0 {
		fmt.Println("No sources to render. Use -url or -list.")
		os.Exit(0)
	}

	fetcher := archive.NewFetcher(cfg.ProxyURL, cfg.Timeout())
	fetcher.MaxBytes = cfg.MaxArchiveBytes

	fmt.Printf("Archive previews → WebP (%s/%s)\n", matMode, blendMode)
	fmt.Printf("Sources: %d, Workers: %d\n", len(sources), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir: cfg.OutputDir,
		Extractor: &archive.Extractor{
			Fetcher:        fetcher,
			SortCandidates: cfg.Sorted(),
			Limits:         archive.Limits{MaxTotalBytes: cfg.MaxUnpackedBytes},
		},
		Preview: preview.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			FillRatio:   cfg.FillRatio,
		},
		CanonicalSize:  cfg.CanonicalSize,
		TextureWorkers: cfg.TextureWorkers,
		Mode:           matMode,
		Blend:          blendMode,
		Workers:        cfg.Workers,
		Metrics:        metrics.NewCollector(cfg.MetricsNamespace, prometheus.NewRegistry()),
	}

	results := batch.Run(ctx, batchCfg, sources)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, placeholders, failed := 0, 0, 0
	var errors []batch.Result
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
			errors = append(errors, r)
		case r.Placeholder:
			placeholders++
			success++
		default:
			success++
		}
	}

	fmt.Printf("Rendered: %d/%d (%d placeholders)\n", success, len(sources), placeholders)

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(20, len(errors))
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Label, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: create output dir: %v\n", err)
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
