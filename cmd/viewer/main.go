package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"meshview/internal/archive"
	"meshview/internal/config"
	"meshview/internal/logging"
	"meshview/internal/material"
	"meshview/internal/metrics"
	"meshview/internal/preview"
	"meshview/internal/server"
	"meshview/internal/session"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (.toml or .json)")
	addr := flag.String("addr", "", "Listen address (default: :8080)")
	proxyURL := flag.String("proxy", "", "Proxy endpoint for archive fetches")
	mode := flag.String("mode", "", "Initial material mode: full, texture, basic")
	blend := flag.String("blend", "", "Initial blend mode: white, mtl, auto")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	load := flag.String("load", "", "Archive URL to load at startup")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		ProxyURL:     *proxyURL,
		ListenAddr:   *addr,
		MaterialMode: *mode,
		BlendMode:    *blend,
		LogLevel:     *logLevel,
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.NewCollector(cfg.MetricsNamespace, reg)

	fetcher := archive.NewFetcher(cfg.ProxyURL, cfg.Timeout())
	fetcher.MaxBytes = cfg.MaxArchiveBytes

	ctrl := session.New(session.Options{
		Extractor:      &archive.Extractor{
			Fetcher:        fetcher,
			SortCandidates: cfg.Sorted(),
			Limits:         archive.Limits{MaxTotalBytes: cfg.MaxUnpackedBytes},
		},
		CanonicalSize:  cfg.CanonicalSize,
		TextureWorkers: cfg.TextureWorkers,
		Mode:           matMode,
		Blend:          blendMode,
		Metrics:        mc,
	})
	defer ctrl.Close()

	srv := server.New(ctrl, server.Options{
		Preview: preview.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			FillRatio:   cfg.FillRatio,
		},
		Metrics:  mc,
		Gatherer: reg,
	})
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *load != "" {
		ctrl.RequestLoad(ctx, archive.Source{URL: *load})
	}

	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logging.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
