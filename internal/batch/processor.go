package batch

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"meshview/internal/archive"
	"meshview/internal/logging"
	"meshview/internal/material"
	"meshview/internal/metrics"
	"meshview/internal/preview"
	"meshview/internal/session"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir      string
	Extractor      *archive.Extractor
	Preview        preview.Options
	CanonicalSize  float64
	TextureWorkers int
	Mode           material.Mode
	Blend          material.BlendMode
	Workers        int
	Metrics        *metrics.Collector
}

// Result holds the outcome of processing one source.
type Result struct {
	Label        string
	URL          string
	Image        string // path relative to OutputDir, empty on failure
	State        session.State
	Placeholder  bool
	Fallback     string
	Capabilities session.Capabilities
	Success      bool
	Error        string
	Duration     time.Duration
}

// Run renders every source using a worker pool. Results keep the order of
// sources. Sources not started before ctx ends are reported as failed.
func Run(ctx context.Context, cfg Config, sources []archive.Source) []Result {
	total := len(sources)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					logging.Info("batch progress", "done", p, "total", total, "per_sec", fmt.Sprintf("%.1f", rate))
				}
			}
		}
	}()

	// Worker pool
	idxChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				results[idx] = processSource(ctx, cfg, idx, sources[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
send:
	for i := range sources {
		select {
		case idxChan <- i:
		case <-ctx.Done():
			for j := i; j < total; j++ {
				results[j] = Result{Label: sources[j].Label, URL: sources[j].URL, Error: ctx.Err().Error()}
			}
			break send
		}
	}
	close(idxChan)

	wg.Wait()
	close(done)

	logging.Info("batch finished", "total", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func processSource(ctx context.Context, cfg Config, idx int, src archive.Source) (res Result) {
	begin := time.Now()
	res = Result{Label: src.Label, URL: src.URL}
	defer func() { res.Duration = time.Since(begin) }()

	ctrl := session.New(session.Options{
		Extractor:      cfg.Extractor,
		CanonicalSize:  cfg.CanonicalSize,
		TextureWorkers: cfg.TextureWorkers,
		Mode:           cfg.Mode,
		Blend:          cfg.Blend,
		Metrics:        cfg.Metrics,
	})
	defer ctrl.Close()

	ev := ctrl.Load(ctx, src)
	res.State = ev.Kind
	res.Capabilities = ev.Capabilities
	if ev.Kind != session.Loaded {
		res.Error = fmt.Sprintf("%s: %v", ev.Cause, ev.Err)
		logging.Warn("batch source failed", "label", src.Label, "cause", ev.Cause, "err", ev.Err)
		return res
	}
	res.Placeholder = ev.Mesh.Placeholder
	res.Fallback = ev.Fallback

	img := preview.Render(ev.Mesh, cfg.Preview)

	rel := fmt.Sprintf("%03d-%s.webp", idx, Slug(src))
	outPath := filepath.Join(cfg.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	if err := writePreview(outPath, img); err != nil {
		res.Error = err.Error()
		logging.Warn("batch write failed", "label", src.Label, "path", outPath, "err", err)
		return res
	}

	res.Image = rel
	res.Success = true
	return res
}

// writePreview encodes img to path. A truncated file is removed.
func writePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeTo(f, img); err != nil {
		os.Remove(path)
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	return nil
}

// encodeTo writes img as WebP and closes wc. A failed close is an error:
// the data may never have reached the disk.
func encodeTo(wc io.WriteCloser, img image.Image) error {
	err := preview.EncodeWebP(wc, img)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	return err
}
