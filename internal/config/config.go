package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds fetch, pipeline, render and server settings.
type Config struct {
	// Fetch
	ProxyURL         string `json:"proxy_url" toml:"proxy_url"`
	FetchTimeout     int    `json:"fetch_timeout" toml:"fetch_timeout"` // seconds
	MaxArchiveBytes  int64  `json:"max_archive_bytes" toml:"max_archive_bytes"`
	MaxUnpackedBytes int64  `json:"max_unpacked_bytes" toml:"max_unpacked_bytes"`

	// Pipeline
	CanonicalSize  float64 `json:"canonical_size" toml:"canonical_size"`
	SortCandidates *bool   `json:"sort_candidates" toml:"sort_candidates"`
	MaterialMode   string  `json:"material_mode" toml:"material_mode"`
	BlendMode      string  `json:"blend_mode" toml:"blend_mode"`
	TextureWorkers int     `json:"texture_workers" toml:"texture_workers"`

	// Render settings
	OutputDir   string  `json:"output_dir" toml:"output_dir"`
	RenderSize  int     `json:"render_size" toml:"render_size"`
	Supersample int     `json:"supersample" toml:"supersample"`
	FillRatio   float64 `json:"fill_ratio" toml:"fill_ratio"`
	Workers     int     `json:"workers" toml:"workers"`

	// Server
	ListenAddr       string `json:"listen_addr" toml:"listen_addr"`
	LogLevel         string `json:"log_level" toml:"log_level"`
	MetricsNamespace string `json:"metrics_namespace" toml:"metrics_namespace"`
}

// Load reads a config file. The extension picks the format: .toml, or JSON
// for anything else. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.ProxyURL != "" {
		c.ProxyURL = flags.ProxyURL
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.ListenAddr != "" {
		c.ListenAddr = flags.ListenAddr
	}
	if flags.MaterialMode != "" {
		c.MaterialMode = flags.MaterialMode
	}
	if flags.BlendMode != "" {
		c.BlendMode = flags.BlendMode
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.RenderSize > 0 {
		c.RenderSize = flags.RenderSize
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30
	}
	if c.MaxArchiveBytes <= 0 {
		c.MaxArchiveBytes = 256 << 20
	}
	if c.MaxUnpackedBytes <= 0 {
		c.MaxUnpackedBytes = 512 << 20
	}
	if c.CanonicalSize <= 0 {
		c.CanonicalSize = 3.0
	}
	if c.SortCandidates == nil {
		sorted := true
		c.SortCandidates = &sorted
	}
	if c.MaterialMode == "" {
		c.MaterialMode = "full"
	}
	if c.BlendMode == "" {
		c.BlendMode = "auto"
	}
	if c.TextureWorkers <= 0 {
		c.TextureWorkers = 4
	}

	if c.OutputDir == "" {
		c.OutputDir = "previews"
	}
	if c.RenderSize <= 0 {
		c.RenderSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.FillRatio <= 0 || c.FillRatio > 1 {
		c.FillRatio = 0.85
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = "meshview"
	}
}

// Timeout returns FetchTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// Sorted reports whether candidate lists are sorted before use.
func (c *Config) Sorted() bool {
	return c.SortCandidates == nil || *c.SortCandidates
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	ProxyURL     string
	OutputDir    string
	ListenAddr   string
	MaterialMode string
	BlendMode    string
	LogLevel     string
	RenderSize   int
	Workers      int
}
