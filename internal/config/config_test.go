package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "meshview.toml", `
proxy_url = "http://proxy.local/fetch"
fetch_timeout = 5
sort_candidates = false
material_mode = "texture"
render_size = 256
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local/fetch", cfg.ProxyURL)
	assert.Equal(t, 5, cfg.FetchTimeout)
	require.NotNil(t, cfg.SortCandidates)
	assert.False(t, cfg.Sorted())
	assert.Equal(t, "texture", cfg.MaterialMode)
	assert.Equal(t, 256, cfg.RenderSize)
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "meshview.json", `{"listen_addr": ":9000", "blend_mode": "mtl", "workers": 3}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "mtl", cfg.BlendMode)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config: read")

	p := writeFile(t, "bad.toml", "render_size = [")
	_, err = Load(p)
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{})

	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, int64(256<<20), cfg.MaxArchiveBytes)
	assert.Equal(t, int64(512<<20), cfg.MaxUnpackedBytes)
	assert.Equal(t, 3.0, cfg.CanonicalSize)
	assert.True(t, cfg.Sorted())
	assert.Equal(t, "full", cfg.MaterialMode)
	assert.Equal(t, "auto", cfg.BlendMode)
	assert.Equal(t, 4, cfg.TextureWorkers)
	assert.Equal(t, 512, cfg.RenderSize)
	assert.Equal(t, 2, cfg.Supersample)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "meshview", cfg.MetricsNamespace)
}

func TestResolveFlagsOverride(t *testing.T) {
	cfg := Config{ListenAddr: ":9000", RenderSize: 128, MaterialMode: "full"}
	cfg.Resolve(Flags{ListenAddr: ":7000", MaterialMode: "basic", Workers: 2})

	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "basic", cfg.MaterialMode)
	assert.Equal(t, 128, cfg.RenderSize)
	assert.Equal(t, 2, cfg.Workers)
}
