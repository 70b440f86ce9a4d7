package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshview/internal/archive"
	"meshview/internal/material"
	"meshview/internal/metrics"
	"meshview/internal/raster"
	"meshview/internal/testutil"
	"meshview/internal/texture"
)

// archiveServer serves fixed archives by path. Paths in gate block until the
// channel is closed.
type archiveServer struct {
	*httptest.Server
	mu       sync.Mutex
	archives map[string][]byte
	gate     map[string]chan struct{}
}

func newArchiveServer(t *testing.T) *archiveServer {
	s := &archiveServer{archives: map[string][]byte{}, gate: map[string]chan struct{}{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.archives[r.URL.Path]
		wait := s.gate[r.URL.Path]
		s.mu.Unlock()
		if wait != nil {
			select {
			case <-wait:
			case <-r.Context().Done():
				return
			}
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) put(path string, data []byte) archive.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[path] = data
	return archive.Source{URL: s.URL + path, Label: path}
}

func (s *archiveServer) block(path string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gate[path] = ch
	return ch
}

func newController(t *testing.T, opts Options) *Controller {
	if opts.Extractor == nil {
		opts.Extractor = &archive.Extractor{Fetcher: archive.NewFetcher("", 5*time.Second), SortCandidates: true}
	}
	c := New(opts)
	t.Cleanup(c.Close)
	return c
}

func woodArchive(t *testing.T) []byte {
	return testutil.BuildZip(t,
		testutil.File{Name: "model/model.obj", Data: []byte(testutil.TexturedQuadOBJ)},
		testutil.File{Name: "model/model.mtl", Data: []byte(testutil.WoodMTL)},
		testutil.File{Name: "model/textures/Wood_Diffuse.JPG", Data: testutil.JPEG(t, 4, 4, color.NRGBA{180, 120, 60, 255})},
	)
}

func waitFor(t *testing.T, events <-chan Event, kind State) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestScenarioCubeWithoutMaterial(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/cube.zip", testutil.BuildZip(t, testutil.File{Name: "cube.obj", Data: []byte(testutil.CubeOBJ)}))
	c := newController(t, Options{})

	ev := c.Load(context.Background(), src)

	require.Equal(t, Loaded, ev.Kind)
	require.NotNil(t, ev.Mesh)
	assert.False(t, ev.Mesh.Placeholder)
	assert.Len(t, ev.Mesh.Geometry.Triangles, 12)
	assert.Equal(t, material.KindFlat, ev.Mesh.Material.Kind)
	assert.False(t, ev.Mesh.Material.Textured())
	assert.Equal(t, Capabilities{}, ev.Capabilities)
	assert.NotEmpty(t, ev.RequestID)
	assert.Equal(t, Loaded, c.State())
}

func TestScenarioTextureResolvedByBaseName(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/wood.zip", woodArchive(t))
	c := newController(t, Options{Mode: material.Full, Blend: material.Auto})

	ev := c.Load(context.Background(), src)

	require.Equal(t, Loaded, ev.Kind)
	m := ev.Mesh.Material
	assert.Equal(t, material.KindMaterialTexture, m.Kind)
	require.NotNil(t, m.Texture)
	assert.Equal(t, "model/textures/Wood_Diffuse.JPG", m.Texture.Name)
	assert.True(t, m.Texture.Decoded())
	assert.Equal(t, 12.0, m.Shininess)
	assert.Equal(t, Capabilities{HasMaterial: true, HasTexture: true, TextureCount: 1}, ev.Capabilities)
}

func TestScenarioUnsupportedFormatFallsBack(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/fbx.zip", testutil.BuildZip(t, testutil.File{Name: "thing.fbx", Data: []byte("Kaydara FBX Binary")}))
	c := newController(t, Options{})

	ev := c.Load(context.Background(), src)

	require.Equal(t, Loaded, ev.Kind)
	require.NotNil(t, ev.Mesh)
	assert.True(t, ev.Mesh.Placeholder)
	assert.Equal(t, CauseFormat, ev.Fallback)
	assert.Equal(t, Capabilities{}, ev.Capabilities)
	assert.Empty(t, ev.Cause)
}

func TestEmptyArchiveFallsBack(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/readme.zip", testutil.BuildZip(t, testutil.File{Name: "README.txt", Data: []byte("hi")}))
	c := newController(t, Options{})

	ev := c.Load(context.Background(), src)
	require.Equal(t, Loaded, ev.Kind)
	assert.True(t, ev.Mesh.Placeholder)
	assert.Equal(t, CauseNoGeometry, ev.Fallback)
}

func TestScenarioFetchFailureThenRetry(t *testing.T) {
	srv := newArchiveServer(t)
	c := newController(t, Options{})
	missing := archive.Source{URL: srv.URL + "/missing.zip", Label: "missing"}

	ev := c.Load(context.Background(), missing)
	require.Equal(t, Error, ev.Kind)
	assert.Equal(t, CauseFetch, ev.Cause)
	assert.True(t, ev.Retryable)
	assert.Nil(t, ev.Mesh)
	var status *archive.HTTPStatusError
	require.True(t, errors.As(ev.Err, &status))
	assert.Equal(t, http.StatusNotFound, status.StatusCode)

	srv.put("/missing.zip", testutil.BuildZip(t, testutil.File{Name: "cube.obj", Data: []byte(testutil.CubeOBJ)}))
	ev = c.Load(context.Background(), missing)
	require.Equal(t, Loaded, ev.Kind)
	assert.Empty(t, ev.Cause)
	assert.Nil(t, ev.Err)
	assert.False(t, ev.Retryable)
	assert.Len(t, ev.Mesh.Geometry.Triangles, 12)
}

func TestCorruptArchiveIsError(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/corrupt.zip", []byte("PK\x03\x04 definitely not a zip"))
	c := newController(t, Options{})

	ev := c.Load(context.Background(), src)
	require.Equal(t, Error, ev.Kind)
	assert.Equal(t, CauseDecompress, ev.Cause)
	assert.ErrorIs(t, ev.Err, archive.ErrDecompress)
}

func TestModeChangeRecomposesWithoutReload(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/wood.zip", woodArchive(t))
	c := newController(t, Options{Mode: material.Full, Blend: material.Auto})

	loaded := c.Load(context.Background(), src)
	require.Equal(t, Loaded, loaded.Kind)
	geom := loaded.Mesh.Geometry

	events, cancel := c.Subscribe()
	defer cancel()

	c.SetMaterialMode(material.Basic)
	ev := waitFor(t, events, Loaded)
	assert.Equal(t, material.KindFlat, ev.Mesh.Material.Kind)
	assert.Same(t, geom, ev.Mesh.Geometry)
	assert.Equal(t, loaded.RequestID, ev.RequestID)
	assert.Equal(t, material.Basic, ev.Mode)

	c.SetMaterialMode(material.Full)
	waitFor(t, events, Loaded)
	c.SetBlendMode(material.WhiteBase)
	ev = waitFor(t, events, Loaded)
	assert.Equal(t, material.KindMaterialTexture, ev.Mesh.Material.Kind)
	assert.Equal(t, 1.0, ev.Mesh.Material.Color[0])
	assert.Same(t, geom, ev.Mesh.Geometry)
}

func TestPendingModeAppliedOnLoaded(t *testing.T) {
	srv := newArchiveServer(t)
	src := srv.put("/wood.zip", woodArchive(t))
	release := srv.block("/wood.zip")
	c := newController(t, Options{Mode: material.Full})

	events, cancel := c.Subscribe()
	defer cancel()

	c.RequestLoad(context.Background(), src)
	waitFor(t, events, Loading)

	c.SetMaterialMode(material.Basic)
	assert.Equal(t, Loading, c.State())
	assert.Equal(t, material.Basic, c.Snapshot().Mode)

	close(release)
	ev := waitFor(t, events, Loaded)
	assert.Equal(t, material.KindFlat, ev.Mesh.Material.Kind)
	assert.True(t, ev.Capabilities.HasTexture)
}

func TestNewerRequestSupersedesOlder(t *testing.T) {
	srv := newArchiveServer(t)
	slow := srv.put("/slow.zip", woodArchive(t))
	release := srv.block("/slow.zip")
	defer close(release)
	fast := srv.put("/fast.zip", testutil.BuildZip(t, testutil.File{Name: "cube.obj", Data: []byte(testutil.CubeOBJ)}))

	mc := metrics.NewCollector("test", nil)
	c := newController(t, Options{Metrics: mc})

	first := c.RequestLoad(context.Background(), slow)
	ev := c.Load(context.Background(), fast)
	require.Equal(t, Loaded, ev.Kind)
	assert.Greater(t, ev.Token, first)

	c.Close()
	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.Kind)
	assert.Equal(t, ev.RequestID, snap.RequestID)
	assert.Len(t, snap.Mesh.Geometry.Triangles, 12)
}

func heldStore(c *Controller) *texture.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded == nil {
		return nil
	}
	return c.loaded.store
}

func TestTexturesReleasedOnReplacementAndClose(t *testing.T) {
	srv := newArchiveServer(t)
	wood := srv.put("/wood.zip", woodArchive(t))
	cube := srv.put("/cube.zip", testutil.BuildZip(t, testutil.File{Name: "cube.obj", Data: []byte(testutil.CubeOBJ)}))
	c := newController(t, Options{})

	first := c.Load(context.Background(), wood)
	tex := first.Mesh.Material.Texture
	require.True(t, tex.Decoded())
	store := heldStore(c)
	require.NotNil(t, store)
	assert.Equal(t, 1, store.Len())

	c.Load(context.Background(), cube)
	assert.True(t, store.Released())
	assert.Zero(t, store.Len())
	assert.True(t, tex.Decoded(), "an old snapshot keeps its texture")

	c.Load(context.Background(), wood)
	store = heldStore(c)
	require.False(t, store.Released())
	c.Close()
	assert.True(t, store.Released())
}

func TestRenderOldSnapshotWhileReplacing(t *testing.T) {
	srv := newArchiveServer(t)
	wood := srv.put("/wood.zip", woodArchive(t))
	cube := srv.put("/cube.zip", testutil.BuildZip(t, testutil.File{Name: "cube.obj", Data: []byte(testutil.CubeOBJ)}))
	c := newController(t, Options{})

	ev := c.Load(context.Background(), wood)
	require.True(t, ev.Mesh.Material.Textured())

	done := make(chan *image.NRGBA)
	go func() {
		done <- raster.Render(ev.Mesh, raster.Options{Size: 48})
	}()
	c.Load(context.Background(), cube)

	img := <-done
	assert.Equal(t, 48, img.Bounds().Dx())
	opaque := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 255 {
			opaque++
		}
	}
	assert.NotZero(t, opaque)
}

func TestSubscribeAndClose(t *testing.T) {
	c := newController(t, Options{})
	events, cancel := c.Subscribe()
	defer cancel()

	c.Close()
	_, ok := <-events
	assert.False(t, ok)

	ev := c.Load(context.Background(), archive.Source{URL: "http://example.invalid/a.zip"})
	assert.Equal(t, Error, ev.Kind)
	assert.ErrorIs(t, ev.Err, ErrClosed)
	assert.Zero(t, c.RequestLoad(context.Background(), archive.Source{URL: "http://example.invalid/a.zip"}))
}

func TestSnapshotStartsIdle(t *testing.T) {
	c := newController(t, Options{Mode: material.TextureOnly, Blend: material.MtlTint})
	snap := c.Snapshot()
	assert.Equal(t, Idle, snap.Kind)
	assert.Equal(t, material.TextureOnly, snap.Mode)
	assert.Equal(t, material.MtlTint, snap.Blend)

	c.SetBlendMode(material.WhiteBase)
	assert.Equal(t, material.WhiteBase, c.Snapshot().Blend)
}
