package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshview/internal/testutil"
)

func TestClassifyIsDisjointAndCaseInsensitive(t *testing.T) {
	paths := []string{
		"model/Scene.OBJ",
		"model/scene.mtl",
		"textures/Wood_Diffuse.JPG",
		"textures/normal.png",
		"readme.txt",
		"__MACOSX/model/._Scene.OBJ",
		"model/part.FBX",
	}
	c := Classify(paths)

	assert.Equal(t, []string{"model/Scene.OBJ", "model/part.FBX"}, c.Geometry)
	assert.Equal(t, []string{"model/scene.mtl"}, c.Material)
	assert.Equal(t, []string{"textures/Wood_Diffuse.JPG", "textures/normal.png"}, c.Texture)

	seen := map[string]int{}
	for _, set := range [][]string{c.Geometry, c.Material, c.Texture} {
		for _, p := range set {
			seen[p]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestClassificationSorted(t *testing.T) {
	c := Classification{Geometry: []string{"b.obj", "a.obj"}}
	s := c.Sorted()
	assert.Equal(t, []string{"a.obj", "b.obj"}, s.Geometry)
	assert.Equal(t, []string{"b.obj", "a.obj"}, c.Geometry)
	assert.Nil(t, s.Texture)
}

func TestDecompressKeepsEnumerationOrder(t *testing.T) {
	data := testutil.BuildZip(t,
		testutil.File{Name: "z.obj", Data: []byte("v 0 0 0")},
		testutil.File{Name: "a.mtl", Data: []byte("newmtl a")},
	)
	a, err := Decompress(data, Limits{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z.obj", "a.mtl"}, a.Paths())

	m, ok := a.Get("a.mtl")
	require.True(t, ok)
	assert.Equal(t, "newmtl a", string(m.Data))
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte("definitely not a zip"), Limits{})
	assert.True(t, errors.Is(err, ErrDecompress))
}

func TestDecompressLimits(t *testing.T) {
	// 4 MiB of zeros deflates to a few KiB.
	bomb := testutil.BuildZip(t, testutil.File{Name: "bomb.obj", Data: make([]byte, 4<<20)})
	require.Less(t, len(bomb), 64<<10)

	pair := testutil.BuildZip(t,
		testutil.File{Name: "a.png", Data: make([]byte, 600<<10)},
		testutil.File{Name: "b.png", Data: make([]byte, 600<<10)},
	)

	tests := []struct {
		name string
		data []byte
		lim  Limits
		ok   bool
	}{
		{"member over cap", bomb, Limits{MaxMemberBytes: 1 << 20}, false},
		{"member within cap", bomb, Limits{MaxMemberBytes: 8 << 20}, true},
		{"total over cap", pair, Limits{MaxTotalBytes: 1 << 20}, false},
		{"total within cap", pair, Limits{MaxTotalBytes: 2 << 20}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Decompress(tt.data, tt.lim)
			if tt.ok {
				require.NoError(t, err)
				assert.NotEmpty(t, a.Members)
				return
			}
			assert.True(t, errors.Is(err, ErrDecompress))
			assert.Nil(t, a)
		})
	}
}

func TestExtractorAppliesLimits(t *testing.T) {
	bomb := testutil.BuildZip(t, testutil.File{Name: "bomb.obj", Data: make([]byte, 2<<20)})
	x := &Extractor{Limits: Limits{MaxMemberBytes: 1 << 20}}
	_, err := x.FromBytes(bomb)
	assert.True(t, errors.Is(err, ErrDecompress))
}

func TestFetchThroughProxy(t *testing.T) {
	payload := testutil.BuildZip(t, testutil.File{Name: "m.obj", Data: []byte(testutil.CubeOBJ)})

	var gotURL, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotPath = r.URL.Query().Get("path")
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL+"/proxy", 5*time.Second)
	x := &Extractor{Fetcher: f}
	ex, err := x.Extract(context.Background(), Source{URL: "https://origin.example/a.zip", ProxyPath: "assets/a.zip"})
	require.NoError(t, err)

	assert.Equal(t, "https://origin.example/a.zip", gotURL)
	assert.Equal(t, "assets/a.zip", gotPath)
	assert.Equal(t, []string{"m.obj"}, ex.Classification.Geometry)
	assert.Len(t, ex.Members(ex.Classification.Geometry), 1)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher("", time.Second)
	_, err := f.Fetch(context.Background(), Source{URL: srv.URL + "/missing.zip"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := NewFetcher("", time.Second)
	f.MaxBytes = 16
	_, err := f.Fetch(context.Background(), Source{URL: srv.URL})
	assert.True(t, errors.Is(err, ErrFetch))
}

func TestFetchEmptySource(t *testing.T) {
	_, err := NewFetcher("", time.Second).Fetch(context.Background(), Source{})
	assert.True(t, errors.Is(err, ErrFetch))
}
