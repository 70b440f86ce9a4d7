package texture

import (
	"context"
	"encoding/base64"
	"image"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"meshview/internal/archive"
	"meshview/internal/logging"
)

// Asset is one texture extracted from an archive. Assets are immutable once
// stored; meshes built from them may outlive the Store.
type Asset struct {
	Name  string
	Data  []byte
	Image *image.NRGBA // nil when decoding failed
	URI   string       // data: URI handle for clients that load by URL
}

// Decoded reports whether the image is usable for rendering.
func (a *Asset) Decoded() bool {
	return a != nil && a.Image != nil
}

// Store owns the textures of one loaded model until Release.
type Store struct {
	mu       sync.RWMutex
	assets   map[string]*Asset
	released bool
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{assets: make(map[string]*Asset)}
}

// LoadAll decodes members concurrently, at most workers at a time.
// A texture that fails to decode, or whose decoder panics, is kept with a
// nil Image and logged.
func (s *Store) LoadAll(ctx context.Context, members []archive.Member, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, m := range members {
		m := m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a := &Asset{Name: m.Path, Data: m.Data, URI: dataURI(m.Path, m.Data)}
			defer s.put(a)
			defer func() {
				if r := recover(); r != nil {
					a.Image = nil
					logging.Warn("texture decode panicked", "name", m.Path, "panic", r)
				}
			}()
			img, err := Decode(m.Path, m.Data)
			if err != nil {
				logging.Warn("texture decode failed", "name", m.Path, "err", err)
			} else {
				a.Image = img
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) put(a *Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.assets[a.Name] = a
}

// Get returns the asset stored under name.
func (s *Store) Get(name string) (*Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[name]
	return a, ok
}

// Len returns how many textures the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// Names returns stored names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.assets))
	for n := range s.assets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Release drops the store's handles and refuses further puts. Assets still
// referenced by a mesh stay intact until that mesh is dropped.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.assets)
	s.released = true
}

// Released reports whether Release has been called.
func (s *Store) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}

func dataURI(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	mt := mime.TypeByExtension(ext)
	switch {
	case mt != "":
	case ext == ".tga":
		mt = "image/x-tga"
	case ext == ".webp":
		mt = "image/webp"
	default:
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}
