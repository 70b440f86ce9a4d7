// Package archive fetches compressed model archives and sorts their members
// into geometry, material and texture buckets.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Member is one decompressed file inside an archive.
type Member struct {
	Path string
	Data []byte
}

// Archive holds decompressed members in archive enumeration order.
type Archive struct {
	Members []Member
}

// Paths returns member paths in enumeration order.
func (a *Archive) Paths() []string {
	out := make([]string, len(a.Members))
	for i, m := range a.Members {
		out[i] = m.Path
	}
	return out
}

// Get returns the member stored under p.
func (a *Archive) Get(p string) (Member, bool) {
	for _, m := range a.Members {
		if m.Path == p {
			return m, true
		}
	}
	return Member{}, false
}

// Default caps on inflated archive content.
const (
	DefaultMaxMemberBytes = 128 << 20
	DefaultMaxTotalBytes  = 512 << 20
)

// Limits caps how much Decompress inflates. Zero fields use the defaults.
type Limits struct {
	MaxMemberBytes int64
	MaxTotalBytes  int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxMemberBytes <= 0 {
		l.MaxMemberBytes = DefaultMaxMemberBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return l
}

// Decompress reads a zip container fully into memory. Directory entries are
// skipped. A member or a total past lim fails with ErrDecompress whatever
// the zip headers claim.
func Decompress(data []byte, lim Limits) (*Archive, error) {
	lim = lim.withDefaults()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	a := &Archive{Members: make([]Member, 0, len(zr.File))}
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		budget := min(lim.MaxMemberBytes, lim.MaxTotalBytes-total)
		if f.UncompressedSize64 > uint64(budget) {
			return nil, fmt.Errorf("%w: %s declares %d bytes, limit %d", ErrDecompress, f.Name, f.UncompressedSize64, budget)
		}
		body, err := readMember(f, budget)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrDecompress, f.Name, err)
		}
		total += int64(len(body))
		a.Members = append(a.Members, Member{Path: f.Name, Data: body})
	}
	return a, nil
}

func readMember(f *zip.File, budget int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	body, err := io.ReadAll(io.LimitReader(rc, budget+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > budget {
		return nil, fmt.Errorf("inflates past %d bytes", budget)
	}
	return body, nil
}

// Kind is the bucket a member path falls into.
type Kind int

const (
	KindOther Kind = iota
	KindGeometry
	KindMaterial
	KindTexture
)

var (
	geometryExts = map[string]bool{
		".obj": true, ".fbx": true, ".gltf": true, ".glb": true, ".stl": true,
		".ply": true, ".3ds": true, ".dae": true, ".bmd": true,
	}
	materialExts = map[string]bool{".mtl": true}
	textureExts  = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tga": true,
		".tif": true, ".tiff": true, ".webp": true,
	}
)

// KindOf classifies a path by its extension only, ignoring case.
func KindOf(p string) Kind {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	// macOS resource forks ride along in many zips and shadow real files.
	if strings.HasPrefix(p, "__MACOSX/") || strings.HasPrefix(base, "._") {
		return KindOther
	}
	ext := strings.ToLower(path.Ext(base))
	switch {
	case geometryExts[ext]:
		return KindGeometry
	case materialExts[ext]:
		return KindMaterial
	case textureExts[ext]:
		return KindTexture
	default:
		return KindOther
	}
}

// Classification holds three disjoint sets of member paths.
type Classification struct {
	Geometry []string
	Material []string
	Texture  []string
}

// Classify buckets paths, keeping their input order.
func Classify(paths []string) Classification {
	var c Classification
	for _, p := range paths {
		switch KindOf(p) {
		case KindGeometry:
			c.Geometry = append(c.Geometry, p)
		case KindMaterial:
			c.Material = append(c.Material, p)
		case KindTexture:
			c.Texture = append(c.Texture, p)
		}
	}
	return c
}

// Sorted returns a copy with each set in lexicographic order.
func (c Classification) Sorted() Classification {
	return Classification{
		Geometry: sortedCopy(c.Geometry),
		Material: sortedCopy(c.Material),
		Texture:  sortedCopy(c.Texture),
	}
}

// Empty reports whether nothing recognisable was found.
func (c Classification) Empty() bool {
	return len(c.Geometry) == 0 && len(c.Material) == 0 && len(c.Texture) == 0
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
