package archive

import (
	"context"

	"meshview/internal/logging"
)

// Extraction is the result of fetching, decompressing and classifying one archive.
type Extraction struct {
	Archive        *Archive
	Classification Classification
	Size           int // compressed bytes
}

// Members returns the archive members named in paths, in the same order.
func (e *Extraction) Members(paths []string) []Member {
	out := make([]Member, 0, len(paths))
	for _, p := range paths {
		if m, ok := e.Archive.Get(p); ok {
			out = append(out, m)
		}
	}
	return out
}

// Extractor chains Fetcher, Decompress and Classify.
type Extractor struct {
	Fetcher *Fetcher
	// SortCandidates orders each bucket lexicographically instead of by
	// archive enumeration order, which zip writers do not guarantee.
	SortCandidates bool
	// Limits bounds inflated member and archive sizes.
	Limits Limits
}

// Extract runs the whole extraction for src. Errors wrap ErrFetch or ErrDecompress.
func (x *Extractor) Extract(ctx context.Context, src Source) (*Extraction, error) {
	data, err := x.Fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return x.FromBytes(data)
}

// FromBytes decompresses and classifies an archive already in memory.
func (x *Extractor) FromBytes(data []byte) (*Extraction, error) {
	a, err := Decompress(data, x.Limits)
	if err != nil {
		return nil, err
	}
	c := Classify(a.Paths())
	if x.SortCandidates {
		c = c.Sorted()
	}
	logging.Debug("classified archive",
		"members", len(a.Members),
		"geometry", len(c.Geometry),
		"material", len(c.Material),
		"texture", len(c.Texture))
	return &Extraction{Archive: a, Classification: c, Size: len(data)}, nil
}
