package batch

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"

	"meshview/internal/archive"
)

// ReadSources parses a source list: one archive per line as
// "url[<TAB>label[<TAB>proxy path]]". Blank lines and # comments are skipped.
func ReadSources(r io.Reader) ([]archive.Source, error) {
	var out []archive.Source
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimRight(sc.Text(), " \r")
		if text := strings.TrimSpace(raw); text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(raw, "\t")
		src := archive.Source{URL: strings.TrimSpace(cols[0])}
		if len(cols) > 1 {
			src.Label = strings.TrimSpace(cols[1])
		}
		if len(cols) > 2 {
			src.ProxyPath = strings.TrimSpace(cols[2])
		}
		if src.URL == "" {
			return nil, fmt.Errorf("batch: sources line %d: missing url", line)
		}
		if src.Label == "" {
			src.Label = defaultLabel(src.URL)
		}
		out = append(out, src)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("batch: read sources: %w", err)
	}
	return out, nil
}

func defaultLabel(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Slug returns a file-name-safe form of the source label.
func Slug(src archive.Source) string {
	label := src.Label
	if label == "" {
		label = defaultLabel(src.URL)
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "model"
	}
	return s
}
