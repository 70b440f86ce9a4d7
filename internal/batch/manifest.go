package batch

import (
	"encoding/json"
	"os"

	"meshview/internal/session"
)

// ManifestEntry represents one source in the output manifest.
type ManifestEntry struct {
	Label        string               `json:"label"`
	URL          string               `json:"url"`
	Image        string               `json:"image,omitempty"`
	State        string               `json:"state"`
	Placeholder  bool                 `json:"placeholder"`
	Fallback     string               `json:"fallback,omitempty"`
	Capabilities session.Capabilities `json:"capabilities"`
	Error        string               `json:"error,omitempty"`
	DurationMS   int64                `json:"duration_ms"`
}

// WriteManifest writes the results as JSON to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Label:        r.Label,
			URL:          r.URL,
			Image:        r.Image,
			State:        r.State.String(),
			Placeholder:  r.Placeholder,
			Fallback:     r.Fallback,
			Capabilities: r.Capabilities,
			Error:        r.Error,
			DurationMS:   r.Duration.Milliseconds(),
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
