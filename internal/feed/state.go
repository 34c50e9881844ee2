package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the durable checkpoint for one guide source: the validators from
// the last successful download, so the next run can revalidate instead of
// re-downloading an unchanged feed.
type State struct {
	// SourceKey identifies the guide URL without storing it verbatim. A
	// changed source invalidates the stored validators.
	SourceKey string `json:"source_key"`

	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at,omitempty"`
	// ContentHash covers the decompressed guide body, catching provider-side
	// changes even when ETag and Last-Modified are absent.
	ContentHash string `json:"content_hash,omitempty"`

	path string
}

// SourceKey computes a stable short key for a guide URL.
func SourceKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:8])
}

// ContentHash returns a short hash of the guide body.
func ContentHash(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:16])
}

// LoadState reads the checkpoint from path. A missing or corrupt file, or
// one written for a different source, yields a fresh empty state.
func LoadState(path, sourceKey string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{path: path, SourceKey: sourceKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed: state load %s: %w", path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil || s.SourceKey != sourceKey {
		return &State{path: path, SourceKey: sourceKey}, nil
	}
	s.path = path
	return &s, nil
}

// Save atomically writes the checkpoint.
func (s *State) Save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(s.path))
	tmp, err := os.CreateTemp(dir, ".feedstate-*.json.tmp")
	if err != nil {
		return fmt.Errorf("feed: state save: create temp: %w", err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(name)
		if werr != nil {
			return fmt.Errorf("feed: state save: write: %w", werr)
		}
		return fmt.Errorf("feed: state save: close: %w", cerr)
	}
	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("feed: state save: rename: %w", err)
	}
	return nil
}
