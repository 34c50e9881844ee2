// Package replace holds the operator-supplied replacement registry: exact
// show-title matches that override a programme's plot and poster, bypassing
// whatever the feed carries.
package replace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPosterUnreadable means a replacement entry pointed at a poster file
// that could not be read. This is a config error the operator must fix, so
// loading fails instead of silently skipping the entry.
var ErrPosterUnreadable = errors.New("replace: poster image unreadable")

// Entry is one row of replacements.json.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Poster      string `json:"poster"` // filename inside the posters dir
}

// Registry maps show titles to their replacement plot and poster bytes.
// Built once before ingestion; read-only afterwards.
type Registry struct {
	byTitle map[string]replacement
}

type replacement struct {
	plot   string
	poster []byte
}

// Load builds a registry from entries, eagerly reading each poster from
// postersDir. On duplicate names the first entry wins.
func Load(entries []Entry, postersDir string) (*Registry, error) {
	r := &Registry{byTitle: make(map[string]replacement, len(entries))}
	for _, e := range entries {
		if _, dup := r.byTitle[e.Name]; dup {
			continue
		}
		path := filepath.Join(postersDir, filepath.Base(e.Poster))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %q (%s): %v", ErrPosterUnreadable, e.Name, path, err)
		}
		r.byTitle[e.Name] = replacement{plot: e.Description, poster: data}
	}
	return r, nil
}

// LoadFile reads the replacements JSON file and builds the registry. A
// missing file is not an error: runs without replacements are normal.
func LoadFile(jsonPath, postersDir string) (*Registry, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil, postersDir)
		}
		return nil, fmt.Errorf("replace: read %s: %w", jsonPath, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("replace: parse %s: %w", jsonPath, err)
	}
	return Load(entries, postersDir)
}

// Lookup returns the replacement plot and poster for an exact title match.
func (r *Registry) Lookup(showTitle string) (plot string, poster []byte, ok bool) {
	rep, ok := r.byTitle[showTitle]
	if !ok {
		return "", nil, false
	}
	return rep.plot, rep.poster, true
}

// Len reports how many replacements are registered.
func (r *Registry) Len() int { return len(r.byTitle) }
