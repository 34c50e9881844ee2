// Package bundle writes the output pair (schedule JSON and sprite sheet)
// into the output directory. Files land via temp+rename so a consumer
// polling the directory never sees a half-written file.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ScheduleFile is the schedule document filename.
	ScheduleFile = "guide.json"
	// SheetFile is the sprite sheet filename.
	SheetFile = "guide.jpg"
)

// Dir is the output directory.
type Dir struct {
	path string
}

// Open ensures the output directory exists.
func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("bundle: create output dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the full path of a file inside the bundle.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, filepath.Base(name))
}

// WriteFile atomically replaces name with data.
func (d *Dir) WriteFile(name string, data []byte) error {
	final := d.Path(name)
	tmp, err := os.CreateTemp(d.path, "."+filepath.Base(name)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("bundle: write %s: create temp: %w", name, err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return fmt.Errorf("bundle: write %s: %w", name, werr)
		}
		return fmt.Errorf("bundle: write %s: close: %w", name, cerr)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bundle: write %s: rename: %w", name, err)
	}
	return nil
}
