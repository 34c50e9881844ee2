package replace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePoster(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePoster(t, dir, "weather.jpg", []byte("jpeg-bytes"))

	r, err := Load([]Entry{{Name: "Weather", Description: "Daily forecast", Poster: "weather.jpg"}}, dir)
	if err != nil {
		t.Fatal(err)
	}
	plot, poster, ok := r.Lookup("Weather")
	if !ok {
		t.Fatal("Lookup miss")
	}
	if plot != "Daily forecast" {
		t.Errorf("plot = %q", plot)
	}
	if string(poster) != "jpeg-bytes" {
		t.Errorf("poster = %q", poster)
	}
	if _, _, ok := r.Lookup("weather"); ok {
		t.Error("lookup must be exact, not case-folded")
	}
}

func TestLoad_firstEntryWinsOnDuplicate(t *testing.T) {
	dir := t.TempDir()
	writePoster(t, dir, "a.jpg", []byte("a"))
	writePoster(t, dir, "b.jpg", []byte("b"))

	r, err := Load([]Entry{
		{Name: "Show", Description: "first", Poster: "a.jpg"},
		{Name: "Show", Description: "second", Poster: "b.jpg"},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	plot, poster, _ := r.Lookup("Show")
	if plot != "first" || string(poster) != "a" {
		t.Errorf("got %q/%q, want first entry", plot, poster)
	}
}

func TestLoad_unreadablePosterIsFatal(t *testing.T) {
	_, err := Load([]Entry{{Name: "Show", Poster: "missing.jpg"}}, t.TempDir())
	if !errors.Is(err, ErrPosterUnreadable) {
		t.Fatalf("err = %v, want ErrPosterUnreadable", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writePoster(t, dir, "w.jpg", []byte("img"))
	jsonPath := filepath.Join(dir, "replacements.json")
	body := `[{"name":"Weather","description":"Daily forecast","poster":"w.jpg"}]`
	if err := os.WriteFile(jsonPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(jsonPath, dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestLoadFile_missingFileIsEmptyRegistry(t *testing.T) {
	r, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestLoadFile_badJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "replacements.json")
	os.WriteFile(jsonPath, []byte("{not json"), 0644)
	if _, err := LoadFile(jsonPath, dir); err == nil {
		t.Error("expected parse error")
	}
}
