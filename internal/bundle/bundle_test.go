package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "guide"))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteFile(ScheduleFile, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(d.Path(ScheduleFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[]` {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFile_replacesAndLeavesNoTemp(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteFile(SheetFile, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteFile(SheetFile, []byte("new")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(d.Path(SheetFile))
	if string(data) != "new" {
		t.Errorf("content = %q", data)
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestPath_stripsDirectoryComponents(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Path("../escape.json"); filepath.Dir(got) != d.path {
		t.Errorf("Path escaped the bundle dir: %s", got)
	}
}
