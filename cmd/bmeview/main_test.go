package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bmeview/internal/models"
	"bmeview/pkg/bmeii"
)

type fixture struct {
	dir       string
	studyDir  string
	cacheDir  string
	selection string
	config    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:       dir,
		studyDir:  filepath.Join(dir, "studies", "mouse01"),
		cacheDir:  filepath.Join(dir, "cache"),
		selection: filepath.Join(dir, "selection.csv"),
		config:    filepath.Join(dir, "config.yaml"),
	}
	if err := os.MkdirAll(f.studyDir, 0755); err != nil {
		t.Fatal(err)
	}

	header := models.VolumeHeader{Rows: 2, Cols: 3, Slices: 1}
	samples := []int16{0, 1, 2, 3, 4, 5}
	for _, name := range []string{"a.bmeii", "b.bmeii.gz"} {
		if err := bmeii.WriteFile(filepath.Join(f.studyDir, name), header, samples, bmeii.DefaultOptions()); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(f.studyDir, "broken.bmeii"), []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f fixture) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	base := []string{
		"--config", f.config,
		"--cache-dir", f.cacheDir,
		"--selection", f.selection,
		"--root", filepath.Join(f.dir, "studies"),
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append(base, args...), &stdout, &stderr)
	if code != 0 {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), code
}

func TestConvertCommand(t *testing.T) {
	f := newFixture(t)

	out, code := f.run(t, "convert", f.studyDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, "2 of 3 files rendered") {
		t.Errorf("Expected a 2 of 3 summary, got:\n%s", out)
	}
	if !strings.Contains(out, "truncated") {
		t.Errorf("Expected the broken file to be reported as truncated, got:\n%s", out)
	}

	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(f.cacheDir, name)); err != nil {
			t.Errorf("Expected %s in the cache: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.cacheDir, "broken.png")); !os.IsNotExist(err) {
		t.Error("Expected no raster for the broken file")
	}
}

func TestConvertUnknownColormap(t *testing.T) {
	f := newFixture(t)

	if _, code := f.run(t, "--colormap", "no-such-map", "convert", f.studyDir); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestSelectCommands(t *testing.T) {
	f := newFixture(t)

	if _, code := f.run(t, "select", "add", f.studyDir, "a.bmeii", "b"); code != 0 {
		t.Fatalf("select add failed with code %d", code)
	}
	if _, code := f.run(t, "select", "remove", f.studyDir, "b"); code != 0 {
		t.Fatalf("select remove failed with code %d", code)
	}

	out, code := f.run(t, "select", "show", f.studyDir)
	if code != 0 {
		t.Fatalf("select show failed with code %d", code)
	}
	if !strings.Contains(out, "['a']") {
		t.Errorf("Expected only a to be selected, got:\n%s", out)
	}

	out, _ = f.run(t, "convert", f.studyDir)
	if !strings.Contains(out, "* ok") {
		t.Errorf("Expected the selected file to be marked, got:\n%s", out)
	}

	out, _ = f.run(t, "dirs")
	if !strings.Contains(out, "mouse01") {
		t.Errorf("Expected mouse01 in the directory list, got:\n%s", out)
	}
}

func TestInfoCommand(t *testing.T) {
	f := newFixture(t)
	slices := filepath.Join(f.dir, "slices")

	out, code := f.run(t, "info", "--slices-dir", slices, filepath.Join(f.studyDir, "a.bmeii"))
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, "2 rows x 3 cols x 1 slices") {
		t.Errorf("Expected the dimensions, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(slices, "a_000.png")); err != nil {
		t.Errorf("Expected the plane raster to be written: %v", err)
	}
}

func TestPalettesCommand(t *testing.T) {
	f := newFixture(t)

	out, code := f.run(t, "--colormap", "Magma", "palettes")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, "* magma") {
		t.Errorf("Expected magma to be marked active, got:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	f := newFixture(t)

	if _, code := f.run(t, "config", "init"); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(f.config); err != nil {
		t.Fatalf("Expected the config file to exist: %v", err)
	}
	if _, code := f.run(t, "config", "init"); code != 1 {
		t.Errorf("Expected exit code 1 without --force, got %d", code)
	}
	if _, code := f.run(t, "config", "init", "--force"); code != 0 {
		t.Errorf("Expected exit code 0 with --force, got %d", code)
	}
}
