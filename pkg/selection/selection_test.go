package selection

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// TestBookOperations covers add, remove, toggle and listing
func TestBookOperations(t *testing.T) {
	b := NewBook()
	b.Add("/data/study_a", "scan_02", "scan_01")
	b.Add("/data/study_b/", "x")

	if !b.IsSelected("/data/study_a", "scan_01") {
		t.Error("Expected scan_01 to be selected")
	}
	if !b.IsSelected("/data/study_b", "x") {
		t.Error("Expected directory paths to be cleaned")
	}

	if on := b.Toggle("/data/study_a", "scan_01"); on {
		t.Error("Expected toggle to deselect scan_01")
	}
	if on := b.Toggle("/data/study_a", "scan_03"); !on {
		t.Error("Expected toggle to select scan_03")
	}

	want := []string{"scan_02", "scan_03"}
	if got := b.Selected("/data/study_a"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	b.Remove("/data/study_b", "x")
	if got := b.Selected("/data/study_b"); len(got) != 0 {
		t.Errorf("Expected no selection, got %v", got)
	}
	if b.Len() != 2 {
		t.Errorf("Expected 2 directories, got %d", b.Len())
	}
	if got := b.Dirs(); !reflect.DeepEqual(got, []string{"/data/study_a", "/data/study_b"}) {
		t.Errorf("Unexpected dirs %v", got)
	}
}

// TestSaveLoad round-trips a book through CSV
func TestSaveLoad(t *testing.T) {
	b := NewBook()
	b.Add("/data/study_a", "scan_01", "scan_07")
	b.Add("/data/with,comma", "it's")
	b.Add("/study", "scan,01", "scan_02", `say "it's"`, `back\slash`)
	b.Add("/data/empty")
	b.Remove("/data/empty")

	var buf bytes.Buffer
	if err := b.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "directory,files\n") {
		t.Errorf("Expected header row, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "['scan_01', 'scan_07']") {
		t.Errorf("Expected bracketed list, got %q", buf.String())
	}

	loaded, skipped, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("Expected no skipped rows, got %v", skipped)
	}
	if !reflect.DeepEqual(loaded.Records(), b.Records()) {
		t.Errorf("Expected %+v, got %+v", b.Records(), loaded.Records())
	}
}

// TestLoadSkipsMalformedRows verifies that bad rows do not fail the load
func TestLoadSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		",directory,files",
		"0,/data/a,\"['s1', 's2']\"",
		"1,/data/b,not a list",
		"2,/data/c",
		"3,,['s9']",
		"4,/data/d,\"['s3', ]\"",
		"5,/data/a,['s4']",
		"6,/data/e,[]",
	}, "\n")

	book, skipped, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(skipped) != 4 {
		t.Fatalf("Expected 4 skipped rows, got %d: %v", len(skipped), skipped)
	}
	wantLines := []int{3, 4, 5, 6}
	for i, e := range skipped {
		if e.Line != wantLines[i] {
			t.Errorf("Skipped row %d: expected line %d, got %d (%v)", i, wantLines[i], e.Line, e)
		}
	}

	if got := book.Selected("/data/a"); !reflect.DeepEqual(got, []string{"s1", "s2", "s4"}) {
		t.Errorf("Expected merged selection for /data/a, got %v", got)
	}
	if got := book.Dirs(); !reflect.DeepEqual(got, []string{"/data/a", "/data/e"}) {
		t.Errorf("Unexpected directories %v", got)
	}
}

// TestLoadWithoutHeader treats the first row as data when no header is present
func TestLoadWithoutHeader(t *testing.T) {
	book, skipped, err := Load(strings.NewReader("/data/a,\"['x', \"\"y\"\"]\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("Expected no skipped rows, got %v", skipped)
	}
	if got := book.Selected("/data/a"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Expected [x y], got %v", got)
	}
}

// TestFileRoundTrip covers LoadFile and SaveFile
func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "selection.csv")

	empty, _, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile on a missing file failed: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("Expected empty book, got %d directories", empty.Len())
	}

	b := NewBook()
	b.Add("/data/a", "one")
	if err := SaveFile(path, b); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	loaded, _, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !loaded.IsSelected("/data/a", "one") {
		t.Error("Expected selection to survive the round trip")
	}
}

// TestParseList covers accepted and rejected list syntaxes
func TestParseList(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"[]", nil, false},
		{"['a']", []string{"a"}, false},
		{`["a", 'b', c]`, []string{"a", "b", "c"}, false},
		{"  [ 'a' ,  'b' ]  ", []string{"a", "b"}, false},
		{"'a', 'b'", nil, true},
		{"['a', ]", nil, true},
		{"['a\"]", nil, true},
		{"['scan,01', 'scan_02']", []string{"scan,01", "scan_02"}, false},
		{`["it's", 'a, b' , c]`, []string{"it's", "a, b", "c"}, false},
		{`['say "it\'s"', 'back\\slash']`, []string{`say "it's"`, `back\slash`}, false},
		{"['a' 'b']", nil, true},
		{"['a',, 'b']", nil, true},
		{"['a, b]", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseList(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestListRoundTrip checks that every formatted list parses back unchanged
func TestListRoundTrip(t *testing.T) {
	lists := [][]string{
		{"scan,01", "scan_02"},
		{"it's", `"quoted"`, `both ' and "`},
		{`trailing\`, `\'`, " padded "},
	}

	for _, stems := range lists {
		got, err := ParseList(FormatList(stems))
		if err != nil {
			t.Errorf("ParseList(FormatList(%q)) failed: %v", stems, err)
			continue
		}
		if !reflect.DeepEqual(got, stems) {
			t.Errorf("Expected %q, got %q", stems, got)
		}
	}
}

// TestFormatList checks quoting
func TestFormatList(t *testing.T) {
	if got := FormatList([]string{"a", "it's"}); got != `['a', "it's"]` {
		t.Errorf("Unexpected list %s", got)
	}
	if got := FormatList([]string{`say "it's"`, `a\b`, "x,y"}); got != `['say "it\'s"', 'a\\b', 'x,y']` {
		t.Errorf("Unexpected list %s", got)
	}
	if got := FormatList(nil); got != "[]" {
		t.Errorf("Expected [], got %s", got)
	}
}
