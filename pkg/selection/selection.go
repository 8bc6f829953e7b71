// Package selection keeps the per-directory sets of rendered images a user
// picked and round-trips them through a two-column CSV file.
//
// The CSV has a "directory" and a "files" column. The files column holds a
// bracketed list such as ['scan_01', 'scan_07'], matching exports made by
// earlier versions of the viewer.
package selection

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Column names of the CSV header
const (
	DirectoryColumn = "directory"
	FilesColumn     = "files"
)

// Record is one CSV row
type Record struct {
	Directory string
	Files     []string
}

// Book holds the selected stems of every directory
type Book struct {
	dirs map[string]map[string]struct{}
}

// NewBook returns an empty book
func NewBook() *Book {
	return &Book{dirs: make(map[string]map[string]struct{})}
}

func (b *Book) set(dir string) map[string]struct{} {
	dir = filepath.Clean(dir)
	s, ok := b.dirs[dir]
	if !ok {
		s = make(map[string]struct{})
		b.dirs[dir] = s
	}
	return s
}

// Add selects stems in dir
func (b *Book) Add(dir string, stems ...string) {
	s := b.set(dir)
	for _, stem := range stems {
		s[stem] = struct{}{}
	}
}

// Remove deselects stems in dir. The directory keeps its (possibly empty) row.
func (b *Book) Remove(dir string, stems ...string) {
	s := b.set(dir)
	for _, stem := range stems {
		delete(s, stem)
	}
}

// Toggle flips the selection of stem in dir and returns the new state
func (b *Book) Toggle(dir, stem string) bool {
	s := b.set(dir)
	if _, ok := s[stem]; ok {
		delete(s, stem)
		return false
	}
	s[stem] = struct{}{}
	return true
}

// IsSelected reports whether stem is selected in dir
func (b *Book) IsSelected(dir, stem string) bool {
	_, ok := b.dirs[filepath.Clean(dir)][stem]
	return ok
}

// Selected returns the selected stems of dir, sorted
func (b *Book) Selected(dir string) []string {
	s := b.dirs[filepath.Clean(dir)]
	stems := make([]string, 0, len(s))
	for stem := range s {
		stems = append(stems, stem)
	}
	sort.Strings(stems)
	return stems
}

// Dirs returns every directory with a row, sorted
func (b *Book) Dirs() []string {
	dirs := make([]string, 0, len(b.dirs))
	for dir := range b.dirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Len returns the number of directories
func (b *Book) Len() int {
	return len(b.dirs)
}

// Records returns one record per directory, sorted by directory
func (b *Book) Records() []Record {
	records := make([]Record, 0, len(b.dirs))
	for _, dir := range b.Dirs() {
		records = append(records, Record{Directory: dir, Files: b.Selected(dir)})
	}
	return records
}

// Save writes the book as CSV
func (b *Book) Save(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{DirectoryColumn, FilesColumn}); err != nil {
		return err
	}
	for _, rec := range b.Records() {
		if err := cw.Write([]string{rec.Directory, FormatList(rec.Files)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowError describes a CSV row that was skipped during Load
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Load reads a book from CSV. Malformed rows are skipped and returned as
// RowErrors; only read failures abort the load.
func Load(r io.Reader) (*Book, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	book := NewBook()
	var skipped []RowError

	dirCol, filesCol := 0, 1
	first := true

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, RowError{Line: perr.Line, Err: perr.Err})
				continue
			}
			return nil, skipped, err
		}

		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if d, f, ok := headerColumns(row); ok {
				dirCol, filesCol = d, f
				continue
			}
		}

		if len(row) <= dirCol || len(row) <= filesCol {
			skipped = append(skipped, RowError{Line: line, Err: fmt.Errorf("expected at least %d columns, got %d", max(dirCol, filesCol)+1, len(row))})
			continue
		}

		dir := strings.TrimSpace(row[dirCol])
		if dir == "" {
			skipped = append(skipped, RowError{Line: line, Err: errors.New("empty directory")})
			continue
		}

		stems, err := ParseList(row[filesCol])
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}

		book.Add(dir, stems...)
	}

	return book, skipped, nil
}

// headerColumns finds the directory and files columns of a header row.
// A leading unnamed index column, as written by pandas, is tolerated.
func headerColumns(row []string) (dirCol, filesCol int, ok bool) {
	dirCol, filesCol = -1, -1
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case DirectoryColumn:
			dirCol = i
		case FilesColumn:
			filesCol = i
		}
	}
	return dirCol, filesCol, dirCol >= 0 && filesCol >= 0
}

// LoadFile loads a book from path. A missing file yields an empty book.
func LoadFile(path string) (*Book, []RowError, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewBook(), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return Load(f)
}

// SaveFile writes the book to path, replacing it atomically
func SaveFile(path string, b *Book) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := b.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FormatList renders stems as a bracketed, quoted list: ['a', 'b'].
// Items are quoted the way Python's repr does, so ParseList reads back any
// stem unchanged.
func FormatList(stems []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, stem := range stems {
		if i > 0 {
			sb.WriteString(", ")
		}
		quote := byte('\'')
		if strings.ContainsRune(stem, '\'') && !strings.ContainsRune(stem, '"') {
			quote = '"'
		}
		sb.WriteByte(quote)
		for j := 0; j < len(stem); j++ {
			if c := stem[j]; c == '\\' || c == quote {
				sb.WriteByte('\\')
			}
			sb.WriteByte(stem[j])
		}
		sb.WriteByte(quote)
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseList parses a list written by FormatList. Items may use single,
// double or no quotes; commas only separate items outside quotes and a
// backslash inside quotes takes the next byte literally. An empty cell is
// an empty list.
func ParseList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("files %q is not a bracketed list", s)
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}

	var stems []string
	i := 0
	for {
		i = skipSpace(inner, i)
		if i == len(inner) || inner[i] == ',' {
			return nil, fmt.Errorf("empty item in %q", s)
		}

		var item string
		if q := inner[i]; q == '\'' || q == '"' {
			start := i
			var sb strings.Builder
			closed := false
			for i++; i < len(inner); i++ {
				c := inner[i]
				if c == '\\' && i+1 < len(inner) {
					i++
					sb.WriteByte(inner[i])
					continue
				}
				if c == q {
					closed = true
					i++
					break
				}
				sb.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote in %q", inner[start:])
			}
			item = sb.String()

			i = skipSpace(inner, i)
			if i < len(inner) && inner[i] != ',' {
				return nil, fmt.Errorf("unexpected %q after quoted item in %q", inner[i], s)
			}
		} else {
			end := strings.IndexByte(inner[i:], ',')
			if end < 0 {
				end = len(inner) - i
			}
			item = strings.TrimSpace(inner[i : i+end])
			i += end
		}

		if item == "" {
			return nil, fmt.Errorf("empty item in %q", s)
		}
		stems = append(stems, item)

		if i == len(inner) {
			return stems, nil
		}
		// inner[i] is the separating comma
		i++
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}
