// Package browse lists the directories and volume files a user can pick from.
package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bmeview/pkg/bmeii"
)

// ListDirs returns the names of the visible sub-directories of root, sorted
func ListDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if isDir(root, entry) {
			dirs = append(dirs, entry.Name())
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// ListVolumes returns the full paths of the volume files directly inside dir, sorted
func ListVolumes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if isDir(dir, entry) || !bmeii.IsVolume(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// Expand turns a mix of files and directories into a list of volume files.
// Directories are replaced by their volumes; files are kept in place.
func Expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Missing files are reported per file by the converter
			files = append(files, arg)
			continue
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		volumes, err := ListVolumes(arg)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		files = append(files, volumes...)
	}
	return files, nil
}

// isDir follows symlinks so linked study directories show up
func isDir(parent string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
