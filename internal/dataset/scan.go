package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file extensions accepted by ScanClasses when no
// explicit list is given. Matching is case-insensitive.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// ScanClasses lists the image files of every class directory under root.
//
// Parameters:
//   - root: Directory containing one subdirectory per class.
//   - classes: Classes to scan, in label-index order.
//   - exts: Accepted extensions including the dot. Nil means DefaultExtensions.
//   - logger: Receives a warning for each missing class directory. May be nil.
//
// Returns a map from class to lexically sorted file paths. A class directory
// that does not exist contributes zero files. If the total across all classes
// is zero the error is an *EmptyDatasetError.
func ScanClasses(root string, classes []Class, exts []string, logger *slog.Logger) (map[Class][]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if exts == nil {
		exts = DefaultExtensions
	}
	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(e)] = true
	}

	files := make(map[Class][]string, len(classes))
	total := 0
	for _, c := range classes {
		dir := filepath.Join(root, string(c))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("class directory missing", "class", c, "dir", dir)
				files[c] = nil
				continue
			}
			return nil, fmt.Errorf("failed to read class directory %s: %w", dir, err)
		}

		var paths []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !accept[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
		sort.Strings(paths)
		files[c] = paths
		total += len(paths)
		logger.Debug("scanned class directory", "class", c, "files", len(paths))
	}

	if total == 0 {
		return nil, &EmptyDatasetError{Root: root, Classes: classes}
	}
	return files, nil
}

// CountFiles returns the total number of paths in a scan result.
func CountFiles(files map[Class][]string) int {
	n := 0
	for _, paths := range files {
		n += len(paths)
	}
	return n
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
