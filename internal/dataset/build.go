package dataset

import (
	"context"
	"fmt"
	"log/slog"
)

// SkippedFile records a file that was found by the scan but could not be
// loaded.
type SkippedFile struct {
	Path  string `json:"path"`
	Class Class  `json:"class"`
	Error string `json:"error"`
}

// Dataset is an aligned in-memory corpus: Images[i], Labels[i] and Paths[i]
// describe the same sample.
type Dataset struct {
	Classes []Class
	Size    Size
	Images  []*Tensor
	Labels  []int
	Paths   []string
	Skipped []SkippedFile
}

// Len returns the number of loaded samples.
func (d *Dataset) Len() int { return len(d.Labels) }

// NumClasses returns the size of the label space.
func (d *Dataset) NumClasses() int { return len(d.Classes) }

// ClassCounts returns the number of samples per label index.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, len(d.Classes))
	for _, l := range d.Labels {
		counts[l]++
	}
	return counts
}

// Subset returns a new Dataset holding the samples at indices, in order.
// Tensors are shared with the receiver, not copied.
func (d *Dataset) Subset(indices []int) *Dataset {
	sub := &Dataset{
		Classes: d.Classes,
		Size:    d.Size,
		Images:  make([]*Tensor, len(indices)),
		Labels:  make([]int, len(indices)),
		Paths:   make([]string, len(indices)),
	}
	for i, idx := range indices {
		sub.Images[i] = d.Images[idx]
		sub.Labels[i] = d.Labels[idx]
		sub.Paths[i] = d.Paths[idx]
	}
	return sub
}

// Build scans root and loads every image into an aligned Dataset.
//
// Files are loaded class by class in label-index order and, within a class,
// in lexical path order. A file that fails to decode is logged at warning
// level, appended to Skipped and otherwise ignored. If no file loads, the
// error is an *EmptyDatasetError even when the scan itself found files.
//
// exts selects the accepted file extensions as in ScanClasses; nil means
// DefaultExtensions.
//
// Build checks ctx between files and returns ctx.Err() if it is cancelled.
func Build(ctx context.Context, root string, classes []Class, exts []string, size Size, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := ScanClasses(root, classes, exts, logger)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Classes: classes, Size: size}
	for label, c := range classes {
		for _, path := range files[c] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			t, err := LoadImage(path, size)
			if err != nil {
				logger.Warn("skipping unreadable image", "path", path, "class", c, "error", err)
				ds.Skipped = append(ds.Skipped, SkippedFile{Path: path, Class: c, Error: err.Error()})
				continue
			}
			ds.Images = append(ds.Images, t)
			ds.Labels = append(ds.Labels, label)
			ds.Paths = append(ds.Paths, path)
		}
	}

	if ds.Len() == 0 {
		return nil, &EmptyDatasetError{Root: root, Classes: classes, Skipped: len(ds.Skipped)}
	}

	logger.Info("dataset loaded",
		"samples", ds.Len(),
		"skipped", len(ds.Skipped),
		"counts", fmt.Sprint(ds.ClassCounts()))
	return ds, nil
}
