package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for corpus-level conditions. Use errors.Is to test for
// them; the concrete error types carry the details.
var (
	ErrEmptyDataset     = errors.New("empty dataset")
	ErrStratification   = errors.New("stratification failed")
	ErrInvalidFractions = errors.New("invalid split fractions")
)

// MinRecommendedPerClass is the sample count per class below which a
// trained classifier is unlikely to generalize.
const MinRecommendedPerClass = 50

// EmptyDatasetError reports that scanning found no usable images.
type EmptyDatasetError struct {
	Root    string
	Classes []Class
	// Skipped is the number of files that were found but failed to decode.
	Skipped int
}

func (e *EmptyDatasetError) Error() string {
	if e.Skipped > 0 {
		return fmt.Sprintf("no usable images under %s: all %d candidate files failed to decode", e.Root, e.Skipped)
	}
	return fmt.Sprintf("no images found under %s", e.Root)
}

func (e *EmptyDatasetError) Is(target error) bool { return target == ErrEmptyDataset }

// Remediation returns the next steps to print for an empty corpus.
func (e *EmptyDatasetError) Remediation() string {
	var b strings.Builder
	b.WriteString("Expected directory layout:\n")
	for _, c := range e.Classes {
		fmt.Fprintf(&b, "  %s/%s/*.jpg|*.jpeg|*.png\n", e.Root, c)
	}
	fmt.Fprintf(&b, "Add at least %d images per class, or bootstrap a synthetic corpus with:\n", MinRecommendedPerClass)
	fmt.Fprintf(&b, "  cert-dataset generate --root %s --count %d\n", e.Root, MinRecommendedPerClass)
	return b.String()
}

// StratificationError reports classes that are too small to be represented
// in every split subset with a positive fraction.
type StratificationError struct {
	// Counts maps each offending class index to its sample count.
	Counts map[int]int
	// Required is the minimum number of samples a class needs.
	Required int
}

func (e *StratificationError) Error() string {
	parts := make([]string, 0, len(e.Counts))
	for label, n := range e.Counts {
		parts = append(parts, fmt.Sprintf("label %d has %d", label, n))
	}
	return fmt.Sprintf("stratification failed: each class needs at least %d samples (%s)",
		e.Required, strings.Join(sortedStrings(parts), ", "))
}

func (e *StratificationError) Is(target error) bool { return target == ErrStratification }
