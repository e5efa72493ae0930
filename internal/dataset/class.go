package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Class is the ground-truth category of a certificate sample. The class of a
// sample is the name of the directory that contains it.
type Class string

// The closed set of certificate classes.
const (
	Authentic  Class = "authentic"
	Forged     Class = "forged"
	Tampered   Class = "tampered"
	Screenshot Class = "screenshot"
)

// DefaultClasses lists every class in label-index order. Index i of this
// slice is the integer label assigned to samples of that class.
var DefaultClasses = []Class{Authentic, Forged, Tampered, Screenshot}

// ParseClass converts a directory or label name into a Class.
func ParseClass(name string) (Class, error) {
	for _, c := range DefaultClasses {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown class %q: expected one of %v", name, DefaultClasses)
}

// ParseClasses converts a list of names, rejecting unknown and duplicate
// entries. An empty list yields DefaultClasses.
func ParseClasses(names []string) ([]Class, error) {
	if len(names) == 0 {
		return append([]Class(nil), DefaultClasses...), nil
	}
	seen := make(map[Class]bool, len(names))
	classes := make([]Class, 0, len(names))
	for _, n := range names {
		c, err := ParseClass(n)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate class %q", n)
		}
		seen[c] = true
		classes = append(classes, c)
	}
	return classes, nil
}

// ClassNames returns the string form of classes, preserving order.
func ClassNames(classes []Class) []string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = string(c)
	}
	return names
}

// OneHot encodes integer labels as an N x k matrix with a single 1 per row.
//
// Labels outside [0, k) produce an error rather than a silent zero row.
func OneHot(labels []int, k int) (*mat.Dense, error) {
	if k <= 0 {
		return nil, fmt.Errorf("class count must be positive, got %d", k)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot one-hot encode an empty label set")
	}
	m := mat.NewDense(len(labels), k, nil)
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, fmt.Errorf("label %d at position %d outside [0,%d)", l, i, k)
		}
		m.Set(i, l, 1)
	}
	return m, nil
}

// Distribution returns the relative frequency of each label in [0, k).
// The result sums to 1 for a non-empty label set and is all zeros otherwise.
func Distribution(labels []int, k int) []float64 {
	counts := make([]float64, k)
	for _, l := range labels {
		if l >= 0 && l < k {
			counts[l]++
		}
	}
	total := floats.Sum(counts)
	if total == 0 {
		return counts
	}
	floats.Scale(1/total, counts)
	return counts
}
