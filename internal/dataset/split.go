package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// fractionTolerance bounds the rounding error accepted when checking that
// split fractions sum to one.
const fractionTolerance = 1e-9

// Fractions are the relative sizes of the train, validation and test subsets.
type Fractions struct {
	Train      float64 `json:"train" toml:"train" yaml:"train"`
	Validation float64 `json:"validation" toml:"validation" yaml:"validation"`
	Test       float64 `json:"test" toml:"test" yaml:"test"`
}

// DefaultFractions is the 70/15/15 split.
var DefaultFractions = Fractions{Train: 0.70, Validation: 0.15, Test: 0.15}

func (f Fractions) values() [3]float64 {
	return [3]float64{f.Train, f.Validation, f.Test}
}

// Validate checks that every fraction is in [0, 1] and that they sum to 1.
func (f Fractions) Validate() error {
	sum := 0.0
	for i, v := range f.values() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s fraction %v outside [0,1]", ErrInvalidFractions, subsetNames[i], v)
		}
		sum += v
	}
	if math.Abs(sum-1) > fractionTolerance {
		return fmt.Errorf("%w: fractions sum to %v, want 1", ErrInvalidFractions, sum)
	}
	if f.Train == 0 {
		return fmt.Errorf("%w: train fraction must be positive", ErrInvalidFractions)
	}
	return nil
}

var subsetNames = [3]string{"train", "validation", "test"}

// Split holds the sample indices of each subset.
type Split struct {
	Train      []int `json:"train"`
	Validation []int `json:"validation"`
	Test       []int `json:"test"`
}

// Len returns the total number of indices across the three subsets.
func (s Split) Len() int {
	return len(s.Train) + len(s.Validation) + len(s.Test)
}

func (s *Split) subset(i int) *[]int {
	switch i {
	case 0:
		return &s.Train
	case 1:
		return &s.Validation
	default:
		return &s.Test
	}
}

// StratifiedSplit partitions sample indices 0..len(labels)-1 into train,
// validation and test subsets that preserve the class distribution.
//
// # Sizing
//
// Subset sizes are fixed globally first: each subset receives
// floor(fraction*N) samples and the remainder goes to the subsets with the
// largest fractional parts (test, then validation, then train on ties).
// Each class is then allocated across the subsets by the largest-remainder
// method, constrained so the per-subset totals match the global sizes.
// For 40 samples in four balanced classes this yields 28/6/6.
//
// # Guarantees
//
//   - Every index appears in exactly one subset.
//   - Every class with at least as many samples as there are subsets with a
//     positive fraction appears in each of those subsets.
//   - The result depends only on labels, fractions and seed.
//
// # Errors
//
//   - ErrInvalidFractions if f fails Validate
//   - ErrEmptyDataset if labels is empty
//   - *StratificationError if some class has fewer samples than the number
//     of subsets with a positive fraction
func StratifiedSplit(labels []int, f Fractions, seed uint64) (Split, error) {
	if err := f.Validate(); err != nil {
		return Split{}, err
	}
	n := len(labels)
	if n == 0 {
		return Split{}, fmt.Errorf("%w: no samples to split", ErrEmptyDataset)
	}

	fracs := f.values()
	positive := 0
	for _, v := range fracs {
		if v > 0 {
			positive++
		}
	}

	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classIDs := make([]int, 0, len(byClass))
	for l := range byClass {
		classIDs = append(classIDs, l)
	}
	sort.Ints(classIDs)

	tooSmall := make(map[int]int)
	for _, l := range classIDs {
		if len(byClass[l]) < positive {
			tooSmall[l] = len(byClass[l])
		}
	}
	if len(tooSmall) > 0 {
		return Split{}, &StratificationError{Counts: tooSmall, Required: positive}
	}

	counts := make([]int, len(classIDs))
	for ci, l := range classIDs {
		counts[ci] = len(byClass[l])
	}
	targets := subsetSizes(n, fracs)
	alloc := allocate(counts, fracs, targets)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var split Split
	for ci, l := range classIDs {
		idx := append([]int(nil), byClass[l]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		start := 0
		for s := 0; s < 3; s++ {
			dst := split.subset(s)
			*dst = append(*dst, idx[start:start+alloc[ci][s]]...)
			start += alloc[ci][s]
		}
	}
	for s := 0; s < 3; s++ {
		dst := *split.subset(s)
		rng.Shuffle(len(dst), func(i, j int) { dst[i], dst[j] = dst[j], dst[i] })
	}
	return split, nil
}

// subsetSizes distributes n samples across the subsets by largest remainder.
func subsetSizes(n int, fracs [3]float64) [3]int {
	var sizes [3]int
	var rems [3]float64
	assigned := 0
	for s, f := range fracs {
		ideal := f * float64(n)
		sizes[s] = int(math.Floor(ideal + fractionTolerance))
		rems[s] = ideal - float64(sizes[s])
		assigned += sizes[s]
	}
	for s := 0; assigned > n; s = (s + 1) % 3 {
		if sizes[s] > 0 {
			sizes[s]--
			assigned--
		}
	}
	// Ties favor test, then validation.
	order := []int{2, 1, 0}
	sort.SliceStable(order, func(i, j int) bool { return rems[order[i]] > rems[order[j]] })
	for i := 0; assigned < n; i++ {
		s := order[i%3]
		if fracs[s] == 0 {
			continue
		}
		sizes[s]++
		assigned++
	}
	return sizes
}

// allocate splits each class count across subsets so that row sums equal
// counts and column sums equal targets.
func allocate(counts []int, fracs [3]float64, targets [3]int) [][3]int {
	alloc := make([][3]int, len(counts))
	remaining := make([]int, len(counts))
	deficit := targets

	type cell struct {
		class, subset int
		rem           float64
	}
	var cells []cell
	for c, n := range counts {
		used := 0
		for s, f := range fracs {
			ideal := f * float64(n)
			alloc[c][s] = int(math.Floor(ideal + fractionTolerance))
			used += alloc[c][s]
			deficit[s] -= alloc[c][s]
			if f > 0 {
				cells = append(cells, cell{c, s, ideal - float64(alloc[c][s])})
			}
		}
		remaining[c] = n - used
	}

	sort.SliceStable(cells, func(i, j int) bool { return cells[i].rem > cells[j].rem })
	for _, cl := range cells {
		if remaining[cl.class] > 0 && deficit[cl.subset] > 0 {
			alloc[cl.class][cl.subset]++
			remaining[cl.class]--
			deficit[cl.subset]--
		}
	}
	// Whatever the greedy pass could not place still balances, since the
	// row and column residuals have equal sums.
	for c := range counts {
		for s := 0; s < 3 && remaining[c] > 0; s++ {
			if fracs[s] == 0 || deficit[s] <= 0 {
				continue
			}
			k := min(remaining[c], deficit[s])
			alloc[c][s] += k
			remaining[c] -= k
			deficit[s] -= k
		}
		// Only reachable through float rounding at the tolerance boundary.
		alloc[c][0] += remaining[c]
		remaining[c] = 0
	}

	ensureRepresented(alloc, fracs)
	return alloc
}

// ensureRepresented moves samples so every class has at least one sample in
// every positive subset. A move inside one class is paired with the opposite
// move in a donor class when possible, keeping subset totals unchanged.
func ensureRepresented(alloc [][3]int, fracs [3]float64) {
	for c := range alloc {
		for s := 0; s < 3; s++ {
			if fracs[s] == 0 || alloc[c][s] > 0 {
				continue
			}
			from := -1
			for t := 0; t < 3; t++ {
				if t != s && alloc[c][t] > 1 && (from < 0 || alloc[c][t] > alloc[c][from]) {
					from = t
				}
			}
			if from < 0 {
				continue
			}
			alloc[c][from]--
			alloc[c][s]++

			for d := range alloc {
				if d != c && alloc[d][s] > 1 {
					alloc[d][s]--
					alloc[d][from]++
					break
				}
			}
		}
	}
}
